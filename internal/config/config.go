package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// DBPath is the sqlite database file. ":memory:" is accepted for tests.
	DBPath string
	// MediaDir is the documents-style directory holding attached images.
	// Records reference files by bare filename only, so the directory can
	// be relocated between runs.
	MediaDir string
	LogLevel string
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Debug(".env file not found, using environment variables")
	}

	return &Config{
		DBPath:   getEnv("TWEETMEMO_DB", "tweetmemo.db"),
		MediaDir: getEnv("TWEETMEMO_MEDIA_DIR", "media"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// ParseLevel maps the configured log level onto logrus, falling back to
// info on garbage input.
func (c *Config) ParseLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
