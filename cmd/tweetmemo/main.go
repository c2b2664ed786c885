package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"tweetmemo/internal/config"
)

func main() {
	cfg := config.LoadConfig()
	logrus.SetLevel(cfg.ParseLevel())

	if err := newRootCmd(cfg).Execute(); err != nil {
		logrus.WithError(err).Error("command failed")
		os.Exit(1)
	}
}
