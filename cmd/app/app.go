package app

import (
	"github.com/sirupsen/logrus"

	"tweetmemo/internal/config"
	"tweetmemo/internal/database"
	"tweetmemo/internal/repository"
	"tweetmemo/internal/service"
	"tweetmemo/internal/session"
	"tweetmemo/internal/storage"
)

// App wires the store, repositories and services together.
func App(cfg *config.Config) (*database.DB, *repository.Repository, *service.Service, *session.Session, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	media, err := storage.NewMediaStore(cfg.MediaDir)
	if err != nil {
		db.CloseDB()
		return nil, nil, nil, nil, err
	}

	sess := session.NewSession()
	repo := repository.NewRepository(db)
	services := service.NewService(db, repo, media, sess, cfg)

	logrus.WithFields(logrus.Fields{
		"db":    cfg.DBPath,
		"media": cfg.MediaDir,
	}).Debug("application wired")

	return db, repo, services, sess, nil
}
