package service

import (
	"github.com/go-playground/validator/v10"

	"tweetmemo/internal/config"
	"tweetmemo/internal/database"
	"tweetmemo/internal/repository"
	"tweetmemo/internal/session"
	"tweetmemo/internal/storage"
)

var validate = validator.New()

type Service struct {
	User     UserService
	Tweet    TweetService
	Follow   FollowService
	Timeline TimelineService
}

func NewService(db *database.DB, repo *repository.Repository, store storage.Storage, sess *session.Session, cfg *config.Config) *Service {
	return &Service{
		User:     NewUserService(db, repo, store, sess, cfg),
		Tweet:    NewTweetService(db, repo, store, cfg),
		Follow:   NewFollowService(db, repo.User, sess),
		Timeline: NewTimelineService(repo),
	}
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
