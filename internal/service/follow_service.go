package service

import (
	"context"

	"github.com/jmoiron/sqlx"

	"tweetmemo/internal/database"
	"tweetmemo/internal/repository"
	"tweetmemo/internal/session"
)

type FollowService interface {
	Toggle(ctx context.Context, viewerID, targetID int64) (bool, error)
}

type followService struct {
	db       *database.DB
	userRepo repository.UserRepository
	session  *session.Session
}

func NewFollowService(db *database.DB, userRepo repository.UserRepository, sess *session.Session) FollowService {
	return &followService{db: db, userRepo: userRepo, session: sess}
}

// Toggle follows the target if the viewer does not already, unfollows
// otherwise, and returns the new membership. A user never follows itself:
// self-targeting is ignored and reported as not-following. When the viewer
// is the signed-in user the session snapshot is refreshed from the
// committed record before returning.
func (s *followService) Toggle(ctx context.Context, viewerID, targetID int64) (bool, error) {
	if viewerID == targetID {
		return false, nil
	}

	if _, err := s.userRepo.GetByID(ctx, viewerID); err != nil {
		return false, err
	}

	follows, err := s.userRepo.Follows(ctx, viewerID)
	if err != nil {
		return false, err
	}

	following := containsID(follows, targetID)

	err = s.db.RunTx(ctx, func(tx *sqlx.Tx) error {
		if following {
			return s.userRepo.RemoveFollow(ctx, tx, viewerID, targetID)
		}
		return s.userRepo.AddFollow(ctx, tx, viewerID, targetID)
	})
	if err != nil {
		return false, err
	}

	if s.session.IsCurrent(viewerID) {
		fresh, err := s.userRepo.GetByID(ctx, viewerID)
		if err != nil {
			return false, err
		}
		s.session.SetUser(fresh)
	}

	return !following, nil
}
