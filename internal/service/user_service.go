package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"tweetmemo/internal/config"
	"tweetmemo/internal/database"
	"tweetmemo/internal/models"
	"tweetmemo/internal/repository"
	"tweetmemo/internal/session"
	"tweetmemo/internal/storage"
)

type UserService interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error)
	UpdateUser(ctx context.Context, req UpdateUserRequest) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ResolveUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SignIn(ctx context.Context, id int64) (*models.User, error)
	SignOut()
}

type CreateUserRequest struct {
	FullName     string `validate:"required"`
	Username     string `validate:"required"`
	ProfileText  string
	ProfileImage []byte
}

type UpdateUserRequest struct {
	ID           int64 `validate:"min=0"`
	FullName     string `validate:"required"`
	Username     string `validate:"required"`
	ProfileText  string
	ProfileImage []byte
}

type userService struct {
	db        *database.DB
	userRepo  repository.UserRepository
	tweetRepo repository.TweetRepository
	replyRepo repository.ReplyRepository
	imageRepo repository.ImageRepository
	storage   storage.Storage
	session   *session.Session
	cfg       *config.Config
}

func NewUserService(db *database.DB, repo *repository.Repository, store storage.Storage, sess *session.Session, cfg *config.Config) UserService {
	return &userService{
		db:        db,
		userRepo:  repo.User,
		tweetRepo: repo.Tweet,
		replyRepo: repo.Reply,
		imageRepo: repo.Image,
		storage:   store,
		session:   sess,
		cfg:       cfg,
	}
}

// CreateUser registers a user and signs them in, the way the original
// registration screen did.
func (s *userService) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid user: %w", err)
	}

	id, err := s.userRepo.NextID(ctx)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           id,
		FullName:     req.FullName,
		Username:     req.Username,
		ProfileText:  req.ProfileText,
		ProfileImage: req.ProfileImage,
	}

	err = s.db.RunTx(ctx, func(tx *sqlx.Tx) error {
		return s.userRepo.Create(ctx, tx, user)
	})
	if err != nil {
		return nil, err
	}

	s.session.SetUser(user)
	return user, nil
}

// UpdateUser rewrites the profile fields. When the signed-in user edits
// their own record, the session snapshot is refreshed from the committed
// record before returning; the cache never lags the store.
func (s *userService) UpdateUser(ctx context.Context, req UpdateUserRequest) (*models.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid user: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	user.FullName = req.FullName
	user.Username = req.Username
	user.ProfileText = req.ProfileText
	user.ProfileImage = req.ProfileImage

	err = s.db.RunTx(ctx, func(tx *sqlx.Tx) error {
		return s.userRepo.Update(ctx, tx, user)
	})
	if err != nil {
		return nil, err
	}

	if s.session.IsCurrent(user.ID) {
		s.session.SetUser(user)
	}

	return user, nil
}

// DeleteUser removes the user together with every tweet and reply they
// authored, in one transaction, then best-effort removes the media files
// those records owned. Follow-list entries in other users pointing at the
// deleted id are deliberately left behind; lookups resolve them to nothing.
func (s *userService) DeleteUser(ctx context.Context, id int64) error {
	if _, err := s.userRepo.GetByID(ctx, id); err != nil {
		return err
	}

	tweets, err := s.tweetRepo.ByAuthor(ctx, id)
	if err != nil {
		return err
	}

	authoredReplies, err := s.replyRepo.ByAuthor(ctx, id)
	if err != nil {
		return err
	}

	// Replies hanging off the user's tweets go down with the tweets,
	// including replies written by other users.
	ownTweetIDs := make(map[int64]bool, len(tweets))
	var fileNames []string
	var cascadeReplies []models.Reply
	for _, tweet := range tweets {
		ownTweetIDs[tweet.ID] = true
		for _, ref := range tweet.Images {
			fileNames = append(fileNames, ref.FileName)
		}
		replies, err := s.replyRepo.ByTweet(ctx, tweet.ID)
		if err != nil {
			return err
		}
		for _, reply := range replies {
			cascadeReplies = append(cascadeReplies, reply)
			for _, ref := range reply.Images {
				fileNames = append(fileNames, ref.FileName)
			}
		}
	}

	// Replies the user wrote under other people's tweets.
	var strayReplies []models.Reply
	for _, reply := range authoredReplies {
		if ownTweetIDs[reply.TweetID] {
			continue
		}
		strayReplies = append(strayReplies, reply)
		for _, ref := range reply.Images {
			fileNames = append(fileNames, ref.FileName)
		}
	}

	err = s.db.RunTx(ctx, func(tx *sqlx.Tx) error {
		for _, reply := range cascadeReplies {
			if err := s.imageRepo.DeleteForOwner(ctx, tx, models.KindReply, reply.ID); err != nil {
				return err
			}
		}
		for _, tweet := range tweets {
			if err := s.replyRepo.DeleteByTweet(ctx, tx, tweet.ID); err != nil {
				return err
			}
			if err := s.imageRepo.DeleteForOwner(ctx, tx, models.KindTweet, tweet.ID); err != nil {
				return err
			}
			if err := s.tweetRepo.Delete(ctx, tx, tweet.ID); err != nil {
				return err
			}
		}
		for _, reply := range strayReplies {
			if err := s.imageRepo.DeleteForOwner(ctx, tx, models.KindReply, reply.ID); err != nil {
				return err
			}
			if err := s.replyRepo.Delete(ctx, tx, reply.ID); err != nil {
				return err
			}
		}
		return s.userRepo.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	if s.session.IsCurrent(id) {
		s.session.Clear()
	}

	for _, fileName := range fileNames {
		if err := s.storage.DeleteImage(fileName); err != nil {
			logrus.WithError(err).WithField("file", fileName).Warn("media cleanup failed")
		}
	}

	return nil
}

func (s *userService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// ResolveUser is the lenient lookup for author and follow references that
// may point at a deleted user: a miss returns nil, not an error.
func (s *userService) ResolveUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.userRepo.All(ctx)
}

func (s *userService) SignIn(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.session.SetUser(user)
	return user, nil
}

func (s *userService) SignOut() {
	s.session.Clear()
}
