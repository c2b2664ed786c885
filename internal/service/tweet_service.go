package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"tweetmemo/internal/config"
	"tweetmemo/internal/database"
	"tweetmemo/internal/models"
	"tweetmemo/internal/repository"
	"tweetmemo/internal/storage"
)

type TweetService interface {
	CreateTweet(ctx context.Context, req CreateTweetRequest) (*models.Tweet, error)
	CreateReply(ctx context.Context, req CreateReplyRequest) (*models.Reply, error)
	GetTweet(ctx context.Context, id int64) (*models.Tweet, error)
	Replies(ctx context.Context, tweetID int64) ([]models.Reply, error)
	ToggleLike(ctx context.Context, ref models.EntityRef) (bool, error)
	Bump(ctx context.Context, ref models.EntityRef) error
	DeleteTweet(ctx context.Context, id int64) error
	DeleteReply(ctx context.Context, id int64) error
}

type CreateTweetRequest struct {
	AuthorID int64    `validate:"min=0"`
	Caption  string   `validate:"required,max=140"`
	Images   [][]byte `validate:"-"`
}

type CreateReplyRequest struct {
	TweetID  int64    `validate:"min=0"`
	AuthorID int64    `validate:"min=0"`
	Caption  string   `validate:"required,max=140"`
	Images   [][]byte `validate:"-"`
}

type tweetService struct {
	db        *database.DB
	tweetRepo repository.TweetRepository
	replyRepo repository.ReplyRepository
	imageRepo repository.ImageRepository
	storage   storage.Storage
	cfg       *config.Config
}

func NewTweetService(db *database.DB, repo *repository.Repository, store storage.Storage, cfg *config.Config) TweetService {
	return &tweetService{
		db:        db,
		tweetRepo: repo.Tweet,
		replyRepo: repo.Reply,
		imageRepo: repo.Image,
		storage:   store,
		cfg:       cfg,
	}
}

func (s *tweetService) CreateTweet(ctx context.Context, req CreateTweetRequest) (*models.Tweet, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid tweet: %w", err)
	}

	id, err := s.tweetRepo.NextID(ctx)
	if err != nil {
		return nil, err
	}

	fileNames, err := s.saveImages(req.Images)
	if err != nil {
		return nil, err
	}

	tweet := &models.Tweet{
		ID:        id,
		AuthorID:  req.AuthorID,
		Caption:   req.Caption,
		Timestamp: time.Now(),
	}

	err = s.db.RunTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.tweetRepo.Create(ctx, tx, tweet); err != nil {
			return err
		}
		return s.createTweetImageRefs(ctx, tx, tweet, fileNames)
	})
	if err != nil {
		// The records never landed; drop the files that were written for them.
		s.cleanupFiles(fileNames)
		return nil, err
	}

	return tweet, nil
}

func (s *tweetService) CreateReply(ctx context.Context, req CreateReplyRequest) (*models.Reply, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid reply: %w", err)
	}

	// Replying requires a live parent tweet.
	if _, err := s.tweetRepo.GetByID(ctx, req.TweetID); err != nil {
		return nil, err
	}

	id, err := s.replyRepo.NextID(ctx)
	if err != nil {
		return nil, err
	}

	fileNames, err := s.saveImages(req.Images)
	if err != nil {
		return nil, err
	}

	reply := &models.Reply{
		ID:        id,
		TweetID:   req.TweetID,
		AuthorID:  req.AuthorID,
		Caption:   req.Caption,
		Timestamp: time.Now(),
	}

	err = s.db.RunTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.replyRepo.Create(ctx, tx, reply); err != nil {
			return err
		}
		return s.createReplyImageRefs(ctx, tx, reply, fileNames)
	})
	if err != nil {
		s.cleanupFiles(fileNames)
		return nil, err
	}

	return reply, nil
}

func (s *tweetService) GetTweet(ctx context.Context, id int64) (*models.Tweet, error) {
	return s.tweetRepo.GetByID(ctx, id)
}

func (s *tweetService) Replies(ctx context.Context, tweetID int64) ([]models.Reply, error) {
	return s.replyRepo.ByTweet(ctx, tweetID)
}

// ToggleLike flips the liked flag and moves the counter with it in one
// transaction, then reports the new liked state.
func (s *tweetService) ToggleLike(ctx context.Context, ref models.EntityRef) (bool, error) {
	err := s.db.RunTx(ctx, func(tx *sqlx.Tx) error {
		switch ref.Kind {
		case models.KindTweet:
			return s.tweetRepo.ToggleLike(ctx, tx, ref.ID)
		case models.KindReply:
			return s.replyRepo.ToggleLike(ctx, tx, ref.ID)
		default:
			return fmt.Errorf("unknown entity kind %q", ref.Kind)
		}
	})
	if err != nil {
		return false, err
	}

	switch ref.Kind {
	case models.KindTweet:
		tweet, err := s.tweetRepo.GetByID(ctx, ref.ID)
		if err != nil {
			return false, err
		}
		return tweet.DidLike, nil
	default:
		reply, err := s.replyRepo.GetByID(ctx, ref.ID)
		if err != nil {
			return false, err
		}
		return reply.DidLike, nil
	}
}

// Bump rewrites the entity's timestamp to now, which floats it to the top
// of the timestamp-descending views. This is the only retweet mechanism;
// the previous position is not kept.
func (s *tweetService) Bump(ctx context.Context, ref models.EntityRef) error {
	now := time.Now()
	return s.db.RunTx(ctx, func(tx *sqlx.Tx) error {
		switch ref.Kind {
		case models.KindTweet:
			return s.tweetRepo.SetTimestamp(ctx, tx, ref.ID, now)
		case models.KindReply:
			return s.replyRepo.SetTimestamp(ctx, tx, ref.ID, now)
		default:
			return fmt.Errorf("unknown entity kind %q", ref.Kind)
		}
	})
}

// DeleteTweet removes the tweet with its replies in one transaction, then
// removes the media files owned by the tweet and its replies. File removal
// is best effort: a failure is logged and never rolls back the records.
func (s *tweetService) DeleteTweet(ctx context.Context, id int64) error {
	tweet, err := s.tweetRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	replies, err := s.replyRepo.ByTweet(ctx, id)
	if err != nil {
		return err
	}

	var fileNames []string
	for _, ref := range tweet.Images {
		fileNames = append(fileNames, ref.FileName)
	}
	for _, reply := range replies {
		for _, ref := range reply.Images {
			fileNames = append(fileNames, ref.FileName)
		}
	}

	err = s.db.RunTx(ctx, func(tx *sqlx.Tx) error {
		for _, reply := range replies {
			if err := s.imageRepo.DeleteForOwner(ctx, tx, models.KindReply, reply.ID); err != nil {
				return err
			}
		}
		if err := s.replyRepo.DeleteByTweet(ctx, tx, id); err != nil {
			return err
		}
		if err := s.imageRepo.DeleteForOwner(ctx, tx, models.KindTweet, id); err != nil {
			return err
		}
		return s.tweetRepo.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.cleanupFiles(fileNames)
	return nil
}

func (s *tweetService) DeleteReply(ctx context.Context, id int64) error {
	reply, err := s.replyRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	var fileNames []string
	for _, ref := range reply.Images {
		fileNames = append(fileNames, ref.FileName)
	}

	err = s.db.RunTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.imageRepo.DeleteForOwner(ctx, tx, models.KindReply, id); err != nil {
			return err
		}
		return s.replyRepo.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.cleanupFiles(fileNames)
	return nil
}

// saveImages writes the attachment bytes into the media area and returns
// the filenames in the order given, which is the display order.
func (s *tweetService) saveImages(images [][]byte) ([]string, error) {
	fileNames := make([]string, 0, len(images))
	for _, data := range images {
		fileName, err := s.storage.SaveImage(data)
		if err != nil {
			s.cleanupFiles(fileNames)
			return nil, err
		}
		fileNames = append(fileNames, fileName)
	}
	return fileNames, nil
}

func (s *tweetService) createTweetImageRefs(ctx context.Context, tx *sqlx.Tx, tweet *models.Tweet, fileNames []string) error {
	for i, fileName := range fileNames {
		ref := &models.ImageRef{
			OwnerKind: models.KindTweet,
			OwnerID:   tweet.ID,
			FileName:  fileName,
			Position:  i,
		}
		if err := s.imageRepo.Create(ctx, tx, ref); err != nil {
			return err
		}
		tweet.Images = append(tweet.Images, *ref)
	}
	return nil
}

func (s *tweetService) createReplyImageRefs(ctx context.Context, tx *sqlx.Tx, reply *models.Reply, fileNames []string) error {
	for i, fileName := range fileNames {
		ref := &models.ImageRef{
			OwnerKind: models.KindReply,
			OwnerID:   reply.ID,
			FileName:  fileName,
			Position:  i,
		}
		if err := s.imageRepo.Create(ctx, tx, ref); err != nil {
			return err
		}
		reply.Images = append(reply.Images, *ref)
	}
	return nil
}

// cleanupFiles removes media files best-effort. Failures are logged and
// swallowed; the owning delete already committed and stays committed.
func (s *tweetService) cleanupFiles(fileNames []string) {
	for _, fileName := range fileNames {
		if err := s.storage.DeleteImage(fileName); err != nil {
			logrus.WithError(err).WithField("file", fileName).Warn("media cleanup failed")
		}
	}
}
