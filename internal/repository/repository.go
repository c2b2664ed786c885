package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"tweetmemo/internal/database"
	"tweetmemo/internal/models"
)

// ErrNotFound is returned by point lookups that match nothing. Dangling
// references (a deleted author, a follow entry pointing at a removed user)
// are an accepted state, so read paths translate this to an empty result
// rather than failing.
var ErrNotFound = errors.New("record not found")

// Write methods take the enclosing transaction explicitly; reads go through
// the shared connection. Callers must not mix the two inside one RunTx.

type UserRepository interface {
	NextID(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	All(ctx context.Context) ([]models.User, error)
	Follows(ctx context.Context, userID int64) ([]int64, error)
	Create(ctx context.Context, tx *sqlx.Tx, user *models.User) error
	Update(ctx context.Context, tx *sqlx.Tx, user *models.User) error
	Delete(ctx context.Context, tx *sqlx.Tx, id int64) error
	AddFollow(ctx context.Context, tx *sqlx.Tx, userID, targetID int64) error
	RemoveFollow(ctx context.Context, tx *sqlx.Tx, userID, targetID int64) error
}

type TweetRepository interface {
	NextID(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Tweet, error)
	All(ctx context.Context) ([]models.Tweet, error)
	ByAuthor(ctx context.Context, authorID int64) ([]models.Tweet, error)
	Create(ctx context.Context, tx *sqlx.Tx, tweet *models.Tweet) error
	SetTimestamp(ctx context.Context, tx *sqlx.Tx, id int64, ts time.Time) error
	ToggleLike(ctx context.Context, tx *sqlx.Tx, id int64) error
	Delete(ctx context.Context, tx *sqlx.Tx, id int64) error
}

type ReplyRepository interface {
	NextID(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Reply, error)
	All(ctx context.Context) ([]models.Reply, error)
	ByTweet(ctx context.Context, tweetID int64) ([]models.Reply, error)
	ByAuthor(ctx context.Context, authorID int64) ([]models.Reply, error)
	Create(ctx context.Context, tx *sqlx.Tx, reply *models.Reply) error
	SetTimestamp(ctx context.Context, tx *sqlx.Tx, id int64, ts time.Time) error
	ToggleLike(ctx context.Context, tx *sqlx.Tx, id int64) error
	Delete(ctx context.Context, tx *sqlx.Tx, id int64) error
	DeleteByTweet(ctx context.Context, tx *sqlx.Tx, tweetID int64) error
}

type ImageRepository interface {
	ForOwner(ctx context.Context, kind models.EntityKind, ownerID int64) ([]models.ImageRef, error)
	Create(ctx context.Context, tx *sqlx.Tx, image *models.ImageRef) error
	DeleteForOwner(ctx context.Context, tx *sqlx.Tx, kind models.EntityKind, ownerID int64) error
}

type Repository struct {
	User  UserRepository
	Tweet TweetRepository
	Reply ReplyRepository
	Image ImageRepository
}

func NewRepository(db *database.DB) *Repository {
	imageRepo := NewImageRepository(db)
	return &Repository{
		User:  NewUserRepository(db),
		Tweet: NewTweetRepository(db, imageRepo),
		Reply: NewReplyRepository(db, imageRepo),
		Image: imageRepo,
	}
}
