package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"tweetmemo/internal/database"
	"tweetmemo/internal/models"
)

type tweetRepository struct {
	db        *database.DB
	imageRepo ImageRepository
}

func NewTweetRepository(db *database.DB, imageRepo ImageRepository) TweetRepository {
	return &tweetRepository{db: db, imageRepo: imageRepo}
}

func (r *tweetRepository) NextID(ctx context.Context) (int64, error) {
	var next int64
	err := r.db.GetContext(ctx, &next, `SELECT COALESCE(MAX(id) + 1, 0) FROM tweets`)
	if err != nil {
		return 0, fmt.Errorf("allocate tweet id: %w", err)
	}
	return next, nil
}

func (r *tweetRepository) GetByID(ctx context.Context, id int64) (*models.Tweet, error) {
	var tweet models.Tweet

	query := `SELECT * FROM tweets WHERE id = $1`

	err := r.db.GetContext(ctx, &tweet, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tweet %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get tweet: %w", err)
	}

	tweet.Images, err = r.imageRepo.ForOwner(ctx, models.KindTweet, id)
	if err != nil {
		return nil, err
	}

	return &tweet, nil
}

func (r *tweetRepository) All(ctx context.Context) ([]models.Tweet, error) {
	var tweets []models.Tweet

	err := r.db.SelectContext(ctx, &tweets, `SELECT * FROM tweets`)
	if err != nil {
		return nil, fmt.Errorf("scan tweets: %w", err)
	}

	if err := r.attachImages(ctx, tweets); err != nil {
		return nil, err
	}

	return tweets, nil
}

func (r *tweetRepository) ByAuthor(ctx context.Context, authorID int64) ([]models.Tweet, error) {
	var tweets []models.Tweet

	err := r.db.SelectContext(ctx, &tweets,
		`SELECT * FROM tweets WHERE author_id = $1`, authorID)
	if err != nil {
		return nil, fmt.Errorf("get tweets by author: %w", err)
	}

	if err := r.attachImages(ctx, tweets); err != nil {
		return nil, err
	}

	return tweets, nil
}

// attachImages loads image references for a batch of tweets in one query.
func (r *tweetRepository) attachImages(ctx context.Context, tweets []models.Tweet) error {
	if len(tweets) == 0 {
		return nil
	}

	var refs []models.ImageRef
	err := r.db.SelectContext(ctx, &refs,
		`SELECT * FROM images WHERE owner_kind = $1 ORDER BY owner_id, position`,
		models.KindTweet)
	if err != nil {
		return fmt.Errorf("scan tweet images: %w", err)
	}

	byOwner := make(map[int64][]models.ImageRef)
	for _, ref := range refs {
		byOwner[ref.OwnerID] = append(byOwner[ref.OwnerID], ref)
	}

	for i := range tweets {
		tweets[i].Images = byOwner[tweets[i].ID]
	}

	return nil
}

func (r *tweetRepository) Create(ctx context.Context, tx *sqlx.Tx, tweet *models.Tweet) error {
	query := `
		INSERT INTO tweets (id, author_id, caption, timestamp, likes, did_like)
		VALUES (:id, :author_id, :caption, :timestamp, :likes, :did_like)
	`

	_, err := tx.NamedExecContext(ctx, query, tweet)
	if err != nil {
		return fmt.Errorf("create tweet: %w", err)
	}

	return nil
}

func (r *tweetRepository) SetTimestamp(ctx context.Context, tx *sqlx.Tx, id int64, ts time.Time) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE tweets SET timestamp = $1 WHERE id = $2`, ts, id)
	if err != nil {
		return fmt.Errorf("bump tweet: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated rows: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("tweet %d: %w", id, ErrNotFound)
	}

	return nil
}

// ToggleLike flips did_like and moves the counter in a single statement, so
// the counter can only move up on a false-to-true transition and down on
// true-to-false.
func (r *tweetRepository) ToggleLike(ctx context.Context, tx *sqlx.Tx, id int64) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE tweets
		SET likes = likes + CASE WHEN did_like THEN -1 ELSE 1 END,
		    did_like = NOT did_like
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("toggle tweet like: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated rows: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("tweet %d: %w", id, ErrNotFound)
	}

	return nil
}

func (r *tweetRepository) Delete(ctx context.Context, tx *sqlx.Tx, id int64) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM tweets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tweet: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted rows: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("tweet %d: %w", id, ErrNotFound)
	}

	return nil
}
