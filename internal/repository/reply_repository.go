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

// Replies reference their parent tweet by id only. The parent is found by
// querying replies for that tweet id, never through a stored back-pointer,
// so deleting a tweet can never leave a broken pointer behind.
type replyRepository struct {
	db        *database.DB
	imageRepo ImageRepository
}

func NewReplyRepository(db *database.DB, imageRepo ImageRepository) ReplyRepository {
	return &replyRepository{db: db, imageRepo: imageRepo}
}

func (r *replyRepository) NextID(ctx context.Context) (int64, error) {
	var next int64
	err := r.db.GetContext(ctx, &next, `SELECT COALESCE(MAX(id) + 1, 0) FROM replies`)
	if err != nil {
		return 0, fmt.Errorf("allocate reply id: %w", err)
	}
	return next, nil
}

func (r *replyRepository) GetByID(ctx context.Context, id int64) (*models.Reply, error) {
	var reply models.Reply

	query := `SELECT * FROM replies WHERE id = $1`

	err := r.db.GetContext(ctx, &reply, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reply %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get reply: %w", err)
	}

	reply.Images, err = r.imageRepo.ForOwner(ctx, models.KindReply, id)
	if err != nil {
		return nil, err
	}

	return &reply, nil
}

func (r *replyRepository) All(ctx context.Context) ([]models.Reply, error) {
	var replies []models.Reply

	err := r.db.SelectContext(ctx, &replies, `SELECT * FROM replies`)
	if err != nil {
		return nil, fmt.Errorf("scan replies: %w", err)
	}

	if err := r.attachImages(ctx, replies); err != nil {
		return nil, err
	}

	return replies, nil
}

func (r *replyRepository) ByTweet(ctx context.Context, tweetID int64) ([]models.Reply, error) {
	var replies []models.Reply

	err := r.db.SelectContext(ctx, &replies,
		`SELECT * FROM replies WHERE tweet_id = $1 ORDER BY id`, tweetID)
	if err != nil {
		return nil, fmt.Errorf("get replies by tweet: %w", err)
	}

	if err := r.attachImages(ctx, replies); err != nil {
		return nil, err
	}

	return replies, nil
}

func (r *replyRepository) ByAuthor(ctx context.Context, authorID int64) ([]models.Reply, error) {
	var replies []models.Reply

	err := r.db.SelectContext(ctx, &replies,
		`SELECT * FROM replies WHERE author_id = $1`, authorID)
	if err != nil {
		return nil, fmt.Errorf("get replies by author: %w", err)
	}

	if err := r.attachImages(ctx, replies); err != nil {
		return nil, err
	}

	return replies, nil
}

func (r *replyRepository) attachImages(ctx context.Context, replies []models.Reply) error {
	if len(replies) == 0 {
		return nil
	}

	var refs []models.ImageRef
	err := r.db.SelectContext(ctx, &refs,
		`SELECT * FROM images WHERE owner_kind = $1 ORDER BY owner_id, position`,
		models.KindReply)
	if err != nil {
		return fmt.Errorf("scan reply images: %w", err)
	}

	byOwner := make(map[int64][]models.ImageRef)
	for _, ref := range refs {
		byOwner[ref.OwnerID] = append(byOwner[ref.OwnerID], ref)
	}

	for i := range replies {
		replies[i].Images = byOwner[replies[i].ID]
	}

	return nil
}

func (r *replyRepository) Create(ctx context.Context, tx *sqlx.Tx, reply *models.Reply) error {
	query := `
		INSERT INTO replies (id, tweet_id, author_id, caption, timestamp, likes, did_like)
		VALUES (:id, :tweet_id, :author_id, :caption, :timestamp, :likes, :did_like)
	`

	_, err := tx.NamedExecContext(ctx, query, reply)
	if err != nil {
		return fmt.Errorf("create reply: %w", err)
	}

	return nil
}

func (r *replyRepository) SetTimestamp(ctx context.Context, tx *sqlx.Tx, id int64, ts time.Time) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE replies SET timestamp = $1 WHERE id = $2`, ts, id)
	if err != nil {
		return fmt.Errorf("bump reply: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated rows: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("reply %d: %w", id, ErrNotFound)
	}

	return nil
}

func (r *replyRepository) ToggleLike(ctx context.Context, tx *sqlx.Tx, id int64) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE replies
		SET likes = likes + CASE WHEN did_like THEN -1 ELSE 1 END,
		    did_like = NOT did_like
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("toggle reply like: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated rows: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("reply %d: %w", id, ErrNotFound)
	}

	return nil
}

func (r *replyRepository) Delete(ctx context.Context, tx *sqlx.Tx, id int64) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM replies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete reply: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted rows: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("reply %d: %w", id, ErrNotFound)
	}

	return nil
}

// DeleteByTweet removes every reply owned by the tweet. Zero matches is not
// an error; a tweet without replies is the normal case.
func (r *replyRepository) DeleteByTweet(ctx context.Context, tx *sqlx.Tx, tweetID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM replies WHERE tweet_id = $1`, tweetID)
	if err != nil {
		return fmt.Errorf("delete replies by tweet: %w", err)
	}
	return nil
}
