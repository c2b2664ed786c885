package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"tweetmemo/internal/database"
	"tweetmemo/internal/models"
)

type userRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) UserRepository {
	return &userRepository{db: db}
}

// NextID hands out max(id)+1, or 0 for an empty table. Deleted high ids are
// reused once nothing above them remains; that matches the original
// allocation rule and is safe only because there is a single writer.
func (r *userRepository) NextID(ctx context.Context) (int64, error) {
	var next int64
	err := r.db.GetContext(ctx, &next, `SELECT COALESCE(MAX(id) + 1, 0) FROM users`)
	if err != nil {
		return 0, fmt.Errorf("allocate user id: %w", err)
	}
	return next, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User

	query := `SELECT * FROM users WHERE id = $1`

	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	user.FollowIDs, err = r.Follows(ctx, id)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userRepository) All(ctx context.Context) ([]models.User, error) {
	var users []models.User

	err := r.db.SelectContext(ctx, &users, `SELECT * FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	for i := range users {
		users[i].FollowIDs, err = r.Follows(ctx, users[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return users, nil
}

func (r *userRepository) Follows(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64

	err := r.db.SelectContext(ctx, &ids,
		`SELECT target_id FROM follows WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("get follow list: %w", err)
	}

	return ids, nil
}

func (r *userRepository) Create(ctx context.Context, tx *sqlx.Tx, user *models.User) error {
	query := `
		INSERT INTO users (id, fullname, username, profile_text, profile_image)
		VALUES (:id, :fullname, :username, :profile_text, :profile_image)
	`

	_, err := tx.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	for _, target := range user.FollowIDs {
		if err := r.AddFollow(ctx, tx, user.ID, target); err != nil {
			return err
		}
	}

	return nil
}

func (r *userRepository) Update(ctx context.Context, tx *sqlx.Tx, user *models.User) error {
	query := `
		UPDATE users
		SET fullname = :fullname, username = :username,
		    profile_text = :profile_text, profile_image = :profile_image
		WHERE id = :id
	`

	result, err := tx.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated rows: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user %d: %w", user.ID, ErrNotFound)
	}

	return nil
}

// Delete removes the user record and their own follow list. Entries in other
// users' follow lists pointing at this id are left alone; read paths resolve
// them to nothing.
func (r *userRepository) Delete(ctx context.Context, tx *sqlx.Tx, id int64) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted rows: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM follows WHERE user_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete follow list: %w", err)
	}

	return nil
}

// AddFollow appends an edge without checking for duplicates; deduplication is
// the caller's job, mirroring the original store behavior.
func (r *userRepository) AddFollow(ctx context.Context, tx *sqlx.Tx, userID, targetID int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO follows (user_id, target_id) VALUES ($1, $2)`, userID, targetID)
	if err != nil {
		return fmt.Errorf("add follow: %w", err)
	}
	return nil
}

func (r *userRepository) RemoveFollow(ctx context.Context, tx *sqlx.Tx, userID, targetID int64) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM follows WHERE user_id = $1 AND target_id = $2`, userID, targetID)
	if err != nil {
		return fmt.Errorf("remove follow: %w", err)
	}
	return nil
}
