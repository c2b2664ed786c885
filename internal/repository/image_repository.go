package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"tweetmemo/internal/database"
	"tweetmemo/internal/models"
)

type imageRepository struct {
	db *database.DB
}

func NewImageRepository(db *database.DB) ImageRepository {
	return &imageRepository{db: db}
}

// ForOwner returns the owner's image references in display order.
func (r *imageRepository) ForOwner(ctx context.Context, kind models.EntityKind, ownerID int64) ([]models.ImageRef, error) {
	var refs []models.ImageRef

	err := r.db.SelectContext(ctx, &refs, `
		SELECT * FROM images
		WHERE owner_kind = $1 AND owner_id = $2
		ORDER BY position
	`, kind, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get images for %s %d: %w", kind, ownerID, err)
	}

	return refs, nil
}

func (r *imageRepository) Create(ctx context.Context, tx *sqlx.Tx, image *models.ImageRef) error {
	query := `
		INSERT INTO images (owner_kind, owner_id, file_name, position)
		VALUES (:owner_kind, :owner_id, :file_name, :position)
	`

	result, err := tx.NamedExecContext(ctx, query, image)
	if err != nil {
		return fmt.Errorf("create image reference: %w", err)
	}

	image.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("read image reference id: %w", err)
	}

	return nil
}

func (r *imageRepository) DeleteForOwner(ctx context.Context, tx *sqlx.Tx, kind models.EntityKind, ownerID int64) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM images WHERE owner_kind = $1 AND owner_id = $2`, kind, ownerID)
	if err != nil {
		return fmt.Errorf("delete image references: %w", err)
	}
	return nil
}
