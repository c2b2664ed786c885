package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Storage is the media file area backing tweet and reply attachments.
// Records hold bare filenames only; resolving a filename to a path goes
// through ImagePath, so the area can be relocated without touching records.
type Storage interface {
	SaveImage(data []byte) (string, error)
	DeleteImage(fileName string) error
	ImagePath(fileName string) string
}

type MediaStore struct {
	dir string
}

func NewMediaStore(dir string) (*MediaStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &MediaStore{dir: dir}, nil
}

// SaveImage writes the bytes under a fresh uuid-based filename and returns
// the filename for the owning record to reference.
func (m *MediaStore) SaveImage(data []byte) (string, error) {
	fileName := uuid.New().String() + ".png"

	if err := os.WriteFile(m.ImagePath(fileName), data, 0o644); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}

	return fileName, nil
}

// DeleteImage removes the file. A file that is already gone is not an
// error; cascade deletes call this best-effort.
func (m *MediaStore) DeleteImage(fileName string) error {
	err := os.Remove(m.ImagePath(fileName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete image %s: %w", fileName, err)
	}
	return nil
}

func (m *MediaStore) ImagePath(fileName string) string {
	return filepath.Join(m.dir, fileName)
}
