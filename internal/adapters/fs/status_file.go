// Package fs persists run status as a JSON file.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/bft-labs/penpal/internal/domain"
)

const statusFileName = "status.json"

// StatusFileRepository implements ports.StatusRepository with a JSON file.
type StatusFileRepository struct {
	dir string
}

// NewStatusFileRepository stores status.json inside dir.
func NewStatusFileRepository(dir string) *StatusFileRepository {
	return &StatusFileRepository{dir: dir}
}

// Load returns the saved status, or a zero status when no file exists.
func (r *StatusFileRepository) Load(ctx context.Context) (domain.RunStatus, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.RunStatus{}, nil
		}
		return domain.RunStatus{}, err
	}

	var status domain.RunStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return domain.RunStatus{}, err
	}
	return status, nil
}

// Save writes status to a temp file and renames it into place.
func (r *StatusFileRepository) Save(ctx context.Context, status domain.RunStatus) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Path returns the full path to the status file.
func (r *StatusFileRepository) Path() string {
	return filepath.Join(r.dir, statusFileName)
}
