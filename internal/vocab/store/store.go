// Package store persists vocabulary indexes under a name. Every backend
// round-trips words and ids exactly; they differ only in where the bytes
// live.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/review-vocab/internal/vocab/index"
)

// ErrNotFound is returned by Load when no index is stored under the name.
var ErrNotFound = errors.New("index not found")

type Store interface {
	Save(ctx context.Context, name string, ix *index.Index) error
	Load(ctx context.Context, name string) (*index.Index, error)
}

// FileStore keeps each index as a framed file in a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the file backing name.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *FileStore) Save(ctx context.Context, name string, ix *index.Index) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return index.Save(ix, s.Path(name))
}

func (s *FileStore) Load(ctx context.Context, name string) (*index.Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ix, err := index.Load(s.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Path(name))
	}
	return ix, err
}
