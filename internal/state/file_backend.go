package state

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/ETAnderson/offersync/internal/atomicfile"
)

// FileBackend stores the snapshot as a JSON file, replaced atomically on save.
type FileBackend struct {
	Path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{Path: path}
}

func (b *FileBackend) Load(ctx context.Context) ([]byte, bool, error) {
	data, err := os.ReadFile(b.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (b *FileBackend) Save(ctx context.Context, data []byte) error {
	return atomicfile.Write(b.Path, data, 0o644)
}
