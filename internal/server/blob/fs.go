package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// FSStore keeps payloads on a local filesystem rooted at a base directory.
// It operates through afero so tests can run against an in-memory fs.
type FSStore struct {
	fs afero.Fs
}

// NewFSStore returns a store over the given filesystem.
func NewFSStore(fs afero.Fs) *FSStore {
	return &FSStore{fs: fs}
}

// NewOsFSStore returns a store rooted at dir on the host filesystem.
func NewOsFSStore(dir string) *FSStore {
	return &FSStore{fs: afero.NewBasePathFs(afero.NewOsFs(), dir)}
}

// Save streams r into the file at key, creating parent directories. On any
// write error the partial file is removed before returning.
func (s *FSStore) Save(ctx context.Context, key string, r io.Reader) (int64, error) {
	if err := s.fs.MkdirAll(path.Dir(key), 0o750); err != nil {
		return 0, fmt.Errorf("mkdir: %w", err)
	}

	f, err := s.fs.OpenFile(key, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return 0, fmt.Errorf("open: %w", err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.fs.Remove(key)
		return 0, fmt.Errorf("write: %w", err)
	}
	return n, nil
}

// Open returns a reader over the payload at key.
func (s *FSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := s.fs.Open(key)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return f, nil
}

// Delete removes the payload at key; a missing file counts as success.
func (s *FSStore) Delete(ctx context.Context, key string) error {
	err := s.fs.Remove(key)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// List walks the tree and returns every regular file as an Object.
func (s *FSStore) List(ctx context.Context) ([]Object, error) {
	var result []Object
	err := afero.Walk(s.fs, "/", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		result = append(result, Object{
			Key:     strings.TrimPrefix(p, "/"),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk: %w", err)
	}
	return result, nil
}
