package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DiskImageStore keeps images as plain files in a single directory.
type DiskImageStore struct {
	Dir string
}

func NewDiskImageStore(dir string) *DiskImageStore {
	return &DiskImageStore{Dir: dir}
}

func (s *DiskImageStore) Save(ctx context.Context, r io.Reader, _ int64, originalName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// Buat direktori upload jika belum ada
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	name := storedName(originalName)
	dst := filepath.Join(s.Dir, name)

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("close image file: %w", err)
	}

	return storedPath(name), nil
}

func (s *DiskImageStore) Delete(_ context.Context, p string) error {
	name, ok := nameFromPath(p)
	if !ok {
		return ErrImageNotFound
	}
	if err := os.Remove(filepath.Join(s.Dir, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrImageNotFound
		}
		return err
	}
	return nil
}

func (s *DiskImageStore) Open(_ context.Context, p string) (*Object, error) {
	name, ok := nameFromPath(p)
	if !ok {
		return nil, ErrImageNotFound
	}

	f, err := os.Open(filepath.Join(s.Dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, ErrImageNotFound
	}

	return &Object{
		ReadCloser:  f,
		Size:        info.Size(),
		ContentType: contentTypeFor(name),
	}, nil
}
