package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// MemoryImageStore is an ImageStore that never touches disk.
type MemoryImageStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMemoryImageStore() *MemoryImageStore {
	return &MemoryImageStore{files: make(map[string][]byte)}
}

func (s *MemoryImageStore) Save(ctx context.Context, r io.Reader, _ int64, originalName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	p := storedPath(storedName(originalName))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[p] = data
	return p, nil
}

func (s *MemoryImageStore) Delete(_ context.Context, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[p]; !ok {
		return ErrImageNotFound
	}
	delete(s.files, p)
	return nil
}

func (s *MemoryImageStore) Open(_ context.Context, p string) (*Object, error) {
	s.mu.RLock()
	data, ok := s.files[p]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrImageNotFound
	}
	return &Object{
		ReadCloser:  io.NopCloser(bytes.NewReader(data)),
		Size:        int64(len(data)),
		ContentType: contentTypeFor(p),
	}, nil
}

// Has reports whether an asset is stored under p.
func (s *MemoryImageStore) Has(p string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[p]
	return ok
}

func (s *MemoryImageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}
