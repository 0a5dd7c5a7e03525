package memstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"rental_service/domain"
)

type FileStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewFileStore() *FileStore {
	return &FileStore{files: map[string][]byte{}}
}

func (s *FileStore) Store(_ context.Context, content []byte, contentType string) (domain.FileRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reference := uuid.NewString()
	s.files[reference] = append([]byte{}, content...)
	return domain.FileRef{Kind: domain.StoredFile, Reference: reference, ContentType: contentType}, nil
}

func (s *FileStore) Delete(_ context.Context, ref domain.FileRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.files, ref.Reference)
	return nil
}

func (s *FileStore) Resolve(_ context.Context, ref domain.FileRef) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ref.Kind == domain.InlineFile {
		return ref.Data, nil
	}
	content, ok := s.files[ref.Reference]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte{}, content...), nil
}

func (s *FileStore) URL(ref domain.FileRef) string {
	return "/uploads/" + ref.Reference
}

func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}
