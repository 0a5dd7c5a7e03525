package domain

import "context"

type FileStore interface {
	Store(ctx context.Context, content []byte, contentType string) (FileRef, error)
	// Delete is a no-op for files that are already gone.
	Delete(ctx context.Context, ref FileRef) error
	Resolve(ctx context.Context, ref FileRef) ([]byte, error)
	URL(ref FileRef) string
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}
