package store

import (
	"context"

	"rental_service/domain"
)

// InlineFileStorage embeds file bytes in the owning record instead of writing
// them anywhere. URLs are data: URLs.
type InlineFileStorage struct{}

func NewInlineFileStorage() *InlineFileStorage {
	return &InlineFileStorage{}
}

func (InlineFileStorage) Store(_ context.Context, content []byte, contentType string) (domain.FileRef, error) {
	data := make([]byte, len(content))
	copy(data, content)
	return domain.FileRef{Kind: domain.InlineFile, Data: data, ContentType: contentType}, nil
}

func (InlineFileStorage) Delete(context.Context, domain.FileRef) error {
	return nil
}

func (InlineFileStorage) Resolve(_ context.Context, ref domain.FileRef) ([]byte, error) {
	if ref.Kind != domain.InlineFile {
		return nil, domain.ErrNotFound
	}
	return ref.Data, nil
}

func (InlineFileStorage) URL(ref domain.FileRef) string {
	return fileURL(ref)
}
