package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"rental_service/domain"
)

const UploadsPath = "/uploads/"

type LocalFileStorage struct {
	dir    string
	tracer trace.Tracer
	logger *logrus.Logger
}

func NewLocalFileStorage(dir string, tracer trace.Tracer, logger *logrus.Logger) (*LocalFileStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &LocalFileStorage{
		dir:    dir,
		tracer: tracer,
		logger: logger,
	}, nil
}

func (fs *LocalFileStorage) Store(ctx context.Context, content []byte, contentType string) (domain.FileRef, error) {
	_, span := fs.tracer.Start(ctx, "LocalFileStorage.Store")
	defer span.End()

	reference := newReference(contentType)
	if err := os.WriteFile(filepath.Join(fs.dir, reference), content, 0644); err != nil {
		span.SetStatus(codes.Error, err.Error())
		fs.logger.Errorf("writing %s: %v", reference, err)
		return domain.FileRef{}, err
	}
	return domain.FileRef{Kind: domain.StoredFile, Reference: reference, ContentType: contentType}, nil
}

func (fs *LocalFileStorage) Delete(ctx context.Context, ref domain.FileRef) error {
	_, span := fs.tracer.Start(ctx, "LocalFileStorage.Delete")
	defer span.End()

	if ref.Kind == domain.InlineFile {
		return nil
	}
	path, err := fs.path(ref.Reference)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		span.SetStatus(codes.Error, err.Error())
		fs.logger.Errorf("removing %s: %v", ref.Reference, err)
		return err
	}
	return nil
}

func (fs *LocalFileStorage) Resolve(ctx context.Context, ref domain.FileRef) ([]byte, error) {
	_, span := fs.tracer.Start(ctx, "LocalFileStorage.Resolve")
	defer span.End()

	if ref.Kind == domain.InlineFile {
		return ref.Data, nil
	}
	path, err := fs.path(ref.Reference)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return content, nil
}

func (fs *LocalFileStorage) URL(ref domain.FileRef) string {
	return fileURL(ref)
}

func (fs *LocalFileStorage) path(reference string) (string, error) {
	if reference == "" || filepath.Base(reference) != reference {
		return "", domain.ErrNotFound
	}
	return filepath.Join(fs.dir, reference), nil
}

func newReference(contentType string) string {
	reference := uuid.NewString()
	if mime := mimetype.Lookup(contentType); mime != nil {
		reference += mime.Extension()
	}
	return reference
}

func fileURL(ref domain.FileRef) string {
	if ref.Kind == domain.InlineFile {
		return fmt.Sprintf("data:%s;base64,%s", ref.ContentType, base64.StdEncoding.EncodeToString(ref.Data))
	}
	return UploadsPath + ref.Reference
}
