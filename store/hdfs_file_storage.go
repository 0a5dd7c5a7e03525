package store

import (
	"context"
	"errors"
	"os"
	"path"

	"github.com/colinmarc/hdfs/v2"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"rental_service/domain"
)

type HDFSFileStorage struct {
	client *hdfs.Client
	root   string
	logger *logrus.Logger
	tracer trace.Tracer
}

func NewHDFSFileStorage(uri, root string, tracer trace.Tracer, logger *logrus.Logger) (*HDFSFileStorage, error) {
	client, err := hdfs.New(uri)
	if err != nil {
		return nil, err
	}
	if err := client.MkdirAll(root, 0755); err != nil {
		client.Close()
		return nil, err
	}

	return &HDFSFileStorage{
		client: client,
		root:   root,
		logger: logger,
		tracer: tracer,
	}, nil
}

func (fs *HDFSFileStorage) Close() {
	fs.client.Close()
}

func (fs *HDFSFileStorage) Store(ctx context.Context, content []byte, contentType string) (domain.FileRef, error) {
	_, span := fs.tracer.Start(ctx, "HDFSFileStorage.Store")
	defer span.End()

	reference := newReference(contentType)
	filePath := path.Join(fs.root, reference)

	file, err := fs.client.Create(filePath)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		fs.logger.Errorf("error creating file %s: %v", filePath, err)
		return domain.FileRef{}, err
	}
	if _, err := file.Write(content); err != nil {
		span.SetStatus(codes.Error, err.Error())
		fs.logger.Errorf("error writing file %s: %v", filePath, err)
		_ = file.Close()
		return domain.FileRef{}, err
	}
	if err := file.Close(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		fs.logger.Errorf("error closing file %s: %v", filePath, err)
		return domain.FileRef{}, err
	}
	return domain.FileRef{Kind: domain.StoredFile, Reference: reference, ContentType: contentType}, nil
}

func (fs *HDFSFileStorage) Delete(ctx context.Context, ref domain.FileRef) error {
	_, span := fs.tracer.Start(ctx, "HDFSFileStorage.Delete")
	defer span.End()

	if ref.Kind == domain.InlineFile {
		return nil
	}
	if path.Base(ref.Reference) != ref.Reference {
		return domain.ErrNotFound
	}
	err := fs.client.Remove(path.Join(fs.root, ref.Reference))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		span.SetStatus(codes.Error, err.Error())
		fs.logger.Errorf("error removing file %s: %v", ref.Reference, err)
		return err
	}
	return nil
}

func (fs *HDFSFileStorage) Resolve(ctx context.Context, ref domain.FileRef) ([]byte, error) {
	_, span := fs.tracer.Start(ctx, "HDFSFileStorage.Resolve")
	defer span.End()

	if ref.Kind == domain.InlineFile {
		return ref.Data, nil
	}
	if path.Base(ref.Reference) != ref.Reference {
		return nil, domain.ErrNotFound
	}
	content, err := fs.client.ReadFile(path.Join(fs.root, ref.Reference))
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return content, nil
}

func (fs *HDFSFileStorage) URL(ref domain.FileRef) string {
	return fileURL(ref)
}
