package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"rental_service/domain"
)

const (
	cacheImage = "image:%s:%s"

	Original  = "original"
	Thumbnail = "thumbnail"
)

func constructKey(reference string, variant string) string {
	return fmt.Sprintf(cacheImage, reference, variant)
}

type ImageCache struct {
	cli    *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
	tracer trace.Tracer
}

func NewImageCache(client *redis.Client, ttl time.Duration, tracer trace.Tracer, logger *logrus.Logger) *ImageCache {
	return &ImageCache{
		cli:    client,
		ttl:    ttl,
		logger: logger,
		tracer: tracer,
	}
}

func (pc *ImageCache) Post(ctx context.Context, reference string, variant string, image []byte) error {
	_, span := pc.tracer.Start(ctx, "ImageCache.Post")
	defer span.End()

	err := pc.cli.Set(constructKey(reference, variant), image, pc.ttl).Err()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		pc.logger.Warnf("image cache set %s: %v", reference, err)
	}
	return err
}

// Get returns redis.Nil on a miss.
func (pc *ImageCache) Get(ctx context.Context, reference string, variant string) ([]byte, error) {
	_, span := pc.tracer.Start(ctx, "ImageCache.Get")
	defer span.End()

	value, err := pc.cli.Get(constructKey(reference, variant)).Bytes()
	if err != nil {
		if err != redis.Nil {
			span.SetStatus(codes.Error, err.Error())
			pc.logger.Warnf("image cache get %s: %v", reference, err)
		}
		return nil, err
	}
	pc.logger.Debugf("image cache hit %s:%s", reference, variant)
	return value, nil
}

func (pc *ImageCache) Evict(ctx context.Context, reference string) error {
	_, span := pc.tracer.Start(ctx, "ImageCache.Evict")
	defer span.End()

	err := pc.cli.Del(constructKey(reference, Original), constructKey(reference, Thumbnail)).Err()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		pc.logger.Warnf("image cache evict %s: %v", reference, err)
	}
	return err
}

// VariantCache is the subset of ImageCache that CachedFileStore relies on.
type VariantCache interface {
	Get(ctx context.Context, reference string, variant string) ([]byte, error)
	Post(ctx context.Context, reference string, variant string, image []byte) error
	Evict(ctx context.Context, reference string) error
}

// CachedFileStore reads stored files through the image cache and evicts on delete.
// It also serves as the thumbnail cache of the file handler.
type CachedFileStore struct {
	domain.FileStore
	cache VariantCache
}

func NewCachedFileStore(files domain.FileStore, cache VariantCache) *CachedFileStore {
	return &CachedFileStore{FileStore: files, cache: cache}
}

func (c *CachedFileStore) Resolve(ctx context.Context, ref domain.FileRef) ([]byte, error) {
	if ref.Kind == domain.InlineFile {
		return ref.Data, nil
	}
	if content, err := c.cache.Get(ctx, ref.Reference, Original); err == nil {
		return content, nil
	}
	content, err := c.FileStore.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	_ = c.Post(ctx, ref.Reference, Original, content)
	return content, nil
}

func (c *CachedFileStore) Get(ctx context.Context, reference string, variant string) ([]byte, error) {
	return c.cache.Get(ctx, reference, variant)
}

// Post caches a variant, then checks the backing file is still there. Delete
// removes the file before evicting, so a Post racing a Delete either lands
// before that eviction or sees the file gone and evicts itself.
func (c *CachedFileStore) Post(ctx context.Context, reference string, variant string, image []byte) error {
	if err := c.cache.Post(ctx, reference, variant, image); err != nil {
		return err
	}
	if _, err := c.FileStore.Resolve(ctx, domain.FileRef{Kind: domain.StoredFile, Reference: reference}); errors.Is(err, domain.ErrNotFound) {
		return c.cache.Evict(ctx, reference)
	}
	return nil
}

func (c *CachedFileStore) Delete(ctx context.Context, ref domain.FileRef) error {
	if err := c.FileStore.Delete(ctx, ref); err != nil {
		return err
	}
	if ref.Kind == domain.StoredFile {
		_ = c.cache.Evict(ctx, ref.Reference)
	}
	return nil
}
