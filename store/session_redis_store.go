package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"rental_service/domain"
)

const sessionKey = "session:%s"

type SessionRedisStore struct {
	client *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
	logger *logrus.Logger
}

func NewSessionRedisStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer, logger *logrus.Logger) domain.SessionStore {
	return &SessionRedisStore{
		client: client,
		ttl:    ttl,
		tracer: tracer,
		logger: logger,
	}
}

func (s *SessionRedisStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	ctx, span := s.tracer.Start(ctx, "SessionRedisStore.Get")
	defer span.End()

	value, err := s.client.Get(fmt.Sprintf(sessionKey, id)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Errorf("redis get session: %v", err)
		return nil, err
	}

	var session domain.Session
	if err := json.Unmarshal(value, &session); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &session, nil
}

func (s *SessionRedisStore) Save(ctx context.Context, session *domain.Session) error {
	ctx, span := s.tracer.Start(ctx, "SessionRedisStore.Save")
	defer span.End()

	session.ExpiresAt = time.Now().Add(s.ttl)
	value, err := json.Marshal(session)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := s.client.Set(fmt.Sprintf(sessionKey, session.ID), value, s.ttl).Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Errorf("redis set session: %v", err)
		return err
	}
	return nil
}

func (s *SessionRedisStore) Destroy(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "SessionRedisStore.Destroy")
	defer span.End()

	if err := s.client.Del(fmt.Sprintf(sessionKey, id)).Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Errorf("redis del session: %v", err)
		return err
	}
	return nil
}

func (s *SessionRedisStore) Regenerate(ctx context.Context, session *domain.Session) (*domain.Session, error) {
	ctx, span := s.tracer.Start(ctx, "SessionRedisStore.Regenerate")
	defer span.End()

	if err := s.Destroy(ctx, session.ID); err != nil {
		return nil, err
	}
	regenerated := *session
	regenerated.ID = uuid.NewString()
	return &regenerated, nil
}
