package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"rental_service/domain"
)

// SessionMongoDBStore keeps sessions in a collection with a TTL index on
// expiresAt. Mongo purges expired documents lazily, so reads filter on it too.
type SessionMongoDBStore struct {
	sessions *mongo.Collection
	ttl      time.Duration
	tracer   trace.Tracer
	logger   *logrus.Logger
}

func NewSessionMongoDBStore(client *mongo.Client, database string, ttl time.Duration, tracer trace.Tracer, logger *logrus.Logger) (domain.SessionStore, error) {
	sessions := client.Database(database).Collection(SESSIONS)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return nil, err
	}

	return &SessionMongoDBStore{
		sessions: sessions,
		ttl:      ttl,
		tracer:   tracer,
		logger:   logger,
	}, nil
}

func (s *SessionMongoDBStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	ctx, span := s.tracer.Start(ctx, "SessionMongoDBStore.Get")
	defer span.End()

	var session domain.Session
	filter := bson.M{"_id": id, "expiresAt": bson.M{"$gt": time.Now()}}
	err := s.sessions.FindOne(ctx, filter).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Errorf("mongo get session: %v", err)
		return nil, err
	}
	return &session, nil
}

func (s *SessionMongoDBStore) Save(ctx context.Context, session *domain.Session) error {
	ctx, span := s.tracer.Start(ctx, "SessionMongoDBStore.Save")
	defer span.End()

	session.ExpiresAt = time.Now().Add(s.ttl)
	opts := options.Replace().SetUpsert(true)
	if _, err := s.sessions.ReplaceOne(ctx, bson.M{"_id": session.ID}, session, opts); err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Errorf("mongo save session: %v", err)
		return err
	}
	return nil
}

func (s *SessionMongoDBStore) Destroy(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "SessionMongoDBStore.Destroy")
	defer span.End()

	if _, err := s.sessions.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Errorf("mongo destroy session: %v", err)
		return err
	}
	return nil
}

func (s *SessionMongoDBStore) Regenerate(ctx context.Context, session *domain.Session) (*domain.Session, error) {
	ctx, span := s.tracer.Start(ctx, "SessionMongoDBStore.Regenerate")
	defer span.End()

	if err := s.Destroy(ctx, session.ID); err != nil {
		return nil, err
	}
	regenerated := *session
	regenerated.ID = uuid.NewString()
	return &regenerated, nil
}
