package store

import (
	"context"
	"errors"
	"regexp"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"rental_service/domain"
)

type HomeMongoDBStore struct {
	homes  *mongo.Collection
	tracer trace.Tracer
	logger *logrus.Logger
}

func NewHomeMongoDBStore(client *mongo.Client, database string, tracer trace.Tracer, logger *logrus.Logger) domain.HomeStore {
	homes := client.Database(database).Collection(HOMES)
	return &HomeMongoDBStore{
		homes:  homes,
		tracer: tracer,
		logger: logger,
	}
}

func (store *HomeMongoDBStore) Insert(ctx context.Context, home *domain.Home) error {
	ctx, span := store.tracer.Start(ctx, "HomeMongoDBStore.Insert")
	defer span.End()

	if home.ID.IsZero() {
		home.ID = primitive.NewObjectID()
	}
	if home.Photos == nil {
		home.Photos = []domain.FileRef{}
	}
	if _, err := store.homes.InsertOne(ctx, home); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (store *HomeMongoDBStore) Get(ctx context.Context, id primitive.ObjectID) (*domain.Home, error) {
	ctx, span := store.tracer.Start(ctx, "HomeMongoDBStore.Get")
	defer span.End()

	var home domain.Home
	err := store.homes.FindOne(ctx, bson.M{"_id": id}).Decode(&home)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &home, nil
}

func (store *HomeMongoDBStore) GetMany(ctx context.Context, ids []primitive.ObjectID) ([]*domain.Home, error) {
	ctx, span := store.tracer.Start(ctx, "HomeMongoDBStore.GetMany")
	defer span.End()

	if len(ids) == 0 {
		return []*domain.Home{}, nil
	}
	homes, err := store.filter(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return homes, nil
}

func (store *HomeMongoDBStore) Find(ctx context.Context, filter domain.HomeFilter) (*domain.Page, error) {
	ctx, span := store.tracer.Start(ctx, "HomeMongoDBStore.Find")
	defer span.End()

	query := bson.M{}
	if filter.Location != "" {
		query["location"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.Location), Options: "i"}
	}
	if filter.HostID != nil {
		query["hostId"] = *filter.HostID
	}

	total, err := store.homes.CountDocuments(ctx, query)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if filter.Limit > 0 {
		opts.SetSkip(int64((filter.Page - 1) * filter.Limit)).SetLimit(int64(filter.Limit))
	}
	homes, err := store.filter(ctx, query, opts)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &domain.Page{Homes: homes, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (store *HomeMongoDBStore) Update(ctx context.Context, id primitive.ObjectID, update *domain.HomeUpdate) (*domain.Home, error) {
	ctx, span := store.tracer.Start(ctx, "HomeMongoDBStore.Update")
	defer span.End()

	set := bson.M{}
	setIfPresent(set, "houseName", update.HouseName)
	setIfPresent(set, "location", update.Location)
	setIfPresent(set, "description", update.Description)
	if update.Price != nil {
		set["price"] = *update.Price
	}
	if update.Rating != nil {
		set["rating"] = *update.Rating
	}
	if update.Photos != nil {
		set["photos"] = update.Photos
	}
	if update.Rules != nil {
		set["rules"] = update.Rules
	}
	if len(set) == 0 {
		return store.Get(ctx, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var home domain.Home
	err := store.homes.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&home)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &home, nil
}

func (store *HomeMongoDBStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, span := store.tracer.Start(ctx, "HomeMongoDBStore.Delete")
	defer span.End()

	result, err := store.homes.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (store *HomeMongoDBStore) filter(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]*domain.Home, error) {
	cursor, err := store.homes.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	return decode(ctx, cursor)
}

func decode(ctx context.Context, cursor *mongo.Cursor) (homes []*domain.Home, err error) {
	homes = []*domain.Home{}
	for cursor.Next(ctx) {
		var home domain.Home
		err = cursor.Decode(&home)
		if err != nil {
			return
		}
		homes = append(homes, &home)
	}
	err = cursor.Err()
	return
}
