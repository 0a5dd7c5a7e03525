package store

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"rental_service/domain"
)

type UserMongoDBStore struct {
	users  *mongo.Collection
	tracer trace.Tracer
	logger *logrus.Logger
}

func NewUserMongoDBStore(client *mongo.Client, database string, tracer trace.Tracer, logger *logrus.Logger) (domain.UserStore, error) {
	users := client.Database(database).Collection(USERS)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "bookings", Value: 1}}},
	})
	if err != nil {
		return nil, err
	}

	return &UserMongoDBStore{
		users:  users,
		tracer: tracer,
		logger: logger,
	}, nil
}

func (store *UserMongoDBStore) Insert(ctx context.Context, user *domain.User) error {
	ctx, span := store.tracer.Start(ctx, "UserMongoDBStore.Insert")
	defer span.End()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.Bookings == nil {
		user.Bookings = []primitive.ObjectID{}
	}
	if user.Favourites == nil {
		user.Favourites = []primitive.ObjectID{}
	}

	_, err := store.users.InsertOne(ctx, user)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateAccount
		}
		return err
	}
	return nil
}

func (store *UserMongoDBStore) Get(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	ctx, span := store.tracer.Start(ctx, "UserMongoDBStore.Get")
	defer span.End()

	return store.filterOne(ctx, bson.M{"_id": id})
}

func (store *UserMongoDBStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := store.tracer.Start(ctx, "UserMongoDBStore.GetByEmail")
	defer span.End()

	return store.filterOne(ctx, bson.M{"email": email})
}

func (store *UserMongoDBStore) Update(ctx context.Context, id primitive.ObjectID, update *domain.UserUpdate) (*domain.User, error) {
	ctx, span := store.tracer.Start(ctx, "UserMongoDBStore.Update")
	defer span.End()

	set := bson.M{}
	setIfPresent(set, "firstName", update.FirstName)
	setIfPresent(set, "middleName", update.MiddleName)
	setIfPresent(set, "lastName", update.LastName)
	setIfPresent(set, "email", update.Email)
	setIfPresent(set, "city", update.City)
	setIfPresent(set, "password", update.PasswordHash)
	if update.UserType != nil {
		set["userType"] = *update.UserType
	}
	if update.ProfilePic != nil {
		set["profilePic"] = update.ProfilePic
	}
	if len(set) == 0 {
		return store.filterOne(ctx, bson.M{"_id": id})
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	result := store.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts)

	var user domain.User
	if err := result.Decode(&user); err != nil {
		span.SetStatus(codes.Error, err.Error())
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, domain.ErrAccountNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, domain.ErrDuplicateAccount
		}
		return nil, err
	}
	return &user, nil
}

func (store *UserMongoDBStore) AddToSet(ctx context.Context, id primitive.ObjectID, set domain.Membership, homeID primitive.ObjectID) error {
	ctx, span := store.tracer.Start(ctx, "UserMongoDBStore.AddToSet")
	defer span.End()

	result, err := store.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{string(set): homeID}})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (store *UserMongoDBStore) Pull(ctx context.Context, id primitive.ObjectID, set domain.Membership, homeIDs ...primitive.ObjectID) error {
	ctx, span := store.tracer.Start(ctx, "UserMongoDBStore.Pull")
	defer span.End()

	pull := bson.M{string(set): bson.M{"$in": homeIDs}}
	result, err := store.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$pull": pull})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (store *UserMongoDBStore) PullFromAll(ctx context.Context, homeID primitive.ObjectID) error {
	ctx, span := store.tracer.Start(ctx, "UserMongoDBStore.PullFromAll")
	defer span.End()

	filter := bson.M{"$or": bson.A{bson.M{"bookings": homeID}, bson.M{"favourites": homeID}}}
	update := bson.M{"$pull": bson.M{"bookings": homeID, "favourites": homeID}}
	result, err := store.users.UpdateMany(ctx, filter, update)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	store.logger.Infof("removed home %s from %d users", homeID.Hex(), result.ModifiedCount)
	return nil
}

func (store *UserMongoDBStore) FindByBookings(ctx context.Context, homeIDs []primitive.ObjectID) ([]*domain.User, error) {
	ctx, span := store.tracer.Start(ctx, "UserMongoDBStore.FindByBookings")
	defer span.End()

	if len(homeIDs) == 0 {
		return []*domain.User{}, nil
	}
	return store.filter(ctx, bson.M{"bookings": bson.M{"$in": homeIDs}})
}

func (store *UserMongoDBStore) filter(ctx context.Context, filter interface{}) ([]*domain.User, error) {
	cursor, err := store.users.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []*domain.User{}
	for cursor.Next(ctx) {
		var user domain.User
		if err := cursor.Decode(&user); err != nil {
			return nil, err
		}
		users = append(users, &user)
	}
	return users, cursor.Err()
}

func (store *UserMongoDBStore) filterOne(ctx context.Context, filter interface{}) (*domain.User, error) {
	var user domain.User
	err := store.users.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func setIfPresent(set bson.M, key string, value *string) {
	if value != nil {
		set[key] = *value
	}
}
