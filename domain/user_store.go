package domain

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership names one of the per-user listing sets.
type Membership string

const (
	Bookings   Membership = "bookings"
	Favourites Membership = "favourites"
)

type UserStore interface {
	Insert(ctx context.Context, user *User) error
	Get(ctx context.Context, id primitive.ObjectID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, id primitive.ObjectID, update *UserUpdate) (*User, error)
	AddToSet(ctx context.Context, id primitive.ObjectID, set Membership, homeID primitive.ObjectID) error
	Pull(ctx context.Context, id primitive.ObjectID, set Membership, homeIDs ...primitive.ObjectID) error
	PullFromAll(ctx context.Context, homeID primitive.ObjectID) error
	FindByBookings(ctx context.Context, homeIDs []primitive.ObjectID) ([]*User, error)
}
