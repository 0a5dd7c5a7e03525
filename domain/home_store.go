package domain

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type HomeStore interface {
	Insert(ctx context.Context, home *Home) error
	Get(ctx context.Context, id primitive.ObjectID) (*Home, error)
	GetMany(ctx context.Context, ids []primitive.ObjectID) ([]*Home, error)
	Find(ctx context.Context, filter HomeFilter) (*Page, error)
	Update(ctx context.Context, id primitive.ObjectID, update *HomeUpdate) (*Home, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}
