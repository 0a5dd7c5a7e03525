// Package memstore holds in-memory stores used by tests and by the memory
// storage backend. Values are copied on the way in and out so callers never
// share state with the store.
package memstore

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"rental_service/domain"
)

type UserStore struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]*domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: map[primitive.ObjectID]*domain.User{}}
}

func (s *UserStore) Insert(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return domain.ErrDuplicateAccount
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.Bookings == nil {
		user.Bookings = []primitive.ObjectID{}
	}
	if user.Favourites == nil {
		user.Favourites = []primitive.ObjectID{}
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *UserStore) Get(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneUser(user), nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Email == email {
			return cloneUser(user), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (s *UserStore) Update(_ context.Context, id primitive.ObjectID, update *domain.UserUpdate) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if update.Email != nil && *update.Email != user.Email {
		for otherID, other := range s.users {
			if otherID != id && other.Email == *update.Email {
				return nil, domain.ErrDuplicateAccount
			}
		}
	}

	updated := cloneUser(user)
	assign(&updated.FirstName, update.FirstName)
	assign(&updated.MiddleName, update.MiddleName)
	assign(&updated.LastName, update.LastName)
	assign(&updated.Email, update.Email)
	assign(&updated.City, update.City)
	assign(&updated.PasswordHash, update.PasswordHash)
	if update.UserType != nil {
		updated.UserType = *update.UserType
	}
	if update.ProfilePic != nil {
		pic := *update.ProfilePic
		updated.ProfilePic = &pic
	}
	s.users[id] = updated
	return cloneUser(updated), nil
}

func (s *UserStore) AddToSet(_ context.Context, id primitive.ObjectID, set domain.Membership, homeID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	ids := membership(user, set)
	for _, existing := range *ids {
		if existing == homeID {
			return nil
		}
	}
	*ids = append(*ids, homeID)
	return nil
}

func (s *UserStore) Pull(_ context.Context, id primitive.ObjectID, set domain.Membership, homeIDs ...primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	for _, homeID := range homeIDs {
		pull(membership(user, set), homeID)
	}
	return nil
}

func (s *UserStore) PullFromAll(_ context.Context, homeID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		pull(&user.Bookings, homeID)
		pull(&user.Favourites, homeID)
	}
	return nil
}

func (s *UserStore) FindByBookings(_ context.Context, homeIDs []primitive.ObjectID) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := map[primitive.ObjectID]bool{}
	for _, id := range homeIDs {
		wanted[id] = true
	}
	users := []*domain.User{}
	for _, user := range s.users {
		for _, booking := range user.Bookings {
			if wanted[booking] {
				users = append(users, cloneUser(user))
				break
			}
		}
	}
	return users, nil
}

func membership(user *domain.User, set domain.Membership) *[]primitive.ObjectID {
	if set == domain.Bookings {
		return &user.Bookings
	}
	return &user.Favourites
}

func pull(ids *[]primitive.ObjectID, id primitive.ObjectID) {
	kept := (*ids)[:0]
	for _, existing := range *ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	*ids = kept
}

func assign(field *string, value *string) {
	if value != nil {
		*field = *value
	}
}

func cloneUser(user *domain.User) *domain.User {
	c := *user
	c.Bookings = append([]primitive.ObjectID{}, user.Bookings...)
	c.Favourites = append([]primitive.ObjectID{}, user.Favourites...)
	if user.ProfilePic != nil {
		pic := *user.ProfilePic
		c.ProfilePic = &pic
	}
	return &c
}
