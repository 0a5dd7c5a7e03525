package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"rental_service/domain"
)

type HomeStore struct {
	mu    sync.RWMutex
	homes map[primitive.ObjectID]*domain.Home
}

func NewHomeStore() *HomeStore {
	return &HomeStore{homes: map[primitive.ObjectID]*domain.Home{}}
}

func (s *HomeStore) Insert(_ context.Context, home *domain.Home) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if home.ID.IsZero() {
		home.ID = primitive.NewObjectID()
	}
	if home.CreatedAt.IsZero() {
		home.CreatedAt = time.Now().UTC()
	}
	if home.Photos == nil {
		home.Photos = []domain.FileRef{}
	}
	s.homes[home.ID] = cloneHome(home)
	return nil
}

func (s *HomeStore) Get(_ context.Context, id primitive.ObjectID) (*domain.Home, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	home, ok := s.homes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneHome(home), nil
}

func (s *HomeStore) GetMany(_ context.Context, ids []primitive.ObjectID) ([]*domain.Home, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	homes := []*domain.Home{}
	for _, id := range ids {
		if home, ok := s.homes[id]; ok {
			homes = append(homes, cloneHome(home))
		}
	}
	return homes, nil
}

func (s *HomeStore) Find(_ context.Context, filter domain.HomeFilter) (*domain.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []*domain.Home{}
	location := strings.ToLower(filter.Location)
	for _, home := range s.homes {
		if location != "" && !strings.Contains(strings.ToLower(home.Location), location) {
			continue
		}
		if filter.HostID != nil && home.HostID != *filter.HostID {
			continue
		}
		matched = append(matched, cloneHome(home))
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.Hex() > matched[j].ID.Hex()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page := &domain.Page{Total: int64(len(matched)), Page: filter.Page, Limit: filter.Limit}
	if filter.Limit > 0 {
		start := (filter.Page - 1) * filter.Limit
		if start > len(matched) {
			start = len(matched)
		}
		end := start + filter.Limit
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}
	page.Homes = matched
	return page, nil
}

func (s *HomeStore) Update(_ context.Context, id primitive.ObjectID, update *domain.HomeUpdate) (*domain.Home, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	home, ok := s.homes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	updated := cloneHome(home)
	assign(&updated.HouseName, update.HouseName)
	assign(&updated.Location, update.Location)
	assign(&updated.Description, update.Description)
	if update.Price != nil {
		updated.Price = *update.Price
	}
	if update.Rating != nil {
		updated.Rating = *update.Rating
	}
	if update.Photos != nil {
		updated.Photos = append([]domain.FileRef{}, update.Photos...)
	}
	if update.Rules != nil {
		rules := *update.Rules
		updated.Rules = &rules
	}
	s.homes[id] = updated
	return cloneHome(updated), nil
}

func (s *HomeStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.homes[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.homes, id)
	return nil
}

func cloneHome(home *domain.Home) *domain.Home {
	c := *home
	c.Photos = append([]domain.FileRef{}, home.Photos...)
	if home.Rules != nil {
		rules := *home.Rules
		c.Rules = &rules
	}
	return &c
}
