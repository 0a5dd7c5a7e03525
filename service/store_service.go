package application

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"rental_service/domain"
)

type StoreService struct {
	homes  domain.HomeStore
	users  domain.UserStore
	files  domain.FileStore
	tracer trace.Tracer
	logger *logrus.Logger
}

func NewStoreService(homes domain.HomeStore, users domain.UserStore, files domain.FileStore, tracer trace.Tracer, logger *logrus.Logger) *StoreService {
	return &StoreService{
		homes:  homes,
		users:  users,
		files:  files,
		tracer: tracer,
		logger: logger,
	}
}

func (service *StoreService) AddBooking(ctx context.Context, session *domain.Session, homeID string) error {
	return service.add(ctx, session, domain.Bookings, homeID)
}

func (service *StoreService) RemoveBooking(ctx context.Context, session *domain.Session, homeID string) error {
	return service.remove(ctx, session, domain.Bookings, homeID)
}

func (service *StoreService) AddFavourite(ctx context.Context, session *domain.Session, homeID string) error {
	return service.add(ctx, session, domain.Favourites, homeID)
}

func (service *StoreService) RemoveFavourite(ctx context.Context, session *domain.Session, homeID string) error {
	return service.remove(ctx, session, domain.Favourites, homeID)
}

func (service *StoreService) Bookings(ctx context.Context, session *domain.Session) ([]*HomeView, error) {
	return service.list(ctx, session, domain.Bookings)
}

func (service *StoreService) Favourites(ctx context.Context, session *domain.Session) ([]*HomeView, error) {
	return service.list(ctx, session, domain.Favourites)
}

// BookingRequests lists, for every listing the host owns, the guests that booked it.
func (service *StoreService) BookingRequests(ctx context.Context, session *domain.Session) ([]*BookingRequest, error) {
	ctx, span := service.tracer.Start(ctx, "StoreService.BookingRequests")
	defer span.End()

	hostID, err := requireHost(session)
	if err != nil {
		return nil, err
	}
	owned, err := service.homes.Find(ctx, domain.HomeFilter{HostID: &hostID})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	homes := map[primitive.ObjectID]*domain.Home{}
	ids := make([]primitive.ObjectID, 0, len(owned.Homes))
	for _, home := range owned.Homes {
		homes[home.ID] = home
		ids = append(ids, home.ID)
	}
	guests, err := service.users.FindByBookings(ctx, ids)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	requests := []*BookingRequest{}
	for _, guest := range guests {
		guestView := newUserView(guest, service.files)
		for _, booking := range guest.Bookings {
			if home, ok := homes[booking]; ok {
				requests = append(requests, &BookingRequest{Home: newHomeView(home, service.files), Guest: guestView})
			}
		}
	}
	return requests, nil
}

func (service *StoreService) add(ctx context.Context, session *domain.Session, set domain.Membership, id string) error {
	ctx, span := service.tracer.Start(ctx, "StoreService.add")
	defer span.End()

	userID, err := requireUser(session)
	if err != nil {
		return err
	}
	homeID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}
	if _, err := service.homes.Get(ctx, homeID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := service.users.AddToSet(ctx, userID, set, homeID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (service *StoreService) remove(ctx context.Context, session *domain.Session, set domain.Membership, id string) error {
	ctx, span := service.tracer.Start(ctx, "StoreService.remove")
	defer span.End()

	userID, err := requireUser(session)
	if err != nil {
		return err
	}
	homeID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}
	if err := service.users.Pull(ctx, userID, set, homeID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// list resolves a membership set to listings. Ids whose listing is gone are
// skipped and pruned from the set.
func (service *StoreService) list(ctx context.Context, session *domain.Session, set domain.Membership) ([]*HomeView, error) {
	ctx, span := service.tracer.Start(ctx, "StoreService.list")
	defer span.End()

	userID, err := requireUser(session)
	if err != nil {
		return nil, err
	}
	user, err := service.users.Get(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	ids := user.Bookings
	if set == domain.Favourites {
		ids = user.Favourites
	}
	homes, err := service.homes.GetMany(ctx, ids)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if len(homes) < len(ids) {
		found := map[primitive.ObjectID]bool{}
		for _, home := range homes {
			found[home.ID] = true
		}
		var dangling []primitive.ObjectID
		for _, id := range ids {
			if !found[id] {
				dangling = append(dangling, id)
			}
		}
		if err := service.users.Pull(ctx, userID, set, dangling...); err != nil {
			service.logger.Warnf("pruning %d dangling %s for user %s: %v", len(dangling), set, userID.Hex(), err)
		}
	}

	// keep the user's insertion order
	byID := map[primitive.ObjectID]*domain.Home{}
	for _, home := range homes {
		byID[home.ID] = home
	}
	ordered := make([]*domain.Home, 0, len(homes))
	for _, id := range ids {
		if home, ok := byID[id]; ok {
			ordered = append(ordered, home)
		}
	}
	return newHomeViews(ordered, service.files), nil
}

func requireUser(session *domain.Session) (primitive.ObjectID, error) {
	if !session.Authenticated() {
		return primitive.NilObjectID, domain.ErrUnauthorized
	}
	id, err := primitive.ObjectIDFromHex(session.User.ID)
	if err != nil {
		return primitive.NilObjectID, domain.ErrUnauthorized
	}
	return id, nil
}
