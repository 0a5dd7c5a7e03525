package application

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"rental_service/domain"
)

const (
	DefaultPageLimit = 12
	MaxPageLimit     = 50
)

type HomeService struct {
	homes        domain.HomeStore
	users        domain.UserStore
	files        domain.FileStore
	cleaner      *ReferenceCleaner
	requirePhoto bool
	tracer       trace.Tracer
	logger       *logrus.Logger
}

func NewHomeService(homes domain.HomeStore, users domain.UserStore, files domain.FileStore, cleaner *ReferenceCleaner, requirePhoto bool, tracer trace.Tracer, logger *logrus.Logger) *HomeService {
	return &HomeService{
		homes:        homes,
		users:        users,
		files:        files,
		cleaner:      cleaner,
		requirePhoto: requirePhoto,
		tracer:       tracer,
		logger:       logger,
	}
}

func (service *HomeService) AddHome(ctx context.Context, session *domain.Session, input domain.HomeInput, photos []domain.Upload, rules *domain.Upload) (*HomeView, error) {
	ctx, span := service.tracer.Start(ctx, "HomeService.AddHome")
	defer span.End()

	hostID, err := requireHost(session)
	if err != nil {
		return nil, err
	}
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	if err := validatePhotos(photos); err != nil {
		return nil, err
	}
	if err := validateDocument("rulesFile", rules); err != nil {
		return nil, err
	}
	if service.requirePhoto && len(photos) == 0 {
		return nil, domain.ErrMissingRequiredAsset
	}

	stored, rulesRef, err := service.storeUploads(ctx, photos, rules)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	home := &domain.Home{
		ID:          primitive.NewObjectID(),
		HouseName:   input.HouseName,
		Price:       input.Price,
		Location:    input.Location,
		Rating:      roundRating(input.Rating),
		Description: input.Description,
		Photos:      stored,
		Rules:       rulesRef,
		HostID:      hostID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := service.homes.Insert(ctx, home); err != nil {
		span.SetStatus(codes.Error, err.Error())
		service.discard(ctx, home.Files()...)
		return nil, err
	}
	service.logger.Infof("host %s added home %s", hostID.Hex(), home.ID.Hex())
	return newHomeView(home, service.files), nil
}

func (service *HomeService) EditHome(ctx context.Context, session *domain.Session, id string, patch domain.HomePatch, photos []domain.Upload, rules *domain.Upload) (*HomeView, error) {
	ctx, span := service.tracer.Start(ctx, "HomeService.EditHome")
	defer span.End()

	hostID, err := requireHost(session)
	if err != nil {
		return nil, err
	}
	if err := validateStruct(patch); err != nil {
		return nil, err
	}
	if err := validatePhotos(photos); err != nil {
		return nil, err
	}
	if err := validateDocument("rulesFile", rules); err != nil {
		return nil, err
	}

	home, err := service.ownedHome(ctx, hostID, id)
	if err != nil {
		return nil, err
	}

	update := &domain.HomeUpdate{
		HouseName:   patch.HouseName,
		Price:       patch.Price,
		Location:    patch.Location,
		Description: patch.Description,
	}
	if patch.Rating != nil {
		rating := roundRating(*patch.Rating)
		update.Rating = &rating
	}

	stored, rulesRef, err := service.storeUploads(ctx, photos, rules)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(stored) > 0 {
		update.Photos = stored
	}
	update.Rules = rulesRef

	if update.Empty() {
		return newHomeView(home, service.files), nil
	}

	updated, err := service.homes.Update(ctx, home.ID, update)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		fresh := stored
		if rulesRef != nil {
			fresh = append(fresh, *rulesRef)
		}
		service.discard(ctx, fresh...)
		return nil, err
	}

	if update.Photos != nil {
		service.discard(ctx, home.Photos...)
	}
	if update.Rules != nil && home.Rules != nil {
		service.discard(ctx, *home.Rules)
	}
	return newHomeView(updated, service.files), nil
}

// DeleteHome removes the listing files, then the record, then every user
// reference to it. A failed reference cleanup is retried in the background
// and does not fail the delete.
func (service *HomeService) DeleteHome(ctx context.Context, session *domain.Session, id string) error {
	ctx, span := service.tracer.Start(ctx, "HomeService.DeleteHome")
	defer span.End()

	hostID, err := requireHost(session)
	if err != nil {
		return err
	}
	home, err := service.ownedHome(ctx, hostID, id)
	if err != nil {
		return err
	}

	files := home.Files()
	var deleted int32
	var group errgroup.Group
	for _, file := range files {
		file := file
		group.Go(func() error {
			if err := service.files.Delete(ctx, file); err != nil {
				return err
			}
			atomic.AddInt32(&deleted, 1)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		storageErr := &domain.StorageError{Op: "delete listing files", Err: err}
		if deleted > 0 {
			return &domain.PartialError{
				Op:      "delete listing",
				Applied: []string{fmt.Sprintf("deleted %d of %d files", deleted, len(files))},
				Err:     storageErr,
			}
		}
		return storageErr
	}

	if err := service.homes.Delete(ctx, home.ID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return &domain.PartialError{
			Op:      "delete listing",
			Applied: []string{fmt.Sprintf("deleted %d files", len(files))},
			Err:     err,
		}
	}

	if err := service.users.PullFromAll(ctx, home.ID); err != nil {
		service.logger.Warnf("home %s deleted but references remain, scheduling cleanup: %v", home.ID.Hex(), err)
		if service.cleaner != nil {
			service.cleaner.Schedule(home.ID)
		}
	}
	service.logger.Infof("host %s deleted home %s", hostID.Hex(), home.ID.Hex())
	return nil
}

func (service *HomeService) ListHomes(ctx context.Context, page, limit int, location string) (*HomePage, error) {
	ctx, span := service.tracer.Start(ctx, "HomeService.ListHomes")
	defer span.End()

	page, limit = normalizePage(page, limit)
	result, err := service.homes.Find(ctx, domain.HomeFilter{Location: location, Page: page, Limit: limit})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return newHomePage(result, service.files), nil
}

func (service *HomeService) GetHome(ctx context.Context, id string) (*HomeView, error) {
	ctx, span := service.tracer.Start(ctx, "HomeService.GetHome")
	defer span.End()

	home, err := service.getHome(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return newHomeView(home, service.files), nil
}

func (service *HomeService) ListHostHomes(ctx context.Context, session *domain.Session) ([]*HomeView, error) {
	ctx, span := service.tracer.Start(ctx, "HomeService.ListHostHomes")
	defer span.End()

	hostID, err := requireHost(session)
	if err != nil {
		return nil, err
	}
	result, err := service.homes.Find(ctx, domain.HomeFilter{HostID: &hostID})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return newHomeViews(result.Homes, service.files), nil
}

// RulesDocument returns the listing rules PDF bytes.
func (service *HomeService) RulesDocument(ctx context.Context, id string) ([]byte, string, error) {
	ctx, span := service.tracer.Start(ctx, "HomeService.RulesDocument")
	defer span.End()

	home, err := service.getHome(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if home.Rules == nil {
		return nil, "", domain.ErrNotFound
	}
	content, err := service.files.Resolve(ctx, *home.Rules)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, "", err
	}
	return content, home.Rules.ContentType, nil
}

func (service *HomeService) getHome(ctx context.Context, id string) (*domain.Home, error) {
	homeID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return service.homes.Get(ctx, homeID)
}

// ownedHome loads a listing the host may modify. Listings without a host id
// are open to every host.
func (service *HomeService) ownedHome(ctx context.Context, hostID primitive.ObjectID, id string) (*domain.Home, error) {
	home, err := service.getHome(ctx, id)
	if err != nil {
		return nil, err
	}
	if !home.HostID.IsZero() && home.HostID != hostID {
		return nil, domain.ErrUnauthorized
	}
	return home, nil
}

// storeUploads writes the photos and rules document, removing what it wrote
// if any write fails.
func (service *HomeService) storeUploads(ctx context.Context, photos []domain.Upload, rules *domain.Upload) ([]domain.FileRef, *domain.FileRef, error) {
	stored := make([]domain.FileRef, 0, len(photos))
	for _, photo := range photos {
		ref, err := service.files.Store(ctx, photo.Content, photo.ContentType)
		if err != nil {
			service.discard(ctx, stored...)
			return nil, nil, &domain.StorageError{Op: "store photo", Err: err}
		}
		stored = append(stored, ref)
	}
	if rules == nil {
		return stored, nil, nil
	}
	ref, err := service.files.Store(ctx, rules.Content, rules.ContentType)
	if err != nil {
		service.discard(ctx, stored...)
		return nil, nil, &domain.StorageError{Op: "store rules document", Err: err}
	}
	return stored, &ref, nil
}

func (service *HomeService) discard(ctx context.Context, refs ...domain.FileRef) {
	for _, ref := range refs {
		if err := service.files.Delete(ctx, ref); err != nil {
			service.logger.Warnf("could not delete file %s: %v", ref.Reference, err)
		}
	}
}

func requireHost(session *domain.Session) (primitive.ObjectID, error) {
	if !session.Authenticated() || session.User.UserType != domain.Host {
		return primitive.NilObjectID, domain.ErrUnauthorized
	}
	id, err := primitive.ObjectIDFromHex(session.User.ID)
	if err != nil {
		return primitive.NilObjectID, domain.ErrUnauthorized
	}
	return id, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

func newHomePage(result *domain.Page, files domain.FileStore) *HomePage {
	totalPages := 0
	if result.Limit > 0 {
		totalPages = int((result.Total + int64(result.Limit) - 1) / int64(result.Limit))
	}
	return &HomePage{
		Homes:      newHomeViews(result.Homes, files),
		Total:      result.Total,
		Page:       result.Page,
		Limit:      result.Limit,
		TotalPages: totalPages,
	}
}
