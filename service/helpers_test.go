package application_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
	"rental_service/domain"
	application "rental_service/service"
	"rental_service/store/memstore"
)

var errBoom = errors.New("boom")

type fixture struct {
	users    *flakyUsers
	homes    *memstore.HomeStore
	sessions *flakySessions
	files    *flakyFiles
	cleaner  *application.ReferenceCleaner
	auth     *application.AuthService
	listings *application.HomeService
	store    *application.StoreService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	tracer := trace.NewNoopTracerProvider().Tracer("")

	f := &fixture{
		users:    &flakyUsers{UserStore: memstore.NewUserStore()},
		homes:    memstore.NewHomeStore(),
		sessions: &flakySessions{SessionStore: memstore.NewSessionStore(time.Hour)},
		files:    &flakyFiles{FileStore: memstore.NewFileStore()},
	}
	f.cleaner = application.NewReferenceCleaner(f.users, 3, time.Millisecond, logger)
	t.Cleanup(f.cleaner.Close)

	f.auth = application.NewAuthService(f.users, f.sessions, f.files, application.NewBcryptHasher(bcrypt.MinCost), nil, tracer, logger)
	f.listings = application.NewHomeService(f.homes, f.users, f.files, f.cleaner, true, tracer, logger)
	f.store = application.NewStoreService(f.homes, f.users, f.files, tracer, logger)
	return f
}

func (f *fixture) signup(t *testing.T, email string, userType domain.UserType) *domain.Session {
	t.Helper()
	_, session, err := f.auth.Signup(context.Background(), application.NewSession(), domain.SignupInput{
		Email:     email,
		Password:  "correct horse",
		FirstName: "Test",
		UserType:  string(userType),
	}, nil)
	must(t, err)
	return session
}

func (f *fixture) addHome(t *testing.T, host *domain.Session, name string) *application.HomeView {
	t.Helper()
	home, err := f.listings.AddHome(context.Background(), host, domain.HomeInput{
		HouseName: name,
		Price:     100,
		Location:  "Lisbon",
		Rating:    4.5,
	}, []domain.Upload{pngUpload(t)}, nil)
	must(t, err)
	return home
}

func (f *fixture) user(t *testing.T, session *domain.Session) *domain.User {
	t.Helper()
	id, err := primitive.ObjectIDFromHex(session.User.ID)
	must(t, err)
	user, err := f.users.Get(context.Background(), id)
	must(t, err)
	return user
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func pngUpload(t *testing.T) domain.Upload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	must(t, png.Encode(&buf, img))
	return domain.Upload{Filename: "photo.png", ContentType: "image/png", Content: buf.Bytes()}
}

func pdfUpload() domain.Upload {
	return domain.Upload{Filename: "rules.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.4\n%rules\n")}
}

// flakyUsers fails PullFromAll the given number of times.
type flakyUsers struct {
	*memstore.UserStore
	pullFailures int32
}

func (u *flakyUsers) PullFromAll(ctx context.Context, homeID primitive.ObjectID) error {
	if atomic.AddInt32(&u.pullFailures, -1) >= 0 {
		return errBoom
	}
	return u.UserStore.PullFromAll(ctx, homeID)
}

type flakySessions struct {
	*memstore.SessionStore
	failSave bool
}

func (s *flakySessions) Save(ctx context.Context, session *domain.Session) error {
	if s.failSave {
		return errBoom
	}
	return s.SessionStore.Save(ctx, session)
}

type flakyFiles struct {
	*memstore.FileStore
	failDelete bool
	failStore  bool
}

func (f *flakyFiles) Store(ctx context.Context, content []byte, contentType string) (domain.FileRef, error) {
	if f.failStore {
		return domain.FileRef{}, errBoom
	}
	return f.FileStore.Store(ctx, content, contentType)
}

func (f *flakyFiles) Delete(ctx context.Context, ref domain.FileRef) error {
	if f.failDelete {
		return errBoom
	}
	return f.FileStore.Delete(ctx, ref)
}
