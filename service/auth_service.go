package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"rental_service/domain"
)

type AuthService struct {
	users    domain.UserStore
	sessions domain.SessionStore
	files    domain.FileStore
	hasher   domain.PasswordHasher
	mailer   WelcomeMailer
	tracer   trace.Tracer
	logger   *logrus.Logger
}

func NewAuthService(users domain.UserStore, sessions domain.SessionStore, files domain.FileStore, hasher domain.PasswordHasher, mailer WelcomeMailer, tracer trace.Tracer, logger *logrus.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		files:    files,
		hasher:   hasher,
		mailer:   mailer,
		tracer:   tracer,
		logger:   logger,
	}
}

// NewSession returns an empty, unsaved session.
func NewSession() *domain.Session {
	return &domain.Session{ID: uuid.NewString()}
}

func (service *AuthService) Signup(ctx context.Context, session *domain.Session, input domain.SignupInput, avatar *domain.Upload) (*UserView, *domain.Session, error) {
	ctx, span := service.tracer.Start(ctx, "AuthService.Signup")
	defer span.End()

	if err := validateStruct(input); err != nil {
		return nil, nil, err
	}
	if err := validateImage("photo", avatar); err != nil {
		return nil, nil, err
	}

	_, err := service.users.GetByEmail(ctx, input.Email)
	if err == nil {
		return nil, nil, domain.ErrDuplicateAccount
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	hash, err := service.hasher.Hash(input.Password)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	userType := domain.Guest
	if input.UserType != "" {
		userType = domain.UserType(input.UserType)
	}
	user := &domain.User{
		ID:           primitive.NewObjectID(),
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		MiddleName:   input.MiddleName,
		LastName:     input.LastName,
		City:         input.City,
		UserType:     userType,
		Bookings:     []primitive.ObjectID{},
		Favourites:   []primitive.ObjectID{},
		CreatedAt:    time.Now().UTC(),
	}

	if avatar != nil {
		ref, err := service.files.Store(ctx, avatar.Content, avatar.ContentType)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, nil, &domain.StorageError{Op: "store avatar", Err: err}
		}
		user.ProfilePic = &ref
	}

	if err := service.users.Insert(ctx, user); err != nil {
		span.SetStatus(codes.Error, err.Error())
		if user.ProfilePic != nil {
			service.discard(ctx, *user.ProfilePic)
		}
		return nil, nil, err
	}
	service.logger.Infof("user %s signed up as %s", user.ID.Hex(), user.UserType)

	established, err := service.establish(ctx, session, user)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	if service.mailer != nil {
		service.mailer.SendWelcome(user)
	}
	return newUserView(user, service.files), established, nil
}

func (service *AuthService) Login(ctx context.Context, session *domain.Session, input domain.LoginInput) (*UserView, *domain.Session, error) {
	ctx, span := service.tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	if err := validateStruct(input); err != nil {
		return nil, nil, err
	}

	user, err := service.users.GetByEmail(ctx, input.Email)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}
	if !service.hasher.Verify(input.Password, user.PasswordHash) {
		span.SetStatus(codes.Error, "invalid credential")
		return nil, nil, domain.ErrInvalidCredential
	}

	established, err := service.establish(ctx, session, user)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}
	return newUserView(user, service.files), established, nil
}

func (service *AuthService) Logout(ctx context.Context, session *domain.Session) error {
	ctx, span := service.tracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	if session == nil {
		return nil
	}
	if err := service.sessions.Destroy(ctx, session.ID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return &domain.SessionError{Op: "destroy", Err: err}
	}
	return nil
}

// ForgotPassword ends the current session so the user has to log in again.
func (service *AuthService) ForgotPassword(ctx context.Context, session *domain.Session) error {
	return service.Logout(ctx, session)
}

// GetCurrentUser returns nil without error for anonymous sessions.
func (service *AuthService) GetCurrentUser(ctx context.Context, session *domain.Session) (*UserView, error) {
	ctx, span := service.tracer.Start(ctx, "AuthService.GetCurrentUser")
	defer span.End()

	if !session.Authenticated() {
		return nil, nil
	}
	user, err := service.sessionUser(ctx, session)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return newUserView(user, service.files), nil
}

func (service *AuthService) UpdateProfile(ctx context.Context, session *domain.Session, patch domain.UserPatch, avatar *domain.Upload) (*UserView, error) {
	ctx, span := service.tracer.Start(ctx, "AuthService.UpdateProfile")
	defer span.End()

	if !session.Authenticated() {
		return nil, domain.ErrUnauthorized
	}
	if err := validateStruct(patch); err != nil {
		return nil, err
	}
	if err := validateImage("profilePic", avatar); err != nil {
		return nil, err
	}

	user, err := service.sessionUser(ctx, session)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	update := &domain.UserUpdate{
		FirstName:  patch.FirstName,
		MiddleName: patch.MiddleName,
		LastName:   patch.LastName,
		City:       patch.City,
	}
	if patch.Email != nil && *patch.Email != user.Email {
		owner, err := service.users.GetByEmail(ctx, *patch.Email)
		switch {
		case err == nil && owner.ID != user.ID:
			return nil, domain.ErrDuplicateAccount
		case err != nil && !errors.Is(err, domain.ErrAccountNotFound):
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		update.Email = patch.Email
	}
	if patch.UserType != nil {
		userType := domain.UserType(*patch.UserType)
		update.UserType = &userType
	}
	if patch.Password != nil {
		hash, err := service.hasher.Hash(*patch.Password)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		update.PasswordHash = &hash
	}
	if avatar != nil {
		ref, err := service.files.Store(ctx, avatar.Content, avatar.ContentType)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, &domain.StorageError{Op: "store avatar", Err: err}
		}
		update.ProfilePic = &ref
	}

	updated, err := service.users.Update(ctx, user.ID, update)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if update.ProfilePic != nil {
			service.discard(ctx, *update.ProfilePic)
		}
		return nil, err
	}
	if update.ProfilePic != nil && user.ProfilePic != nil {
		service.discard(ctx, *user.ProfilePic)
	}

	session.User = domain.NewSessionUser(updated)
	if err := service.sessions.Save(ctx, session); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, &domain.SessionError{Op: "save", Err: err}
	}
	return newUserView(updated, service.files), nil
}

// establish regenerates the session id and stores the logged-in snapshot.
func (service *AuthService) establish(ctx context.Context, session *domain.Session, user *domain.User) (*domain.Session, error) {
	if session == nil {
		session = NewSession()
	}
	regenerated, err := service.sessions.Regenerate(ctx, session)
	if err != nil {
		return nil, &domain.SessionError{Op: "regenerate", Err: err}
	}
	regenerated.IsLoggedIn = true
	regenerated.User = domain.NewSessionUser(user)
	if err := service.sessions.Save(ctx, regenerated); err != nil {
		return nil, &domain.SessionError{Op: "save", Err: err}
	}
	return regenerated, nil
}

func (service *AuthService) sessionUser(ctx context.Context, session *domain.Session) (*domain.User, error) {
	id, err := primitive.ObjectIDFromHex(session.User.ID)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}
	return service.users.Get(ctx, id)
}

func (service *AuthService) discard(ctx context.Context, ref domain.FileRef) {
	if err := service.files.Delete(ctx, ref); err != nil {
		service.logger.Warnf("could not delete file %s: %v", ref.Reference, err)
	}
}
