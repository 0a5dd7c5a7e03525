package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"rental_service/domain"
	application "rental_service/service"
)

type AuthHandler struct {
	service *application.AuthService
	cookie  *SessionCookie
	tracer  trace.Tracer
	logger  *logrus.Logger
}

func NewAuthHandler(service *application.AuthService, cookie *SessionCookie, tracer trace.Tracer, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		cookie:  cookie,
		tracer:  tracer,
		logger:  logger,
	}
}

func (handler *AuthHandler) Init(router *mux.Router) {
	router.HandleFunc("/api/auth/signup", handler.Signup).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", handler.Login).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/logout", handler.Logout).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/current-user", handler.CurrentUser).Methods(http.MethodGet)
	router.HandleFunc("/api/auth/profile", handler.UpdateProfile).Methods(http.MethodPut)
	router.HandleFunc("/api/auth/forgot-password", handler.ForgotPassword).Methods(http.MethodPost)
}

type userResponse struct {
	Message string                `json:"message,omitempty"`
	User    *application.UserView `json:"user"`
}

func (handler *AuthHandler) Signup(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "AuthHandler.Signup")
	defer span.End()

	var input domain.SignupInput
	if err := decodeBody(writer, req, &input); err != nil {
		writeError(writer, req, handler.logger, err)
		return
	}
	avatar, err := readUpload(req, "photo")
	if err != nil {
		writeError(writer, req, handler.logger, err)
		return
	}

	user, session, err := handler.service.Signup(ctx, SessionFromContext(ctx), input, avatar)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(writer, req, handler.logger, err)
		return
	}
	if !handler.writeCookie(writer, req, session) {
		return
	}
	jsonResponse(userResponse{Message: "Signup successful", User: user}, writer, http.StatusCreated)
}

func (handler *AuthHandler) Login(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "AuthHandler.Login")
	defer span.End()

	var input domain.LoginInput
	if err := decodeJSON(req, &input); err != nil {
		writeError(writer, req, handler.logger, err)
		return
	}

	user, session, err := handler.service.Login(ctx, SessionFromContext(ctx), input)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(writer, req, handler.logger, err)
		return
	}
	if !handler.writeCookie(writer, req, session) {
		return
	}
	jsonResponse(userResponse{Message: "Login successful", User: user}, writer, http.StatusOK)
}

func (handler *AuthHandler) Logout(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "AuthHandler.Logout")
	defer span.End()

	err := handler.service.Logout(ctx, SessionFromContext(ctx))
	handler.cookie.Clear(writer)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(message("Logged out"), writer, http.StatusOK)
}

func (handler *AuthHandler) ForgotPassword(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "AuthHandler.ForgotPassword")
	defer span.End()

	err := handler.service.ForgotPassword(ctx, SessionFromContext(ctx))
	handler.cookie.Clear(writer)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(message("Session cleared, please log in again"), writer, http.StatusOK)
}

func (handler *AuthHandler) CurrentUser(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "AuthHandler.CurrentUser")
	defer span.End()

	user, err := handler.service.GetCurrentUser(ctx, SessionFromContext(ctx))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(userResponse{User: user}, writer, http.StatusOK)
}

func (handler *AuthHandler) UpdateProfile(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "AuthHandler.UpdateProfile")
	defer span.End()

	var patch domain.UserPatch
	if err := decodeBody(writer, req, &patch); err != nil {
		writeError(writer, req, handler.logger, err)
		return
	}
	avatar, err := readUpload(req, "profilePic")
	if err != nil {
		writeError(writer, req, handler.logger, err)
		return
	}

	user, err := handler.service.UpdateProfile(ctx, SessionFromContext(ctx), patch, avatar)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(userResponse{Message: "Profile updated", User: user}, writer, http.StatusOK)
}

func (handler *AuthHandler) writeCookie(writer http.ResponseWriter, req *http.Request, session *domain.Session) bool {
	if err := handler.cookie.Write(writer, session); err != nil {
		writeError(writer, req, handler.logger, &domain.SessionError{Op: "encode cookie", Err: err})
		return false
	}
	return true
}
