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

const maxPhotos = 10

type HostHandler struct {
	homes  *application.HomeService
	store  *application.StoreService
	tracer trace.Tracer
	logger *logrus.Logger
}

func NewHostHandler(homes *application.HomeService, store *application.StoreService, tracer trace.Tracer, logger *logrus.Logger) *HostHandler {
	return &HostHandler{
		homes:  homes,
		store:  store,
		tracer: tracer,
		logger: logger,
	}
}

func (handler *HostHandler) Init(router *mux.Router) {
	router.HandleFunc("/api/host/homes", handler.GetHomes).Methods(http.MethodGet)
	router.HandleFunc("/api/host/homes", handler.AddHome).Methods(http.MethodPost)
	router.HandleFunc("/api/host/homes/{homeId}", handler.EditHome).Methods(http.MethodPut)
	router.HandleFunc("/api/host/homes/{homeId}", handler.DeleteHome).Methods(http.MethodDelete)
	router.HandleFunc("/api/host/booking-requests", handler.BookingRequests).Methods(http.MethodGet)
}

type homeResponse struct {
	Message string                `json:"message,omitempty"`
	Home    *application.HomeView `json:"home"`
}

func (handler *HostHandler) GetHomes(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "HostHandler.GetHomes")
	defer span.End()

	homes, err := handler.homes.ListHostHomes(ctx, SessionFromContext(ctx))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(homes, writer, http.StatusOK)
}

func (handler *HostHandler) AddHome(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "HostHandler.AddHome")
	defer span.End()

	var input domain.HomeInput
	if err := decodeBody(writer, req, &input); err != nil {
		writeError(writer, req, handler.logger, err)
		return
	}
	photos, rules, err := homeUploads(req)
	if err != nil {
		writeError(writer, req, handler.logger, err)
		return
	}

	home, err := handler.homes.AddHome(ctx, SessionFromContext(ctx), input, photos, rules)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(homeResponse{Message: "Home added", Home: home}, writer, http.StatusCreated)
}

func (handler *HostHandler) EditHome(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "HostHandler.EditHome")
	defer span.End()

	var patch domain.HomePatch
	if err := decodeBody(writer, req, &patch); err != nil {
		writeError(writer, req, handler.logger, err)
		return
	}
	photos, rules, err := homeUploads(req)
	if err != nil {
		writeError(writer, req, handler.logger, err)
		return
	}

	home, err := handler.homes.EditHome(ctx, SessionFromContext(ctx), mux.Vars(req)["homeId"], patch, photos, rules)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(homeResponse{Message: "Home updated", Home: home}, writer, http.StatusOK)
}

func (handler *HostHandler) DeleteHome(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "HostHandler.DeleteHome")
	defer span.End()

	err := handler.homes.DeleteHome(ctx, SessionFromContext(ctx), mux.Vars(req)["homeId"])
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(message("Home deleted"), writer, http.StatusOK)
}

func (handler *HostHandler) BookingRequests(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "HostHandler.BookingRequests")
	defer span.End()

	requests, err := handler.store.BookingRequests(ctx, SessionFromContext(ctx))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(requests, writer, http.StatusOK)
}

func homeUploads(req *http.Request) ([]domain.Upload, *domain.Upload, error) {
	photos, err := readUploads(req, "photo", maxPhotos)
	if err != nil {
		return nil, nil, err
	}
	rules, err := readUpload(req, "rulesFile")
	if err != nil {
		return nil, nil, err
	}
	return photos, rules, nil
}
