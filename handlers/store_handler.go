package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"rental_service/authorization"
	"rental_service/domain"
	application "rental_service/service"
)

type StoreHandler struct {
	homes  *application.HomeService
	store  *application.StoreService
	links  *authorization.LinkSigner
	tracer trace.Tracer
	logger *logrus.Logger
}

func NewStoreHandler(homes *application.HomeService, store *application.StoreService, links *authorization.LinkSigner, tracer trace.Tracer, logger *logrus.Logger) *StoreHandler {
	return &StoreHandler{
		homes:  homes,
		store:  store,
		links:  links,
		tracer: tracer,
		logger: logger,
	}
}

func (handler *StoreHandler) Init(router *mux.Router) {
	router.HandleFunc("/api/store/", handler.GetHomes).Methods(http.MethodGet)
	router.HandleFunc("/api/store/homes", handler.GetHomes).Methods(http.MethodGet)
	router.HandleFunc("/api/store/homes/{homeId}", handler.GetHome).Methods(http.MethodGet)

	router.HandleFunc("/api/store/bookings", handler.GetBookings).Methods(http.MethodGet)
	router.HandleFunc("/api/store/bookings", handler.AddBooking).Methods(http.MethodPost)
	router.HandleFunc("/api/store/bookings/{homeId}", handler.RemoveBooking).Methods(http.MethodDelete)

	router.HandleFunc("/api/store/favourites", handler.GetFavourites).Methods(http.MethodGet)
	router.HandleFunc("/api/store/favourites", handler.AddFavourite).Methods(http.MethodPost)
	router.HandleFunc("/api/store/favourites/{homeId}", handler.RemoveFavourite).Methods(http.MethodDelete)

	router.HandleFunc("/api/store/rules/{homeId}", handler.GetRules).Methods(http.MethodGet)
	router.HandleFunc("/api/store/rules/{homeId}/link", handler.GetRulesLink).Methods(http.MethodGet)
}

type homeIDRequest struct {
	HomeID string `json:"homeId"`
}

type rulesLinkResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (handler *StoreHandler) GetHomes(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "StoreHandler.GetHomes")
	defer span.End()

	query := req.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	limit, _ := strconv.Atoi(query.Get("limit"))

	homes, err := handler.homes.ListHomes(ctx, page, limit, query.Get("location"))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(homes, writer, http.StatusOK)
}

func (handler *StoreHandler) GetHome(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "StoreHandler.GetHome")
	defer span.End()

	home, err := handler.homes.GetHome(ctx, mux.Vars(req)["homeId"])
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(home, writer, http.StatusOK)
}

func (handler *StoreHandler) GetBookings(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "StoreHandler.GetBookings")
	defer span.End()

	homes, err := handler.store.Bookings(ctx, SessionFromContext(ctx))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(homes, writer, http.StatusOK)
}

func (handler *StoreHandler) AddBooking(writer http.ResponseWriter, req *http.Request) {
	handler.membership(writer, req, "StoreHandler.AddBooking", handler.store.AddBooking, "Added to bookings")
}

func (handler *StoreHandler) RemoveBooking(writer http.ResponseWriter, req *http.Request) {
	handler.membership(writer, req, "StoreHandler.RemoveBooking", handler.store.RemoveBooking, "Removed from bookings")
}

func (handler *StoreHandler) GetFavourites(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "StoreHandler.GetFavourites")
	defer span.End()

	homes, err := handler.store.Favourites(ctx, SessionFromContext(ctx))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(homes, writer, http.StatusOK)
}

func (handler *StoreHandler) AddFavourite(writer http.ResponseWriter, req *http.Request) {
	handler.membership(writer, req, "StoreHandler.AddFavourite", handler.store.AddFavourite, "Added to favourites")
}

func (handler *StoreHandler) RemoveFavourite(writer http.ResponseWriter, req *http.Request) {
	handler.membership(writer, req, "StoreHandler.RemoveFavourite", handler.store.RemoveFavourite, "Removed from favourites")
}

// GetRules serves the rules PDF to a logged-in user or to a holder of a
// signed link.
func (handler *StoreHandler) GetRules(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "StoreHandler.GetRules")
	defer span.End()

	homeID := mux.Vars(req)["homeId"]
	if token := req.URL.Query().Get("token"); token != "" {
		if err := handler.links.Verify(token, homeID); err != nil {
			writeError(writer, req, handler.logger, err)
			return
		}
	} else if !SessionFromContext(ctx).Authenticated() {
		writeError(writer, req, handler.logger, domain.ErrUnauthorized)
		return
	}

	content, contentType, err := handler.homes.RulesDocument(ctx, homeID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(writer, req, handler.logger, err)
		return
	}
	writer.Header().Set("Content-Type", contentType)
	writer.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="house-rules-%s.pdf"`, homeID))
	writer.WriteHeader(http.StatusOK)
	_, _ = writer.Write(content)
}

func (handler *StoreHandler) GetRulesLink(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "StoreHandler.GetRulesLink")
	defer span.End()

	if !SessionFromContext(ctx).Authenticated() {
		writeError(writer, req, handler.logger, domain.ErrUnauthorized)
		return
	}
	home, err := handler.homes.GetHome(ctx, mux.Vars(req)["homeId"])
	if err != nil {
		writeError(writer, req, handler.logger, err)
		return
	}
	if home.HouseRulePdf == "" {
		writeError(writer, req, handler.logger, domain.ErrNotFound)
		return
	}

	token, expiresAt, err := handler.links.Sign(home.ID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(rulesLinkResponse{URL: home.HouseRulePdf + "?token=" + token, ExpiresAt: expiresAt}, writer, http.StatusOK)
}

type membershipFunc func(ctx context.Context, session *domain.Session, homeID string) error

func (handler *StoreHandler) membership(writer http.ResponseWriter, req *http.Request, name string, apply membershipFunc, done string) {
	ctx, span := handler.tracer.Start(req.Context(), name)
	defer span.End()

	homeID := mux.Vars(req)["homeId"]
	if homeID == "" {
		var body homeIDRequest
		if err := decodeJSON(req, &body); err != nil {
			writeError(writer, req, handler.logger, err)
			return
		}
		if body.HomeID == "" {
			writeError(writer, req, handler.logger, &domain.ValidationError{Field: "homeId", Message: "is required"})
			return
		}
		homeID = body.HomeID
	}

	if err := apply(ctx, SessionFromContext(ctx), homeID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(writer, req, handler.logger, err)
		return
	}
	jsonResponse(message(done), writer, http.StatusOK)
}
