package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"rental_service/domain"
)

type errorResponse struct {
	Error   string   `json:"error"`
	Field   string   `json:"field,omitempty"`
	Applied []string `json:"applied,omitempty"`
}

func jsonResponse(object interface{}, w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(object); err != nil {
		logrus.Errorf("encoding response: %v", err)
	}
}

func message(text string) map[string]string {
	return map[string]string{"message": text}
}

func statusOf(err error) int {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation), errors.Is(err, domain.ErrMissingRequiredAsset):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrDuplicateAccount):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidCredential), errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeError maps a service error to a status. Unexpected errors are logged in
// full and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, err error) {
	status := statusOf(err)
	body := errorResponse{Error: err.Error()}

	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		body = errorResponse{Error: validation.Message, Field: validation.Field}
	}

	var partial *domain.PartialError
	if errors.As(err, &partial) {
		body.Applied = partial.Applied
	}

	entry := logger.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path, "status": status})
	if status == http.StatusInternalServerError {
		entry.Errorf("request failed: %v", err)
		body.Error = "internal server error"
		if partial != nil {
			body.Error = "operation partially applied"
		}
	} else {
		entry.Debugf("request rejected: %v", err)
	}
	jsonResponse(body, w, status)
}
