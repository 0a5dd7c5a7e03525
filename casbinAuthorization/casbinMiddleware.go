package casbinAuthorization

import (
	"encoding/json"
	"net/http"

	"github.com/casbin/casbin"
	"github.com/sirupsen/logrus"
)

const Anonymous = "anonymous"

// RoleFunc extracts the authorization subject from a request.
type RoleFunc func(r *http.Request) string

func NewEnforcer(modelPath, policyPath string) (*casbin.Enforcer, error) {
	return casbin.NewEnforcerSafe(modelPath, policyPath)
}

func CasbinMiddleware(e *casbin.Enforcer, roleOf RoleFunc, logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			userRole := roleOf(r)

			res, err := e.EnforceSafe(userRole, r.URL.Path, r.Method)
			if err != nil {
				logger.Errorf("error enforcing authorization policy: %v", err)
				deny(w, "unauthorized", http.StatusUnauthorized, logger)
				return
			}

			if res {
				next.ServeHTTP(w, r)
				return
			}
			if userRole == Anonymous {
				logger.Warnf("unauthenticated access attempt: %s %s", r.Method, r.URL.Path)
				deny(w, "user not authenticated", http.StatusUnauthorized, logger)
				return
			}
			logger.Warnf("forbidden access attempt by %s: %s %s", userRole, r.Method, r.URL.Path)
			deny(w, "forbidden", http.StatusForbidden, logger)
		}

		return http.HandlerFunc(fn)
	}
}

// deny answers in the same JSON shape as the API error responses.
func deny(w http.ResponseWriter, message string, status int, logger *logrus.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		logger.Errorf("encoding authorization error: %v", err)
	}
}
