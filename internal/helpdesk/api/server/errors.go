package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Leopold1975/helpdesk/internal/helpdesk/domain/models"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/services/articleservice"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/services/authservice"
	"github.com/Leopold1975/helpdesk/internal/pkg/jwtauth"
)

type Error struct {
	Err string `json:"error"`
}

func (se Error) ToJSON() []byte {
	b, err := json.Marshal(se)
	if err != nil {
		return []byte(`{"error": "marshal error"}`)
	}

	return b
}

var badRequestErrors = []error{ //nolint:gochecknoglobals
	authservice.ErrEmptyCredentials,
	authservice.ErrOTPExpiryRequired,
	authservice.ErrInvalidTopic,
	models.ErrInvalidRole,
	models.ErrInvalidLevel,
	articleservice.ErrEmptyKeyword,
	articleservice.ErrEmptyTitle,
	articleservice.ErrUnsupportedBackup,
}

// statusOf maps service errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, authservice.ErrUnauthenticated),
		errors.Is(err, authservice.ErrInvalidCredentials),
		errors.Is(err, authservice.ErrOTPExpired),
		errors.Is(err, jwtauth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, authservice.ErrNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, authservice.ErrNotFound), errors.Is(err, articleservice.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, authservice.ErrAlreadyExists), errors.Is(err, authservice.ErrAlreadyInitialized):
		return http.StatusConflict
	}

	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}

	return http.StatusInternalServerError
}

func handleError(w http.ResponseWriter, err error, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	e := Error{err.Error()}

	w.Write(e.ToJSON()) //nolint:errcheck
}

func handleServiceError(w http.ResponseWriter, err error) {
	handleError(w, err, statusOf(err))
}
