package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/linkhoard/linkhoard/internal/domain"
	"github.com/linkhoard/linkhoard/internal/logger"
	"github.com/linkhoard/linkhoard/internal/query"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to HTTP statuses. Store failures are
// upstream failures (502), never internal ones: the server itself is
// healthy, the document store is not.
func writeError(w http.ResponseWriter, log logger.Logger, err error) {
	var ve domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Reason, Field: ve.Field})
	case errors.Is(err, domain.ErrNotFoundOrForbidden):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "bookmark not found"})
	case errors.Is(err, query.ErrFetchInFlight):
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "fetch already in flight"})
	case errors.Is(err, domain.ErrMutationFailed), errors.Is(err, domain.ErrQueryFailed):
		log.Warn("upstream store failure", logger.Error(err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "store unavailable"})
	default:
		log.Error("unhandled error", logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
