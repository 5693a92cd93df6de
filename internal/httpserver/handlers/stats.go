package handlers

import (
	"net/http"
	"time"

	"github.com/linkhoard/linkhoard/internal/auth"
	"github.com/linkhoard/linkhoard/internal/domain"
	"github.com/linkhoard/linkhoard/internal/httpserver/deps"
)

// Stats serves the owner's profile statistics.
func Stats(d deps.Deps) http.HandlerFunc {
	now := d.TimeNow
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, d.Logger, domain.ErrUnauthenticated)
			return
		}

		s, err := d.Engine.Stats(r.Context(), p.UserID, now())
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}
