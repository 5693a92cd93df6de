package handlers

import (
	"net/http"

	"github.com/linkhoard/linkhoard/internal/auth"
	"github.com/linkhoard/linkhoard/internal/domain"
	"github.com/linkhoard/linkhoard/internal/httpserver/deps"
)

type deleteAccountResponse struct {
	Deleted int64 `json:"deleted"`
}

// DeleteAccount removes every record the owner has.
func DeleteAccount(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, d.Logger, domain.ErrUnauthenticated)
			return
		}

		n, err := d.Deleter.DeleteAccount(r.Context(), p.UserID)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, deleteAccountResponse{Deleted: n})
	}
}
