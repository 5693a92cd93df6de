package handlers

import (
	"net/http"

	"github.com/linkhoard/linkhoard/internal/auth"
	"github.com/linkhoard/linkhoard/internal/domain"
	"github.com/linkhoard/linkhoard/internal/httpserver/deps"
)

type tagsResponse struct {
	Tags []string `json:"tags"`
}

// Tags serves distinct tag suggestions from the owner's cached pages.
// This is a projection of loaded state, not a store query: an owner
// with no cached pages gets an empty list.
func Tags(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, d.Logger, domain.ErrUnauthenticated)
			return
		}

		tags := d.Cache.TagSuggestions(p.UserID)
		if tags == nil {
			tags = []string{}
		}
		writeJSON(w, http.StatusOK, tagsResponse{Tags: tags})
	}
}
