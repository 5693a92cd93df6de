package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/linkhoard/linkhoard/internal/auth"
	"github.com/linkhoard/linkhoard/internal/domain"
	"github.com/linkhoard/linkhoard/internal/httpserver/deps"
)

type draftRequest struct {
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Notes    string   `json:"notes"`
	Tags     []string `json:"tags"`
	Favorite bool     `json:"favorite"`
}

type patchRequest struct {
	Title    *string   `json:"title"`
	URL      *string   `json:"url"`
	Notes    *string   `json:"notes"`
	Tags     *[]string `json:"tags"`
	Favorite *bool     `json:"favorite"`
}

// ListBookmarks serves one composed page of the owner's bookmarks.
// Query params: q, favorites, pageSize, cursor.
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, d.Logger, domain.ErrUnauthenticated)
			return
		}

		params := domain.ParamsFromValues(r.URL.Query())
		pageSize, err := parsePageSize(r, d)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}

		res, err := d.Engine.FetchPage(r.Context(), p.UserID, params, pageSize, r.URL.Query().Get("cursor"))
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// CreateBookmark applies an optimistic create and returns the
// authoritative record.
func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, d.Logger, domain.ErrUnauthenticated)
			return
		}

		var req draftRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, d.Logger, domain.ValidationError{Field: "body", Reason: "invalid json"})
			return
		}

		b, err := d.Mutator.Create(r.Context(), p.UserID, domain.Draft{
			Title:    req.Title,
			URL:      req.URL,
			Notes:    req.Notes,
			Tags:     req.Tags,
			Favorite: req.Favorite,
		})
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, b)
	}
}

// UpdateBookmark applies a partial update to one record.
func UpdateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, d.Logger, domain.ErrUnauthenticated)
			return
		}

		var req patchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, d.Logger, domain.ValidationError{Field: "body", Reason: "invalid json"})
			return
		}

		b, err := d.Mutator.Update(r.Context(), p.UserID, chi.URLParam(r, "id"), domain.Patch{
			Title:    req.Title,
			URL:      req.URL,
			Notes:    req.Notes,
			Tags:     req.Tags,
			Favorite: req.Favorite,
		})
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

// DeleteBookmark removes one record.
func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, d.Logger, domain.ErrUnauthenticated)
			return
		}

		if err := d.Mutator.Delete(r.Context(), p.UserID, chi.URLParam(r, "id")); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type countResponse struct {
	Count int64 `json:"count"`
}

// CountBookmarks returns how many records match the current filters.
func CountBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, d.Logger, domain.ErrUnauthenticated)
			return
		}

		n, err := d.Engine.Count(r.Context(), p.UserID, domain.ParamsFromValues(r.URL.Query()))
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, countResponse{Count: n})
	}
}

func parsePageSize(r *http.Request, d deps.Deps) (int, error) {
	raw := r.URL.Query().Get("pageSize")
	if raw == "" {
		return d.DefaultPageSize, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, domain.ValidationError{Field: "pageSize", Reason: "must be a positive integer"}
	}
	if n > d.MaxPageSize {
		n = d.MaxPageSize
	}
	return n, nil
}
