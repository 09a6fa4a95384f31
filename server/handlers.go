package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/xhad/newsbrief/internal/models"
	"github.com/xhad/newsbrief/pkg/logging"
	"github.com/xhad/newsbrief/pkg/store"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeStoreError maps store failures onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	logging.From(r.Context()).Error("store failure", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// intQuery reads a non-negative integer query parameter.
func intQuery(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func (s *Server) listArticles(w http.ResponseWriter, r *http.Request) {
	skip, ok := intQuery(r, "skip", 0)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid skip")
		return
	}
	limit, ok := intQuery(r, "limit", defaultLimit)
	if !ok || limit == 0 || limit > maxLimit {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	articles, err := s.store.ListArticles(r.Context(), skip, limit)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if articles == nil {
		articles = []models.Article{}
	}
	writeJSON(w, http.StatusOK, articles)
}

func (s *Server) getArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	a, err := s.store.GetArticle(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type createRequest struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content *string `json:"content"`
}

func (s *Server) createArticle(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
		writeError(w, http.StatusBadRequest, "url must be http or https")
		return
	}

	a, err := s.store.CreateArticle(r.Context(), models.Article{
		Title:   req.Title,
		URL:     req.URL,
		Content: req.Content,
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

type updateRequest struct {
	Title         *string `json:"title"`
	Content       *string `json:"content"`
	SummarySimple *string `json:"summary_simple"`
	ImageFilename *string `json:"image_filename"`
}

// updateArticle applies the fields present in the body and leaves the rest.
func (s *Server) updateArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req updateRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	a, err := s.store.GetArticle(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	if req.Title != nil {
		a.Title = *req.Title
	}
	if req.Content != nil {
		a.Content = req.Content
	}
	if req.SummarySimple != nil {
		a.SummarySimple = req.SummarySimple
	}
	if req.ImageFilename != nil {
		a.ImageFilename = req.ImageFilename
	}

	if err := s.store.UpdateArticle(r.Context(), a); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) deleteArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := s.store.DeleteArticle(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) relatedArticles(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	k, ok := intQuery(r, "k", s.config.RelatedK)
	if !ok || k == 0 || k > maxLimit {
		writeError(w, http.StatusBadRequest, "invalid k")
		return
	}

	related, err := s.store.Related(r.Context(), id, k)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if related == nil {
		related = []models.Article{}
	}
	writeJSON(w, http.StatusOK, related)
}

func (s *Server) getDigest(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.GetDigest(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
