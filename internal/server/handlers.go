package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/Sternrassler/airtable-proxy/pkg/airtable"
	"github.com/Sternrassler/airtable-proxy/pkg/cache"
	"github.com/Sternrassler/airtable-proxy/pkg/pagination"
	"github.com/Sternrassler/airtable-proxy/pkg/proxy"
)

// pathError is the body of a rejected request path.
type pathError struct {
	Error string `json:"Error"`
}

// ErrorDetail is one element of the error array returned when a fetch fails.
type ErrorDetail struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.fetcher.Cache().Ping(r.Context()); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Cache backend not ready")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("cache unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleInvalidPath(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusBadRequest, pathError{Error: "Invalid path"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api") {
		s.handleInvalidPath(w, r)
		return
	}
	http.NotFound(w, r)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	page, err := proxy.ParsePage(chi.URLParam(r, "page"))
	if err != nil {
		s.handleInvalidPath(w, r)
		return
	}

	ctx := r.Context()
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	result, err := s.fetcher.FetchPage(ctx, table, page)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, proxy.ErrUnknownTable):
		writeJSON(w, http.StatusNotFound, pathError{Error: "Unknown table"})
	case errors.Is(err, proxy.ErrInvalidPage), errors.Is(err, cache.ErrInvalidKey):
		s.handleInvalidPath(w, r)
	default:
		hlog.FromRequest(r).Warn().
			Err(err).
			Str("table", table).
			Int("page", page).
			Msg("Page fetch failed")
		// Upstream failures are reported as 200 with an error array.
		writeJSON(w, http.StatusOK, []ErrorDetail{errorDetail(err)})
	}
}

// errorDetail describes err in the shape Airtable clients report errors.
func errorDetail(err error) ErrorDetail {
	var apiErr *airtable.APIError
	var exhausted *pagination.ExhaustedError

	switch {
	case errors.As(err, &apiErr):
		return ErrorDetail{Error: apiErr.Type, Message: apiErr.Message, StatusCode: apiErr.StatusCode}
	case errors.As(err, &exhausted):
		return ErrorDetail{Error: "PAGE_NOT_FOUND", Message: exhausted.Error(), StatusCode: http.StatusNotFound}
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorDetail{Error: "REQUEST_TIMEOUT", Message: "upstream did not answer in time", StatusCode: http.StatusGatewayTimeout}
	default:
		return ErrorDetail{Error: airtable.TypeUnexpectedError, Message: err.Error(), StatusCode: http.StatusInternalServerError}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
