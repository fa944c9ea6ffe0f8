package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/promowatch/internal/keyword"
)

// keywordsResponse is the JSON response for GET /api/keywords.
type keywordsResponse struct {
	Keywords []string `json:"keywords"`
}

// addKeywordRequest is the JSON request body for POST /api/keywords.
type addKeywordRequest struct {
	Phrase string `json:"phrase"`
}

func (g *Gateway) handleListKeywords() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.keywords == nil {
			http.Error(w, "keyword store unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, keywordsResponse{Keywords: g.keywords.List()})
	}
}

func (g *Gateway) handleAddKeyword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.keywords == nil {
			http.Error(w, "keyword store unavailable", http.StatusServiceUnavailable)
			return
		}

		var req addKeywordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}

		result, err := g.keywords.Add(req.Phrase)
		switch {
		case errors.Is(err, keyword.ErrEmptyPhrase):
			http.Error(w, "phrase must not be empty", http.StatusBadRequest)
		case result == keyword.AlreadyExists:
			writeJSON(w, http.StatusOK, keywordsResponse{Keywords: g.keywords.List()})
		case result == keyword.Added:
			if err != nil {
				g.logger.Warn("keyword added but not persisted", "error", err)
			}
			writeJSON(w, http.StatusCreated, keywordsResponse{Keywords: g.keywords.List()})
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func (g *Gateway) handleDeleteKeyword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.keywords == nil {
			http.Error(w, "keyword store unavailable", http.StatusServiceUnavailable)
			return
		}

		phrase, err := url.PathUnescape(chi.URLParam(r, "phrase"))
		if err != nil {
			http.Error(w, "invalid phrase encoding", http.StatusBadRequest)
			return
		}

		result, err := g.keywords.Remove(phrase)
		switch {
		case result == keyword.NotFound:
			http.Error(w, "keyword not found", http.StatusNotFound)
		case result == keyword.Removed:
			if err != nil {
				g.logger.Warn("keyword removed but not persisted", "error", err)
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func (g *Gateway) handleListHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.dispatch == nil {
			http.Error(w, "history store unavailable", http.StatusServiceUnavailable)
			return
		}

		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 1000 {
				http.Error(w, "limit must be 1-1000", http.StatusBadRequest)
				return
			}
			limit = n
		}

		entries, err := g.dispatch.Recent(r.Context(), limit)
		if err != nil {
			g.logger.Error("history query failed", "error", err)
			http.Error(w, "history query failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
	}
}

func (g *Gateway) handleKeywordCounts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.dispatch == nil {
			http.Error(w, "history store unavailable", http.StatusServiceUnavailable)
			return
		}

		hours := 24
		if raw := r.URL.Query().Get("hours"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 24*365 {
				http.Error(w, "hours must be 1-8760", http.StatusBadRequest)
				return
			}
			hours = n
		}

		since := time.Now().Add(-time.Duration(hours) * time.Hour)
		counts, err := g.dispatch.CountByKeyword(r.Context(), since)
		if err != nil {
			g.logger.Error("history aggregation failed", "error", err)
			http.Error(w, "history aggregation failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"counts": counts})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
