package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
)

// handleListEntries returns the owner's entries of one kind, or period
// buckets when a period is requested.
func (s *Server) handleListEntries(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f, err := parseEntryFilter(q, chi.URLParam(r, "owner"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		f.Kind = kind

		period, err := parsePeriod(q)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if period != "" {
			buckets, err := s.svc.Entries.ListByPeriod(r.Context(), f, period)
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, buckets)
			return
		}

		if f.Limit, err = parseLimit(q); err != nil {
			writeError(w, r, err)
			return
		}
		entries, err := s.svc.Entries.List(r.Context(), f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if entries == nil {
			entries = []core.Entry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func (s *Server) handleCreateEntry(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req entryRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		e, err := req.entry(kind)
		if err != nil {
			writeError(w, r, err)
			return
		}
		saved, err := s.svc.Entries.Create(r.Context(), e)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

func (s *Server) handleUpdateEntry(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req entryPatchRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		patch, err := req.patch()
		if err != nil {
			writeError(w, r, err)
			return
		}
		updated, err := s.svc.Entries.Update(r.Context(), kind, chi.URLParam(r, "id"), patch)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func (s *Server) handleDeleteEntry(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deleted, err := s.svc.Entries.Delete(r.Context(), kind, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": string(kind) + " deleted",
			"entry":   deleted,
		})
	}
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := req.transfer()
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.svc.Entries.Transfer(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}
