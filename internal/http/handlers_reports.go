package http

import (
	"bytes"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/export"
	applog "fintrack/internal/log"
	"fintrack/internal/report"
	"fintrack/internal/services"
)

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (s *Server) transactionsQuery(r *http.Request) (services.TransactionsQuery, error) {
	q := r.URL.Query()
	f, err := parseEntryFilter(q, chi.URLParam(r, "owner"))
	if err != nil {
		return services.TransactionsQuery{}, err
	}
	typ, err := services.ParseTransactionType(q.Get("type"))
	if err != nil {
		return services.TransactionsQuery{}, err
	}
	period, err := parsePeriod(q)
	if err != nil {
		return services.TransactionsQuery{}, err
	}
	limit, err := parseLimit(q)
	if err != nil {
		return services.TransactionsQuery{}, err
	}
	return services.TransactionsQuery{
		Filter: f,
		Type:   typ,
		Period: period,
		SortBy: report.ParseSortKey(q.Get("sortBy")),
		Limit:  limit,
	}, nil
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	query, err := s.transactionsQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := s.svc.Reports.Transactions(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rep.Transactions == nil {
		rep.Transactions = []report.Transaction{}
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleExport streams the filtered transaction feed as an XLSX workbook.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	query, err := s.transactionsQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := s.svc.Reports.Transactions(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Render fully before writing headers so a failure can still become a 500.
	var buf bytes.Buffer
	if err := export.WriteTransactions(&buf, rep.Transactions); err != nil {
		writeError(w, r, fmt.Errorf("export transactions: %w", err))
		return
	}

	name := unsafeFilename.ReplaceAllString(query.Filter.Owner, "_") + "-transactions.xlsx"
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		applog.FromContext(r.Context()).LogError(r.Context(), "Export write failed", err, applog.OpExport, nil)
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Reports.Dashboard(r.Context(), chi.URLParam(r, "owner"), r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
