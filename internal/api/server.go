// Package api exposes the dashboard over HTTP: JSON summaries, chart pages
// and CSV/XLSX downloads, each built from the request's query string.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/components"

	"sigmine-dashboard/internal/aggregator"
	"sigmine-dashboard/internal/charts"
	"sigmine-dashboard/internal/dashboard"
	"sigmine-dashboard/internal/dataset"
	"sigmine-dashboard/internal/export"
	"sigmine-dashboard/internal/filter"
	"sigmine-dashboard/internal/logger"
	"sigmine-dashboard/internal/types"
)

// Builder is the page pipeline behind every handler.
type Builder interface {
	Build(ctx context.Context, req dashboard.Request) (*dashboard.Page, error)
	Inventory(ctx context.Context, phases *types.Vocabulary[types.Phase], states *types.Vocabulary[types.State]) (dataset.Summary, error)
}

type Server struct {
	builder Builder
	log     *logger.Logger
	charts  charts.Options
	phases  *types.Vocabulary[types.Phase]
	states  *types.Vocabulary[types.State]
}

// Options configure a Server. Nil vocabularies default to the SIGMINE ones.
type Options struct {
	Charts charts.Options
	Phases *types.Vocabulary[types.Phase]
	States *types.Vocabulary[types.State]
}

func NewServer(b Builder, log *logger.Logger, o Options) *Server {
	s := &Server{
		builder: b,
		log:     log.Component("api"),
		charts:  o.Charts,
		phases:  o.Phases,
		states:  o.States,
	}
	if s.phases == nil {
		s.phases = types.DefaultPhases
	}
	if s.states == nil {
		s.states = types.DefaultStates
	}
	if s.charts.PageTitle == "" {
		s.charts.PageTitle = "SIGMINE"
	}
	return s
}

// Routes returns the service mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/options", s.handleOptions)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /charts", s.handleCharts)
	mux.HandleFunc("GET /export/table.csv", s.handleExport(tableSheet, "csv"))
	mux.HandleFunc("GET /export/table.xlsx", s.handleExport(tableSheet, "xlsx"))
	mux.HandleFunc("GET /export/records.csv", s.handleExport(recordsSheet, "csv"))
	mux.HandleFunc("GET /export/records.xlsx", s.handleExport(recordsSheet, "xlsx"))
	return withRequestID(mux)
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := logger.RequestID(r)
		r.Header.Set(logger.RequestIDHeader, id)
		w.Header().Set(logger.RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.log.WithRequest(r).Debug("health check")
	fmt.Fprint(w, "ok")
}

// build parses the query and runs the pipeline, writing the error response
// itself when it fails.
func (s *Server) build(w http.ResponseWriter, r *http.Request, handler string) (*dashboard.Page, Query, bool) {
	reqLog := s.log.WithRequest(r).WithField("handler", handler)

	q, err := ParseQuery(r.URL.Query(), s.phases, s.states)
	if err != nil {
		reqLog.WithError(err).Warn("bad query")
		s.writeError(w, r, http.StatusBadRequest, err)
		return nil, Query{}, false
	}

	start := time.Now()
	page, err := s.builder.Build(r.Context(), q.Request)
	reqLog = reqLog.WithField("duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			reqLog.WithError(err).Error("build failed")
		} else {
			reqLog.WithError(err).Warn("build rejected")
		}
		s.writeError(w, r, status, err)
		return nil, Query{}, false
	}
	reqLog.WithField("empty", page.Empty).Info("page served")
	return page, q, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, filter.ErrInvalidFilter), errors.Is(err, aggregator.ErrUnknownCategory):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleOptions lists what the filter widgets can offer: phases and states
// present in the data, plus the presets.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "options")
	inv, err := s.builder.Inventory(r.Context(), s.phases, s.states)
	if err != nil {
		reqLog.WithError(err).Error("inventory failed")
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	body := struct {
		dataset.Summary
		TitleholderPhases []types.Phase `json:"titleholder_phases"`
		DefaultTopN       int           `json:"default_top_n"`
		MaxTopN           int           `json:"max_top_n"`
	}{
		Summary:           inv,
		TitleholderPhases: filter.TitleholderPhases(s.phases),
		DefaultTopN:       filter.DefaultTopN,
		MaxTopN:           filter.MaxTopN,
	}
	s.writeJSON(w, r, http.StatusOK, body)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	page, q, ok := s.build(w, r, "summary")
	if !ok {
		return
	}
	body := struct {
		*dashboard.Page
		Table []aggregator.Row `json:"table"`
	}{Page: page}
	if page.Result != nil {
		body.Table = page.Result.Sorted(q.Sort, q.Request.Ranking)
	}
	s.writeJSON(w, r, http.StatusOK, body)
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	page, q, ok := s.build(w, r, "charts")
	if !ok {
		return
	}

	var cs []components.Charter
	for _, p := range page.Panels {
		cs = append(cs, charts.Bar(p.Series, s.charts), charts.Pie(p.Series, s.charts))
	}
	if !page.Empty {
		rows := page.Result.Sorted(q.Sort, q.Request.Ranking)
		if n := q.Request.Spec.TopN(); len(rows) > n {
			rows = rows[:n]
		}
		cs = append(cs, charts.Scatter(rows, q.Sort, s.charts))
	}

	var buf bytes.Buffer
	if err := charts.Render(&buf, s.charts, cs...); err != nil {
		s.log.WithRequest(r).WithError(err).Error("render failed")
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func tableSheet(page *dashboard.Page, q Query) export.Sheet {
	return export.Table(page.Result, q.Sort, q.Request.Ranking)
}

func recordsSheet(page *dashboard.Page, _ Query) export.Sheet {
	return export.Records(page.Result.FilteredEntries)
}

func (s *Server) handleExport(sheet func(*dashboard.Page, Query) export.Sheet, format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, q, ok := s.build(w, r, "export")
		if !ok {
			return
		}
		sh := sheet(page, q)

		var (
			buf         bytes.Buffer
			err         error
			contentType string
		)
		switch format {
		case "xlsx":
			err = export.WriteXLSX(&buf, sh)
			contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		default:
			err = export.WriteCSV(&buf, sh)
			contentType = "text/csv; charset=utf-8"
		}
		if err != nil {
			s.log.WithRequest(r).WithError(err).Error("export failed")
			s.writeError(w, r, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "sigmine-"+sh.Name+"."+format))
		_, _ = w.Write(buf.Bytes())
	}
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.writeJSON(w, r, status, errorBody{Error: err.Error(), RequestID: r.Header.Get(logger.RequestIDHeader)})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.log.WithRequest(r).WithError(err).Error("failed to write response")
	}
}
