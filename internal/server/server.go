package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nick-dorsch/tally/internal/analytics"
	"github.com/nick-dorsch/tally/internal/goals"
	"github.com/nick-dorsch/tally/internal/ledger"
	"github.com/nick-dorsch/tally/pkg/models"
	"github.com/sirupsen/logrus"
)

var errBadRequest = errors.New("bad request")

type Server struct {
	engine *analytics.Engine
	log    logrus.FieldLogger
	server *http.Server
}

func NewServer(engine *analytics.Engine, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{engine: engine, log: log}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/recurring/check", s.handleCheck)
	mux.HandleFunc("POST /api/recurring/{id}/complete", s.handleComplete)
	mux.HandleFunc("POST /api/recurring/{id}/pause", s.handleSetActive(false))
	mux.HandleFunc("POST /api/recurring/{id}/resume", s.handleSetActive(true))
	mux.HandleFunc("GET /api/recurring", s.handleRecurring)
	mux.HandleFunc("GET /api/missed", s.handleMissed)
	mux.HandleFunc("GET /api/lag", s.handleLag)
	mux.HandleFunc("GET /api/mastery", s.handleMastery)
	mux.HandleFunc("POST /api/extract", s.handleExtract)
	mux.HandleFunc("GET /api/goals", s.handleGoals)
	mux.HandleFunc("POST /api/goals", s.handleCreateGoal)
	mux.HandleFunc("DELETE /api/goals/{id}", s.handleDeleteGoal)
	mux.HandleFunc("GET /api/goals/{id}/progress", s.handleGoalProgress)
	mux.HandleFunc("GET /api/productivity", s.handleProductivity)
	mux.HandleFunc("GET /api/insights", s.handleInsights)

	return mux
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.WithField("addr", addr).Info("HTTP API listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryDate(r, "as_of")
	if err != nil {
		s.respond(w, nil, err)
		return
	}
	res, err := s.engine.CheckAllMissedRecurring(r.Context(), asOf)
	s.respond(w, res, err)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	date, err := queryDate(r, "date")
	if err != nil {
		s.respond(w, nil, err)
		return
	}
	c, err := s.engine.RecordCompletion(r.Context(), r.PathValue("id"), date)
	s.respond(w, c, err)
}

func (s *Server) handleSetActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		series, err := s.engine.SetSeriesActive(r.Context(), r.PathValue("id"), active)
		s.respond(w, series, err)
	}
}

func (s *Server) handleRecurring(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.GetAllRecurringStats(r.Context())
	s.respond(w, stats, err)
}

func (s *Server) handleMissed(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.GetMissedTasksAnalysis(r.Context())
	s.respond(w, res, err)
}

func (s *Server) handleLag(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.GetLagIndicators(r.Context(), r.URL.Query().Get("period"))
	s.respond(w, report, err)
}

func (s *Server) handleMastery(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.GetTaskMasteryStats(r.Context(), r.URL.Query().Get("period"))
	s.respond(w, stats, err)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respond(w, nil, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	s.respond(w, s.engine.ExtractMetrics(body.Text), nil)
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	list, err := s.engine.GetGoals(r.Context())
	s.respond(w, list, err)
}

// goalRequest takes dates as YYYY-MM-DD strings.
type goalRequest struct {
	Title          string                `json:"title"`
	Type           models.GoalType       `json:"type"`
	TargetType     models.GoalTargetType `json:"target_type"`
	TargetValue    int                   `json:"target_value"`
	TargetCategory string                `json:"target_category"`
	StartDate      string                `json:"start_date"`
	EndDate        string                `json:"end_date"`
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond(w, nil, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	g := models.Goal{
		Title:          req.Title,
		Type:           req.Type,
		TargetType:     req.TargetType,
		TargetValue:    req.TargetValue,
		TargetCategory: req.TargetCategory,
	}
	for _, f := range []struct {
		raw string
		dst *time.Time
	}{{req.StartDate, &g.StartDate}, {req.EndDate, &g.EndDate}} {
		if f.raw == "" {
			continue
		}
		d, err := models.ParseDay(f.raw)
		if err != nil {
			s.respond(w, nil, fmt.Errorf("%w: invalid date %q", errBadRequest, f.raw))
			return
		}
		*f.dst = d
	}

	created, err := s.engine.CreateGoal(r.Context(), g)
	if err != nil {
		s.respond(w, nil, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteGoal(r.Context(), r.PathValue("id")); err != nil {
		s.respond(w, nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGoalProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.GetGoalProgress(r.Context(), r.PathValue("id"))
	s.respond(w, p, err)
}

func (s *Server) handleProductivity(w http.ResponseWriter, r *http.Request) {
	m, err := s.engine.GetProductivityMetrics(r.Context(), r.URL.Query().Get("period"))
	s.respond(w, m, err)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	insights, err := s.engine.GetProductivityInsights(r.Context())
	s.respond(w, insights, err)
}

func queryDate(r *http.Request, key string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	d, err := models.ParseDay(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s %q", errBadRequest, key, raw)
	}
	return &d, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, analytics.ErrGoalNotFound), errors.Is(err, ledger.ErrUnknownSeries):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, models.ErrUnknownPeriod),
		errors.Is(err, goals.ErrInvalidTarget),
		errors.Is(err, goals.ErrInvalidGoal),
		errors.Is(err, ledger.ErrNoOccurrence):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respond(w http.ResponseWriter, data any, err error) {
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			s.log.WithError(err).Error("Request failed")
		}
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(data)
}
