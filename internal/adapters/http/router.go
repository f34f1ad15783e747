package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/kirillkom/wellness-agents/internal/config"
	"github.com/kirillkom/wellness-agents/internal/core/domain"
	"github.com/kirillkom/wellness-agents/internal/core/ports"
	"github.com/kirillkom/wellness-agents/internal/observability/metrics"
)

const maxBodyBytes = 64 << 10

type Router struct {
	cfg      config.Config
	analyzer ports.Analyzer
	reader   ports.AnalysisReader
	editor   ports.AnalysisEditor
	metrics  *metrics.HTTPServerMetrics
	limiter  *rate.Limiter
}

func NewRouter(
	cfg config.Config,
	analyzer ports.Analyzer,
	reader ports.AnalysisReader,
	editor ports.AnalysisEditor,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	var limiter *rate.Limiter
	if cfg.APIRateLimitRPS > 0 {
		burst := cfg.APIRateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.APIRateLimitRPS), burst)
	}
	return &Router{
		cfg:      cfg,
		analyzer: analyzer,
		reader:   reader,
		editor:   editor,
		metrics:  httpMetrics,
		limiter:  limiter,
	}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware)
	r.Use(middleware.Recoverer)
	if rt.metrics != nil {
		r.Use(rt.metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader, "Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/healthz", rt.healthz)
	if rt.metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(func(next http.Handler) http.Handler {
			return rateLimitMiddleware(next, rt.limiter, rt.recordRejected)
		})
		v1.Use(func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.cfg.APIBackpressureMaxInFlight, rt.cfg.APIBackpressureWait, rt.recordRejected)
		})
		v1.Use(authMiddleware([]byte(rt.cfg.JWTSecret)))
		if rt.cfg.APIRequestTimeout > 0 {
			v1.Use(middleware.Timeout(rt.cfg.APIRequestTimeout))
		}

		v1.Post("/agents/{agent}", rt.runAgent)
		v1.Route("/analyses/{kind}", func(ar chi.Router) {
			ar.Get("/", rt.listAnalyses)
			ar.Get("/trends", rt.trends)
			ar.Get("/{id}", rt.getAnalysis)
			ar.Patch("/{id}/follow-up", rt.updateFollowUp)
			ar.Delete("/{id}", rt.deleteAnalysis)
		})
	})
	return r
}

func (rt *Router) recordRejected(reason string) {
	if rt.metrics != nil {
		rt.metrics.RecordRejected(reason)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{"status": "ok"}
	if named, ok := rt.analyzer.(interface{ Names() []string }); ok {
		resp["agents"] = named.Names()
	}
	writeJSON(w, http.StatusOK, resp)
}

type runAgentRequest struct {
	Input   string            `json:"input"`
	Context map[string]string `json:"context"`
}

func (rt *Router) runAgent(w http.ResponseWriter, r *http.Request) {
	owner, _ := ownerFromContext(r.Context())

	var req runAgentRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	outcome, err := rt.analyzer.Run(r.Context(), domain.AnalysisInput{
		Agent:   chi.URLParam(r, "agent"),
		Text:    req.Input,
		Context: req.Context,
	}, owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

type listResponse struct {
	Items any `json:"items"`
	Count int `json:"count"`
}

func (rt *Router) listAnalyses(w http.ResponseWriter, r *http.Request) {
	owner, _ := ownerFromContext(r.Context())
	filter, err := parseListFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter.OwnerID = owner.ID

	results, err := rt.reader.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("view") == "summary" {
		summaries := make([]domain.AnalysisSummary, 0, len(results))
		for i := range results {
			summaries = append(summaries, results[i].Summary())
		}
		writeJSON(w, http.StatusOK, listResponse{Items: summaries, Count: len(summaries)})
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: results, Count: len(results)})
}

func (rt *Router) trends(w http.ResponseWriter, r *http.Request) {
	owner, _ := ownerFromContext(r.Context())
	kind := domain.AnalysisKind(chi.URLParam(r, "kind"))

	days := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, invalidParam("days", raw))
			return
		}
		days = n
	}
	points, err := rt.reader.Trends(r.Context(), owner, kind, days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"kind": kind, "points": points})
}

func (rt *Router) getAnalysis(w http.ResponseWriter, r *http.Request) {
	owner, _ := ownerFromContext(r.Context())
	result, err := rt.reader.Get(r.Context(), owner, domain.AnalysisKind(chi.URLParam(r, "kind")), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) updateFollowUp(w http.ResponseWriter, r *http.Request) {
	owner, _ := ownerFromContext(r.Context())
	var followUp domain.FollowUp
	if err := decodeBody(w, r, &followUp); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := rt.editor.UpdateFollowUp(r.Context(), owner, domain.AnalysisKind(chi.URLParam(r, "kind")), chi.URLParam(r, "id"), followUp)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) deleteAnalysis(w http.ResponseWriter, r *http.Request) {
	owner, _ := ownerFromContext(r.Context())
	if err := rt.editor.Delete(r.Context(), owner, domain.AnalysisKind(chi.URLParam(r, "kind")), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return domain.WrapError(domain.ErrInvalidInput, "decode body", fmt.Errorf("body exceeds %d bytes", maxErr.Limit))
		}
		return domain.WrapError(domain.ErrInvalidInput, "decode body", errors.New("invalid json"))
	}
	return nil
}

func parseListFilter(r *http.Request) (domain.AnalysisFilter, error) {
	q := r.URL.Query()
	filter := domain.AnalysisFilter{
		Kind:       domain.AnalysisKind(chi.URLParam(r, "kind")),
		Label:      strings.TrimSpace(q.Get("label")),
		TimeOfDay:  domain.TimeOfDay(strings.ToLower(strings.TrimSpace(q.Get("time_of_day")))),
		ContextTag: strings.TrimSpace(q.Get("tag")),
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, invalidParam("limit", raw)
		}
		filter.Limit = n
	}
	var err error
	if filter.From, err = parseTime(q.Get("from")); err != nil {
		return filter, invalidParam("from", q.Get("from"))
	}
	if filter.To, err = parseTime(q.Get("to")); err != nil {
		return filter, invalidParam("to", q.Get("to"))
	}
	for _, level := range strings.Split(q.Get("risk"), ",") {
		level = strings.ToLower(strings.TrimSpace(level))
		switch domain.Level(level) {
		case "":
		case domain.LevelLow, domain.LevelMedium, domain.LevelHigh:
			filter.RiskLevels = append(filter.RiskLevels, domain.Level(level))
		default:
			return filter, invalidParam("risk", level)
		}
	}
	return filter, nil
}

// parseTime accepts RFC 3339 timestamps or bare dates.
func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}

func invalidParam(name, value string) error {
	return domain.WrapError(domain.ErrInvalidInput, "parse query", fmt.Errorf("invalid %s %q", name, value))
}
