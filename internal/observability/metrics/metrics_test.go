package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
)

func scrape(t *testing.T, handler http.Handler) string {
	t.Helper()
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", res.Code)
	}
	return res.Body.String()
}

func assertSample(t *testing.T, body, sample string) {
	t.Helper()
	if !strings.Contains(body, sample) {
		t.Fatalf("missing sample %q in exposition:\n%s", sample, body)
	}
}

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/v1/analyses/{kind}/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/analyses/mood/"+id, nil))
	}

	assertSample(t, scrape(t, m.Handler()),
		`wellness_http_requests_total{method="GET",route="/v1/analyses/{kind}/{id}",service="api",status="404"} 3`)
}

func TestObserveCompletionCountsTokens(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.ObserveCompletion("mood", domain.Completion{Model: "gpt-4o-mini", PromptTokens: 120, CompletionTokens: 80})
	m.ObserveCompletion("mood", domain.Completion{PromptTokens: 10})

	body := scrape(t, m.Handler())
	assertSample(t, body, `wellness_llm_tokens_total{direction="in",endpoint="mood",model="gpt-4o-mini",service="api"} 120`)
	assertSample(t, body, `wellness_llm_tokens_total{direction="out",endpoint="mood",model="gpt-4o-mini",service="api"} 80`)
	assertSample(t, body, `wellness_llm_tokens_total{direction="in",endpoint="mood",model="unknown",service="api"} 10`)
}

func TestAnalysisAndChannelCounters(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.ObserveAnalysis(domain.KindSleep, "succeeded", time.Second)
	m.ObserveChannel(domain.ChannelVideo, "failed", 200*time.Millisecond)
	m.RecordRejected("rate_limit")

	body := scrape(t, m.Handler())
	assertSample(t, body, `wellness_analysis_runs_total{kind="sleep",service="api",status="succeeded"} 1`)
	assertSample(t, body, `wellness_channel_searches_total{channel="video",service="api",status="failed"} 1`)
	assertSample(t, body, `wellness_http_rejected_total{reason="rate_limit",service="api"} 1`)
}

func TestWorkerMetricsTrackEvents(t *testing.T) {
	m := NewWorkerMetrics("worker")
	event := domain.RiskEvent{Level: domain.LevelHigh, CreatedAt: time.Now().Add(-2 * time.Second)}

	m.StartEvent(event, time.Now())
	assertSample(t, scrape(t, m.Handler()), `wellness_worker_risk_events_in_flight{service="worker"} 1`)

	m.FinishEvent(event, 10*time.Millisecond, nil)
	body := scrape(t, m.Handler())
	assertSample(t, body, `wellness_worker_risk_events_in_flight{service="worker"} 0`)
	assertSample(t, body, `wellness_worker_risk_events_total{level="high",service="worker",status="success"} 1`)
	assertSample(t, body, `wellness_worker_risk_event_delivery_seconds_count{service="worker"} 1`)
}
