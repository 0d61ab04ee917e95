package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trademate/internal/domain"
	"trademate/internal/fusion"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("handler-test")

type engineStub struct {
	decision *domain.FusedDecision
	err      error
	store    *fusion.SnapshotStore
}

func (s *engineStub) RequestDecision(ctx context.Context, symbol string) (*domain.FusedDecision, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.decision, nil
}

func (s *engineStub) Store() *fusion.SnapshotStore {
	if s.store == nil {
		s.store = fusion.NewSnapshotStore()
	}
	return s.store
}

func decisionRouter(engine DecisionEngine) *gin.Engine {
	h := New(testTracer, engine, nil)
	router := gin.New()
	h.RegisterRoutes(router, nil)
	return router
}

func TestGetDecisionSuccess(t *testing.T) {
	engine := &engineStub{decision: &domain.FusedDecision{
		Symbol:         "BTC",
		Recommendation: domain.Buy,
		FusedScore:     0.42,
		Confidence:     0.71,
		ConfidenceTier: domain.TierHigh,
		Agreement:      true,
		GeneratedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}}
	router := decisionRouter(engine)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/decisions/btc", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body domain.FusedDecision
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if body.Symbol != "BTC" || body.Recommendation != domain.Buy {
		t.Fatalf("unexpected payload: %+v", body)
	}
}

func TestGetDecisionUnsupportedSymbol(t *testing.T) {
	router := decisionRouter(&engineStub{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/decisions/DOGE2", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetDecisionInsufficientSignal(t *testing.T) {
	engine := &engineStub{err: &fusion.InsufficientSignalError{
		Symbol:   "ETH",
		Excluded: []string{"technical: no signal yet", "sentiment: no signal yet", "policy: no signal yet"},
	}}
	router := decisionRouter(engine)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/decisions/ETH", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}

	var body struct {
		Error    string   `json:"error"`
		Symbol   string   `json:"symbol"`
		Excluded []string `json:"excluded_sources"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if body.Error != "insufficient signal data" || len(body.Excluded) != 3 {
		t.Fatalf("unexpected payload: %+v", body)
	}
}

func TestGetDecisionInternalError(t *testing.T) {
	router := decisionRouter(&engineStub{err: errors.New("boom")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/decisions/BTC", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestGetSignalsReturnsLatestPerSource(t *testing.T) {
	engine := &engineStub{}
	engine.Store().Push(domain.Signal{
		Symbol: "BTC", Source: domain.SourceTechnical, Score: 0.5, Confidence: 0.8, Timestamp: time.Now(),
	})
	engine.Store().Push(domain.Signal{
		Symbol: "BTC", Source: domain.SourceSentiment, Score: -0.2, Confidence: 0.4, Timestamp: time.Now(),
	})
	router := decisionRouter(engine)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/signals/BTC", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		Symbol  string                   `json:"symbol"`
		Signals map[string]domain.Signal `json:"signals"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(body.Signals) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(body.Signals))
	}
	if body.Signals["technical"].Score != 0.5 || body.Signals["sentiment"].Score != -0.2 {
		t.Fatalf("unexpected signals: %+v", body.Signals)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	router := gin.New()
	router.Use(APIKeyAuth("secret"))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	cases := []struct {
		name string
		key  string
		want int
	}{
		{"missing key", "", http.StatusUnauthorized},
		{"wrong key", "nope", http.StatusForbidden},
		{"valid key", "secret", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tc.key != "" {
				req.Header.Set("X-API-Key", tc.key)
			}
			router.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}
