package handler

import (
	"context"

	"trademate/internal/domain"
	"trademate/internal/fusion"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// DecisionEngine is the slice of the fusion engine the HTTP API uses.
type DecisionEngine interface {
	RequestDecision(ctx context.Context, symbol string) (*domain.FusedDecision, error)
	Store() *fusion.SnapshotStore
}

// MarketData is the slice of the market data service the read APIs use.
type MarketData interface {
	GetCurrentPrice(ctx context.Context, symbol string) (*domain.PriceSnapshot, error)
	GetCurrentPrices(ctx context.Context) ([]*domain.PriceSnapshot, error)
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]*domain.Candle, error)
}

type Handler struct {
	tracer trace.Tracer
	engine DecisionEngine
	market MarketData
}

func New(tracer trace.Tracer, engine DecisionEngine, market MarketData) *Handler {
	return &Handler{
		tracer: tracer,
		engine: engine,
		market: market,
	}
}

// RegisterRoutes wires the API surface. The health endpoint stays open;
// everything under /api goes through the supplied auth middleware.
func (h *Handler) RegisterRoutes(r *gin.Engine, auth gin.HandlerFunc) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	if auth != nil {
		api.Use(auth)
	}
	api.GET("/decisions/:symbol", h.GetDecision)
	api.GET("/signals/:symbol", h.GetSignals)
	api.GET("/prices", h.GetAllPrices)
	api.GET("/prices/:symbol", h.GetPrice)
	api.GET("/candles/:symbol", h.GetCandles)
}
