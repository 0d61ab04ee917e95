package handler

import (
	"errors"
	"net/http"
	"strings"

	"trademate/internal/domain"
	"trademate/internal/fusion"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetDecision godoc
// @Summary      Get a fused trade recommendation for an asset
// @Description  Combines the latest technical, sentiment, and policy signals into one scored recommendation
// @Tags         decisions
// @Produce      json
// @Param        symbol  path  string  true  "Asset symbol (e.g., BTC, ETH)"
// @Success      200  {object}  domain.FusedDecision
// @Failure      400  {object}  map[string]string
// @Failure      422  {object}  map[string]interface{}
// @Router       /api/decisions/{symbol} [get]
func (h *Handler) GetDecision(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-decision")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	if !domain.IsSupportedSymbol(symbol) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported symbol: " + symbol,
			"supported_symbols": domain.SupportedSymbols,
		})
		return
	}

	decision, err := h.engine.RequestDecision(ctx, symbol)
	if err != nil {
		var insufficient *fusion.InsufficientSignalError
		if errors.As(err, &insufficient) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":            "insufficient signal data",
				"symbol":           symbol,
				"excluded_sources": insufficient.Excluded,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, decision)
}

// GetSignals godoc
// @Summary      Get the latest raw signals for an asset
// @Description  Returns the most recent signal per source before any fusion weighting
// @Tags         decisions
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/signals/{symbol} [get]
func (h *Handler) GetSignals(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-signals")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	if !domain.IsSupportedSymbol(symbol) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported symbol: " + symbol,
			"supported_symbols": domain.SupportedSymbols,
		})
		return
	}

	snapshot := h.engine.Store().Snapshot(symbol)
	signals := make(map[string]domain.Signal, len(snapshot))
	for source, sig := range snapshot {
		signals[string(source)] = sig
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":  symbol,
		"signals": signals,
	})
}
