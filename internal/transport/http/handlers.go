package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"marketpulse/internal/engine"
	"marketpulse/internal/market"
	"marketpulse/internal/signal"
)

// maxSentimentBody bounds the ingest payload; batches are small by design.
const maxSentimentBody = 1 << 20

type handlers struct {
	engine   *engine.Engine
	analysis *market.AnalysisService
	book     *market.SentimentBook
	scope    string
}

func (h *handlers) getSignal(c *gin.Context) {
	scope := strings.TrimSpace(c.Query("scope"))
	if scope == "" {
		scope = h.scope
	}
	sig, summary, err := h.analysis.CurrentSignal(c.Request.Context(), scope)
	if err != nil {
		if errors.Is(err, signal.ErrInsufficientData) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"scope":          scope,
		"ratio":          sig.Ratio,
		"raw_score":      sig.RawScore,
		"interpretation": sig.Interpretation(),
		"summary":        summary,
		"computed_at":    sig.ComputedAt.Format(time.RFC3339),
	})
}

// getState is the operator's status report.
func (h *handlers) getState(c *gin.Context) {
	cfg := h.engine.TradingConfig()
	resp := gin.H{
		"state":            h.engine.CurrentState().String(),
		"last_check":       formatTime(h.engine.LastCheck()),
		"risk_level":       cfg.RiskLevel,
		"trading_window":   cfg.TradingStart + "-" + cfg.TradingEnd,
		"buy_threshold":    cfg.BuyThreshold,
		"sell_threshold":   cfg.SellThreshold,
		"max_investment":   cfg.MaxInvestment,
		"monitor_interval": cfg.MonitorInterval,
	}
	if reason := h.engine.HaltReason(); reason != "" {
		resp["halt_reason"] = reason
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) getTrades(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	trades, err := h.engine.TradeHistory(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades, "count": len(trades)})
}

// postSentiment ingests a judged article batch and refreshes the signal
// for every scope the batch touched.
func (h *handlers) postSentiment(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSentimentBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	batch, err := market.DecodeSentimentBatch(raw)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if err := h.book.Record(batch); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	refreshed := false
	if _, _, err := h.analysis.Recompute(c.Request.Context(), batch.Scope); err == nil {
		refreshed = true
	}
	c.JSON(http.StatusAccepted, gin.H{
		"scope":     strings.ToUpper(strings.TrimSpace(batch.Scope)),
		"accepted":  len(batch.Articles),
		"refreshed": refreshed,
	})
}

func (h *handlers) startEngine(c *gin.Context) {
	state, err := h.engine.Start(c.Request.Context(), h.engine.TradingConfig())
	if err != nil {
		c.JSON(statusForTransition(err), gin.H{"error": err.Error(), "state": state.String()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state.String()})
}

func (h *handlers) stopEngine(c *gin.Context) {
	state, err := h.engine.Stop()
	if err != nil {
		c.JSON(statusForTransition(err), gin.H{"error": err.Error(), "state": state.String()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state.String()})
}

func (h *handlers) emergencyStop(c *gin.Context) {
	state := h.engine.EmergencyStop()
	c.JSON(http.StatusOK, gin.H{"state": state.String()})
}

func (h *handlers) acknowledgeHalt(c *gin.Context) {
	state, err := h.engine.AcknowledgeHalt()
	if err != nil {
		c.JSON(statusForTransition(err), gin.H{"error": err.Error(), "state": state.String()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state.String()})
}

func statusForTransition(err error) int {
	var bad engine.ErrBadTransition
	if errors.As(err, &bad) {
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
