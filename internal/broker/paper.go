package broker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"marketpulse/internal/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Paper is an in-memory brokerage used for paper trading and tests. Fills
// are immediate at the order's price hint. Submissions are idempotent by
// correlation ID: a replay returns the original fill instead of trading
// twice.
type Paper struct {
	mu       sync.Mutex
	cash     decimal.Decimal
	holdings map[string]*paperHolding
	filled   map[string]TradeResult // correlation ID -> first fill
	now      func() time.Time
}

type paperHolding struct {
	quantity int64
	avgPrice decimal.Decimal
	lastSeen decimal.Decimal
}

func NewPaper(startingCash float64) *Paper {
	return &Paper{
		cash:     decimal.NewFromFloat(startingCash),
		holdings: make(map[string]*paperHolding),
		filled:   make(map[string]TradeResult),
		now:      time.Now,
	}
}

func (p *Paper) SubmitOrder(ctx context.Context, order Order) (TradeResult, error) {
	if err := ctx.Err(); err != nil {
		return TradeResult{}, fmt.Errorf("%w: %v", ErrExternalFailure, err)
	}
	symbol := strings.ToUpper(strings.TrimSpace(order.Symbol))
	if symbol == "" || order.Quantity <= 0 || order.PriceHint <= 0 {
		return TradeResult{}, fmt.Errorf("paper broker: malformed order %+v", order)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if order.CorrelationID != "" {
		if prior, ok := p.filled[order.CorrelationID]; ok {
			logger.Infof("paper broker: duplicate submission correlation_id=%s, returning original fill", order.CorrelationID)
			prior.Duplicate = true
			return prior, nil
		}
	}

	price := decimal.NewFromFloat(order.PriceHint)
	notional := price.Mul(decimal.NewFromInt(order.Quantity))

	switch order.Side {
	case SideBuy:
		if p.cash.LessThan(notional) {
			return TradeResult{}, fmt.Errorf("%w: insufficient cash %s < %s", ErrExternalFailure, p.cash, notional)
		}
		p.cash = p.cash.Sub(notional)
		h := p.holdings[symbol]
		if h == nil {
			h = &paperHolding{}
			p.holdings[symbol] = h
		}
		// New average price over the combined position.
		oldNotional := h.avgPrice.Mul(decimal.NewFromInt(h.quantity))
		h.quantity += order.Quantity
		h.avgPrice = oldNotional.Add(notional).Div(decimal.NewFromInt(h.quantity))
		h.lastSeen = price
	case SideSell:
		h := p.holdings[symbol]
		if h == nil || h.quantity < order.Quantity {
			return TradeResult{}, fmt.Errorf("%w: insufficient quantity for %s", ErrExternalFailure, symbol)
		}
		h.quantity -= order.Quantity
		h.lastSeen = price
		p.cash = p.cash.Add(notional)
		if h.quantity == 0 {
			delete(p.holdings, symbol)
		}
	default:
		return TradeResult{}, fmt.Errorf("paper broker: unknown side %q", order.Side)
	}

	result := TradeResult{
		OrderID:       uuid.NewString(),
		Symbol:        symbol,
		Side:          order.Side,
		Quantity:      order.Quantity,
		ExecutedPrice: order.PriceHint,
		ExecutedAt:    p.now(),
	}
	if order.CorrelationID != "" {
		p.filled[order.CorrelationID] = result
	}
	return result, nil
}

func (p *Paper) Holdings(ctx context.Context) ([]Holding, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalFailure, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Holding, 0, len(p.holdings))
	for symbol, h := range p.holdings {
		avg, _ := h.avgPrice.Float64()
		last, _ := h.lastSeen.Float64()
		out = append(out, Holding{
			Symbol:       symbol,
			Quantity:     h.quantity,
			AveragePrice: avg,
			CurrentPrice: last,
		})
	}
	return out, nil
}

func (p *Paper) AvailableCash(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrExternalFailure, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	cash, _ := p.cash.Float64()
	return cash, nil
}

// MarkPrice updates the remembered market price for a symbol so holdings
// snapshots carry a current price for stop-loss evaluation.
func (p *Paper) MarkPrice(symbol string, price float64) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.holdings[symbol]; ok {
		h.lastSeen = decimal.NewFromFloat(price)
	}
}
