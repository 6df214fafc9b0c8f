package broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaperBuyUpdatesCashAndHoldings(t *testing.T) {
	p := NewPaper(10000)
	ctx := context.Background()

	result, err := p.SubmitOrder(ctx, Order{
		Symbol: "btcusdt", Side: SideBuy, Quantity: 10, PriceHint: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", result.Symbol)
	assert.Equal(t, 100.0, result.ExecutedPrice)
	assert.NotEmpty(t, result.OrderID)

	cash, err := p.AvailableCash(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9000.0, cash)

	holdings, err := p.Holdings(ctx)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, int64(10), holdings[0].Quantity)
	assert.Equal(t, 100.0, holdings[0].AveragePrice)
}

func TestPaperBuyAveragesCostBasis(t *testing.T) {
	p := NewPaper(10000)
	ctx := context.Background()

	_, err := p.SubmitOrder(ctx, Order{Symbol: "AAA", Side: SideBuy, Quantity: 10, PriceHint: 100})
	require.NoError(t, err)
	_, err = p.SubmitOrder(ctx, Order{Symbol: "AAA", Side: SideBuy, Quantity: 10, PriceHint: 200})
	require.NoError(t, err)

	holdings, err := p.Holdings(ctx)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, int64(20), holdings[0].Quantity)
	assert.Equal(t, 150.0, holdings[0].AveragePrice)
}

func TestPaperSellClosesPosition(t *testing.T) {
	p := NewPaper(10000)
	ctx := context.Background()

	_, err := p.SubmitOrder(ctx, Order{Symbol: "AAA", Side: SideBuy, Quantity: 10, PriceHint: 100})
	require.NoError(t, err)
	_, err = p.SubmitOrder(ctx, Order{Symbol: "AAA", Side: SideSell, Quantity: 10, PriceHint: 120})
	require.NoError(t, err)

	cash, err := p.AvailableCash(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10200.0, cash)

	holdings, err := p.Holdings(ctx)
	require.NoError(t, err)
	assert.Empty(t, holdings, "fully sold position disappears")
}

func TestPaperRejectsOverdraw(t *testing.T) {
	p := NewPaper(500)
	ctx := context.Background()

	_, err := p.SubmitOrder(ctx, Order{Symbol: "AAA", Side: SideBuy, Quantity: 10, PriceHint: 100})
	assert.ErrorIs(t, err, ErrExternalFailure)

	_, err = p.SubmitOrder(ctx, Order{Symbol: "AAA", Side: SideSell, Quantity: 1, PriceHint: 100})
	assert.ErrorIs(t, err, ErrExternalFailure)
}

func TestPaperDuplicateCorrelationReplaysFill(t *testing.T) {
	p := NewPaper(10000)
	ctx := context.Background()
	order := Order{
		Symbol: "AAA", Side: SideBuy, Quantity: 10, PriceHint: 100,
		CorrelationID: "corr-1",
	}

	first, err := p.SubmitOrder(ctx, order)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := p.SubmitOrder(ctx, order)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.OrderID, second.OrderID)

	// The replay must not move cash or grow the position.
	cash, err := p.AvailableCash(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9000.0, cash)

	holdings, err := p.Holdings(ctx)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, int64(10), holdings[0].Quantity)
}

func TestPaperRejectsMalformedOrder(t *testing.T) {
	p := NewPaper(10000)
	ctx := context.Background()

	_, err := p.SubmitOrder(ctx, Order{Symbol: "", Side: SideBuy, Quantity: 10, PriceHint: 100})
	assert.Error(t, err)

	_, err = p.SubmitOrder(ctx, Order{Symbol: "AAA", Side: SideBuy, Quantity: 0, PriceHint: 100})
	assert.Error(t, err)

	_, err = p.SubmitOrder(ctx, Order{Symbol: "AAA", Side: SideBuy, Quantity: 10, PriceHint: 0})
	assert.Error(t, err)
}

func TestPaperHonorsCancelledContext(t *testing.T) {
	p := NewPaper(10000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.SubmitOrder(ctx, Order{Symbol: "AAA", Side: SideBuy, Quantity: 1, PriceHint: 100})
	assert.ErrorIs(t, err, ErrExternalFailure)
}
