package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/internal/signal"
)

func TestDecodeSentimentBatch(t *testing.T) {
	raw := []byte(`{
		"scope": "KRX",
		"trend_summary": "cautiously improving",
		"articles": [
			{"date": "2026-08-27", "sentiment": "positive", "headline": "exports up"},
			{"date": "2026-08-27", "sentiment": "Negative"}
		]
	}`)

	batch, err := DecodeSentimentBatch(raw)
	require.NoError(t, err)
	assert.Equal(t, "KRX", batch.Scope)
	assert.Len(t, batch.Articles, 2)
	assert.Equal(t, "cautiously improving", batch.TrendSummary)
}

func TestDecodeSentimentBatchRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"scope": `},
		{"missing scope", `{"articles": []}`},
		{"empty scope", `{"scope": "", "articles": []}`},
		{"bad date format", `{"scope": "KRX", "articles": [{"date": "27-08-2026", "sentiment": "positive"}]}`},
		{"unknown sentiment", `{"scope": "KRX", "articles": [{"date": "2026-08-27", "sentiment": "bullish"}]}`},
		{"missing sentiment", `{"scope": "KRX", "articles": [{"date": "2026-08-27"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSentimentBatch([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func day(offset int) string {
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset).Format("2006-01-02")
}

func TestSentimentBookTrailingScores(t *testing.T) {
	book := NewSentimentBook(signal.NewQuantifier(1.5))
	end := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	require.NoError(t, book.Record(SentimentBatch{
		Scope: "krx",
		Articles: []ArticleJudgment{
			{Date: day(0), Sentiment: "positive"},
			{Date: day(0), Sentiment: "positive"},
			{Date: day(-1), Sentiment: "negative"},
			{Date: day(-3), Sentiment: "neutral"},
		},
	}))

	scores := book.TrailingScores("KRX", end, 7)
	require.Len(t, scores, 7)
	// Chronological: oldest first, silent days score neutral zero.
	assert.Equal(t, 0.0, scores[0])
	assert.Equal(t, 0.0, scores[3]) // day(-3), explicit neutral
	assert.Equal(t, -1.5, scores[5])
	assert.Equal(t, 1.0, scores[6])
}

func TestSentimentBookCoveredDays(t *testing.T) {
	book := NewSentimentBook(signal.NewQuantifier(1.5))
	end := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	batch := SentimentBatch{Scope: "KRX"}
	for i := 0; i < 7; i++ {
		batch.Articles = append(batch.Articles, ArticleJudgment{
			Date: day(-i), Sentiment: "neutral",
		})
	}
	require.NoError(t, book.Record(batch))

	assert.Equal(t, 7, book.CoveredDays("KRX", end, 7))
	assert.Equal(t, 0, book.CoveredDays("NASDAQ", end, 7))
}

func TestSentimentBookScopesAndSummary(t *testing.T) {
	book := NewSentimentBook(signal.NewQuantifier(1.5))

	require.NoError(t, book.Record(SentimentBatch{Scope: "krx", TrendSummary: "flat"}))
	require.NoError(t, book.Record(SentimentBatch{Scope: "NASDAQ"}))

	assert.Equal(t, []string{"KRX", "NASDAQ"}, book.Scopes())
	assert.Equal(t, "flat", book.TrendSummary("krx"))
	assert.Equal(t, "", book.TrendSummary("NASDAQ"))
}

func TestSentimentBookRejectsBadDate(t *testing.T) {
	book := NewSentimentBook(signal.NewQuantifier(1.5))

	err := book.Record(SentimentBatch{
		Scope:    "KRX",
		Articles: []ArticleJudgment{{Date: "not-a-date", Sentiment: "positive"}},
	})
	assert.Error(t, err)
}
