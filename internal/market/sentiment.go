package market

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"marketpulse/internal/signal"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ArticleJudgment is one already-resolved per-article sentiment label from
// the upstream analysis chain. The core never sees prompt text or model
// output beyond this.
type ArticleJudgment struct {
	Date      string `json:"date"` // YYYY-MM-DD
	Sentiment string `json:"sentiment"`
	Headline  string `json:"headline,omitempty"`
}

// SentimentBatch is the ingest payload posted by the sentiment source.
type SentimentBatch struct {
	Scope        string            `json:"scope"`
	TrendSummary string            `json:"trend_summary,omitempty"`
	Articles     []ArticleJudgment `json:"articles"`
}

const sentimentBatchSchema = `{
	"type": "object",
	"required": ["scope", "articles"],
	"properties": {
		"scope": {"type": "string", "minLength": 1},
		"trend_summary": {"type": "string"},
		"articles": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["date", "sentiment"],
				"properties": {
					"date": {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
					"sentiment": {"type": "string", "enum": ["positive", "neutral", "negative", "Positive", "Neutral", "Negative"]},
					"headline": {"type": "string"}
				}
			}
		}
	}
}`

var batchSchema = jsonschema.MustCompileString("sentiment_batch.json", sentimentBatchSchema)

// DecodeSentimentBatch validates raw JSON against the ingest schema before
// unmarshaling, so malformed payloads are rejected at the boundary and never
// partially applied.
func DecodeSentimentBatch(raw []byte) (SentimentBatch, error) {
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return SentimentBatch{}, fmt.Errorf("sentiment payload is not JSON: %w", err)
	}
	if err := batchSchema.Validate(generic); err != nil {
		return SentimentBatch{}, fmt.Errorf("sentiment payload rejected: %w", err)
	}
	var batch SentimentBatch
	if err := json.Unmarshal(raw, &batch); err != nil {
		return SentimentBatch{}, err
	}
	return batch, nil
}

// SentimentBook accumulates per-day judgments per asset scope and serves
// the trailing week of daily scores to the pipeline.
type SentimentBook struct {
	quantifier *signal.Quantifier

	mu      sync.RWMutex
	byScope map[string]map[string][]signal.Sentiment // scope -> date -> judgments
	summary map[string]string
}

func NewSentimentBook(quantifier *signal.Quantifier) *SentimentBook {
	return &SentimentBook{
		quantifier: quantifier,
		byScope:    make(map[string]map[string][]signal.Sentiment),
		summary:    make(map[string]string),
	}
}

// Record merges a batch into the book. Judgments are append-only per day.
func (b *SentimentBook) Record(batch SentimentBatch) error {
	scope := strings.ToUpper(strings.TrimSpace(batch.Scope))
	if scope == "" {
		return fmt.Errorf("sentiment batch missing scope")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	days := b.byScope[scope]
	if days == nil {
		days = make(map[string][]signal.Sentiment)
		b.byScope[scope] = days
	}
	for _, a := range batch.Articles {
		if _, err := time.Parse("2006-01-02", a.Date); err != nil {
			return fmt.Errorf("article date %q: %w", a.Date, err)
		}
		days[a.Date] = append(days[a.Date], signal.Sentiment(strings.ToLower(a.Sentiment)))
	}
	if strings.TrimSpace(batch.TrendSummary) != "" {
		b.summary[scope] = batch.TrendSummary
	}
	return nil
}

// TrailingScores returns the daily scores for the trailing `days` calendar
// days ending at `end`, chronological order. Days without articles score
// neutral zero.
func (b *SentimentBook) TrailingScores(scope string, end time.Time, days int) []float64 {
	scope = strings.ToUpper(strings.TrimSpace(scope))
	b.mu.RLock()
	defer b.mu.RUnlock()
	byDay := b.byScope[scope]
	scores := make([]float64, 0, days)
	for i := days - 1; i >= 0; i-- {
		key := end.AddDate(0, 0, -i).Format("2006-01-02")
		scores = append(scores, b.quantifier.DailyScore(byDay[key]))
	}
	return scores
}

// CoveredDays counts distinct days with at least one judgment inside the
// trailing window; the pipeline requires a full week before deciding.
func (b *SentimentBook) CoveredDays(scope string, end time.Time, days int) int {
	scope = strings.ToUpper(strings.TrimSpace(scope))
	b.mu.RLock()
	defer b.mu.RUnlock()
	byDay := b.byScope[scope]
	covered := 0
	for i := 0; i < days; i++ {
		key := end.AddDate(0, 0, -i).Format("2006-01-02")
		if len(byDay[key]) > 0 {
			covered++
		}
	}
	return covered
}

// TrendSummary returns the latest opaque upstream summary for a scope.
func (b *SentimentBook) TrendSummary(scope string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.summary[strings.ToUpper(strings.TrimSpace(scope))]
}

// Scopes lists the asset scopes with any recorded judgments, sorted.
func (b *SentimentBook) Scopes() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.byScope))
	for scope := range b.byScope {
		out = append(out, scope)
	}
	sort.Strings(out)
	return out
}
