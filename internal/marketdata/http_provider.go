package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"signal-truth/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout = 4 * time.Second
)

// HTTPProvider polls an all-quotes HTTP endpoint once per Refresh and
// caches the result. The endpoint may answer in any of three shapes:
//
//	{"EURUSD": {"bid": 1.1, "ask": 1.1002, "timestamp": 1700000000}, ...}
//	{"data": [{"symbol": "EURUSD", "bid": 1.1, "ask": 1.1002}, ...]}
//	[{"symbol": "EURUSD", "bid": 1.1, "ask": 1.1002}, ...]
//
// All three normalize to the same cache entries.
type HTTPProvider struct {
	endpoint string
	client   *http.Client
	cache    *quoteCache
	now      func() time.Time
}

// HTTPOption configures HTTPProvider.
type HTTPOption func(*HTTPProvider)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(p *HTTPProvider) {
		p.client.Timeout = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(p *HTTPProvider) {
		p.client = client
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) HTTPOption {
	return func(p *HTTPProvider) {
		p.now = now
	}
}

// NewHTTPProvider creates a polling provider for the given endpoint.
func NewHTTPProvider(endpoint string, opts ...HTTPOption) *HTTPProvider {
	p := &HTTPProvider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
		cache:    newQuoteCache(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Compile-time interface check.
var _ Provider = (*HTTPProvider)(nil)

// Refresh fetches the current quote set and merges it into the cache.
// On any failure the cache keeps serving the last good snapshot.
func (p *HTTPProvider) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return fmt.Errorf("build quotes request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch quotes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch quotes: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read quotes response: %w", err)
	}

	quotes, err := normalizeQuotes(body, p.now())
	if err != nil {
		return err
	}

	for _, q := range quotes {
		p.cache.put(q)
	}
	return nil
}

// Quote returns the last cached quote for symbol.
func (p *HTTPProvider) Quote(symbol string) (domain.MarketQuote, bool) {
	return p.cache.get(symbol)
}

// quotePayload is one quote in any of the feed's response shapes.
type quotePayload struct {
	Symbol    string  `json:"symbol"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Timestamp float64 `json:"timestamp"` // epoch seconds, optional
}

func (q quotePayload) toQuote(fallback time.Time) domain.MarketQuote {
	observed := fallback
	if q.Timestamp > 0 {
		sec := int64(q.Timestamp)
		nsec := int64((q.Timestamp - float64(sec)) * float64(time.Second))
		observed = time.Unix(sec, nsec).UTC()
	}
	return domain.MarketQuote{
		Symbol:     q.Symbol,
		Bid:        q.Bid,
		Ask:        q.Ask,
		ObservedAt: observed,
	}
}

// normalizeQuotes accepts the three supported response shapes and
// returns the contained quotes. Entries without a positive bid and ask
// are dropped rather than synthesized.
func normalizeQuotes(body []byte, now time.Time) ([]domain.MarketQuote, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty quotes response")
	}

	// Flat array shape.
	if trimmed[0] == '[' {
		var flat []quotePayload
		if err := json.Unmarshal(trimmed, &flat); err != nil {
			return nil, fmt.Errorf("decode quotes array: %w", err)
		}
		return payloadsToQuotes(flat, now), nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("decode quotes response: %w", err)
	}

	// {"data": [...]} wrapper shape.
	if raw, ok := fields["data"]; ok {
		var list []quotePayload
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode quotes data wrapper: %w", err)
		}
		return payloadsToQuotes(list, now), nil
	}

	// Symbol-keyed map shape. Keys with non-quote values are skipped.
	payloads := make([]quotePayload, 0, len(fields))
	for symbol, raw := range fields {
		var q quotePayload
		if err := json.Unmarshal(raw, &q); err != nil {
			continue
		}
		if q.Symbol == "" {
			q.Symbol = symbol
		}
		payloads = append(payloads, q)
	}
	return payloadsToQuotes(payloads, now), nil
}

func payloadsToQuotes(payloads []quotePayload, now time.Time) []domain.MarketQuote {
	quotes := make([]domain.MarketQuote, 0, len(payloads))
	for _, p := range payloads {
		if p.Symbol == "" || p.Bid <= 0 || p.Ask <= 0 {
			continue
		}
		quotes = append(quotes, p.toQuote(now))
	}
	return quotes
}
