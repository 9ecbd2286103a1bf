// Package currency converts transaction amounts into the reference
// currency. Rate lookups are cached per (date, pair) and guarded by a
// circuit breaker; any failure yields an unconverted sentinel, never an
// error to the batch caller.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"ledgerpipe/internal/logging"
	"ledgerpipe/internal/models"
	"ledgerpipe/internal/pipelineerror"
)

// RateSource fetches an exchange rate for a currency pair on a date.
type RateSource interface {
	FetchRate(ctx context.Context, date time.Time, base, quote string) (decimal.Decimal, error)
}

// RateCache stores fetched rates. First write wins for a (date, pair)
// key; later writes with a different value are ignored.
type RateCache interface {
	GetRate(ctx context.Context, date time.Time, base, quote string) (*models.ExchangeRate, error)
	PutRate(ctx context.Context, rate models.ExchangeRate) error
}

// Conversion is the converter's result. Converted=false is the sentinel
// for "no rate available"; Amount and Rate are zero in that case and the
// transaction keeps its native values only.
type Conversion struct {
	Amount    decimal.Decimal
	Currency  string
	Rate      decimal.Decimal
	Converted bool
}

// Converter turns native-currency amounts into the reference currency.
type Converter struct {
	reference string
	source    RateSource
	cache     RateCache
	logger    logging.Logger
}

// NewConverter creates a converter targeting the given reference currency.
func NewConverter(reference string, source RateSource, cache RateCache, logger logging.Logger) *Converter {
	return &Converter{reference: reference, source: source, cache: cache, logger: logger}
}

// Reference returns the reference currency code.
func (c *Converter) Reference() string {
	return c.reference
}

// Convert converts one amount. It never returns an error: rate failures
// come back as an unconverted sentinel and are logged.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, currencyCode string, date time.Time) Conversion {
	if currencyCode == c.reference {
		return Conversion{Amount: amount, Currency: c.reference, Rate: decimal.NewFromInt(1), Converted: true}
	}

	rate, err := c.lookupRate(ctx, date, currencyCode)
	if err != nil {
		c.logger.WithError(err).Warn("rate lookup failed, leaving amount unconverted",
			logging.Field{Key: "currency", Value: currencyCode},
			logging.Field{Key: "date", Value: date.Format("2006-01-02")})
		return Conversion{Converted: false}
	}

	return Conversion{
		Amount:    amount.Mul(rate).Round(2),
		Currency:  c.reference,
		Rate:      rate,
		Converted: true,
	}
}

// ConvertBatch fills the converted-amount fields of every transaction
// in place and returns how many could not be converted. Unconvertible
// transactions keep nil converted fields.
func (c *Converter) ConvertBatch(ctx context.Context, txs []models.Transaction) int {
	failed := 0
	for i := range txs {
		conv := c.Convert(ctx, txs[i].Amount, txs[i].Currency, txs[i].Date)
		if !conv.Converted {
			failed++
			continue
		}
		amount := conv.Amount
		txs[i].ConvertedAmount = &amount
		txs[i].ConvertedCurrency = conv.Currency
	}
	return failed
}

func (c *Converter) lookupRate(ctx context.Context, date time.Time, currencyCode string) (decimal.Decimal, error) {
	cached, err := c.cache.GetRate(ctx, date, currencyCode, c.reference)
	if err == nil && cached != nil {
		return cached.Rate, nil
	}
	if err != nil {
		// A broken cache read falls through to the source; the rate
		// itself may still be obtainable.
		c.logger.WithError(err).Warn("rate cache read failed")
	}

	rate, err := c.source.FetchRate(ctx, date, currencyCode, c.reference)
	if err != nil {
		return decimal.Zero, pipelineerror.NewRateLookupError(currencyCode, c.reference, date, err)
	}

	if err := c.cache.PutRate(ctx, models.ExchangeRate{
		Date:   date,
		Base:   currencyCode,
		Quote:  c.reference,
		Rate:   rate,
		Source: "api",
	}); err != nil {
		c.logger.WithError(err).Warn("rate cache write failed")
	}

	return rate, nil
}

// HTTPRateSource fetches rates from a Frankfurter-style API:
// GET {base}/{date}?base=XXX&symbols=YYY.
type HTTPRateSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRateSource creates a rate source against the given API base URL.
func NewHTTPRateSource(baseURL string, timeout time.Duration) *HTTPRateSource {
	return &HTTPRateSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type rateResponse struct {
	Rates map[string]decimal.Decimal `json:"rates"`
}

// FetchRate implements RateSource.
func (s *HTTPRateSource) FetchRate(ctx context.Context, date time.Time, base, quote string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/%s?base=%s&symbols=%s", s.baseURL, date.Format("2006-01-02"), base, quote)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate API returned status %d", resp.StatusCode)
	}

	var body rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode rate response: %w", err)
	}

	rate, ok := body.Rates[quote]
	if !ok {
		return decimal.Zero, fmt.Errorf("rate API response missing %s", quote)
	}
	if rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("rate API returned non-positive rate %s", rate)
	}

	return rate, nil
}

// BreakerSource wraps a RateSource with a circuit breaker so a dead rate
// API fails fast instead of stalling every conversion in a batch.
type BreakerSource struct {
	source  RateSource
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerSource wraps source with a breaker that opens after five
// consecutive failures and probes again after 30 seconds.
func NewBreakerSource(source RateSource, logger logging.Logger) *BreakerSource {
	settings := gobreaker.Settings{
		Name:        "rate-source",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("rate source circuit state changed",
				logging.Field{Key: "from", Value: from.String()},
				logging.Field{Key: "to", Value: to.String()})
		},
	}
	return &BreakerSource{source: source, breaker: gobreaker.NewCircuitBreaker(settings)}
}

// FetchRate implements RateSource.
func (b *BreakerSource) FetchRate(ctx context.Context, date time.Time, base, quote string) (decimal.Decimal, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.source.FetchRate(ctx, date, base, quote)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return result.(decimal.Decimal), nil
}
