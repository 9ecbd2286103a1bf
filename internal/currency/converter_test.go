package currency

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerpipe/internal/logging"
	"ledgerpipe/internal/models"
)

type fakeRateSource struct {
	rate  decimal.Decimal
	err   error
	calls int
}

func (f *fakeRateSource) FetchRate(ctx context.Context, date time.Time, base, quote string) (decimal.Decimal, error) {
	f.calls++
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.rate, nil
}

type memoryRateCache struct {
	rates map[string]models.ExchangeRate
}

func newMemoryRateCache() *memoryRateCache {
	return &memoryRateCache{rates: make(map[string]models.ExchangeRate)}
}

func cacheKey(date time.Time, base, quote string) string {
	return date.Format("2006-01-02") + base + quote
}

func (m *memoryRateCache) GetRate(ctx context.Context, date time.Time, base, quote string) (*models.ExchangeRate, error) {
	r, ok := m.rates[cacheKey(date, base, quote)]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memoryRateCache) PutRate(ctx context.Context, rate models.ExchangeRate) error {
	key := cacheKey(rate.Date, rate.Base, rate.Quote)
	if _, exists := m.rates[key]; !exists {
		m.rates[key] = rate
	}
	return nil
}

var testDate = time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

func TestConvertSameCurrencyIsIdentity(t *testing.T) {
	source := &fakeRateSource{}
	converter := NewConverter("USD", source, newMemoryRateCache(), &logging.MockLogger{})

	conv := converter.Convert(context.Background(), decimal.NewFromInt(100), "USD", testDate)

	assert.True(t, conv.Converted)
	assert.True(t, decimal.NewFromInt(100).Equal(conv.Amount))
	assert.True(t, decimal.NewFromInt(1).Equal(conv.Rate))
	assert.Zero(t, source.calls, "identity conversion must not hit the network")
}

func TestConvertUsesCacheBeforeSource(t *testing.T) {
	source := &fakeRateSource{rate: decimal.NewFromFloat(0.9)}
	converter := NewConverter("USD", source, newMemoryRateCache(), &logging.MockLogger{})

	first := converter.Convert(context.Background(), decimal.NewFromInt(100), "EUR", testDate)
	second := converter.Convert(context.Background(), decimal.NewFromInt(200), "EUR", testDate)

	assert.True(t, first.Converted)
	assert.True(t, second.Converted)
	assert.Equal(t, 1, source.calls, "second conversion must be served from cache")
	assert.True(t, decimal.NewFromInt(90).Equal(first.Amount), "got %s", first.Amount)
	assert.True(t, decimal.NewFromInt(180).Equal(second.Amount), "got %s", second.Amount)
}

func TestConvertFailureReturnsSentinel(t *testing.T) {
	source := &fakeRateSource{err: errors.New("api down")}
	logger := &logging.MockLogger{}
	converter := NewConverter("USD", source, newMemoryRateCache(), logger)

	conv := converter.Convert(context.Background(), decimal.NewFromInt(100), "EUR", testDate)

	assert.False(t, conv.Converted)
	assert.True(t, logger.HasMessage("rate lookup failed, leaving amount unconverted"))
}

func TestConvertBatchLeavesNativeFieldsOnFailure(t *testing.T) {
	source := &fakeRateSource{err: errors.New("api down")}
	converter := NewConverter("USD", source, newMemoryRateCache(), &logging.MockLogger{})

	txs := []models.Transaction{
		{Amount: decimal.NewFromInt(100), Currency: "EUR", Date: testDate},
		{Amount: decimal.NewFromInt(50), Currency: "USD", Date: testDate},
	}

	failed := converter.ConvertBatch(context.Background(), txs)

	assert.Equal(t, 1, failed)
	assert.Nil(t, txs[0].ConvertedAmount)
	assert.Equal(t, "EUR", txs[0].Currency)
	assert.False(t, txs[0].Amount.IsZero())

	require.NotNil(t, txs[1].ConvertedAmount)
	assert.Equal(t, "USD", txs[1].ConvertedCurrency)
}

func TestHTTPRateSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2025-03-15", r.URL.Path)
		assert.Equal(t, "EUR", r.URL.Query().Get("base"))
		assert.Equal(t, "USD", r.URL.Query().Get("symbols"))
		w.Write([]byte(`{"amount":1,"base":"EUR","date":"2025-03-15","rates":{"USD":1.0850}}`))
	}))
	defer server.Close()

	source := NewHTTPRateSource(server.URL, 5*time.Second)
	rate, err := source.FetchRate(context.Background(), testDate, "EUR", "USD")

	require.NoError(t, err)
	assert.True(t, decimal.NewFromFloat(1.085).Equal(rate))
}

func TestHTTPRateSourceErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
		},
		{
			name:    "missing quote currency",
			handler: func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"rates":{}}`)) },
		},
		{
			name:    "non-positive rate",
			handler: func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"rates":{"USD":0}}`)) },
		},
		{
			name:    "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`not json`)) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			source := NewHTTPRateSource(server.URL, 5*time.Second)
			_, err := source.FetchRate(context.Background(), testDate, "EUR", "USD")
			assert.Error(t, err)
		})
	}
}

func TestBreakerSourceOpensAfterConsecutiveFailures(t *testing.T) {
	source := &fakeRateSource{err: errors.New("api down")}
	breaker := NewBreakerSource(source, &logging.MockLogger{})

	for i := 0; i < 5; i++ {
		_, err := breaker.FetchRate(context.Background(), testDate, "EUR", "USD")
		assert.Error(t, err)
	}
	assert.Equal(t, 5, source.calls)

	// Open circuit: the source is no longer called.
	_, err := breaker.FetchRate(context.Background(), testDate, "EUR", "USD")
	assert.Error(t, err)
	assert.Equal(t, 5, source.calls)
}

type fakeUnconvertedStore struct {
	txs    []models.Transaction
	saved  map[string]decimal.Decimal
	failID string
}

func (f *fakeUnconvertedStore) ListUnconverted(ctx context.Context, limit int) ([]models.Transaction, error) {
	if limit > len(f.txs) {
		limit = len(f.txs)
	}
	return f.txs[:limit], nil
}

func (f *fakeUnconvertedStore) SetConvertedAmount(ctx context.Context, txID string, amount decimal.Decimal, currency string) error {
	if txID == f.failID {
		return errors.New("write failed")
	}
	if f.saved == nil {
		f.saved = make(map[string]decimal.Decimal)
	}
	f.saved[txID] = amount
	return nil
}

func TestReconcilerBackfills(t *testing.T) {
	store := &fakeUnconvertedStore{
		txs: []models.Transaction{
			{ID: "t1", Amount: decimal.NewFromInt(100), Currency: "EUR", Date: testDate},
			{ID: "t2", Amount: decimal.NewFromInt(50), Currency: "EUR", Date: testDate},
		},
	}
	source := &fakeRateSource{rate: decimal.NewFromFloat(1.1)}
	converter := NewConverter("USD", source, newMemoryRateCache(), &logging.MockLogger{})
	reconciler := NewReconciler(store, converter, 100, &logging.MockLogger{})

	converted, remaining, err := reconciler.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, converted)
	assert.Equal(t, 0, remaining)
	assert.True(t, decimal.NewFromInt(110).Equal(store.saved["t1"]))
}

func TestReconcilerCountsPersistentFailures(t *testing.T) {
	store := &fakeUnconvertedStore{
		txs: []models.Transaction{
			{ID: "t1", Amount: decimal.NewFromInt(100), Currency: "EUR", Date: testDate},
		},
	}
	source := &fakeRateSource{err: errors.New("still down")}
	converter := NewConverter("USD", source, newMemoryRateCache(), &logging.MockLogger{})
	reconciler := NewReconciler(store, converter, 100, &logging.MockLogger{})

	converted, remaining, err := reconciler.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, converted)
	assert.Equal(t, 1, remaining)
}
