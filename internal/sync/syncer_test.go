package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerpipe/internal/categorizer"
	"ledgerpipe/internal/currency"
	"ledgerpipe/internal/installments"
	"ledgerpipe/internal/logging"
	"ledgerpipe/internal/metrics"
	"ledgerpipe/internal/models"
	"ledgerpipe/internal/storage"
)

type fixedRateSource struct{ rate decimal.Decimal }

func (f fixedRateSource) FetchRate(ctx context.Context, date time.Time, base, quote string) (decimal.Decimal, error) {
	return f.rate, nil
}

func newTestSyncer(t *testing.T, registry *Registry) (*Syncer, *storage.Store) {
	t.Helper()
	logger := &logging.MockLogger{}

	store, err := storage.Open(filepath.Join(t.TempDir(), "sync.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	converter := currency.NewConverter("USD", fixedRateSource{rate: decimal.NewFromFloat(1.1)}, store, logger)
	syncer := NewSyncer(registry, store, categorizer.NewEngine(logger),
		installments.NewDetector(logger), converter,
		metrics.New(prometheus.NewRegistry()), time.Millisecond, 3, logger)
	return syncer, store
}

func wiseServer(t *testing.T, txs []map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"transactions": txs,
			"has_more":     false,
		})
	}))
}

func TestSyncRunIdempotent(t *testing.T) {
	server := wiseServer(t, []map[string]interface{}{
		{
			"id":      "wise-tx-1",
			"date":    "2025-03-15T10:30:00Z",
			"details": "Consulting invoice",
			"amount":  map[string]interface{}{"value": 2500.00, "currency": "EUR"},
		},
		{
			"id":      "wise-tx-2",
			"date":    "2025-03-16T09:00:00Z",
			"details": "Software subscription",
			"amount":  map[string]interface{}{"value": -45.00, "currency": "EUR"},
		},
	})
	defer server.Close()

	registry := NewRegistry()
	registry.Register(NewWiseProvider(server.URL, 50, 5*time.Second, &logging.MockLogger{}))
	syncer, _ := newTestSyncer(t, registry)

	creds := Credentials{AccessToken: "token-1", AccountID: "profile-1"}

	first := syncer.Run(context.Background(), "user-1", "wise", creds)
	require.True(t, first.Success)
	assert.Equal(t, 2, first.Inserted)
	assert.Equal(t, 0, first.Skipped)
	assert.Equal(t, models.MethodSync, first.Descriptor.Method)
	assert.Equal(t, 100, first.Descriptor.Confidence)

	// No new remote data: the second run inserts nothing.
	second := syncer.Run(context.Background(), "user-1", "wise", creds)
	require.True(t, second.Success)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 2, second.Skipped)
}

func TestSyncNormalizationApplied(t *testing.T) {
	server := wiseServer(t, []map[string]interface{}{
		{
			"id":      "wise-tx-1",
			"date":    "2025-03-15T10:30:00Z",
			"details": "Amazon Prime renewal",
			"amount":  map[string]interface{}{"value": -15.00, "currency": "EUR"},
		},
	})
	defer server.Close()

	registry := NewRegistry()
	registry.Register(NewWiseProvider(server.URL, 50, 5*time.Second, &logging.MockLogger{}))
	syncer, store := newTestSyncer(t, registry)

	require.NoError(t, store.SaveRules(context.Background(), []models.CategoryRule{
		{ID: "r1", UserID: "user-1", Keyword: "amazon prime", CategoryID: "cat-subs",
			MatchType: models.MatchContains, Field: models.FieldDescription},
	}))

	result := syncer.Run(context.Background(), "user-1", "wise", Credentials{AccessToken: "token-1"})
	require.True(t, result.Success)
	require.Len(t, result.Transactions, 1)

	tx := result.Transactions[0]
	assert.Equal(t, models.TypeExpense, tx.Type)
	require.NotNil(t, tx.CategoryID)
	assert.Equal(t, "cat-subs", *tx.CategoryID)
	require.NotNil(t, tx.ConvertedAmount)
	assert.Equal(t, "USD", tx.ConvertedCurrency)
	assert.True(t, decimal.NewFromFloat(16.5).Equal(*tx.ConvertedAmount), "got %s", tx.ConvertedAmount)
}

func TestSyncAuthErrorAborts(t *testing.T) {
	server := wiseServer(t, nil)
	defer server.Close()

	registry := NewRegistry()
	registry.Register(NewWiseProvider(server.URL, 50, 5*time.Second, &logging.MockLogger{}))
	syncer, _ := newTestSyncer(t, registry)

	result := syncer.Run(context.Background(), "user-1", "wise", Credentials{AccessToken: "wrong"})

	require.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, "provider_auth", result.Error.Kind)
	assert.Equal(t, "reconnect required", result.Error.Message)
	assert.Empty(t, result.Transactions)
}

func TestSyncUnknownProvider(t *testing.T) {
	syncer, _ := newTestSyncer(t, NewRegistry())

	result := syncer.Run(context.Background(), "user-1", "nope", Credentials{})
	require.False(t, result.Success)
	assert.Equal(t, "unknown_provider", result.Error.Kind)
}

func TestMercadoPagoPagination(t *testing.T) {
	payments := make([]map[string]interface{}, 3)
	for i := range payments {
		payments[i] = map[string]interface{}{
			"id":                 int64(1000 + i),
			"date_approved":      fmt.Sprintf("2025-03-%02dT12:00:00Z", 10+i),
			"description":        fmt.Sprintf("Payment %d", i),
			"transaction_amount": 100.0,
			"currency_id":        "ARS",
			"status":             "approved",
			"collector_id":       int64(555),
		}
	}

	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		offset := 0
		fmt.Sscanf(r.URL.Query().Get("offset"), "%d", &offset)

		end := offset + 2 // page size 2
		if end > len(payments) {
			end = len(payments)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"paging":  map[string]interface{}{"total": len(payments), "offset": offset, "limit": 2},
			"results": payments[offset:end],
		})
	}))
	defer server.Close()

	registry := NewRegistry()
	registry.Register(NewMercadoPagoProvider(server.URL, 2, 5*time.Second, &logging.MockLogger{}))
	syncer, _ := newTestSyncer(t, registry)

	// AccountID matches collector_id: all payments are income.
	result := syncer.Run(context.Background(), "user-1", "mercadopago",
		Credentials{AccessToken: "token-1", AccountID: "555"})

	require.True(t, result.Success)
	assert.Equal(t, 3, result.Inserted)
	assert.Equal(t, 2, requests)
	for _, tx := range result.Transactions {
		assert.Equal(t, models.TypeIncome, tx.Type)
		assert.Equal(t, "mercadopago", tx.Provider)
	}
}

func TestMercadoPagoFilteredPagesAdvanceCursor(t *testing.T) {
	// Four pending payments, page size 2: every page filters down to
	// zero transactions, but the cursor must still move by the raw
	// record count or the same page is fetched forever.
	payments := make([]map[string]interface{}, 4)
	for i := range payments {
		payments[i] = map[string]interface{}{
			"id":                 int64(2000 + i),
			"date_created":       fmt.Sprintf("2025-03-%02dT12:00:00Z", 10+i),
			"description":        fmt.Sprintf("Pending payment %d", i),
			"transaction_amount": 100.0,
			"currency_id":        "ARS",
			"status":             "pending",
			"collector_id":       int64(555),
		}
	}

	var requests int
	var offsets []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		offset := 0
		fmt.Sscanf(r.URL.Query().Get("offset"), "%d", &offset)
		offsets = append(offsets, offset)

		end := offset + 2
		if end > len(payments) {
			end = len(payments)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"paging":  map[string]interface{}{"total": len(payments), "offset": offset, "limit": 2},
			"results": payments[offset:end],
		})
	}))
	defer server.Close()

	registry := NewRegistry()
	registry.Register(NewMercadoPagoProvider(server.URL, 2, 5*time.Second, &logging.MockLogger{}))
	syncer, _ := newTestSyncer(t, registry)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result := syncer.Run(ctx, "user-1", "mercadopago",
		Credentials{AccessToken: "token-1", AccountID: "555"})

	require.True(t, result.Success)
	assert.Equal(t, 0, result.Inserted)
	assert.Empty(t, result.Transactions)
	assert.Equal(t, 2, requests)
	assert.Equal(t, []int{0, 2}, offsets)
}

func TestMercadoPagoDirectionInference(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"paging": map[string]interface{}{"total": 1, "offset": 0, "limit": 50},
			"results": []map[string]interface{}{{
				"id":                 int64(42),
				"date_approved":      "2025-03-15T12:00:00Z",
				"description":        "Store purchase",
				"transaction_amount": 100.0,
				"currency_id":        "ARS",
				"status":             "approved",
				"collector_id":       int64(999), // someone else collected
			}},
		})
	}))
	defer server.Close()

	provider := NewMercadoPagoProvider(server.URL, 50, 5*time.Second, &logging.MockLogger{})
	page, err := provider.FetchPage(context.Background(),
		Credentials{AccessToken: "token-1", AccountID: "555"}, time.Now().AddDate(0, -1, 0), 0)

	require.NoError(t, err)
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, models.TypeExpense, page.Transactions[0].Type)
}
