package dedup

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerpipe/internal/models"
)

func TestKeyForSyncTransaction(t *testing.T) {
	tx := &models.Transaction{
		UserID:       "user-1",
		Source:       models.SourceSync,
		Provider:     "wise",
		ProviderTxID: "tx-123",
	}

	key := KeyFor(tx)

	providerKey, ok := key.(ProviderKey)
	require.True(t, ok)
	assert.Equal(t, "wise", providerKey.Provider)
	assert.Equal(t, "tx-123", providerKey.ProviderTxID)
}

func TestKeyForDocumentTransaction(t *testing.T) {
	tx := &models.Transaction{
		UserID:      "user-1",
		Source:      models.SourceDocument,
		Date:        time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Description: "Supermercado",
		Amount:      decimal.NewFromInt(1332),
		SourceFile:  "statement.pdf",
	}

	key := KeyFor(tx)

	contentKey, ok := key.(ContentKey)
	require.True(t, ok)
	assert.Equal(t, "statement.pdf", contentKey.SourceFile)
	assert.Equal(t, "Supermercado", contentKey.Description)
}

func TestKeyForSyncWithoutProviderIDFallsBack(t *testing.T) {
	tx := &models.Transaction{
		UserID:      "user-1",
		Source:      models.SourceSync,
		Provider:    "wise",
		Description: "Transfer",
		Amount:      decimal.NewFromInt(10),
	}

	_, ok := KeyFor(tx).(ContentKey)
	assert.True(t, ok)
}
