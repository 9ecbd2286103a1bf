package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerpipe/internal/models"
)

func TestWriteCSV(t *testing.T) {
	category := "cat-groceries"
	converted := decimal.NewFromFloat(1.23)

	txs := []models.Transaction{
		{
			Date:              time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
			Description:       "Supermercado",
			Amount:            decimal.NewFromInt(1332),
			Type:              models.TypeExpense,
			Currency:          "ARS",
			CategoryID:        &category,
			ConvertedAmount:   &converted,
			ConvertedCurrency: "USD",
			Source:            models.SourceDocument,
			Installment:       &models.Installment{GroupID: "g1", Number: 3, Total: 12},
		},
		{
			Date:        time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
			Description: "Sueldo",
			Amount:      decimal.NewFromInt(2220),
			Type:        models.TypeIncome,
			Currency:    "ARS",
			Source:      models.SourceSync,
			Provider:    "wise",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, txs))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	assert.Contains(t, lines[0], "Date")
	assert.Contains(t, lines[0], "ConvertedAmount")

	// Expense exports signed, income positive.
	assert.Contains(t, lines[1], "-1332.00")
	assert.Contains(t, lines[1], "3/12")
	assert.Contains(t, lines[1], "cat-groceries")
	assert.Contains(t, lines[2], "2220.00")
	assert.Contains(t, lines[2], "wise")
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Contains(t, buf.String(), "Date")
}
