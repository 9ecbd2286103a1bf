package template

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerpipe/internal/logging"
	"ledgerpipe/internal/models"
)

func extract(t *testing.T, text string) *models.ExtractionResult {
	t.Helper()
	e := NewExtractor(&logging.MockLogger{})
	return e.Extract(text, "user-1", "ARS")
}

func TestExtractCleanStatement(t *testing.T) {
	text := strings.Join([]string{
		"Banco Galicia",
		"Saldo anterior\t\t1000,00",
		"Fecha\tConcepto\tImporte",
		"15/03/2025\tSupermercado\t-1.332,00",
		"20/03/2025\tSueldo\t2.220,00",
		"Saldo final\t\t1888,00",
	}, "\n")

	result := extract(t, text)

	require.Len(t, result.Transactions, 2)

	first := result.Transactions[0]
	assert.Equal(t, "Supermercado", first.Description)
	assert.True(t, decimal.NewFromInt(1332).Equal(first.Amount), "amount %s", first.Amount)
	assert.Equal(t, models.TypeExpense, first.Type)
	assert.False(t, first.NeedsReview)

	second := result.Transactions[1]
	assert.Equal(t, models.TypeIncome, second.Type)
	assert.True(t, decimal.NewFromInt(2220).Equal(second.Amount))

	// Header found, every row clean, balances reconcile.
	assert.Equal(t, 100, result.Confidence)
	assert.Equal(t, "Banco Galicia", result.Metadata.Institution)
	require.NotNil(t, result.Metadata.OpeningBalance)
	require.NotNil(t, result.Metadata.ClosingBalance)
}

func TestExtractBrokenAmountFlagsReview(t *testing.T) {
	text := strings.Join([]string{
		"Fecha\tConcepto\tImporte",
		"15/03/2025\tCompra\t-100,00",
		"16/03/2025\tPago ilegible\tN/A",
	}, "\n")

	result := extract(t, text)

	require.Len(t, result.Transactions, 2)
	assert.False(t, result.Transactions[0].NeedsReview)
	assert.True(t, result.Transactions[1].NeedsReview)

	// Header 20 + half the rows clean = 50, no balances to reconcile.
	assert.Equal(t, 50, result.Confidence)
	assert.Less(t, result.Confidence, ConfidenceThreshold)
}

func TestExtractDebitCreditColumns(t *testing.T) {
	text := strings.Join([]string{
		"Date\tDescription\tDebit\tCredit",
		"2025-03-15\tGrocery\t45.10\t",
		"2025-03-20\tSalary\t\t3000.00",
	}, "\n")

	result := extract(t, text)

	require.Len(t, result.Transactions, 2)
	assert.Equal(t, models.TypeExpense, result.Transactions[0].Type)
	assert.Equal(t, models.TypeIncome, result.Transactions[1].Type)
}

func TestExtractDirectionColumn(t *testing.T) {
	text := strings.Join([]string{
		"Date\tDescription\tReference\tAmount\tCurrency\tDirection",
		"2025-03-15\tGrocery store\tREF-001\t125.50\tCHF\tDBIT",
		"2025-03-25\tSalary payment\t\t3000.00\tCHF\tCRDT",
	}, "\n")

	result := extract(t, text)

	require.Len(t, result.Transactions, 2)
	assert.Equal(t, models.TypeExpense, result.Transactions[0].Type)
	assert.Equal(t, "REF-001", result.Transactions[0].Reference)
	assert.Equal(t, models.TypeIncome, result.Transactions[1].Type)
}

func TestExtractNoHeader(t *testing.T) {
	result := extract(t, "free text with no table structure\nmore prose\n")

	assert.Empty(t, result.Transactions)
	assert.Equal(t, 0, result.Confidence)
}

func TestExtractConfidenceStampedOnTransactions(t *testing.T) {
	text := strings.Join([]string{
		"Fecha\tConcepto\tImporte",
		"15/03/2025\tCompra\t-100,00",
	}, "\n")

	result := extract(t, text)

	require.Len(t, result.Transactions, 1)
	assert.Equal(t, result.Confidence, result.Transactions[0].Confidence)
}
