package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "european negative with thousands dot", input: "-1.332,00", want: "-1332"},
		{name: "currency symbol with european format", input: "$ 2.220,00", want: "2220"},
		{name: "parenthesized negative", input: "(45.10)", want: "-45.1"},
		{name: "us format with thousands comma", input: "1,234.56", want: "1234.56"},
		{name: "swiss apostrophe grouping", input: "1'234.56", want: "1234.56"},
		{name: "plain decimal", input: "100.50", want: "100.5"},
		{name: "decimal comma only", input: "1332,00", want: "1332"},
		{name: "comma as thousands without decimals", input: "1,332", want: "1332"},
		{name: "integer", input: "250", want: "250"},
		{name: "chf prefix", input: "CHF 1'500.00", want: "1500"},
		{name: "brazilian real", input: "R$ 1.500,25", want: "1500.25"},
		{name: "explicit positive sign", input: "+42.00", want: "42"},
		{name: "multiple thousands dots", input: "1.234.567", want: "1234567"},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
		{name: "garbage", input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			want, err := decimal.NewFromString(tt.want)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "want %s, got %s", want, got)
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{name: "iso", input: "2025-03-15", want: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "dotted day first", input: "15.03.2025", want: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "slash day first", input: "15/03/2025", want: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "month name", input: "15 Mar 2025", want: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "surrounding whitespace", input: "  2025-03-15  ", want: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want.Year(), got.Year())
			assert.Equal(t, tt.want.Month(), got.Month())
			assert.Equal(t, tt.want.Day(), got.Day())
		})
	}

	_, err := ParseDate("not a date")
	assert.Error(t, err)
}

func TestSignedAmount(t *testing.T) {
	expense := Transaction{Amount: decimal.NewFromInt(50), Type: TypeExpense}
	income := Transaction{Amount: decimal.NewFromInt(50), Type: TypeIncome}

	assert.True(t, decimal.NewFromInt(-50).Equal(expense.SignedAmount()))
	assert.True(t, decimal.NewFromInt(50).Equal(income.SignedAmount()))
}

func TestSummarize(t *testing.T) {
	txs := sampleTransactions()

	summary := Summarize(txs)

	assert.Equal(t, 3, summary.Count)
	assert.True(t, decimal.NewFromInt(1000).Equal(summary.TotalIncome), "income %s", summary.TotalIncome)
	assert.True(t, decimal.NewFromInt(300).Equal(summary.TotalExpenses), "expenses %s", summary.TotalExpenses)
	assert.True(t, decimal.NewFromInt(700).Equal(summary.NetBalance), "net %s", summary.NetBalance)
}

func sampleTransactions() []Transaction {
	return []Transaction{
		{Amount: decimal.NewFromInt(1000), Type: TypeIncome},
		{Amount: decimal.NewFromInt(200), Type: TypeExpense},
		{Amount: decimal.NewFromInt(100), Type: TypeExpense},
	}
}
