// Package models provides the data structures shared by the ingestion
// pipeline: transactions, extraction results, category rules, exchange
// rates and quota records.
package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a transaction. Amounts are stored as
// non-negative magnitudes; direction is carried separately.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Source identifies which ingestion path produced a transaction.
type Source string

const (
	SourceDocument Source = "document"
	SourceSync     Source = "sync"
)

// Transaction is the single normalized schema every ingestion path feeds.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Reference   string          `json:"reference,omitempty"`
	Amount      decimal.Decimal `json:"amount"` // magnitude, never negative
	Type        TransactionType `json:"type"`
	Currency    string          `json:"currency"`
	CategoryID  *string         `json:"category_id,omitempty"`
	Confidence  int             `json:"confidence"` // 0-100

	Source       Source `json:"source"`
	Provider     string `json:"provider,omitempty"`       // sync source only
	ProviderTxID string `json:"provider_tx_id,omitempty"` // sync source only
	SourceFile   string `json:"source_file,omitempty"`    // document source only

	NeedsReview bool `json:"needs_review"`
	AIProcessed bool `json:"ai_processed"`

	// Reference-currency valuation, filled best-effort by the converter
	// and later by the reconciliation job. Nil when no rate was available.
	ConvertedAmount   *decimal.Decimal `json:"converted_amount,omitempty"`
	ConvertedCurrency string           `json:"converted_currency,omitempty"`

	Installment *Installment `json:"installment,omitempty"`
}

// Installment marks a transaction as one payment of a plan. Membership is
// immutable once assigned.
type Installment struct {
	GroupID string `json:"group_id"`
	Number  int    `json:"number"`
	Total   int    `json:"total"`
}

// SignedAmount returns the amount with direction applied: income positive,
// expense negative.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

var currencyNoise = regexp.MustCompile(`[€$£¥₣₤₧₹₺₽₩฿₫₲₴₸₼₪\s]|CHF|EUR|USD|BRL|ARS|R\$`)

// ParseAmount parses a locale-formatted amount string into a decimal.
// It tolerates thousands separators (dot, comma, apostrophe, space),
// decimal commas, currency symbols, and negatives written either with a
// leading minus or with parentheses: "-1.332,00" -> -1332.00,
// "$ 2.220,00" -> 2220.00, "(45.10)" -> -45.10.
func ParseAmount(amountStr string) (decimal.Decimal, error) {
	if strings.TrimSpace(amountStr) == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	s := strings.TrimSpace(amountStr)

	// Parenthesized negatives.
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}

	s = currencyNoise.ReplaceAllString(s, "")

	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = strings.TrimPrefix(s, "-")
	}
	s = strings.TrimPrefix(s, "+")

	// Apostrophes only ever group thousands (1'234.56).
	s = strings.ReplaceAll(s, "'", "")

	// Disambiguate dot and comma.
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		if strings.LastIndex(s, ".") < strings.LastIndex(s, ",") {
			// European format (1.332,00): dots group, comma is decimal.
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			// US format (1,332.00): commas group.
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Contains(s, ","):
		parts := strings.Split(s, ",")
		if len(parts[len(parts)-1]) <= 2 {
			// Comma as decimal separator (1332,00).
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			// Comma as thousands separator (1,332).
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Contains(s, "."):
		// A dot followed by exactly three digits and nothing else is a
		// thousands separator in the locales these statements come from
		// only when there is more than one dot (1.234.567).
		if strings.Count(s, ".") > 1 {
			idx := strings.LastIndex(s, ".")
			s = strings.ReplaceAll(s[:idx], ".", "") + s[idx:]
		}
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}

	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

// Common date layouts found in financial data, day-first layouts before
// their ambiguous US counterparts.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"02.01.2006",
	"02/01/2006",
	"02-01-2006",
	"2.1.2006",
	"01/02/2006",
	"02 Jan 2006",
	"Jan 02, 2006",
	"2 January 2006",
}

// ParseDate parses a date string trying the common statement layouts.
func ParseDate(dateStr string) (time.Time, error) {
	cleaned := strings.TrimSpace(dateStr)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}
