package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is a cached conversion rate for a currency pair on a given
// date. Once cached for a date it is authoritative: the cache never
// silently replaces it with a different value for the same key.
type ExchangeRate struct {
	Date   time.Time       `json:"date"`
	Base   string          `json:"base"`
	Quote  string          `json:"quote"`
	Rate   decimal.Decimal `json:"rate"`
	Source string          `json:"source"`
}
