package models

import "time"

// QuotaRecord mirrors a row of the ai_quota table: usage for one user in
// one calendar month.
type QuotaRecord struct {
	UserID string `json:"user_id"`
	Month  string `json:"month"` // "2006-01"
	Used   int    `json:"used"`
	Limit  int    `json:"limit"`
}

// QuotaStatus is the quota view returned to clients.
type QuotaStatus struct {
	UserID    string    `json:"user_id"`
	Month     string    `json:"month"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetDate time.Time `json:"reset_date"`
}

// Exhausted reports whether no fallback calls remain this month.
func (s QuotaStatus) Exhausted() bool {
	return s.Remaining <= 0
}
