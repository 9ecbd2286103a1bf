package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Method is the processing path a document or sync run went through.
type Method string

const (
	MethodTemplate Method = "template"
	MethodAI       Method = "ai"
	MethodHybrid   Method = "hybrid"
	MethodSync     Method = "sync"
)

// DocumentMetadata is statement-level information detected during
// extraction. All fields are optional; a template extractor fills what it
// can find and the AI fallback may fill the rest.
type DocumentMetadata struct {
	Institution    string           `json:"institution,omitempty"`
	AccountID      string           `json:"account_id,omitempty"`
	AccountType    string           `json:"account_type,omitempty"`
	PeriodStart    *time.Time       `json:"period_start,omitempty"`
	PeriodEnd      *time.Time       `json:"period_end,omitempty"`
	OpeningBalance *decimal.Decimal `json:"opening_balance,omitempty"`
	ClosingBalance *decimal.Decimal `json:"closing_balance,omitempty"`
}

// ExtractionResult is the transient output of one extraction pass over a
// document. It is consumed immediately by normalization and never
// persisted as its own entity.
type ExtractionResult struct {
	Transactions []Transaction
	Confidence   int // 0-100
	Metadata     *DocumentMetadata
}

// Summary aggregates a transaction batch in native units.
type Summary struct {
	Count         int             `json:"count"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetBalance    decimal.Decimal `json:"net_balance"`
}

// Descriptor describes how a document or sync run was processed.
type Descriptor struct {
	Method     Method `json:"method,omitempty"`
	Confidence int    `json:"confidence"`
}

// ProcessError is the structured error block of a failed run.
type ProcessError struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
	Detail  string `json:"detail,omitempty"`
}

// ProcessResult is the envelope every ingestion run returns, success or
// failure: the shape is identical either way so the caller can always
// render it.
type ProcessResult struct {
	Success      bool              `json:"success"`
	Descriptor   Descriptor        `json:"descriptor"`
	Metadata     *DocumentMetadata `json:"metadata,omitempty"`
	Transactions []Transaction     `json:"transactions"`
	Summary      Summary           `json:"summary"`
	Inserted     int               `json:"inserted"`
	Skipped      int               `json:"skipped"`
	Error        *ProcessError     `json:"error,omitempty"`
}

// Summarize computes the batch summary for a transaction list.
func Summarize(txs []Transaction) Summary {
	s := Summary{Count: len(txs)}
	for i := range txs {
		if txs[i].Type == TypeIncome {
			s.TotalIncome = s.TotalIncome.Add(txs[i].Amount)
		} else {
			s.TotalExpenses = s.TotalExpenses.Add(txs[i].Amount)
		}
	}
	s.NetBalance = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}

// ErrorResult builds the failure envelope: empty extraction block,
// zero-valued summary, populated error object. Detail carries the first
// line of the underlying error text.
func ErrorResult(kind, message, detail string) ProcessResult {
	return ProcessResult{
		Success:      false,
		Transactions: []Transaction{},
		Summary:      Summary{},
		Error: &ProcessError{
			Message: message,
			Kind:    kind,
			Detail:  detail,
		},
	}
}
