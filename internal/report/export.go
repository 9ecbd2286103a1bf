// Package report exports normalized transactions to CSV.
package report

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"ledgerpipe/internal/models"
)

// csvRow is the flat CSV projection of a transaction.
type csvRow struct {
	Date              string `csv:"Date"`
	Description       string `csv:"Description"`
	Reference         string `csv:"Reference"`
	Amount            string `csv:"Amount"`
	Type              string `csv:"Type"`
	Currency          string `csv:"Currency"`
	Category          string `csv:"Category"`
	ConvertedAmount   string `csv:"ConvertedAmount"`
	ConvertedCurrency string `csv:"ConvertedCurrency"`
	Source            string `csv:"Source"`
	Provider          string `csv:"Provider"`
	Installment       string `csv:"Installment"`
	NeedsReview       bool   `csv:"NeedsReview"`
}

// WriteCSV writes the transactions as CSV to w, header included.
func WriteCSV(w io.Writer, txs []models.Transaction) error {
	rows := make([]csvRow, 0, len(txs))
	for i := range txs {
		rows = append(rows, toRow(&txs[i]))
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

func toRow(tx *models.Transaction) csvRow {
	row := csvRow{
		Date:        tx.Date.Format("2006-01-02"),
		Description: tx.Description,
		Reference:   tx.Reference,
		Amount:      tx.SignedAmount().StringFixed(2),
		Type:        string(tx.Type),
		Currency:    tx.Currency,
		Source:      string(tx.Source),
		Provider:    tx.Provider,
		NeedsReview: tx.NeedsReview,
	}
	if tx.CategoryID != nil {
		row.Category = *tx.CategoryID
	}
	if tx.ConvertedAmount != nil {
		row.ConvertedAmount = tx.ConvertedAmount.StringFixed(2)
		row.ConvertedCurrency = tx.ConvertedCurrency
	}
	if tx.Installment != nil {
		row.Installment = fmt.Sprintf("%d/%d", tx.Installment.Number, tx.Installment.Total)
	}
	return row
}
