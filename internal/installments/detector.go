// Package installments recognizes "N of M" payment-plan markers in
// transaction descriptions and groups installments of the same purchase
// under a shared identifier.
package installments

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"ledgerpipe/internal/logging"
	"ledgerpipe/internal/models"
)

// Marker patterns, tried in order. Phrasings vary by locale:
// "3/12", "Cuota 3/12", "Cuota 3 de 12", "Parcela 3 de 12",
// "Installment 3 of 12".
var markerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:cuota|parcela|installment)\s*(\d{1,3})\s*(?:/|de|of)\s*(\d{1,3})`),
	regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:de|of)\s*(\d{1,3})\b`),
	regexp.MustCompile(`\b(\d{1,3})/(\d{1,3})\b`),
}

// Detector scans one batch at a time. Group identity is scoped to the
// batch: two installment lines of the same purchase in one document get
// one group id.
type Detector struct {
	logger logging.Logger
}

// NewDetector creates a new installment detector.
func NewDetector(logger logging.Logger) *Detector {
	return &Detector{logger: logger}
}

// DetectBatch annotates every transaction whose description carries an
// installment marker. Transactions already annotated (AI extraction
// fills the ordinal and total itself) only get a group id assigned.
// Non-matching descriptions are left untouched.
func (d *Detector) DetectBatch(txs []models.Transaction) {
	groups := make(map[string]string)

	for i := range txs {
		tx := &txs[i]

		if tx.Installment == nil {
			number, total, ok := Parse(tx.Description)
			if !ok {
				continue
			}
			tx.Installment = &models.Installment{Number: number, Total: total}
		}

		if tx.Installment.GroupID == "" {
			key := groupKey(tx.Description, tx.Installment.Total)
			groupID, ok := groups[key]
			if !ok {
				groupID = uuid.New().String()
				groups[key] = groupID
			}
			tx.Installment.GroupID = groupID
		}

		d.logger.Debug("installment detected",
			logging.Field{Key: "description", Value: tx.Description},
			logging.Field{Key: "number", Value: tx.Installment.Number},
			logging.Field{Key: "total", Value: tx.Installment.Total},
			logging.Field{Key: "group_id", Value: tx.Installment.GroupID})
	}
}

// Parse extracts (ordinal, total) from a description. An ordinal greater
// than the total is a date or a fraction, not an installment marker.
func Parse(description string) (int, int, bool) {
	for _, pattern := range markerPatterns {
		m := pattern.FindStringSubmatch(description)
		if m == nil {
			continue
		}
		number, err1 := strconv.Atoi(m[1])
		total, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil {
			continue
		}
		if number < 1 || total < 1 || number > total {
			continue
		}
		return number, total, true
	}
	return 0, 0, false
}

var markerStrip = regexp.MustCompile(`(?i)(?:cuota|parcela|installment)?\s*\d{1,3}\s*(?:/|de|of)\s*\d{1,3}`)

// groupKey identifies one purchase within a batch: the description with
// its marker removed, normalized, plus the plan total. "Notebook Cuota
// 1/12" and "Notebook Cuota 3/12" collapse to the same key.
func groupKey(description string, total int) string {
	base := markerStrip.ReplaceAllString(description, "")
	base = strings.Join(strings.Fields(strings.ToLower(base)), " ")
	return base + "|" + strconv.Itoa(total)
}
