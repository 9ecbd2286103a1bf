// Package template implements heuristic statement extraction: locate a
// header row, map the date/description/amount columns, parse every data
// row, and score how well the document matched those structural
// expectations. The score decides whether the result stands on its own or
// the AI fallback is consulted.
package template

import (
	"strings"

	"github.com/shopspring/decimal"

	"ledgerpipe/internal/logging"
	"ledgerpipe/internal/models"
)

// ConfidenceThreshold is the acceptance decision point: results scoring
// at or above it are final, results below it are candidates for the AI
// fallback.
const ConfidenceThreshold = 60

// Confidence point weights. Header location and balance reconciliation
// are all-or-nothing; row parsing contributes proportionally.
const (
	headerPoints        = 20
	rowPoints           = 60
	reconciliationPoints = 20
)

// balanceTolerance for opening/closing reconciliation.
var balanceTolerance = decimal.NewFromFloat(0.01)

// Column keyword sets, lowercase. Statements come in several languages;
// the header matcher checks each cell against all of them.
var (
	dateHeaders        = []string{"date", "fecha", "data", "datum", "booking", "buchung", "valuta"}
	descriptionHeaders = []string{"description", "descripcion", "descripción", "concepto", "detalle", "detail", "text", "buchungstext", "historico", "histórico", "lancamento", "lançamento", "movimiento"}
	amountHeaders      = []string{"amount", "importe", "monto", "valor", "betrag", "montant"}
	debitHeaders       = []string{"debit", "debito", "débito", "cargo", "withdrawal", "belastung"}
	creditHeaders      = []string{"credit", "credito", "crédito", "abono", "deposit", "gutschrift"}
	referenceHeaders   = []string{"reference", "referencia", "ref", "ntryref", "id"}
	directionHeaders   = []string{"direction", "cdtdbtind", "type", "tipo", "d/c", "dc"}
)

// Balance marker phrases for metadata detection, lowercase.
var (
	openingMarkers = []string{"saldo anterior", "saldo inicial", "opening balance", "anfangssaldo", "solde initial"}
	closingMarkers = []string{"saldo final", "saldo actual", "closing balance", "endsaldo", "solde final"}
	accountMarkers = []string{"account", "cuenta", "conta", "konto", "iban"}
)

// knownInstitutions maps a lowercase marker found anywhere in the text to
// a display name.
var knownInstitutions = map[string]string{
	"banco galicia":   "Banco Galicia",
	"banco santander": "Banco Santander",
	"santander rio":   "Banco Santander",
	"bbva":            "BBVA",
	"mercado pago":    "Mercado Pago",
	"mercadopago":     "Mercado Pago",
	"wise":            "Wise",
	"nubank":          "Nubank",
	"itau":            "Itaú",
	"itaú":            "Itaú",
	"postfinance":     "PostFinance",
	"ubs":             "UBS",
	"revolut":         "Revolut",
}

type columnMap struct {
	date        int
	description int
	amount      int
	debit       int
	credit      int
	reference   int
	direction   int
}

// Extractor applies the heuristics to tab-delimited plain text.
type Extractor struct {
	logger logging.Logger
}

// NewExtractor creates a new Extractor.
func NewExtractor(logger logging.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract parses the text and returns candidate transactions with a
// confidence score in [0,100]. Rows whose values resist coercion are kept
// and flagged for review; they lower the score instead of disappearing.
func (e *Extractor) Extract(text, userID, currency string) *models.ExtractionResult {
	lines := strings.Split(text, "\n")

	metadata := e.detectMetadata(lines, text)

	headerIdx, cols := findHeader(lines)
	score := 0

	var transactions []models.Transaction
	cleanRows, totalRows := 0, 0

	if headerIdx >= 0 {
		score += headerPoints
		for _, line := range lines[headerIdx+1:] {
			cells := strings.Split(line, "\t")
			if isBlankRow(cells) || isBalanceRow(line) {
				continue
			}
			totalRows++

			tx, clean := e.parseRow(cells, cols, userID, currency)
			if tx == nil {
				continue
			}
			if clean {
				cleanRows++
			}
			transactions = append(transactions, *tx)
		}
	}

	if totalRows > 0 {
		score += rowPoints * cleanRows / totalRows
	}

	if reconciles(metadata, transactions) {
		score += reconciliationPoints
	}

	if score > 100 {
		score = 100
	}

	for i := range transactions {
		transactions[i].Confidence = score
	}

	e.logger.Debug("template extraction finished",
		logging.Field{Key: "transactions", Value: len(transactions)},
		logging.Field{Key: "clean_rows", Value: cleanRows},
		logging.Field{Key: "total_rows", Value: totalRows},
		logging.Field{Key: "confidence", Value: score})

	return &models.ExtractionResult{
		Transactions: transactions,
		Confidence:   score,
		Metadata:     metadata,
	}
}

// parseRow converts one data row into a transaction. The bool result
// reports whether every coercion succeeded; a row with a parsable date
// but broken amount (or vice versa) comes back flagged for review.
func (e *Extractor) parseRow(cells []string, cols columnMap, userID, currency string) (*models.Transaction, bool) {
	clean := true

	tx := &models.Transaction{
		UserID:   userID,
		Currency: currency,
		Source:   models.SourceDocument,
	}

	if cols.description >= 0 && cols.description < len(cells) {
		tx.Description = strings.TrimSpace(cells[cols.description])
	}
	if cols.reference >= 0 && cols.reference < len(cells) {
		tx.Reference = strings.TrimSpace(cells[cols.reference])
	}

	if cols.date >= 0 && cols.date < len(cells) {
		date, err := models.ParseDate(cells[cols.date])
		if err != nil {
			clean = false
		} else {
			tx.Date = date
		}
	} else {
		clean = false
	}

	amount, direction, ok := e.parseAmount(cells, cols)
	if !ok {
		clean = false
	}

	// A row with neither description nor amount is noise, not a
	// transaction.
	if tx.Description == "" && !ok {
		return nil, false
	}

	tx.Amount = amount.Abs()
	tx.Type = direction
	if amount.IsNegative() {
		tx.Type = models.TypeExpense
	}
	tx.NeedsReview = !clean

	return tx, clean
}

func (e *Extractor) parseAmount(cells []string, cols columnMap) (decimal.Decimal, models.TransactionType, bool) {
	// Separate debit/credit columns carry direction structurally.
	if cols.debit >= 0 && cols.debit < len(cells) && strings.TrimSpace(cells[cols.debit]) != "" {
		if v, err := models.ParseAmount(cells[cols.debit]); err == nil {
			return v.Abs(), models.TypeExpense, true
		}
		return decimal.Zero, models.TypeExpense, false
	}
	if cols.credit >= 0 && cols.credit < len(cells) && strings.TrimSpace(cells[cols.credit]) != "" {
		if v, err := models.ParseAmount(cells[cols.credit]); err == nil {
			return v.Abs(), models.TypeIncome, true
		}
		return decimal.Zero, models.TypeIncome, false
	}

	if cols.amount >= 0 && cols.amount < len(cells) {
		v, err := models.ParseAmount(cells[cols.amount])
		if err != nil {
			return decimal.Zero, models.TypeExpense, false
		}
		direction := models.TypeIncome
		if v.IsNegative() {
			direction = models.TypeExpense
		}
		if cols.direction >= 0 && cols.direction < len(cells) {
			switch strings.ToUpper(strings.TrimSpace(cells[cols.direction])) {
			case "DBIT", "D", "DEBIT", "DEBITO", "DÉBITO", "CARGO":
				direction = models.TypeExpense
			case "CRDT", "C", "CREDIT", "CREDITO", "CRÉDITO", "ABONO":
				direction = models.TypeIncome
			}
		}
		return v, direction, true
	}

	return decimal.Zero, models.TypeExpense, false
}

// findHeader scans for the first row naming both a date column and an
// amount (or debit/credit) column.
func findHeader(lines []string) (int, columnMap) {
	for idx, line := range lines {
		cells := strings.Split(line, "\t")
		cols := columnMap{date: -1, description: -1, amount: -1, debit: -1, credit: -1, reference: -1, direction: -1}
		for i, cell := range cells {
			name := strings.ToLower(strings.TrimSpace(cell))
			switch {
			case cols.date < 0 && matchesAny(name, dateHeaders):
				cols.date = i
			case cols.debit < 0 && matchesAny(name, debitHeaders):
				cols.debit = i
			case cols.credit < 0 && matchesAny(name, creditHeaders):
				cols.credit = i
			case cols.amount < 0 && matchesAny(name, amountHeaders):
				cols.amount = i
			case cols.description < 0 && matchesAny(name, descriptionHeaders):
				cols.description = i
			case cols.reference < 0 && matchesAny(name, referenceHeaders):
				cols.reference = i
			case cols.direction < 0 && matchesAny(name, directionHeaders):
				cols.direction = i
			}
		}
		if cols.date >= 0 && (cols.amount >= 0 || cols.debit >= 0 || cols.credit >= 0) {
			return idx, cols
		}
	}
	return -1, columnMap{date: -1, description: -1, amount: -1, debit: -1, credit: -1, reference: -1, direction: -1}
}

func (e *Extractor) detectMetadata(lines []string, fullText string) *models.DocumentMetadata {
	metadata := &models.DocumentMetadata{}
	lower := strings.ToLower(fullText)

	for marker, name := range knownInstitutions {
		if strings.Contains(lower, marker) {
			metadata.Institution = name
			break
		}
	}

	for _, line := range lines {
		lowerLine := strings.ToLower(line)
		switch {
		case metadata.OpeningBalance == nil && matchesAnySubstring(lowerLine, openingMarkers):
			if v, ok := trailingAmount(line); ok {
				metadata.OpeningBalance = &v
			}
		case metadata.ClosingBalance == nil && matchesAnySubstring(lowerLine, closingMarkers):
			if v, ok := trailingAmount(line); ok {
				metadata.ClosingBalance = &v
			}
		case metadata.AccountID == "" && matchesAnySubstring(lowerLine, accountMarkers):
			cells := strings.Split(line, "\t")
			if len(cells) >= 2 && strings.TrimSpace(cells[1]) != "" {
				metadata.AccountID = strings.TrimSpace(cells[1])
			}
		}
	}

	return metadata
}

// trailingAmount parses the last non-empty cell of a line as an amount.
func trailingAmount(line string) (decimal.Decimal, bool) {
	cells := strings.Split(line, "\t")
	for i := len(cells) - 1; i >= 0; i-- {
		cell := strings.TrimSpace(cells[i])
		if cell == "" {
			continue
		}
		if v, err := models.ParseAmount(cell); err == nil {
			return v, true
		}
		return decimal.Zero, false
	}
	return decimal.Zero, false
}

// reconciles checks opening + net movement against the closing balance
// within tolerance. Without both balances there is nothing to check.
func reconciles(metadata *models.DocumentMetadata, txs []models.Transaction) bool {
	if metadata == nil || metadata.OpeningBalance == nil || metadata.ClosingBalance == nil || len(txs) == 0 {
		return false
	}
	net := decimal.Zero
	for i := range txs {
		net = net.Add(txs[i].SignedAmount())
	}
	expected := metadata.OpeningBalance.Add(net)
	return expected.Sub(*metadata.ClosingBalance).Abs().LessThanOrEqual(balanceTolerance)
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func isBalanceRow(line string) bool {
	lower := strings.ToLower(line)
	return matchesAnySubstring(lower, openingMarkers) || matchesAnySubstring(lower, closingMarkers)
}

func matchesAny(name string, keywords []string) bool {
	for _, k := range keywords {
		if name == k || strings.HasPrefix(name, k+" ") || strings.HasPrefix(name, k+"/") {
			return true
		}
	}
	return false
}

func matchesAnySubstring(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
