// Package categorizer assigns categories to transactions from a user's
// keyword rule set. Matching is deterministic: the longest matching
// keyword wins, rule priority breaks length ties, rule id breaks
// priority ties.
package categorizer

import (
	"strings"

	"ledgerpipe/internal/logging"
	"ledgerpipe/internal/models"
)

// Engine applies category rules to transactions.
type Engine struct {
	logger logging.Logger
}

// NewEngine creates a new categorization engine.
func NewEngine(logger logging.Logger) *Engine {
	return &Engine{logger: logger}
}

// Categorize returns the category id for a transaction, or nil when no
// rule matches. A transaction that already carries a category keeps it;
// the engine never overrides an explicit choice.
func (e *Engine) Categorize(tx *models.Transaction, rules []models.CategoryRule) *string {
	if tx.CategoryID != nil {
		return tx.CategoryID
	}

	var best *models.CategoryRule
	for i := range rules {
		rule := &rules[i]
		if !matches(tx, rule) {
			continue
		}
		if best == nil || moreSpecific(rule, best) {
			best = rule
		}
	}

	if best == nil {
		return nil
	}

	e.logger.Debug("category rule matched",
		logging.Field{Key: "keyword", Value: best.Keyword},
		logging.Field{Key: "category", Value: best.CategoryID})

	category := best.CategoryID
	return &category
}

// CategorizeBatch applies Categorize to every transaction in place.
func (e *Engine) CategorizeBatch(txs []models.Transaction, rules []models.CategoryRule) {
	for i := range txs {
		txs[i].CategoryID = e.Categorize(&txs[i], rules)
	}
}

func matches(tx *models.Transaction, rule *models.CategoryRule) bool {
	target := tx.Description
	if rule.Field == models.FieldReference {
		target = tx.Reference
	}

	target = strings.ToLower(strings.TrimSpace(target))
	keyword := strings.ToLower(strings.TrimSpace(rule.Keyword))
	if keyword == "" {
		return false
	}

	switch rule.MatchType {
	case models.MatchExact:
		return target == keyword
	default:
		return strings.Contains(target, keyword)
	}
}

// moreSpecific reports whether a beats b: longer keyword first, then
// higher priority, then lower id for a stable total order.
func moreSpecific(a, b *models.CategoryRule) bool {
	la, lb := len(strings.TrimSpace(a.Keyword)), len(strings.TrimSpace(b.Keyword))
	if la != lb {
		return la > lb
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.ID < b.ID
}
