package storage

import (
	"context"

	"ledgerpipe/internal/models"
)

// ListRules returns a user's category rules ordered by priority then id.
func (s *Store) ListRules(ctx context.Context, userID string) ([]models.CategoryRule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, keyword, category_id, match_type, field, priority
		FROM category_rules WHERE user_id = ? ORDER BY priority DESC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.CategoryRule
	for rows.Next() {
		var rule models.CategoryRule
		var matchType, field string
		if err := rows.Scan(&rule.ID, &rule.UserID, &rule.Keyword, &rule.CategoryID,
			&matchType, &field, &rule.Priority); err != nil {
			return nil, err
		}
		rule.MatchType = models.MatchType(matchType)
		rule.Field = models.RuleField(field)
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// SaveRules upserts category rules by id.
func (s *Store) SaveRules(ctx context.Context, rules []models.CategoryRule) error {
	stmt, err := s.db.PrepareContext(ctx, `INSERT OR REPLACE INTO category_rules
		(id, user_id, keyword, category_id, match_type, field, priority)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rule := range rules {
		if _, err := stmt.ExecContext(ctx, rule.ID, rule.UserID, rule.Keyword,
			rule.CategoryID, string(rule.MatchType), string(rule.Field), rule.Priority); err != nil {
			return err
		}
	}
	return nil
}

// ListCategoryNames returns the distinct category ids a user's rules
// point at, used as semantic hints for the AI fallback.
func (s *Store) ListCategoryNames(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT category_id FROM category_rules
		WHERE user_id = ? ORDER BY category_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
