// Package rulestore loads category rule seed files. Seeds are YAML lists
// a user (or an operator bootstrapping an account) can maintain by hand;
// persisted rules live in storage and take the same shape.
package rulestore

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ledgerpipe/internal/logging"
	"ledgerpipe/internal/models"
)

type seedFile struct {
	Rules []models.CategoryRule `yaml:"rules"`
}

// LoadSeedFile reads a YAML rule seed and returns the rules stamped with
// the given user id. A missing path returns an empty set, not an error;
// seeding is optional.
func LoadSeedFile(path, userID string, logger logging.Logger) ([]models.CategoryRule, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("rule seed file not found", logging.Field{Key: "path", Value: path})
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read rule seed file %s: %w", path, err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse rule seed file %s: %w", path, err)
	}

	rules := make([]models.CategoryRule, 0, len(seed.Rules))
	for i, rule := range seed.Rules {
		if rule.Keyword == "" || rule.CategoryID == "" {
			logger.Warn("skipping incomplete rule seed entry",
				logging.Field{Key: "path", Value: path},
				logging.Field{Key: "index", Value: i})
			continue
		}
		if rule.ID == "" {
			rule.ID = fmt.Sprintf("seed-%d", i)
		}
		if rule.MatchType == "" {
			rule.MatchType = models.MatchContains
		}
		if rule.Field == "" {
			rule.Field = models.FieldDescription
		}
		rule.UserID = userID
		rules = append(rules, rule)
	}

	logger.Info("loaded category rule seeds",
		logging.Field{Key: "path", Value: path},
		logging.Field{Key: "rules", Value: len(rules)})

	return rules, nil
}
