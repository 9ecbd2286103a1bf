package models

// MatchType controls how a rule keyword is compared to the target field.
type MatchType string

const (
	MatchContains MatchType = "contains" // case-insensitive substring
	MatchExact    MatchType = "exact"    // case-insensitive full match after trimming
)

// RuleField is the transaction field a rule is tested against.
type RuleField string

const (
	FieldDescription RuleField = "description"
	FieldReference   RuleField = "reference"
)

// CategoryRule is a user-owned keyword rule. When several rules match the
// same transaction the longest keyword wins; priority only breaks length
// ties.
type CategoryRule struct {
	ID         string    `json:"id" yaml:"id"`
	UserID     string    `json:"user_id" yaml:"-"`
	Keyword    string    `json:"keyword" yaml:"keyword"`
	CategoryID string    `json:"category_id" yaml:"category"`
	MatchType  MatchType `json:"match_type" yaml:"match"`
	Field      RuleField `json:"field" yaml:"field"`
	Priority   int       `json:"priority" yaml:"priority"`
}
