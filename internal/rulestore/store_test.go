package rulestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerpipe/internal/logging"
	"ledgerpipe/internal/models"
)

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSeedFile(t *testing.T) {
	path := writeSeed(t, `rules:
  - keyword: amazon prime
    category: cat-subscriptions
    match: contains
    field: description
    priority: 2
  - keyword: uber
    category: cat-transport
`)

	rules, err := LoadSeedFile(path, "user-1", &logging.MockLogger{})
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Equal(t, "amazon prime", rules[0].Keyword)
	assert.Equal(t, "cat-subscriptions", rules[0].CategoryID)
	assert.Equal(t, models.MatchContains, rules[0].MatchType)
	assert.Equal(t, 2, rules[0].Priority)
	assert.Equal(t, "user-1", rules[0].UserID)

	// Defaults fill in for the sparse entry.
	assert.Equal(t, models.MatchContains, rules[1].MatchType)
	assert.Equal(t, models.FieldDescription, rules[1].Field)
	assert.NotEmpty(t, rules[1].ID)
}

func TestLoadSeedFileSkipsIncompleteEntries(t *testing.T) {
	path := writeSeed(t, `rules:
  - keyword: ""
    category: cat-x
  - keyword: valid
    category: cat-y
`)

	logger := &logging.MockLogger{}
	rules, err := LoadSeedFile(path, "user-1", logger)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "valid", rules[0].Keyword)
	assert.True(t, logger.HasMessage("skipping incomplete rule seed entry"))
}

func TestLoadSeedFileMissingPath(t *testing.T) {
	rules, err := LoadSeedFile(filepath.Join(t.TempDir(), "absent.yaml"), "user-1", &logging.MockLogger{})
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestLoadSeedFileEmptyPath(t *testing.T) {
	rules, err := LoadSeedFile("", "user-1", &logging.MockLogger{})
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestLoadSeedFileInvalidYAML(t *testing.T) {
	path := writeSeed(t, "rules: [not closed")
	_, err := LoadSeedFile(path, "user-1", &logging.MockLogger{})
	assert.Error(t, err)
}
