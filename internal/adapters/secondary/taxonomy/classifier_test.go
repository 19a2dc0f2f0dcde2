package taxonomy_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lorrc/vendor-performance/internal/adapters/secondary/taxonomy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordClassifier_Classify(t *testing.T) {
	c := taxonomy.NewKeywordClassifier(taxonomy.DefaultRules())

	t.Run("matches text case-insensitively", func(t *testing.T) {
		matches := c.Classify("I need a REFUND, the money back please", nil, nil)

		require.NotEmpty(t, matches)
		assert.Equal(t, "billing", matches[0].Category)
		assert.Equal(t, "refund", matches[0].Subcategory)
		assert.InDelta(t, 2.0/3.0, matches[0].Confidence, 1e-9)
	})

	t.Run("tags and topics count", func(t *testing.T) {
		matches := c.Classify("", []string{"Password"}, []string{"reset link"})

		require.Len(t, matches, 1)
		assert.Equal(t, "account", matches[0].Category)
		assert.Equal(t, 1.0, matches[0].Confidence)
	})

	t.Run("most confident first", func(t *testing.T) {
		matches := c.Classify("app crash with an error, also need an invoice", nil, nil)

		require.Len(t, matches, 2)
		assert.Equal(t, "technical", matches[0].Category)
		assert.Equal(t, "invoice", matches[1].Subcategory)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, c.Classify("thanks!", nil, nil))
		assert.Empty(t, c.Classify("", nil, nil))
	})
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"category": "orders", "subcategory": "status", "keywords": ["Order Status", " "]},
		{"category": "", "keywords": ["ignored"]}
	]`), 0o600))

	rules, err := taxonomy.LoadRules(path)
	require.NoError(t, err)

	c := taxonomy.NewKeywordClassifier(rules)
	matches := c.Classify("what is my order status?", nil, nil)

	require.Len(t, matches, 1)
	assert.Equal(t, "orders", matches[0].Category)
	assert.Equal(t, 1.0, matches[0].Confidence)

	_, err = taxonomy.LoadRules(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
