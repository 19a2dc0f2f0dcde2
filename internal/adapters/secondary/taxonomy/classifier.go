package taxonomy

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/lorrc/vendor-performance/internal/core/domain"
	"github.com/lorrc/vendor-performance/internal/core/ports"
)

// Rule maps a set of keywords to one taxonomy label.
type Rule struct {
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory,omitempty"`
	Keywords    []string `json:"keywords"`
}

// KeywordClassifier labels conversations by keyword overlap.
type KeywordClassifier struct {
	rules []Rule
}

var _ ports.TaxonomyClassifier = (*KeywordClassifier)(nil)

// DefaultRules is the built-in support taxonomy.
func DefaultRules() []Rule {
	return []Rule{
		{Category: "billing", Subcategory: "refund", Keywords: []string{"refund", "money back", "chargeback"}},
		{Category: "billing", Subcategory: "invoice", Keywords: []string{"invoice", "receipt", "billing address"}},
		{Category: "billing", Subcategory: "subscription", Keywords: []string{"subscription", "cancel plan", "upgrade", "downgrade"}},
		{Category: "account", Subcategory: "login", Keywords: []string{"login", "log in", "sign in", "2fa"}},
		{Category: "account", Subcategory: "password", Keywords: []string{"password", "reset link"}},
		{Category: "shipping", Subcategory: "delay", Keywords: []string{"late", "delayed", "tracking", "where is my order"}},
		{Category: "shipping", Subcategory: "damaged", Keywords: []string{"damaged", "broken", "missing item"}},
		{Category: "technical", Subcategory: "bug", Keywords: []string{"error", "crash", "bug", "not working"}},
		{Category: "technical", Subcategory: "integration", Keywords: []string{"api", "webhook", "integration"}},
	}
}

// NewKeywordClassifier creates a classifier. Keywords are matched case-insensitively.
func NewKeywordClassifier(rules []Rule) *KeywordClassifier {
	normalized := make([]Rule, 0, len(rules))
	for _, r := range rules {
		keywords := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				keywords = append(keywords, k)
			}
		}
		if r.Category == "" || len(keywords) == 0 {
			continue
		}
		normalized = append(normalized, Rule{Category: r.Category, Subcategory: r.Subcategory, Keywords: keywords})
	}
	return &KeywordClassifier{rules: normalized}
}

// LoadRules reads a JSON array of rules from path.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy rules: %w", err)
	}
	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse taxonomy rules %s: %w", path, err)
	}
	return rules, nil
}

// Classify returns every rule with at least one keyword present in the
// text, tags or topics, most confident first.
func (c *KeywordClassifier) Classify(text string, tags, topics []string) []domain.TaxonomyMatch {
	var b strings.Builder
	b.WriteString(strings.ToLower(text))
	for _, s := range append(append([]string(nil), tags...), topics...) {
		b.WriteByte('\n')
		b.WriteString(strings.ToLower(s))
	}
	haystack := b.String()
	if strings.TrimSpace(haystack) == "" {
		return nil
	}

	var matches []domain.TaxonomyMatch
	for _, r := range c.rules {
		hits := 0
		for _, k := range r.Keywords {
			if strings.Contains(haystack, k) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		matches = append(matches, domain.TaxonomyMatch{
			Category:    r.Category,
			Subcategory: r.Subcategory,
			Confidence:  float64(hits) / float64(len(r.Keywords)),
		})
	}

	slices.SortStableFunc(matches, func(a, b domain.TaxonomyMatch) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})
	return matches
}
