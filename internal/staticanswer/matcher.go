package staticanswer

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule maps a set of query patterns to a canned answer. Patterns are
// case-insensitive regular expressions; a plain word matches as a substring.
type Rule struct {
	Patterns   []string `mapstructure:"patterns"`
	Answer     string   `mapstructure:"answer"`
	Category   string   `mapstructure:"category"`
	Confidence float64  `mapstructure:"confidence"`
}

type compiledRule struct {
	rule     Rule
	patterns []*regexp.Regexp
}

// Matcher holds an immutable, ordered rule list. It is safe for concurrent use.
type Matcher struct {
	rules []compiledRule
}

// New compiles rules in order. It rejects rules without patterns, with an
// empty answer, with a confidence outside [0, 1] or with an invalid pattern.
func New(rules []Rule) (*Matcher, error) {
	m := &Matcher{rules: make([]compiledRule, 0, len(rules))}

	for i, r := range rules {
		if len(r.Patterns) == 0 {
			return nil, fmt.Errorf("rule %d: no patterns", i)
		}
		if strings.TrimSpace(r.Answer) == "" {
			return nil, fmt.Errorf("rule %d: empty answer", i)
		}
		if r.Confidence < 0 || r.Confidence > 1 {
			return nil, fmt.Errorf("rule %d: confidence %v outside [0, 1]", i, r.Confidence)
		}

		cr := compiledRule{
			rule: Rule{
				Patterns:   append([]string(nil), r.Patterns...),
				Answer:     r.Answer,
				Category:   r.Category,
				Confidence: r.Confidence,
			},
		}
		for _, p := range r.Patterns {
			if strings.TrimSpace(p) == "" {
				return nil, fmt.Errorf("rule %d: empty pattern", i)
			}
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("rule %d: pattern %q: %w", i, p, err)
			}
			cr.patterns = append(cr.patterns, re)
		}

		m.rules = append(m.rules, cr)
	}

	return m, nil
}

// Match returns the first rule, in list order, with a pattern matching query.
// Earlier rules win even when a later rule would be a tighter fit.
func (m *Matcher) Match(query string) (Rule, bool) {
	if m == nil {
		return Rule{}, false
	}

	for _, cr := range m.rules {
		for _, re := range cr.patterns {
			if re.MatchString(query) {
				return cr.rule, true
			}
		}
	}

	return Rule{}, false
}

func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rules)
}
