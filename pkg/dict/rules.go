// CLAUDE:SUMMARY Ordered substring rule tables mapping normalized free text to a closed label vocabulary (first match wins).
package dict

import (
	"fmt"
	"strings"
)

// Rule maps any text containing one of Needles (and every entry of Requires)
// to Label. Needles and Requires are written as natural text and normalized
// when the rule set is compiled.
type Rule struct {
	Label    string   `yaml:"label" json:"label"`
	Needles  []string `yaml:"needles" json:"needles"`
	Requires []string `yaml:"requires,omitempty" json:"requires,omitempty"`
}

type compiledRule struct {
	label    string
	needles  []string
	requires []string
}

// RuleSet is an immutable, ordered list of substring rules.
type RuleSet struct {
	id    string
	rules []compiledRule
	src   []Rule
}

// NewRuleSet compiles rules in order. Every rule needs a label and at least
// one needle that survives normalization.
func NewRuleSet(id string, rules []Rule) (*RuleSet, error) {
	if id == "" {
		return nil, fmt.Errorf("rule set: missing id")
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("rule set %s: no rules defined", id)
	}

	rs := &RuleSet{id: id, rules: make([]compiledRule, 0, len(rules))}
	for i, r := range rules {
		if strings.TrimSpace(r.Label) == "" {
			return nil, fmt.Errorf("rule set %s: rule %d has no label", id, i)
		}
		cr := compiledRule{label: r.Label}
		for _, n := range r.Needles {
			if nn := Normalize(n); nn != "" {
				cr.needles = append(cr.needles, nn)
			}
		}
		if len(cr.needles) == 0 {
			return nil, fmt.Errorf("rule set %s: rule %q has no usable needle", id, r.Label)
		}
		for _, n := range r.Requires {
			if nn := Normalize(n); nn != "" {
				cr.requires = append(cr.requires, nn)
			}
		}
		rs.rules = append(rs.rules, cr)
		rs.src = append(rs.src, r)
	}
	return rs, nil
}

// MustRuleSet is like NewRuleSet but panics on error. Used for built-in tables.
func MustRuleSet(id string, rules []Rule) *RuleSet {
	rs, err := NewRuleSet(id, rules)
	if err != nil {
		panic(err)
	}
	return rs
}

// ID returns the rule set identifier.
func (rs *RuleSet) ID() string { return rs.id }

// Len returns the number of rules.
func (rs *RuleSet) Len() int { return len(rs.rules) }

// Rules returns a copy of the source rules.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.src))
	copy(out, rs.src)
	return out
}

// Labels returns the distinct labels in rule order.
func (rs *RuleSet) Labels() []string {
	seen := make(map[string]bool, len(rs.rules))
	labels := make([]string, 0, len(rs.rules))
	for _, r := range rs.rules {
		if !seen[r.label] {
			seen[r.label] = true
			labels = append(labels, r.label)
		}
	}
	return labels
}

// Match returns the label of the first rule matching s.
func (rs *RuleSet) Match(s string) (string, bool) {
	return rs.MatchNormalized(Normalize(s))
}

// MatchNormalized is Match for text that is already normalized.
func (rs *RuleSet) MatchNormalized(n string) (string, bool) {
	if n == "" {
		return "", false
	}
	for _, r := range rs.rules {
		if r.matches(n) {
			return r.label, true
		}
	}
	return "", false
}

// Canonicalize returns the label of the first matching rule, or the
// normalized text itself when nothing matches. Empty input yields "".
func (rs *RuleSet) Canonicalize(s string) string {
	n := Normalize(s)
	if label, ok := rs.MatchNormalized(n); ok {
		return label
	}
	return n
}

func (r compiledRule) matches(n string) bool {
	for _, req := range r.requires {
		if !strings.Contains(n, req) {
			return false
		}
	}
	for _, needle := range r.needles {
		if strings.Contains(n, needle) {
			return true
		}
	}
	return false
}
