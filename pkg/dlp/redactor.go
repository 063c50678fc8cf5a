// Package dlp masks personal identifiers in free text before it is logged or
// published.
package dlp

import (
	"regexp"
	"sort"
)

type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

type Redactor struct {
	rules []compiledRule
}

func NewRedactor(cfg RulesConfig) (*Redactor, error) {
	var compiled []compiledRule
	for _, rule := range cfg.Rules {
		if !rule.Enabled {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledRule{rule: rule, re: re})
	}
	return &Redactor{rules: compiled}, nil
}

// Default returns a redactor over DefaultRules.
func Default() *Redactor {
	r, err := NewRedactor(DefaultRules())
	if err != nil {
		panic(err)
	}
	return r
}

// Redact replaces every match of every enabled rule with the rule's mask.
// A nil Redactor returns text unchanged.
func (r *Redactor) Redact(text string) string {
	if r == nil || text == "" {
		return text
	}
	for _, rule := range r.rules {
		text = rule.re.ReplaceAllString(text, rule.rule.Mask)
	}
	return text
}

// Detect lists the rule types found in text, sorted.
func (r *Redactor) Detect(text string) []string {
	if r == nil {
		return nil
	}
	var found []string
	for _, rule := range r.rules {
		if rule.re.MatchString(text) {
			found = append(found, rule.rule.Type)
		}
	}
	sort.Strings(found)
	return found
}
