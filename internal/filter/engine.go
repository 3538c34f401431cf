// Package filter implements the deterministic message content filter.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"telereader/internal/models"
)

// Result is the outcome of running a message text through the engine.
// Either the message is dropped entirely, or it is kept with the
// (possibly rewritten) text.
type Result struct {
	Dropped bool
	Text    string
}

type literalRule struct {
	action      models.FilterAction
	match       string
	replacement string
}

type patternRule struct {
	action      models.FilterAction
	re          *regexp.Regexp
	replacement string
}

// Engine evaluates filter rules against message text. It is pure and
// safe for concurrent use; all patterns are compiled at construction.
type Engine struct {
	literal []literalRule
	pattern []patternRule
}

// NewEngine compiles the configured rules. Invalid regular expressions
// are rejected here so a bad rule fails startup rather than a batch.
func NewEngine(cfg models.FiltersConfig) (*Engine, error) {
	e := &Engine{
		literal: make([]literalRule, 0, len(cfg.String)),
		pattern: make([]patternRule, 0, len(cfg.Regex)),
	}

	for i, r := range cfg.String {
		if r.Match == "" {
			return nil, fmt.Errorf("string rule %d: empty match", i)
		}
		e.literal = append(e.literal, literalRule{
			action:      r.Action,
			match:       r.Match,
			replacement: r.Replacement,
		})
	}

	for i, r := range cfg.Regex {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("regex rule %d: %w", i, err)
		}
		e.pattern = append(e.pattern, patternRule{
			action:      r.Action,
			re:          re,
			replacement: r.Replacement,
		})
	}

	return e, nil
}

// Apply runs text through the full rule pipeline. Precedence is fixed:
// literal drop rules, then pattern drop rules, then literal
// remove/replace rules, then pattern remove/replace rules, each group
// in configured order. Drop always wins over fragment edits. An empty
// input still runs the pipeline; rules matching the empty string apply.
func (e *Engine) Apply(text string) Result {
	for _, r := range e.literal {
		if r.action == models.ActionDropMessage && strings.Contains(text, r.match) {
			return Result{Dropped: true}
		}
	}

	for _, r := range e.pattern {
		if r.action == models.ActionDropMessage && r.re.MatchString(text) {
			return Result{Dropped: true}
		}
	}

	cleaned := text

	for _, r := range e.literal {
		switch r.action {
		case models.ActionRemoveFragment:
			cleaned = strings.ReplaceAll(cleaned, r.match, "")
		case models.ActionReplaceFragment:
			cleaned = strings.ReplaceAll(cleaned, r.match, r.replacement)
		}
	}

	for _, r := range e.pattern {
		switch r.action {
		case models.ActionRemoveFragment:
			cleaned = r.re.ReplaceAllString(cleaned, "")
		case models.ActionReplaceFragment:
			cleaned = r.re.ReplaceAllString(cleaned, r.replacement)
		}
	}

	return Result{Text: strings.TrimSpace(cleaned)}
}
