package classify

import (
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/prune-dev/prune/internal/catalog"
)

// Match is the outcome of a rule matching a file.
type Match struct {
	RuleName     string
	Category     string
	Subcategory  string
	Priority     string
	RulePriority int
}

// Engine applies a parsed Rules document to catalog files. It is
// stateless beyond the rules themselves and safe for concurrent use.
type Engine struct {
	rules []Rule
}

// NewEngine validates rules and returns an Engine ready to classify
// files against them.
func NewEngine(rules Rules) (*Engine, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	return &Engine{rules: rules.Sorted()}, nil
}

// Classify returns the highest rule_priority match among every rule that
// matches file, or nil if none match. Ties in rule_priority favor the
// rule whose name sorts first, matching the deterministic order Sorted
// establishes.
func (e *Engine) Classify(file catalog.File) (*Match, error) {
	for _, rule := range e.rules {
		matched, err := matchRule(rule, file)
		if err != nil {
			return nil, err
		}

		if !matched {
			continue
		}

		subcategory := resolveSubcategory(rule, file)
		priority := rule.Priority
		if priority == "" {
			priority = catalog.PriorityNormal
		}

		return &Match{
			RuleName:     rule.Name,
			Category:     rule.Category,
			Subcategory:  subcategory,
			Priority:     priority,
			RulePriority: rule.RulePriority,
		}, nil
	}

	return nil, nil
}

// ClassifyBatch classifies every file in files, preserving order.
// A file with no matching rule gets a nil Match at its index.
func (e *Engine) ClassifyBatch(files []catalog.File) ([]*Match, error) {
	out := make([]*Match, len(files))

	for i, f := range files {
		m, err := e.Classify(f)
		if err != nil {
			return nil, err
		}

		out[i] = m
	}

	return out, nil
}

func matchRule(rule Rule, file catalog.File) (bool, error) {
	switch rule.Type {
	case KindPattern:
		return matchPattern(rule.Patterns, file)
	case KindExtension:
		return matchExtension(rule.Extensions, file), nil
	case KindSize:
		return matchSize(rule.MinBytes, rule.MaxBytes, file), nil
	case KindAge:
		return matchAge(rule.OlderThanDays, rule.NewerThanDays, file), nil
	case KindDuplicate:
		return matchDuplicate(file), nil
	default:
		return false, nil
	}
}

func matchPattern(patterns []string, file catalog.File) (bool, error) {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, file.Path); err == nil && ok {
			return true, nil
		}

		if ok, err := doublestar.Match(pattern, file.AbsPath); err == nil && ok {
			return true, nil
		}
	}

	return false, nil
}

func matchExtension(extensions []string, file catalog.File) bool {
	if file.Extension == nil {
		return false
	}

	for _, ext := range extensions {
		if strings.EqualFold(ext, *file.Extension) {
			return true
		}
	}

	return false
}

func matchSize(minBytes, maxBytes *int64, file catalog.File) bool {
	if minBytes != nil && file.SizeBytes < *minBytes {
		return false
	}

	if maxBytes != nil && file.SizeBytes > *maxBytes {
		return false
	}

	return true
}

func matchAge(olderThanDays, newerThanDays *int64, file catalog.File) bool {
	if file.ModifiedAt == nil {
		return false
	}

	modified, ok := parseTimestamp(*file.ModifiedAt)
	if !ok {
		return false
	}

	ageDays := int64(time.Since(modified).Hours() / 24)

	if olderThanDays != nil && ageDays < *olderThanDays {
		return false
	}

	if newerThanDays != nil && ageDays > *newerThanDays {
		return false
	}

	return true
}

func matchDuplicate(file catalog.File) bool {
	return file.DuplicateGroup != nil
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func resolveSubcategory(rule Rule, file catalog.File) string {
	if rule.SubcategoryFromEXIF != "" {
		if data, err := extractEXIF(file.AbsPath); err == nil && data != nil {
			return substituteEXIF(rule.SubcategoryFromEXIF, data)
		}
	}

	return rule.Subcategory
}
