// Package classify applies a TOML-defined set of classification rules to
// catalog files, assigning each a category, optional subcategory, and
// priority.
package classify

import (
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
)

// Rule kinds. A rule carries exactly one kind's parameters; the others
// are left zero.
const (
	KindPattern   = "pattern"
	KindExtension = "extension"
	KindSize      = "size"
	KindAge       = "age"
	KindDuplicate = "duplicate"
)

// Rule is one named entry of a classification rules document. Name is
// filled in from the TOML table key, not read from the table body.
type Rule struct {
	Name        string `toml:"-"`
	Type        string `toml:"type"`
	Category    string `toml:"category"`
	Subcategory string `toml:"subcategory"`

	// SubcategoryFromEXIF, when set, overrides Subcategory for image
	// files whose EXIF metadata decodes successfully. See exif.go.
	SubcategoryFromEXIF string `toml:"subcategory_from_exif"`

	Priority     string `toml:"priority"`
	RulePriority int    `toml:"rule_priority"`

	// Pattern rule parameters.
	Patterns []string `toml:"patterns"`

	// Extension rule parameters.
	Extensions []string `toml:"extensions"`

	// Size rule parameters.
	MinBytes *int64 `toml:"min_bytes"`
	MaxBytes *int64 `toml:"max_bytes"`

	// Age rule parameters.
	OlderThanDays *int64 `toml:"older_than_days"`
	NewerThanDays *int64 `toml:"newer_than_days"`

	// Duplicate rule parameters.
	KeepStrategy string `toml:"keep_strategy"`
}

const defaultRulePriority = 50

// Rules is a complete classification rules document.
type Rules struct {
	Rules map[string]Rule `toml:"rules"`
}

// Load reads and parses a rules document from path.
func Load(path string) (Rules, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("classify: read %s: %w", path, err)
	}

	return Parse(string(content))
}

// Parse parses a rules document from a TOML string, filling each rule's
// Name from its table key and its RulePriority from the document default
// when left unset.
func Parse(content string) (Rules, error) {
	var doc Rules
	if _, err := toml.Decode(content, &doc); err != nil {
		return Rules{}, fmt.Errorf("classify: parse rules: %w", err)
	}

	for name, rule := range doc.Rules {
		rule.Name = name

		if rule.RulePriority == 0 {
			rule.RulePriority = defaultRulePriority
		}

		doc.Rules[name] = rule
	}

	return doc, nil
}

// Validate checks that every rule names a known kind and a complete set
// of parameters for that kind.
func (r Rules) Validate() error {
	for name, rule := range r.Rules {
		switch rule.Type {
		case KindPattern:
			if len(rule.Patterns) == 0 {
				return fmt.Errorf("classify: rule %q of type pattern has no patterns", name)
			}
		case KindExtension:
			if len(rule.Extensions) == 0 {
				return fmt.Errorf("classify: rule %q of type extension has no extensions", name)
			}
		case KindSize:
			if rule.MinBytes == nil && rule.MaxBytes == nil {
				return fmt.Errorf("classify: rule %q of type size has neither min_bytes nor max_bytes", name)
			}
		case KindAge:
			if rule.OlderThanDays == nil && rule.NewerThanDays == nil {
				return fmt.Errorf("classify: rule %q of type age has neither older_than_days nor newer_than_days", name)
			}
		case KindDuplicate:
			// keep_strategy only affects downstream planning, not matching.
		default:
			return fmt.Errorf("classify: rule %q has unknown type %q", name, rule.Type)
		}

		if rule.Category == "" {
			return fmt.Errorf("classify: rule %q has no category", name)
		}
	}

	return nil
}

// Sorted returns every rule ordered by rule_priority descending, breaking
// ties by name ascending so that repeated runs over the same document
// always agree.
func (r Rules) Sorted() []Rule {
	out := make([]Rule, 0, len(r.Rules))
	for _, rule := range r.Rules {
		out = append(out, rule)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].RulePriority != out[j].RulePriority {
			return out[i].RulePriority > out[j].RulePriority
		}

		return out[i].Name < out[j].Name
	})

	return out
}
