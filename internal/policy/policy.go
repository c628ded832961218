// Package policy loads the TOML policy document that drives unattended
// operation and translates it into planner invocations.
package policy

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/prune-dev/prune/internal/catalog"
)

// Scope narrows which drives and paths a policy's plans draw files from.
type Scope struct {
	IncludeDrives []string `toml:"include_drives"`
	ExcludeDrives []string `toml:"exclude_drives"`
	IncludePaths  []string `toml:"include_paths"`
	ExcludePaths  []string `toml:"exclude_paths"`
}

// Classification sets policy-wide classification defaults.
type Classification struct {
	DefaultPriority string `toml:"default_priority"`
}

// Plan is one named entry of a policy's plans table.
type Plan struct {
	Type           string `toml:"type"`
	Description    string `toml:"description"`
	SourceDrive    string `toml:"source_drive"`
	TargetDrive    string `toml:"target_drive"`
	CategoryFilter string `toml:"category_filter"`
	DuplicateGroup *int64 `toml:"duplicate_group"`
	OriginalFile   *int64 `toml:"original_file"`
}

// Safety carries the operator-facing safety knobs. They are parsed into the
// Policy only; neither this package nor the policy run command reads or
// enforces require_approval, max_bytes_per_run or dry_run_only.
type Safety struct {
	RequireApproval bool   `toml:"require_approval"`
	MaxBytesPerRun  string `toml:"max_bytes_per_run"`
	DryRunOnly      bool   `toml:"dry_run_only"`
}

// Schedule carries the unattended-run cron trigger. It is parsed only; no
// scheduler in this module reads it.
type Schedule struct {
	Cron     string `toml:"cron"`
	Timezone string `toml:"timezone"`
}

// Policy is the parsed shape of one policy TOML document.
type Policy struct {
	Version        string          `toml:"version"`
	Name           string          `toml:"name"`
	Description    string          `toml:"description"`
	Scope          *Scope          `toml:"scope"`
	Classification *Classification `toml:"classification"`
	Plans          map[string]Plan `toml:"plans"`
	Safety         *Safety         `toml:"safety"`
	Schedule       *Schedule       `toml:"schedule"`
}

var validPlanTypes = map[string]bool{
	"delete-trash": true,
	"dedup":        true,
	"migrate":      true,
	"offload":      true,
}

var validPriorities = map[string]bool{
	catalog.PriorityCritical: true,
	catalog.PriorityNormal:   true,
	catalog.PriorityLow:      true,
	catalog.PriorityTrash:    true,
}

// Load reads and parses a policy document from path, without validating it.
func Load(path string) (Policy, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("policy: read %s: %w", path, err)
	}

	var p Policy
	if _, err := toml.Decode(string(content), &p); err != nil {
		return Policy{}, fmt.Errorf("policy: parse %s: %w", path, err)
	}

	return p, nil
}

// LoadAndValidate reads, parses, and validates a policy document.
func LoadAndValidate(path string) (Policy, error) {
	p, err := Load(path)
	if err != nil {
		return Policy{}, err
	}

	if err := p.Validate(); err != nil {
		return Policy{}, err
	}

	return p, nil
}

// Validate checks the fixed set of structural rules a policy must satisfy
// before any plan it names can be applied.
func (p Policy) Validate() error {
	if strings.TrimSpace(p.Version) == "" {
		return fmt.Errorf("policy: version cannot be empty")
	}

	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("policy: name cannot be empty")
	}

	if p.Classification != nil && p.Classification.DefaultPriority != "" {
		if !validPriorities[p.Classification.DefaultPriority] {
			return fmt.Errorf("policy: invalid default_priority %q", p.Classification.DefaultPriority)
		}
	}

	for name, plan := range p.Plans {
		if strings.TrimSpace(plan.Type) == "" {
			return fmt.Errorf("policy: plan %q has an empty type", name)
		}

		if !validPlanTypes[plan.Type] {
			return fmt.Errorf("policy: plan %q has invalid type %q (valid: delete-trash, dedup, migrate, offload)",
				name, plan.Type)
		}
	}

	return nil
}
