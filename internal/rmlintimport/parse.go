// Package rmlintimport parses newline-delimited JSON lint reports from an
// external duplicate-finding tool and materializes them as catalog duplicate
// groups and trash candidates.
package rmlintimport

import (
	"encoding/json"
	"os"
	"strings"
)

// Lint type values, matching the external tool's own lowercase spellings.
const (
	LintDuplicateFile = "duplicate_file"
	LintDuplicateDir  = "duplicate_dir"
	LintEmptyDir      = "emptydir"
	LintEmptyFile     = "emptyfile"
	LintNonStripped   = "nonstripped"
	LintBadLink       = "badlink"
	LintBadUID        = "baduid"
	LintBadGID        = "badgid"
	LintOther         = "other"
)

// Lint is one decoded line of the tool's NDJSON report.
type Lint struct {
	Type       string   `json:"type"`
	Path       string   `json:"path"`
	Size       int64    `json:"size"`
	Checksum   *string  `json:"checksum,omitempty"`
	IsOriginal bool     `json:"is_original,omitempty"`
	Depth      *int     `json:"depth,omitempty"`
	Inode      *int64   `json:"inode,omitempty"`
	DiskID     *int64   `json:"disk_id,omitempty"`
	MTime      *float64 `json:"mtime,omitempty"`
}

// Group is a checksum-equivalence class extracted from a parsed report.
type Group struct {
	Hash        string
	Files       []Lint
	TotalSize   int64
	OriginalIdx int // -1 when no member is marked original
}

// Statistics summarizes a parsed report's lint counts.
type Statistics struct {
	DuplicateFiles  int
	DuplicateGroups int
	DuplicateSize   int64
	EmptyFiles      int
	EmptyDirs       int
	OtherLints      int
}

// Parser accumulates lints decoded from one or more NDJSON sources.
type Parser struct {
	lints []Lint
}

// New returns an empty Parser.
func New() *Parser {
	return &Parser{}
}

// ParseFile reads and parses path's contents.
func (p *Parser) ParseFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return p.ParseString(string(content))
}

// ParseString parses content line by line. Blank lines and "//"-prefixed
// comment lines are skipped; a line that fails to decode is silently
// dropped rather than treated as a fatal error, since one malformed entry
// should never sink an entire report.
func (p *Parser) ParseString(content string) error {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		var lint Lint
		if err := json.Unmarshal([]byte(line), &lint); err != nil {
			continue
		}

		p.lints = append(p.lints, lint)
	}

	return nil
}

// Lints returns every lint parsed so far.
func (p *Parser) Lints() []Lint {
	return p.lints
}

// ExtractGroups groups duplicate_file lints by checksum, discarding groups
// with fewer than two members.
func (p *Parser) ExtractGroups() []Group {
	byHash := make(map[string][]Lint)

	for _, l := range p.lints {
		if l.Type != LintDuplicateFile || l.Checksum == nil {
			continue
		}

		byHash[*l.Checksum] = append(byHash[*l.Checksum], l)
	}

	groups := make([]Group, 0, len(byHash))

	for hash, files := range byHash {
		if len(files) < 2 {
			continue
		}

		originalIdx := -1

		for i, f := range files {
			if f.IsOriginal {
				originalIdx = i
				break
			}
		}

		var totalSize int64
		if len(files) > 0 {
			totalSize = files[0].Size
		}

		groups = append(groups, Group{Hash: hash, Files: files, TotalSize: totalSize, OriginalIdx: originalIdx})
	}

	return groups
}

// HasCrossDriveDuplicates reports whether any extracted group spans more
// than one disk_id value.
func (p *Parser) HasCrossDriveDuplicates() bool {
	for _, g := range p.ExtractGroups() {
		seen := make(map[int64]struct{})

		for _, f := range g.Files {
			if f.DiskID == nil {
				continue
			}

			seen[*f.DiskID] = struct{}{}
		}

		if len(seen) > 1 {
			return true
		}
	}

	return false
}

// Statistics summarizes the parsed lints.
func (p *Parser) Statistics() Statistics {
	var stats Statistics

	for _, l := range p.lints {
		switch l.Type {
		case LintDuplicateFile:
			stats.DuplicateFiles++

			if !l.IsOriginal {
				stats.DuplicateSize += l.Size
			}
		case LintEmptyFile:
			stats.EmptyFiles++
		case LintEmptyDir:
			stats.EmptyDirs++
		default:
			stats.OtherLints++
		}
	}

	stats.DuplicateGroups = len(p.ExtractGroups())

	return stats
}

// ParseOutput is a convenience wrapper around New + ParseFile.
func ParseOutput(path string) (*Parser, error) {
	p := New()
	if err := p.ParseFile(path); err != nil {
		return nil, err
	}

	return p, nil
}
