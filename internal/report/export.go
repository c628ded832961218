package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/prune-dev/prune/internal/prerr"
)

// Format names accepted by Export.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// exportedDrive is the JSON export's per-drive shape. Unlike DriveSummary's
// nullable MountPath, its mount path is a plain string that is left out of
// the output when empty.
type exportedDrive struct {
	Label          string `json:"label"`
	Role           string `json:"role"`
	IsOnline       bool   `json:"is_online"`
	MountPath      string `json:"mount_path,omitempty"`
	Files          int64  `json:"files"`
	TotalBytes     int64  `json:"total_bytes"`
	DuplicateFiles int64  `json:"duplicate_files"`
	WastedBytes    int64  `json:"wasted_bytes"`
}

type exportedCategory struct {
	Category  string `json:"category"`
	FileCount int64  `json:"file_count"`
	TotalSize int64  `json:"total_bytes"`
}

type exportedDuplicates struct {
	Groups           int64 `json:"groups"`
	Files            int64 `json:"files"`
	WastedBytes      int64 `json:"wasted_bytes"`
	CrossDriveGroups int64 `json:"cross_drive_groups"`
}

type exportedReport struct {
	Drives      []exportedDrive    `json:"drives"`
	Categories  []exportedCategory `json:"categories"`
	Duplicates  exportedDuplicates `json:"duplicates"`
	GeneratedAt string             `json:"generated_at"`
}

// Export renders r in the given format, returning the encoded bytes.
// generatedAt is the caller-supplied timestamp (RFC3339), threaded in
// rather than read from time.Now so the renderer stays deterministic.
func Export(r Report, format string, generatedAt time.Time) ([]byte, error) {
	switch format {
	case FormatJSON:
		return exportJSON(r, generatedAt)
	case FormatCSV:
		return exportCSV(r)
	default:
		return nil, &prerr.ConfigError{Msg: fmt.Sprintf("unsupported export format %q, use %q or %q", format, FormatJSON, FormatCSV)}
	}
}

func exportJSON(r Report, generatedAt time.Time) ([]byte, error) {
	out := exportedReport{GeneratedAt: generatedAt.UTC().Format(time.RFC3339)}

	for _, d := range r.Drives {
		mountPath := ""
		if d.MountPath != nil {
			mountPath = *d.MountPath
		}

		out.Drives = append(out.Drives, exportedDrive{
			Label:          d.Label,
			Role:           d.Role,
			IsOnline:       d.IsOnline,
			MountPath:      mountPath,
			Files:          d.FileCount,
			TotalBytes:     d.TotalBytes,
			DuplicateFiles: d.DuplicateFileCount,
			WastedBytes:    d.DuplicateWasteBytes,
		})
	}

	for _, c := range r.Categories {
		out.Categories = append(out.Categories, exportedCategory{Category: c.Category, FileCount: c.FileCount, TotalSize: c.TotalSize})
	}

	out.Duplicates = exportedDuplicates{
		Groups:           r.Duplicates.GroupCount,
		Files:            r.Duplicates.TotalDuplicateFiles,
		WastedBytes:      r.Duplicates.TotalWasteBytes,
		CrossDriveGroups: r.Duplicates.CrossDriveGroups,
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}

	return data, nil
}

func exportCSV(r Report) ([]byte, error) {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Label", "Role", "Files", "TotalBytes", "DuplicateFiles", "WastedBytes"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, d := range r.Drives {
		row := []string{
			d.Label,
			d.Role,
			strconv.FormatInt(d.FileCount, 10),
			strconv.FormatInt(d.TotalBytes, 10),
			strconv.FormatInt(d.DuplicateFileCount, 10),
			strconv.FormatInt(d.DuplicateWasteBytes, 10),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row for drive %s: %w", d.Label, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return buf.Bytes(), nil
}
