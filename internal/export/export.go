// Package export writes query results to CSV or JSON files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glacierhq/glacier/internal/warehouse"
)

// Format is a supported output format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(name)) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported export format %q (csv, json)", name)
}

// WriteCSV writes the result as CSV with a header row. Null values are
// written as empty cells.
func WriteCSV(w io.Writer, result *warehouse.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(result.Columns); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, row := range result.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = cellString(v, "")
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the result as an array of column-keyed objects.
func WriteJSON(w io.Writer, result *warehouse.Result) error {
	records := make([]map[string]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		record := make(map[string]any, len(result.Columns))
		for i, col := range result.Columns {
			var v any
			if i < len(row) {
				v = row[i]
			}
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			record[col] = v
		}
		records = append(records, record)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// ToFile writes the result to path in the given format, creating
// parent directories as needed.
func ToFile(path string, result *warehouse.Result, format Format) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer func() { _ = f.Close() }()

	switch format {
	case FormatCSV:
		return WriteCSV(f, result)
	case FormatJSON:
		return WriteJSON(f, result)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// DefaultFileName returns a timestamped export file name.
func DefaultFileName(format Format, now time.Time) string {
	return fmt.Sprintf("glacier_export_%s.%s", now.Format("20060102_150405"), format)
}

// cellString renders one value for textual output, using nullString
// for nil.
func cellString(v any, nullString string) string {
	switch val := v.(type) {
	case nil:
		return nullString
	case []byte:
		return string(val)
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// CellString renders one value the way the terminal table does, with
// the configured null placeholder.
func CellString(v any, nullString string) string {
	return cellString(v, nullString)
}
