package sources

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"anthemengine/internal/records"
)

// ── CSV File Source ─────────────────────────────────────────
// Reads each object from <dir>/<Object>.csv, e.g. a CRM report export.
// The first row holds the field names.

type csvFileSource struct{}

func init() { records.RegisterSource(&csvFileSource{}) }

func (s *csvFileSource) Spec() records.SourceSpec {
	return records.SourceSpec{
		Type:  "csv_file",
		Label: "CSV Files",
		ConfigFields: []records.ConfigField{
			{Key: "dir", Label: "Directory", Required: true, Help: "Directory holding one <Object>.csv per object"},
			{Key: "delimiter", Label: "Delimiter", Default: ",", Help: "Column delimiter (default: comma)"},
		},
	}
}

func (s *csvFileSource) Fetch(ctx context.Context, cfg records.SourceConfig, q records.Query) ([]records.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, _ := cfg["dir"].(string)
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	if q.Object == "" || strings.ContainsAny(q.Object, `/\`) {
		return nil, fmt.Errorf("invalid object name %q", q.Object)
	}

	path := filepath.Join(dir, q.Object+".csv")
	headers, rows, err := readCSVFile(path, cfg)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	recs := make([]records.Record, 0, len(rows))
	for _, row := range rows {
		data := make(map[string]any, len(headers))
		for j, h := range headers {
			if j >= len(row) {
				break
			}
			if v := inferCSVValue(row[j]); v != nil {
				data[h] = v
			}
		}
		recs = append(recs, records.Record{Data: data})
	}
	return selectRecords(recs, q), nil
}

func readCSVFile(path string, cfg records.SourceConfig) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	if delim, ok := cfg["delimiter"].(string); ok && len(delim) > 0 {
		reader.Comma = rune(delim[0])
	}
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}
	headers := rows[0]
	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return headers, rows[1:], nil
}

// inferCSVValue parses a cell as a number or bool; empty cells are absent.
// decimalLiteral matches plain numbers only. Codes with leading zeros and
// words such as "Infinity" or "NaN" stay strings.
var decimalLiteral = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?$`)

func inferCSVValue(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if decimalLiteral.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
