package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"anthemengine/internal/records"
)

// ── JSON File Source ────────────────────────────────────────
// Reads records from a local fixture file shaped as
// { "<Object>": [ {...}, ... ] }. Used for offline generation.

type jsonFileSource struct{}

func init() { records.RegisterSource(&jsonFileSource{}) }

func (s *jsonFileSource) Spec() records.SourceSpec {
	return records.SourceSpec{
		Type:  "json_file",
		Label: "JSON File",
		ConfigFields: []records.ConfigField{
			{Key: "filePath", Label: "File Path", Required: true, Help: "Path to the JSON fixture file"},
			{Key: "dataPath", Label: "Data Path", Help: "Dot-separated path to the object map (e.g., 'data'). Leave empty if the root holds the objects."},
		},
	}
}

func (s *jsonFileSource) Fetch(ctx context.Context, cfg records.SourceConfig, q records.Query) ([]records.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	objects, err := readJSONFile(cfg)
	if err != nil {
		return nil, err
	}
	return selectRecords(toRecords(objects[q.Object]), q), nil
}

func readJSONFile(cfg records.SourceConfig) (map[string]any, error) {
	filePath, _ := cfg["filePath"].(string)
	if filePath == "" {
		return nil, fmt.Errorf("filePath is required")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var raw any
	if err := decodeJSON(data, &raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	// Navigate to dataPath if specified.
	if dataPath, ok := cfg["dataPath"].(string); ok && dataPath != "" {
		for _, part := range strings.Split(dataPath, ".") {
			m, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("invalid data path: %q not found", part)
			}
			raw = m[part]
		}
	}

	objects, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("fixture root must be an object keyed by object name")
	}
	return objects, nil
}

// decodeJSON keeps numbers as json.Number so integer ids survive intact.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	return dec.Decode(v)
}
