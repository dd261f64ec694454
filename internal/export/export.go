// Package export writes anthems in the formats the browser player and other
// tools load, and summarises channels for terminal output.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"anthemengine/internal/domain"
)

// Format selects the file layout written by WriteFile.
type Format string

const (
	FormatJS   Format = "js"
	FormatJSON Format = "json"
)

// ParseFormat accepts "js" or "json", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJS, FormatJSON:
		return f, nil
	case "":
		return FormatJS, nil
	default:
		return "", fmt.Errorf("export: unknown format %q (want js or json)", s)
	}
}

// Payload is the document the player consumes.
type Payload struct {
	AnthemData    [][]float64 `json:"anthemData"`
	OpportunityID string      `json:"opportunityId"`
}

// FromRun builds the player payload of a stored run.
func FromRun(run *domain.AnthemRun) Payload {
	return Payload{AnthemData: run.Channels, OpportunityID: run.OpportunityID}
}

// WriteJSON writes p as indented JSON followed by a newline.
func WriteJSON(w io.Writer, p Payload) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

// WriteJS writes p as a script assigning the global anthemData.
func WriteJS(w io.Writer, p Payload) error {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, "var anthemData = "); err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	_, err = io.WriteString(w, ";")
	return err
}

// WriteFile writes p to path in format f, creating parent directories.
// It returns the number of bytes written.
func WriteFile(path string, f Format, p Payload) (int64, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("export: create dir: %w", err)
		}
	}
	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	cw := &countingWriter{w: out}
	switch f {
	case FormatJSON:
		err = WriteJSON(cw, p)
	default:
		err = WriteJS(cw, p)
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return cw.n, fmt.Errorf("export: write %s: %w", path, err)
	}
	return cw.n, nil
}

// HumanSize renders a byte count like "1.2 MB".
func HumanSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
