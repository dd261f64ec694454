package prompts

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"anthemengine/internal/domain"
)

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	PrintResult(&buf, []ResultField{{Label: "Source", Value: "crm"}}, "Source added")

	out := buf.String()
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "Source:")
	assert.Contains(t, out, "crm")
	assert.Contains(t, out, "Source added")
}

func TestPrintAnthem(t *testing.T) {
	run := &domain.AnthemRun{
		OpportunityID: "006A",
		Max:           2,
		Min:           -1,
		Channels:      [][]float64{{1, 2, -1, 0, 0.5, 0.25}, {}, {0}},
		Warnings:      []string{`primary field "Amount": value is NaN`},
	}
	var buf bytes.Buffer
	PrintAnthem(&buf, run, 3)

	out := buf.String()
	assert.Contains(t, out, "Opportunity ID: 006A")
	assert.Contains(t, out, "Number of channels: 3")
	assert.Contains(t, out, "Channel 1 (opportunity): 6 values")
	assert.Contains(t, out, "Sample range (first 3): -1.0000 to 2.0000")
	assert.Contains(t, out, "Sample average: 0.6667")
	assert.Contains(t, out, "First 5 values: [1.0000, 2.0000, -1.0000, 0.0000, 0.5000]")
	assert.Contains(t, out, "Last 5 values: [2.0000, -1.0000, 0.0000, 0.5000, 0.2500]")
	assert.Contains(t, out, "Channel 2 (line item): 0 values")
	assert.Contains(t, out, "value is NaN")
}

func TestValidators(t *testing.T) {
	v := identifierValidator(map[string]struct{}{"crm": {}})
	assert.NoError(t, v("crm_prod-2"))
	assert.EqualError(t, v(""), "name is required")
	assert.EqualError(t, v("9lives"), "must start with letter or underscore")
	assert.EqualError(t, v("crm"), `"crm" already exists`)

	assert.EqualError(t, requiredValidator("host")(""), "host is required")
	assert.NoError(t, portValidator(""))
	assert.NoError(t, portValidator("5432"))
	assert.Error(t, portValidator("70000"))
}
