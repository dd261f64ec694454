package domain

import "time"

// GenerationMode selects how anthem samples are produced.
type GenerationMode string

const (
	ModePipeline    GenerationMode = "pipeline"
	ModePlaceholder GenerationMode = "placeholder"
)

// AnthemRun is a persisted anthem generation.
type AnthemRun struct {
	ID                string         `json:"id"`
	OpportunityID     string         `json:"opportunityId"`
	Mode              GenerationMode `json:"mode"`
	SourceType        string         `json:"sourceType,omitempty"`
	ChannelCount      int            `json:"channelCount"`
	SamplesPerChannel int            `json:"samplesPerChannel"`
	Max               float64        `json:"max"`
	Min               float64        `json:"min"`
	Warnings          []string       `json:"warnings,omitempty"`
	Channels          [][]float64    `json:"anthemData,omitempty"`
	DurationMs        int            `json:"durationMs"`
	CreatedAt         time.Time      `json:"createdAt"`
}
