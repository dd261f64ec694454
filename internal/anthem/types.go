package anthem

// RecordKind identifies which input record a channel was built from.
type RecordKind string

const (
	KindPrimary   RecordKind = "primary"
	KindSecondary RecordKind = "secondary"
	KindRelated   RecordKind = "related"
)

// Kinds lists the record kinds in channel order.
var Kinds = [...]RecordKind{KindPrimary, KindSecondary, KindRelated}

// FieldMap maps a field name to its value: a number, a bool, a string, any
// other present value, or nil when absent.
type FieldMap map[string]any

// FieldSchema is the ordered list of fields that participate in encoding.
type FieldSchema []string

// Tuple is the numeric pair derived from one field occurrence.
type Tuple struct {
	NameLength int
	Value      float64
}

// TupleStream is the ordered tuple sequence for one record kind.
type TupleStream []Tuple

// Channel is one synthesized sample sequence.
type Channel []float64

// Anthem is the pipeline's output: channels in kind order plus the caller's identifier.
type Anthem struct {
	ID       string    `json:"opportunityId"`
	Channels []Channel `json:"anthemData"`
}

// Input pairs a record with the schema that selects its fields.
// A nil Fields map is an all-absent record.
type Input struct {
	Fields FieldMap
	Schema FieldSchema
}

// Inputs holds the three records composed into an Anthem.
type Inputs struct {
	Primary   Input
	Secondary Input
	Related   Input
}

func (in Inputs) byKind() [3]Input {
	return [3]Input{in.Primary, in.Secondary, in.Related}
}

// Diagnostics is side-channel information about a composition.
// It is never required for correctness.
type Diagnostics struct {
	Max          float64           `json:"max"`
	Min          float64           `json:"min"`
	StreamLength [3]int            `json:"streamLength"`
	Warnings     []EncodingWarning `json:"warnings,omitempty"`
}

// Result bundles an Anthem with its diagnostics.
type Result struct {
	Anthem      *Anthem
	Diagnostics Diagnostics
}
