package anthem

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// DefaultSampleBudget is the per-record sample budget: three seconds at 44.1 kHz.
const DefaultSampleBudget = 3 * 44100

// Composer runs the stream builder and synthesizer for each record kind.
// A Composer holds configuration only and is safe for concurrent use.
type Composer struct {
	// Budget is the total sample budget per record kind, indexed like Kinds.
	Budget [3]int
	Logger logrus.FieldLogger
}

// NewComposer returns a Composer using budget for every record kind.
// A nil logger discards output.
func NewComposer(budget int, logger logrus.FieldLogger) *Composer {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Composer{
		Budget: [3]int{budget, budget, budget},
		Logger: logger.WithField("component", "composer"),
	}
}

// Compose builds the Anthem for id from the three inputs.
//
// The output always has exactly three channels in the order primary,
// secondary, related; a record with no data still yields a channel.
// Schema errors are reported before any encoding starts.
func (c *Composer) Compose(id string, in Inputs) (res *Result, err error) {
	inputs := in.byKind()
	for i, input := range inputs {
		if verr := validate(input.Schema, c.Budget[i]); verr != nil {
			verr.(*SchemaError).Kind = Kinds[i]
			return nil, verr
		}
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, &InternalError{Op: "compose " + id, Err: fmt.Errorf("%v", r)}
		}
	}()

	log := c.Logger.WithField("id", id)
	res = &Result{Anthem: &Anthem{ID: id, Channels: make([]Channel, 0, len(Kinds))}}

	for i, input := range inputs {
		kind := Kinds[i]
		stream, warnings, err := BuildStream(input.Fields, input.Schema, c.Budget[i])
		if err != nil {
			return nil, &InternalError{Op: "build " + string(kind) + " stream", Err: err}
		}
		for _, w := range warnings {
			w.Kind = kind
			log.WithField("kind", kind).Warnf("failed to process field %s: %v", w.Field, w.Err)
			res.Diagnostics.Warnings = append(res.Diagnostics.Warnings, w)
		}
		res.Diagnostics.StreamLength[i] = len(stream)
		res.Anthem.Channels = append(res.Anthem.Channels, Synthesize(stream))
	}

	res.Diagnostics.Max, res.Diagnostics.Min = Extrema(res.Anthem.Channels)
	log.WithFields(logrus.Fields{
		"primary":   res.Diagnostics.StreamLength[0],
		"secondary": res.Diagnostics.StreamLength[1],
		"related":   res.Diagnostics.StreamLength[2],
		"samples":   len(res.Anthem.Channels[0]),
		"max":       res.Diagnostics.Max,
		"min":       res.Diagnostics.Min,
	}).Debug("composed anthem")

	return res, nil
}
