package prompts

import (
	"fmt"
	"io"
	"strings"

	"anthemengine/internal/domain"
	"anthemengine/internal/export"
)

// channelNames labels channels in kind order.
var channelNames = [...]string{"opportunity", "line item", "account"}

// PrintAnthem prints the channel analysis of run, summarising the first
// window samples of every channel.
func PrintAnthem(w io.Writer, run *domain.AnthemRun, window int) {
	_, _ = fmt.Fprintln(w, headerStyle.Render("Anthem Data Analysis"))
	_, _ = fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Opportunity ID:"), run.OpportunityID)
	_, _ = fmt.Fprintf(w, "  %s %d\n", labelStyle.Render("Number of channels:"), len(run.Channels))
	_, _ = fmt.Fprintf(w, "  %s %.4f to %.4f\n", labelStyle.Render("Overall range:"), run.Min, run.Max)

	for i, ch := range run.Channels {
		st := export.ChannelStats(ch, window)
		name := fmt.Sprintf("Channel %d", i+1)
		if i < len(channelNames) {
			name += " (" + channelNames[i] + ")"
		}
		_, _ = fmt.Fprintf(w, "  %s %d values\n", labelStyle.Render(name+":"), st.Length)
		if st.Window == 0 {
			continue
		}
		_, _ = fmt.Fprintf(w, "    Sample range (first %d): %.4f to %.4f\n", st.Window, st.Min, st.Max)
		_, _ = fmt.Fprintf(w, "    Sample average: %.4f\n", st.Avg)
		_, _ = fmt.Fprintf(w, "    First %d values: %s\n", len(st.First), formatValues(st.First))
		_, _ = fmt.Fprintf(w, "    Last %d values: %s\n", len(st.Last), formatValues(st.Last))
	}

	for _, warn := range run.Warnings {
		_, _ = fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("warning:"), warn)
	}
}

func formatValues(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%.4f", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
