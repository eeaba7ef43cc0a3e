package batch

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/twinfer/spring-codec/pkg/springfile"
)

type summaryStyles struct {
	ok    lipgloss.Style
	fail  lipgloss.Style
	muted lipgloss.Style
	total lipgloss.Style
}

func newSummaryStyles(w io.Writer) summaryStyles {
	r := lipgloss.NewRenderer(w)
	return summaryStyles{
		ok:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		fail:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		muted: r.NewStyle().Foreground(lipgloss.Color("8")),
		total: r.NewStyle().Bold(true),
	}
}

// WriteSummary prints one line per file and a closing tally. Verbose adds the
// structural diagnostics of each converted file.
func (r *Report) WriteSummary(w io.Writer, verbose bool) error {
	styles := newSummaryStyles(w)
	var sb strings.Builder

	for _, o := range r.Outcomes {
		if o.Err != nil {
			fmt.Fprintf(&sb, "%s %s: %v\n", styles.fail.Render("FAIL"), o.Input, o.Err)
			continue
		}
		fmt.Fprintf(&sb, "%s   %s -> %s\n", styles.ok.Render("OK"), o.Input, strings.Join(o.Outputs, ", "))
		if verbose && o.Result != nil && o.Result.Diagnostics != nil {
			for _, line := range diagnosticLines(o.Result.Diagnostics) {
				sb.WriteString("     " + styles.muted.Render(line) + "\n")
			}
		}
	}

	failed := r.Failed()
	tally := fmt.Sprintf("%d files: %d succeeded, %d failed", len(r.Outcomes), len(r.Outcomes)-failed, failed)
	sb.WriteString(styles.total.Render(tally) + "\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func diagnosticLines(d *springfile.Diagnostics) []string {
	lines := []string{fmt.Sprintf("tokens=%d header=%d setup=%d rows=%d extra=%d",
		d.Tokens, d.HeaderTokens, d.SetupTokens, d.Rows, d.ExtraTokens)}
	if len(d.UnknownCodes) > 0 {
		lines = append(lines, "unknown codes: "+strings.Join(d.UnknownCodes, ", "))
	}
	if len(d.Unmatched) > 0 {
		lines = append(lines, fmt.Sprintf("unmatched header tokens: %q", d.Unmatched))
	}
	if len(d.DanglingRefs) > 0 {
		lines = append(lines, "dangling references: "+strings.Join(d.DanglingRefs, ", "))
	}
	if d.RoundTripSame != nil {
		if *d.RoundTripSame {
			lines = append(lines, "round trip: identical")
		} else {
			lines = append(lines, "round trip: differs")
		}
	}
	for _, note := range d.Notes {
		lines = append(lines, "note: "+note)
	}
	return lines
}
