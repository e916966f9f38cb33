package surface

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/exotriage/exotriage/pkg/triage"
)

// TerminalRenderer renders results as colored terminal output. Verbose adds
// the task and reason of every role.
type TerminalRenderer struct {
	Verbose bool
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

func priorityColor(p triage.Priority) string {
	if noColor() {
		return ""
	}
	switch p {
	case triage.PriorityHigh:
		return colorRed
	case triage.PriorityMedium:
		return colorYellow
	case triage.PriorityStandard:
		return colorGreen
	default:
		return ""
	}
}

func noColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

func bold(s string) string {
	if noColor() {
		return s
	}
	return colorBold + s + colorReset
}

func dim(s string) string {
	if noColor() {
		return s
	}
	return colorDim + s + colorReset
}

func colored(s, color string) string {
	if noColor() || color == "" {
		return s
	}
	return color + s + colorReset
}

func (r *TerminalRenderer) Render(w io.Writer, page *Page) error {
	// Header
	header := fmt.Sprintf("exotriage: %d of %d candidates classified", page.Classified, page.TotalCandidates)
	if page.ModelVersion != "" {
		header += " (model " + page.ModelVersion + ")"
	}
	fmt.Fprintf(w, "%s\n", bold(header))
	var meta []string
	if page.Source != "" {
		meta = append(meta, page.Source)
	}
	if page.RunID != "" {
		meta = append(meta, "run "+page.RunID)
	}
	if len(meta) > 0 {
		fmt.Fprintf(w, "%s\n", dim(strings.Join(meta, "  ")))
	}
	fmt.Fprintln(w)

	s := page.Summary
	fmt.Fprintf(w, "Matched %d candidates, page %d of %d\n", page.TotalFiltered, page.Page, max(1, page.Pages))
	fmt.Fprintf(w, "Confirmed %d / false positive %d / habitable zone %d / avg score %.1f\n\n",
		s.ConfirmedPredictions, s.FalsePositivePredictions, s.HabitableZone, s.AvgPriorityScore)

	// Tiers
	fmt.Fprint(w, "Priority tiers:")
	for _, p := range triage.Priorities {
		fmt.Fprintf(w, "  %s %d", colored(string(p), priorityColor(p)), s.PriorityDistribution[p])
	}
	fmt.Fprint(w, "\n\n")

	// Roles
	if len(s.RoleBreakdown) > 0 {
		fmt.Fprintln(w, "Roles:")
		for _, rc := range s.RoleBreakdown {
			fmt.Fprintf(w, "  %-26s %4d  %s\n", rc.Role, rc.Count, dim(fmt.Sprintf("%.1f%%", rc.Percentage)))
		}
		fmt.Fprintln(w)
	}

	if len(page.Data) == 0 {
		fmt.Fprintln(w, "No candidates on this page.")
		fmt.Fprintln(w)
		return nil
	}

	fmt.Fprintln(w, "Candidates:")
	for i := range page.Data {
		r.candidate(w, &page.Data[i])
	}
	return nil
}

func (r *TerminalRenderer) RenderCandidate(w io.Writer, c *triage.Candidate) error {
	r.candidate(w, c)
	return nil
}

func (r *TerminalRenderer) candidate(w io.Writer, c *triage.Candidate) {
	name := c.ID
	if name == "" {
		name = fmt.Sprintf("#%d", c.Index+1)
	}
	inf := c.Inference
	line := fmt.Sprintf("  %s  score %3d  %s %.0f%%  R %.2f±%.2f R⊕  %s",
		bold(name), c.PriorityScore, c.Prediction, inf.ConfirmationProbability*100,
		inf.PredictedRadius, inf.RadiusUncertainty, c.SizeClass)
	if c.InHabitableZone {
		line += "  " + colored("HZ", colorCyan)
	}
	fmt.Fprintln(w, line)

	if len(c.Roles) == 0 {
		fmt.Fprintf(w, "      %s\n", dim("no follow-up roles"))
	}
	for _, ra := range c.Roles {
		fmt.Fprintf(w, "      %s %-8s %s — %s\n",
			colored("●", priorityColor(ra.Priority)), "["+string(ra.Priority)+"]", ra.Role, ra.Instrument)
		if !r.Verbose {
			continue
		}
		for _, text := range []string{ra.Task, ra.Reason} {
			for _, l := range wrapText(text, 70) {
				fmt.Fprintf(w, "          %s\n", dim(l))
			}
		}
		fmt.Fprintf(w, "          %s\n", dim("Deliverable: "+ra.Deliverable+" ("+ra.Timeline+")"))
	}
	fmt.Fprintln(w)
}

// wrapText wraps a string at the given width, returning lines.
func wrapText(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]

	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
		} else {
			current += " " + word
		}
	}
	lines = append(lines, current)
	return lines
}
