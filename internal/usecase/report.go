package usecase

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// ModelReport aggregates one backend's comparison output over a chapter.
type ModelReport struct {
	Model   string
	Plain   string
	Elapsed time.Duration
	Success bool
}

// reportWordLimit bounds excerpts in the comparison report.
const reportWordLimit = 1000

// WriteComparisonReport renders the side-by-side markdown: a truncated
// original excerpt, each model's excerpt sorted by elapsed time, and a
// timing summary table.
func WriteComparisonReport(w io.Writer, original string, reports []ModelReport) error {
	sorted := make([]ModelReport, len(reports))
	copy(sorted, reports)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Elapsed < sorted[j].Elapsed
	})

	var b strings.Builder
	b.WriteString("# Model Comparison - Chapter Output\n\n")
	b.WriteString("## Original (truncated)\n\n```\n")
	b.WriteString(truncateText(original, reportWordLimit))
	b.WriteString("\n```\n\n")

	for _, r := range sorted {
		status := "failed"
		if r.Success {
			status = "success"
		}
		fmt.Fprintf(&b, "## %s - %.1fs (%s)\n\n", r.Model, r.Elapsed.Seconds(), status)
		if r.Success {
			b.WriteString("```\n")
			b.WriteString(truncateText(r.Plain, reportWordLimit))
			b.WriteString("\n```\n\n")
		} else {
			b.WriteString("*Translation failed*\n\n")
		}
	}

	b.WriteString("## Timing Summary\n\n")
	b.WriteString("| Model | Time (s) | Status |\n")
	b.WriteString("|-------|----------|--------|\n")
	for _, r := range sorted {
		status := "failed"
		if r.Success {
			status = "success"
		}
		fmt.Fprintf(&b, "| %s | %.1f | %s |\n", r.Model, r.Elapsed.Seconds(), status)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// truncateText limits text to wordLimit words, preferring to cut at the last
// sentence end when that keeps at least half of the excerpt.
func truncateText(text string, wordLimit int) string {
	words := strings.Fields(strings.TrimSpace(text))
	if len(words) <= wordLimit {
		return strings.Join(words, " ")
	}

	truncated := strings.Join(words[:wordLimit], " ")

	last := -1
	for _, ending := range []string{".", "!", "?", "..."} {
		if pos := strings.LastIndex(truncated, ending); pos > last {
			last = pos
		}
	}
	if last > len(truncated)/2 {
		return truncated[:last+1]
	}
	return truncated + "..."
}
