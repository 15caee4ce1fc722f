// Package report formats benchmark runs for humans and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/weiihann/featherweight/harness"
)

// Formats lists the accepted output formats.
func Formats() []string {
	return []string{"text", "json", "yaml"}
}

// Write renders run in the named format.
func Write(w io.Writer, format string, run harness.Run) error {
	switch format {
	case "text":
		return Generate(w, run)
	case "json":
		return GenerateJSON(w, run)
	case "yaml":
		return GenerateYAML(w, run)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// Generate writes one block per scenario followed by a markdown
// summary table.
func Generate(w io.Writer, run harness.Run) error {
	if len(run.Results) == 0 {
		return fmt.Errorf("no results to report")
	}

	fmt.Fprintln(w, "## Featherweight Results")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Run %s started %s\n", run.ID,
		run.Started.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintln(w)

	for _, r := range run.Results {
		writeBlock(w, r)
	}

	fmt.Fprintln(w, "| Scenario | Docs | Runs | Composite | Median | Min | Max | Status |")
	fmt.Fprintln(w, "|----------|------|------|-----------|--------|-----|-----|--------|")

	for _, r := range run.Results {
		status := "ok"
		if r.Failed() {
			status = "FAILED"
		}

		composite, median, lo, hi := "-", "-", "-", "-"
		if r.Summary != nil {
			composite = formatSeconds(r.Summary.Composite)
			median = formatSeconds(r.Summary.Median)
			lo = formatSeconds(r.Summary.Min)
			hi = formatSeconds(r.Summary.Max)
		}

		fmt.Fprintf(w, "| %s | %d | %d | %s | %s | %s | %s | %s |\n",
			r.Scenario,
			r.Documents,
			len(r.Scores),
			composite,
			median,
			lo,
			hi,
			status,
		)
	}

	if n := run.Failures(); n > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%d of %d scenarios failed\n", n, len(run.Results))
	}

	return nil
}

func writeBlock(w io.Writer, r harness.Result) {
	fmt.Fprintf(w, "### %s\n", r.Scenario)
	fmt.Fprintf(w, "dataset: %s (%d documents, codec %s)\n",
		r.Dataset, r.Documents, r.Codec)

	if len(r.Scores) > 0 {
		timings := make([]string, len(r.Scores))
		for i, s := range r.Scores {
			timings[i] = formatSeconds(s)
		}

		fmt.Fprintf(w, "timings: %s\n", strings.Join(timings, " "))
	}

	if r.Summary != nil {
		fmt.Fprintf(w, "composite: %s  median: %s",
			formatSeconds(r.Summary.Composite),
			formatSeconds(r.Summary.Median),
		)

		for _, p := range r.Summary.Percentiles {
			fmt.Fprintf(w, "  p%s: %s", formatPercent(p.P), formatSeconds(p.Value))
		}

		fmt.Fprintln(w)
	}

	if r.Failed() {
		fmt.Fprintf(w, "FAILED: %s\n", r.Error)
	}

	fmt.Fprintln(w)
}

// GenerateJSON writes run as indented JSON to w.
func GenerateJSON(w io.Writer, run harness.Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(run)
}

// GenerateYAML writes run as YAML to w.
func GenerateYAML(w io.Writer, run harness.Run) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(run); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	return enc.Close()
}

func formatSeconds(s float64) string {
	switch {
	case s < 1e-3:
		return fmt.Sprintf("%.1fµs", s*1e6)
	case s < 1:
		return fmt.Sprintf("%.2fms", s*1e3)
	default:
		return fmt.Sprintf("%.3fs", s)
	}
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
