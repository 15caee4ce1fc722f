package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/weiihann/featherweight/harness"
	"github.com/weiihann/featherweight/stats"
)

func sampleRun() harness.Run {
	return harness.Run{
		ID:      "run-1",
		Started: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Results: []harness.Result{
			{
				Scenario:  "Featherweight::Common Flat BSON",
				Dataset:   "data/FLAT_BSON.txt",
				Codec:     "bson",
				Documents: 10000,
				Scores:    []float64{0.25, 0.5},
				Summary: &stats.Summary{
					Composite: 0.375,
					Median:    0.375,
					Min:       0.25,
					Max:       0.5,
					Percentiles: []stats.PercentileSummary{
						{P: 50, Value: 0.25},
					},
				},
			},
			{
				Scenario: "Featherweight::All BSON Types",
				Dataset:  "data/FULL_BSON.txt",
				Codec:    "bson",
				Error:    "load dataset: dataset not found",
			},
		},
	}
}

func TestGenerate(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(&buf, sampleRun()); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	output := buf.String()

	for _, want := range []string{
		"### Featherweight::Common Flat BSON",
		"### Featherweight::All BSON Types",
		"timings: 250.00ms 500.00ms",
		"composite: 375.00ms",
		"p50: 250.00ms",
		"FAILED: load dataset: dataset not found",
		"1 of 2 scenarios failed",
		"| Featherweight::Common Flat BSON | 10000 | 2 |",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q\n%s", want, output)
		}
	}
}

func TestGenerateEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(&buf, harness.Run{}); err == nil {
		t.Error("expected error for empty run")
	}
}

func TestGenerateJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := GenerateJSON(&buf, sampleRun()); err != nil {
		t.Fatalf("GenerateJSON failed: %v", err)
	}

	var parsed harness.Run
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if len(parsed.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(parsed.Results))
	}
	if parsed.Results[0].Summary == nil || parsed.Results[0].Summary.Composite != 0.375 {
		t.Errorf("summary = %+v, want composite 0.375", parsed.Results[0].Summary)
	}
	if parsed.Results[1].Error == "" {
		t.Error("expected error to survive JSON encoding")
	}
}

func TestGenerateYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := GenerateYAML(&buf, sampleRun()); err != nil {
		t.Fatalf("GenerateYAML failed: %v", err)
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}

	if parsed["id"] != "run-1" {
		t.Errorf("id = %v, want run-1", parsed["id"])
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, "csv", sampleRun()); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{0, "0.0µs"},
		{0.0000125, "12.5µs"},
		{0.0015, "1.50ms"},
		{0.25, "250.00ms"},
		{1, "1.000s"},
		{12.3456, "12.346s"},
	}

	for _, tt := range tests {
		got := formatSeconds(tt.input)
		if got != tt.want {
			t.Errorf("formatSeconds(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
