// Package harness times BSON encode/decode round trips over a loaded
// dataset.
package harness

import (
	"time"

	"github.com/weiihann/featherweight/stats"
)

// Result holds the outcome of one benchmark scenario.
type Result struct {
	Scenario  string         `json:"scenario" yaml:"scenario"`
	Dataset   string         `json:"dataset" yaml:"dataset"`
	Codec     string         `json:"codec" yaml:"codec"`
	Documents int            `json:"documents" yaml:"documents"`
	Scores    []float64      `json:"scores" yaml:"scores"`
	Summary   *stats.Summary `json:"summary,omitempty" yaml:"summary,omitempty"`
	Error     string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the scenario ended with an error.
func (r Result) Failed() bool {
	return r.Error != ""
}

// Run holds every scenario result of one orchestrator invocation.
type Run struct {
	ID      string    `json:"id" yaml:"id"`
	Started time.Time `json:"started" yaml:"started"`
	Results []Result  `json:"results" yaml:"results"`
}

// Failures returns the number of failed scenarios.
func (r Run) Failures() int {
	n := 0
	for _, res := range r.Results {
		if res.Failed() {
			n++
		}
	}

	return n
}
