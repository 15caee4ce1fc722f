// Package scenario runs the featherweight benchmark scenarios one after
// another and collects a result for each, failed or not.
package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/weiihann/featherweight/codec"
	"github.com/weiihann/featherweight/dataset"
	"github.com/weiihann/featherweight/harness"
	"github.com/weiihann/featherweight/stats"
)

// Scenario names a benchmark and the dataset file it replays.
type Scenario struct {
	Name    string `mapstructure:"name" yaml:"name"`
	Dataset string `mapstructure:"dataset" yaml:"dataset"`
}

// Defaults returns the featherweight suite with dataset files resolved
// against dataDir.
func Defaults(dataDir string) []Scenario {
	return []Scenario{
		{
			Name:    "Featherweight::Common Flat BSON",
			Dataset: filepath.Join(dataDir, "FLAT_BSON.txt"),
		},
		{
			Name:    "Featherweight::Common Nested BSON",
			Dataset: filepath.Join(dataDir, "DEEP_BSON.txt"),
		},
		{
			Name:    "Featherweight::All BSON Types",
			Dataset: filepath.Join(dataDir, "FULL_BSON.txt"),
		},
	}
}

// Observer is notified after each scenario, outside the timed path.
type Observer interface {
	Observe(res harness.Result)
}

// Config controls how every scenario is executed.
type Config struct {
	Codec       codec.Codec
	CodecName   string
	Run         harness.RunConfig
	Percentiles []float64
	// SkipStats leaves Result.Summary empty.
	SkipStats bool
}

// Orchestrator executes scenarios sequentially.
type Orchestrator struct {
	cfg       Config
	logger    *slog.Logger
	observers []Observer
}

// NewOrchestrator creates an Orchestrator. Observers receive every
// result, including failed ones.
func NewOrchestrator(
	cfg Config,
	logger *slog.Logger,
	observers ...Observer,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		logger:    logger,
		observers: observers,
	}
}

// Run executes each scenario in order. A failing scenario is recorded
// and the next one still runs. Once ctx is done the remaining scenarios
// are recorded as failed without being attempted.
func (o *Orchestrator) Run(ctx context.Context, scenarios []Scenario) harness.Run {
	run := harness.Run{
		ID:      uuid.NewString(),
		Started: time.Now().UTC(),
		Results: make([]harness.Result, 0, len(scenarios)),
	}

	o.logger.InfoContext(ctx, "starting scenarios",
		slog.String("run_id", run.ID),
		slog.Int("scenarios", len(scenarios)),
		slog.String("codec", o.cfg.CodecName),
	)

	for _, sc := range scenarios {
		res := harness.Result{
			Scenario: sc.Name,
			Dataset:  sc.Dataset,
			Codec:    o.cfg.CodecName,
		}

		if err := ctx.Err(); err != nil {
			res.Error = fmt.Sprintf("not started: %v", err)
		} else if err := o.runOne(ctx, sc, &res); err != nil {
			res.Error = err.Error()
		}

		if res.Failed() {
			o.logger.ErrorContext(ctx, "scenario failed",
				slog.String("scenario", sc.Name),
				slog.String("error", res.Error),
			)
		}

		for _, obs := range o.observers {
			obs.Observe(res)
		}

		run.Results = append(run.Results, res)
	}

	return run
}

func (o *Orchestrator) runOne(
	ctx context.Context,
	sc Scenario,
	res *harness.Result,
) error {
	ds, err := dataset.LoadDocuments(sc.Dataset)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	res.Documents = len(ds)

	runner := harness.NewRunner(sc.Name, o.logger)

	scores, err := runner.Run(ctx, ds, o.cfg.Codec, o.cfg.Run)
	if err != nil {
		return err
	}

	res.Scores = scores

	if o.cfg.SkipStats {
		return nil
	}

	summary, err := stats.Summarize(scores, o.cfg.Percentiles)
	if err != nil {
		return fmt.Errorf("statistics: %w", err)
	}

	res.Summary = &summary

	return nil
}
