package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/weiihann/featherweight/codec"
	"github.com/weiihann/featherweight/dataset"
)

// ErrInvalidRepetitions is returned when a run asks for no timed
// repetitions.
var ErrInvalidRepetitions = errors.New("repetitions must be at least 1")

// CodecError reports the document on which the codec failed.
type CodecError struct {
	Index int
	Op    string
	Err   error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("%s document %d: %v", e.Op, e.Index, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// RunConfig holds parameters for a scored run.
type RunConfig struct {
	// Repetitions is the number of timed sweeps, one score each.
	Repetitions int
	// Warmup is the number of untimed sweeps before the first timed one.
	Warmup int
}

// Runner executes round-trip sweeps for a single scenario.
type Runner struct {
	Name   string
	Logger *slog.Logger
}

// NewRunner creates a Runner for the named scenario.
func NewRunner(name string, logger *slog.Logger) *Runner {
	return &Runner{
		Name:   name,
		Logger: logger.With(slog.String("scenario", name)),
	}
}

// RoundTrip encodes and then decodes every document of ds in order and
// returns the elapsed wall-clock seconds for the whole sweep. Decoded
// documents are discarded. The sweep stops at the first codec failure.
func (r *Runner) RoundTrip(ds dataset.Dataset, c codec.Codec) (float64, error) {
	start := time.Now()

	for i, doc := range ds {
		data, err := c.Encode(doc)
		if err != nil {
			return 0, &CodecError{Index: i, Op: "encode", Err: err}
		}

		if _, err := c.Decode(data); err != nil {
			return 0, &CodecError{Index: i, Op: "decode", Err: err}
		}
	}

	return time.Since(start).Seconds(), nil
}

// Run performs cfg.Warmup untimed sweeps followed by cfg.Repetitions
// timed sweeps and returns one score per timed sweep.
func (r *Runner) Run(
	ctx context.Context,
	ds dataset.Dataset,
	c codec.Codec,
	cfg RunConfig,
) ([]float64, error) {
	if cfg.Repetitions < 1 {
		return nil, fmt.Errorf("run %s: %w", r.Name, ErrInvalidRepetitions)
	}

	r.Logger.DebugContext(ctx, "warming up",
		slog.Int("documents", len(ds)),
		slog.Int("warmup", cfg.Warmup),
	)

	for i := 0; i < cfg.Warmup; i++ {
		if _, err := r.RoundTrip(ds, c); err != nil {
			return nil, fmt.Errorf("warmup %d: %w", i, err)
		}
	}

	scores := make([]float64, 0, cfg.Repetitions)

	for i := 0; i < cfg.Repetitions; i++ {
		// Collect garbage from earlier sweeps outside the timing window.
		runtime.GC()

		score, err := r.RoundTrip(ds, c)
		if err != nil {
			return nil, fmt.Errorf("repetition %d: %w", i, err)
		}

		r.Logger.DebugContext(ctx, "repetition finished",
			slog.Int("repetition", i),
			slog.Float64("seconds", score),
		)

		scores = append(scores, score)
	}

	r.Logger.InfoContext(ctx, "round trips finished",
		slog.Int("documents", len(ds)),
		slog.Int("repetitions", cfg.Repetitions),
	)

	return scores, nil
}
