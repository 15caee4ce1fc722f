// Package main provides the CLI entry point for featherweight, a BSON
// encode/decode round-trip benchmark.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/weiihann/featherweight/codec"
	"github.com/weiihann/featherweight/config"
	"github.com/weiihann/featherweight/conn"
	"github.com/weiihann/featherweight/dataset"
	"github.com/weiihann/featherweight/harness"
	"github.com/weiihann/featherweight/history"
	"github.com/weiihann/featherweight/metrics"
	"github.com/weiihann/featherweight/report"
	"github.com/weiihann/featherweight/scenario"
	"github.com/weiihann/featherweight/workload"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	root := newRootCmd(logger, level)
	if err := root.Execute(); err != nil {
		logger.Error("featherweight failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	root := &cobra.Command{
		Use:   "featherweight",
		Short: "BSON encode/decode round-trip benchmark",
		Long: `Featherweight measures the cost of encoding documents to BSON and
decoding them back over flat, deeply nested and all-types datasets, and
reports composite, median and percentile timings per scenario.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(logger, level))
	root.AddCommand(newGenerateCmd(logger))
	root.AddCommand(newInspectCmd())

	return root
}

func newRunCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var cfgFile string

	v := viper.New()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark scenarios",
		Long: `Load each scenario's dataset, time repeated encode/decode sweeps
over it and print a report. A failing scenario is reported and the
remaining scenarios still run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}

			lvl, err := config.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}

			level.Set(lvl)

			return runBenchmark(cmd.Context(), logger, cfg, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "",
		"Path to a YAML config file")
	flags.String("data-dir", "data",
		"Directory holding FLAT_BSON.txt, DEEP_BSON.txt and FULL_BSON.txt")
	flags.Int("repetitions", 5,
		"Timed sweeps per scenario")
	flags.Int("warmup", 1,
		"Untimed sweeps before timing starts")
	flags.StringSlice("percentiles", []string{"50", "90"},
		"Percentiles to report, e.g. 50,90,99")
	flags.Bool("skip-stats", false,
		"Report raw timings only")
	flags.String("format", "text",
		"Report format: text, json, yaml")
	flags.String("codec", "bson",
		"Codec: bson (full decode) or raw (lazy decode)")
	flags.String("log-level", "info",
		"Log level: debug, info, warn, error")
	flags.String("metrics-file", "",
		"Write Prometheus metrics to this textfile")
	flags.String("history-file", "",
		"Append run summaries to this file and compare with the previous run")
	flags.String("mongo-uri", "",
		"Optional MongoDB URI, connected once and kept off the timed path")

	bindings := map[string]string{
		"data_dir":     "data-dir",
		"repetitions":  "repetitions",
		"warmup":       "warmup",
		"percentiles":  "percentiles",
		"skip_stats":   "skip-stats",
		"format":       "format",
		"codec":        "codec",
		"log_level":    "log-level",
		"metrics_file": "metrics-file",
		"history_file": "history-file",
		"mongo.uri":    "mongo-uri",
	}

	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}

	return cmd
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
	out io.Writer,
) error {
	scenarios := cfg.ResolvedScenarios()

	logger.InfoContext(ctx, "starting benchmark",
		slog.Int("scenarios", len(scenarios)),
		slog.Int("repetitions", cfg.Repetitions),
		slog.Int("warmup", cfg.Warmup),
		slog.String("codec", cfg.Codec),
	)

	// Step 1: Connect the optional provider before any timing starts.
	if cfg.Mongo.URI != "" {
		provider, err := connectMongo(ctx, logger, cfg.Mongo)
		if err != nil {
			return err
		}

		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := provider.Close(closeCtx); err != nil {
				logger.Warn("failed to close mongo client",
					slog.String("error", err.Error()),
				)
			}
		}()
	}

	// Step 2: Run every scenario sequentially.
	c, err := codec.New(cfg.Codec)
	if err != nil {
		return err
	}

	var (
		observers []scenario.Observer
		recorder  *metrics.Recorder
	)

	if cfg.MetricsFile != "" {
		recorder = metrics.NewRecorder()
		observers = append(observers, recorder)
	}

	orch := scenario.NewOrchestrator(scenario.Config{
		Codec:     c,
		CodecName: cfg.Codec,
		Run: harness.RunConfig{
			Repetitions: cfg.Repetitions,
			Warmup:      cfg.Warmup,
		},
		Percentiles: cfg.Percentiles,
		SkipStats:   cfg.SkipStats,
	}, logger, observers...)

	run := orch.Run(ctx, scenarios)

	// Step 3: Report.
	if err := report.Write(out, cfg.Format, run); err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	// Step 4: Export metrics and history.
	if recorder != nil {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			return err
		}
	}

	if cfg.HistoryFile != "" {
		if err := recordHistory(ctx, logger, cfg.HistoryFile, run); err != nil {
			return err
		}
	}

	if n := run.Failures(); n > 0 {
		return fmt.Errorf("%d of %d scenarios failed", n, len(run.Results))
	}

	logger.InfoContext(ctx, "benchmark complete", slog.String("run_id", run.ID))

	return nil
}

func connectMongo(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.Mongo,
) (conn.Provider, error) {
	m, err := conn.Connect(ctx, conn.Config{
		URI:            cfg.URI,
		Database:       cfg.Database,
		Collection:     cfg.Collection,
		MaxPoolSize:    cfg.PoolSize,
		ConnectTimeout: 10 * time.Second,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := m.Ping(ctx); err != nil {
		_ = m.Close(ctx)

		return nil, err
	}

	return m, nil
}

func recordHistory(
	ctx context.Context,
	logger *slog.Logger,
	path string,
	run harness.Run,
) error {
	store, err := history.NewFileStore(path)
	if err != nil {
		return err
	}

	prev, err := store.LoadLatest()
	if err != nil {
		return err
	}

	curr := history.FromRun(run)

	if prev != nil {
		for _, c := range history.Compare(*prev, curr) {
			logger.InfoContext(ctx, "compared with previous run",
				slog.String("previous_run", prev.ID),
				slog.String("scenario", c.Scenario),
				slog.Float64("composite_diff_pct", c.CompositeDiff),
			)
		}
	}

	return store.Save(curr)
}

func newGenerateCmd(logger *slog.Logger) *cobra.Command {
	var (
		dataDir   string
		documents int
		fields    int
		depth     int
		seed      int64
		compress  bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the flat, deep and full datasets",
		Long: `Write deterministic FLAT_BSON, DEEP_BSON and FULL_BSON datasets into
the data directory, one Extended JSON document per line.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return generateDatasets(cmd.Context(), logger, generateConfig{
				dataDir:  dataDir,
				compress: compress,
				workload: workload.Config{
					Documents: documents,
					Fields:    fields,
					Depth:     depth,
					Seed:      seed,
				},
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&dataDir, "data-dir", "data",
		"Directory to write datasets into")
	flags.IntVar(&documents, "documents", 10000,
		"Documents per dataset")
	flags.IntVar(&fields, "fields", 100,
		"Fields per flat document")
	flags.IntVar(&depth, "depth", 8,
		"Nesting depth of deep documents")
	flags.Int64Var(&seed, "seed", 0,
		"Random seed (0 = use current time)")
	flags.BoolVar(&compress, "zstd", false,
		"Write zstd-compressed .zst files")

	return cmd
}

type generateConfig struct {
	dataDir  string
	compress bool
	workload workload.Config
}

func generateDatasets(
	ctx context.Context,
	logger *slog.Logger,
	cfg generateConfig,
) error {
	if cfg.workload.Seed == 0 {
		cfg.workload.Seed = time.Now().UnixNano()
	}

	if err := dataset.EnsureDirectory(cfg.dataDir); err != nil {
		return err
	}

	for _, kind := range workload.Kinds() {
		ds, err := workload.NewGenerator(cfg.workload).Generate(kind)
		if err != nil {
			return fmt.Errorf("generate %s: %w", kind, err)
		}

		path := filepath.Join(cfg.dataDir, workload.FileName(kind))
		if cfg.compress {
			path += ".zst"
		}

		if err := dataset.SaveDocuments(path, ds); err != nil {
			return fmt.Errorf("save %s: %w", kind, err)
		}

		logger.InfoContext(ctx, "dataset generated",
			slog.String("kind", kind),
			slog.String("path", path),
			slog.Int("documents", len(ds)),
			slog.Int64("seed", cfg.workload.Seed),
		)
	}

	return nil
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <dataset>...",
		Short: "Print size and document counts of dataset files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := inspectDataset(cmd.OutOrStdout(), path); err != nil {
					return err
				}
			}

			return nil
		},
	}
}

func inspectDataset(w io.Writer, path string) error {
	text, err := dataset.LoadText(path)
	if err != nil {
		return err
	}

	ds, err := dataset.LoadDocuments(path)
	if err != nil {
		return err
	}

	var encoded int

	for i, doc := range ds {
		data, err := codec.BSON{}.Encode(doc)
		if err != nil {
			return fmt.Errorf("encode document %d of %s: %w", i, path, err)
		}

		encoded += len(data)
	}

	fmt.Fprintf(w, "%s: %d documents, %d text bytes, %d BSON bytes\n",
		path, len(ds), len(text), encoded)

	return nil
}
