package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/nthompson1415/AVECapstone/internal/analyses"
	"github.com/nthompson1415/AVECapstone/internal/batch"
	"github.com/nthompson1415/AVECapstone/internal/config"
	"github.com/nthompson1415/AVECapstone/internal/harm"
	"github.com/nthompson1415/AVECapstone/internal/mcptools"
	"github.com/nthompson1415/AVECapstone/internal/presets"
	"github.com/nthompson1415/AVECapstone/internal/scorer"
	"github.com/nthompson1415/AVECapstone/internal/server"
)

var version = "dev"

type globalFlags struct {
	configPath string
	verbose    bool
}

func main() {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:           "avecapstone",
		Short:         "Harm-scoring engine for autonomous-vehicle dilemma scenarios",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if g.verbose {
				level = slog.LevelDebug
			}
			// stdout is reserved for command output and the MCP transport
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(serveCmd(&g))
	rootCmd.AddCommand(analyzeCmd(&g))
	rootCmd.AddCommand(exportCmd(&g))
	rootCmd.AddCommand(reportCmd(&g))
	rootCmd.AddCommand(mcpCmd(&g))
	rootCmd.AddCommand(weightsCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(g *globalFlags) (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return cfg, err
	}
	cfg.Version = version
	return cfg, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "avecapstone v%s\n", version)
		},
	}
}

func serveCmd(g *globalFlags) *cobra.Command {
	var port int
	var dataDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("data-dir") {
				cfg.DataDir = dataDir
			}
			return runServe(cfg)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP server port")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory for saved analyses and batch runs")
	return cmd
}

func runServe(cfg config.Config) error {
	availablePort, err := findAvailablePort(cfg.Port, 10)
	if err != nil {
		return err
	}
	if availablePort != cfg.Port {
		slog.Warn("port in use, using another", "requested", cfg.Port, "port", availablePort)
		cfg.Port = availablePort
	}

	srv, err := server.New(cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
		if err := srv.Stop(); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

// findAvailablePort finds an available port, starting from the given port.
// If the port is in use, it tries subsequent ports up to maxAttempts times.
func findAvailablePort(startPort int, maxAttempts int) (int, error) {
	for i := 0; i < maxAttempts; i++ {
		port := startPort + i
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port found after %d attempts starting from %d", maxAttempts, startPort)
}

func analyzeCmd(g *globalFlags) *cobra.Command {
	var (
		preset   string
		file     string
		level    string
		trace    bool
		asJSON   bool
		tieBreak string
		weights  string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a preset or a scenario JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			if tieBreak != "" {
				cfg.TieBreak = tieBreak
			}

			s, err := loadScenario(preset, file)
			if err != nil {
				return err
			}
			if weights != "" {
				return runWeighted(cmd.OutOrStdout(), s, weights, asJSON)
			}
			l, err := harm.LevelByKey(level)
			if err != nil {
				return err
			}

			engine, err := server.BuildEngine(cfg, slog.Default())
			if err != nil {
				return err
			}
			analyze := engine.Analyze
			if trace {
				analyze = engine.AnalyzeTraced
			}
			report, err := analyze(cmd.Context(), s, l.Flags)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return report.WriteText(out)
		},
	}
	cmd.Flags().StringVar(&preset, "preset", "", "Preset key (default scenario when neither --preset nor --file is set)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Scenario or exported analysis JSON file, - for stdin")
	cmd.Flags().StringVarP(&level, "level", "l", "none", "Connectedness level: none, low, medium, high, max")
	cmd.Flags().BoolVar(&trace, "trace", false, "Show the calculation steps")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().StringVar(&tieBreak, "tie-break", "", "utility-band or harm-difference")
	cmd.Flags().StringVar(&weights, "weights", "", "Score with a personal weights file instead of the life-years pipeline")
	return cmd
}

func runWeighted(out io.Writer, s harm.Scenario, path string, asJSON bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := analyses.DecodeWeights(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	res, err := harm.AnalyzeWeighted(s, doc.Weights)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return scorer.WriteWeightedText(out, res)
}

func weightsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weights",
		Short: "Print a default personal weights file to edit and pass to analyze --weights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := analyses.EncodeWeights(analyses.NewWeightsDocument(harm.DefaultWeights()))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}

// loadScenario reads a bare scenario or an exported analysis document.
func loadScenario(preset, file string) (harm.Scenario, error) {
	switch {
	case file != "":
		var r io.Reader = os.Stdin
		if file != "-" {
			f, err := os.Open(file)
			if err != nil {
				return harm.Scenario{}, err
			}
			defer f.Close()
			r = f
		}
		data, err := io.ReadAll(bufio.NewReader(r))
		if err != nil {
			return harm.Scenario{}, err
		}
		var probe struct {
			Scenario json.RawMessage `json:"scenario"`
		}
		if json.Unmarshal(data, &probe) == nil && probe.Scenario != nil {
			doc, err := analyses.Decode(data)
			if err != nil {
				return harm.Scenario{}, err
			}
			return *doc.Scenario, nil
		}
		var s harm.Scenario
		if err := json.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		return s, nil
	case preset != "":
		p, err := presets.Get(preset)
		return p.Scenario, err
	}
	return presets.Default(), nil
}

func exportCmd(g *globalFlags) *cobra.Command {
	var opts batchFlags
	var out, dbPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Generate seeded scenarios, evaluate them at every level and write the bulk CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			evals, runOpts, err := opts.run(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			rows := batch.Rows(evals)
			if err := writeExport(cmd.OutOrStdout(), out, rows); err != nil {
				return err
			}
			slog.Info("export written", "scenarios", len(evals), "rows", len(rows), "out", out)

			if dbPath != "" {
				store, err := batch.OpenStore(dbPath)
				if err != nil {
					return err
				}
				defer store.Close()
				info, err := store.SaveRun(cmd.Context(), opts.seed, runOpts, evals)
				if err != nil {
					return err
				}
				slog.Info("run saved", "id", info.ID, "db", dbPath)
			}
			return nil
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "CSV output file (default stdout)")
	cmd.Flags().StringVar(&dbPath, "db", "", "Also store the run in this SQLite database")
	return cmd
}

// writeExport writes the CSV to path, or to stdout when path is empty or -.
// A failed close is reported, since it can lose buffered rows.
func writeExport(stdout io.Writer, path string, rows []batch.Row) error {
	if path == "" || path == "-" {
		return batch.WriteCSV(stdout, rows)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := batch.WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func reportCmd(g *globalFlags) *cobra.Command {
	var opts batchFlags
	var topN int
	var asJSON bool
	var dbPath, runID string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize a generated batch, or a stored run, as a markdown report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var summary batch.Summary
			if runID != "" {
				if dbPath == "" {
					return errors.New("--run requires --db")
				}
				store, err := batch.OpenStore(dbPath)
				if err != nil {
					return err
				}
				defer store.Close()
				outcomes, err := store.LoadOutcomes(cmd.Context(), runID)
				if err != nil {
					return err
				}
				summary = batch.SummarizeOutcomes(outcomes, topN)
			} else {
				cfg, err := loadConfig(g)
				if err != nil {
					return err
				}
				evals, _, err := opts.run(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				summary = batch.Summarize(evals, topN)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			return batch.WriteReport(cmd.OutOrStdout(), summary)
		},
	}
	opts.register(cmd)
	cmd.Flags().IntVar(&topN, "top", 10, "Number of scenarios in the flip and most-interesting lists")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database holding stored runs")
	cmd.Flags().StringVar(&runID, "run", "", "Summarize this stored run instead of generating one")
	return cmd
}

type batchFlags struct {
	count    int
	seed     int64
	workers  int
	tieBreak string
}

func (b *batchFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&b.count, "count", "n", 100, "Number of scenarios to generate")
	cmd.Flags().Int64Var(&b.seed, "seed", 12345, "Generator seed")
	cmd.Flags().IntVarP(&b.workers, "workers", "w", 0, "Concurrent evaluations (default from config)")
	cmd.Flags().StringVar(&b.tieBreak, "tie-break", string(harm.TieBreakHarmDifference), "utility-band or harm-difference")
}

func (b *batchFlags) run(ctx context.Context, cfg config.Config) ([]batch.Evaluation, batch.Options, error) {
	tb, err := harm.ParseTieBreak(b.tieBreak)
	if err != nil {
		return nil, batch.Options{}, err
	}
	workers := b.workers
	if workers <= 0 {
		workers = cfg.BatchWorkers
	}
	opts := batch.Options{Workers: workers, TieBreak: tb}

	start := time.Now()
	evals, err := batch.Run(ctx, batch.Generate(b.count, b.seed), harm.Levels, opts)
	if err != nil {
		return nil, opts, err
	}
	slog.Debug("batch evaluated", "scenarios", len(evals), "workers", workers, "duration", time.Since(start))
	return evals, opts, nil
}

func mcpCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the analysis tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			engine, err := server.BuildEngine(cfg, slog.Default())
			if err != nil {
				return err
			}
			return mcpserver.ServeStdio(mcptools.NewServer(engine, version))
		},
	}
}
