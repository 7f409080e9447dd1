package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/ritzau/dag-analyzer/pkg/analysis"
	"github.com/ritzau/dag-analyzer/pkg/config"
	"github.com/ritzau/dag-analyzer/pkg/graph"
	"github.com/ritzau/dag-analyzer/pkg/ingest"
	"github.com/ritzau/dag-analyzer/pkg/logging"
	"github.com/ritzau/dag-analyzer/pkg/output"
	"github.com/ritzau/dag-analyzer/pkg/watcher"
	"github.com/ritzau/dag-analyzer/pkg/web"
)

func main() {
	flags := pflag.NewFlagSet("dag-analyzer", pflag.ExitOnError)
	flags.String("graph", "", "Path to the JSON graph document")
	flags.String("exposure", "", "Override the document's exposure node")
	flags.String("outcome", "", "Override the document's outcome node")
	flags.StringSlice("generic-nodes", nil, "Generic nodes to remove before analysis")
	flags.StringSlice("strong-confounders", nil, "Strong confounders for feedback-edge breaking")
	flags.Int("max-set-size", 0, "Adjustment-set size bound (0 = all candidates)")
	flags.Int("max-candidates", 20, "Backdoor candidate-pool cap")
	flags.Int("max-path-len", 0, "Path-length bound for the backdoor and bias searches (0 = unbounded)")
	flags.Int("max-cycle-nodes", 200, "Node cap for cycle enumeration")
	flags.Int("max-cycles", 100000, "Cycle record budget")
	flags.Duration("timeout", 30*time.Second, "Budget for the unbounded enumerations")
	flags.Bool("web", false, "Start report server instead of printing to console")
	flags.Int("port", 8080, "Port for the report server (only used with --web)")
	flags.Bool("watch", false, "Re-run analysis when the graph file changes (only used with --web)")
	flags.String("verbosity", "", "Log level: debug, info, warn, error")
	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	applyVerbosity(cfg.Verbosity)

	if cfg.GraphFile == "" {
		fmt.Fprintln(os.Stderr, "Error: --graph is required")
		os.Exit(1)
	}

	g, err := ingest.LoadFile(cfg.GraphFile, cfg.Exposure, cfg.Outcome)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if cfg.WebMode {
		runWebMode(cfg, g)
		return
	}

	runner := analysis.NewRunner(cfg, nil)
	report, _, err := runner.Run(context.Background(), g, analysis.Options{Reason: "initial analysis"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	output.PrintReport(report)
}

// runWebMode serves reports over HTTP, runs the first analysis in the
// background, and optionally re-runs on graph-file changes.
func runWebMode(cfg *config.Config, g *graph.Graph) {
	server := web.NewServer()
	runner := analysis.NewRunner(cfg, server.Publisher())

	go func() {
		if err := server.Start(cfg.Port); err != nil {
			logging.Fatal("failed to start report server", "error", err)
		}
	}()

	ctx := context.Background()
	runOnce := func(current *graph.Graph, reason string) {
		report, analyzed, err := runner.Run(ctx, current, analysis.Options{Reason: reason})
		if err != nil {
			logging.Error("analysis failed", "error", err)
			return
		}
		server.SetReport(report, analyzed)
	}

	go runOnce(g, "initial analysis")

	if cfg.Watch {
		fw, err := watcher.NewFileWatcher(cfg.GraphFile)
		if err != nil {
			logging.Fatal("failed to create watcher", "error", err)
		}
		if err := fw.Start(ctx); err != nil {
			logging.Fatal("failed to start watcher", "error", err)
		}
		debouncer := watcher.NewDebouncer(fw.Events(), 500*time.Millisecond, 5*time.Second)
		debouncer.Start(ctx)

		go func() {
			for range debouncer.Output() {
				reloaded, err := ingest.LoadFile(cfg.GraphFile, cfg.Exposure, cfg.Outcome)
				if err != nil {
					logging.Error("failed to reload graph", "error", err)
					continue
				}
				runOnce(reloaded, "graph file changed")
			}
		}()
	}

	// Block forever (server runs in goroutine)
	select {}
}

func applyVerbosity(verbosity string) {
	switch verbosity {
	case "debug":
		logging.SetLevel(slog.LevelDebug)
	case "warn":
		logging.SetLevel(slog.LevelWarn)
	case "error":
		logging.SetLevel(slog.LevelError)
	case "", "info":
		// Default level
	default:
		logging.Warn("unknown verbosity, using info", "verbosity", verbosity)
	}
}
