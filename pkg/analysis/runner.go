// Package analysis orchestrates the full causal-graph pipeline: validation,
// pruning, cycle enumeration, role classification, bias analysis, and
// confounder discovery.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ritzau/dag-analyzer/pkg/bias"
	"github.com/ritzau/dag-analyzer/pkg/config"
	"github.com/ritzau/dag-analyzer/pkg/confounders"
	"github.com/ritzau/dag-analyzer/pkg/cycles"
	"github.com/ritzau/dag-analyzer/pkg/graph"
	"github.com/ritzau/dag-analyzer/pkg/logging"
	"github.com/ritzau/dag-analyzer/pkg/model"
	"github.com/ritzau/dag-analyzer/pkg/prune"
	"github.com/ritzau/dag-analyzer/pkg/pubsub"
	"github.com/ritzau/dag-analyzer/pkg/roles"
)

// Runner executes the analysis pipeline over one graph at a time
type Runner struct {
	cfg       *config.Config
	publisher pubsub.Publisher // Optional; nil disables status events
	mu        sync.Mutex       // Prevent concurrent analysis runs
}

// Options configures which pipeline stages to run
type Options struct {
	SkipPrune       bool
	SkipCycles      bool
	SkipRoles       bool
	SkipBias        bool
	SkipConfounders bool
	Reason          string // e.g., "initial analysis", "graph file changed"
}

// NewRunner creates a new analysis runner
func NewRunner(cfg *config.Config, publisher pubsub.Publisher) *Runner {
	return &Runner{cfg: cfg, publisher: publisher}
}

const totalSteps = 6

// Run executes the pipeline and returns the assembled report together with
// the graph the later stages ran on (post-pruning when pruning is enabled).
//
// Validation failures abort with no partial output. Resource-limit errors
// from the unbounded enumerations do not abort the run: the affected stage
// keeps its partial statistics and the remaining stages still execute. The
// configured timeout bounds the enumerations through the context.
func (r *Runner) Run(ctx context.Context, g *graph.Graph, opts Options) (*model.AnalysisReport, *graph.Graph, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	logging.Info("starting analysis", "reason", opts.Reason, "nodes", g.NodeCount(), "edges", g.EdgeCount())

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	report := &model.AnalysisReport{
		Exposure: g.Exposure(),
		Outcome:  g.Outcome(),
	}

	// Step 1: validate configured node lists up front so a typo aborts
	// before any mutation.
	r.publishStatus("validating", "Validating configuration...", 1)
	if err := r.validateConfiguredNodes(g); err != nil {
		r.publishStatus("error", err.Error(), 1)
		return nil, nil, err
	}

	current := g

	// Step 2: pruning pipeline
	if !opts.SkipPrune {
		r.publishStatus("pruning", "Pruning graph...", 2)
		pruned, pruneReport, err := r.runPrune(current)
		if err != nil {
			r.publishStatus("error", err.Error(), 2)
			return nil, nil, err
		}
		report.Prune = pruneReport
		current = pruned
	}
	report.NodeCount = current.NodeCount()
	report.EdgeCount = current.EdgeCount()

	// Step 3: cycle enumeration
	if !opts.SkipCycles {
		r.publishStatus("cycles", "Enumerating elementary cycles...", 3)
		cycleReport, err := cycles.EnumerateElementaryCycles(ctx, current, cycles.Options{
			MaxNodes:  r.cfg.MaxCycleNodes,
			MaxCycles: r.cfg.MaxCycles,
			Progress: func(found int) {
				logging.Debug("cycle enumeration progress", "found", found)
			},
		})
		report.Cycles = cycleReport
		if err != nil {
			if !isResourceLimit(err) {
				r.publishStatus("error", err.Error(), 3)
				return nil, nil, fmt.Errorf("cycle enumeration: %w", err)
			}
			logging.Warn("cycle enumeration skipped", "error", err, "sccSizes", cycleReport.SCCSizes)
		}
	}

	searchOpts := graph.SearchOptions{
		MaxSetSize:    r.cfg.MaxSetSize,
		MaxCandidates: r.cfg.MaxCandidates,
		MaxPathLen:    r.cfg.MaxPathLen,
		Progress: func(checked, total int) {
			logging.Debug("adjustment-set search progress", "checked", checked, "total", total)
		},
	}

	// Step 4: role classification
	if !opts.SkipRoles {
		r.publishStatus("classifying", "Classifying causal roles...", 4)
		roleReport, err := roles.Classify(ctx, current, searchOpts)
		if err != nil {
			if !isResourceLimit(err) {
				r.publishStatus("error", err.Error(), 4)
				return nil, nil, fmt.Errorf("role classification: %w", err)
			}
			logging.Warn("role classification skipped", "error", err)
		} else {
			report.Roles = roleReport
		}
	}

	// Step 5: bias analysis (needs the classifier output)
	if !opts.SkipBias && report.Roles != nil {
		r.publishStatus("bias", "Analyzing bias structures...", 5)
		butterflyReport, err := bias.AnalyzeButterfly(ctx, current, report.Roles, bias.ButterflyOptions{})
		report.Butterfly = butterflyReport
		if err != nil {
			if !isResourceLimit(err) {
				r.publishStatus("error", err.Error(), 5)
				return nil, nil, fmt.Errorf("butterfly analysis: %w", err)
			}
			logging.Warn("butterfly valid-set enumeration skipped", "error", err)
		}

		mbiasReport, err := bias.AnalyzeMBias(ctx, current, bias.MBiasOptions{Search: searchOpts, MaxPathLen: r.cfg.MaxPathLen})
		if err != nil {
			if !isResourceLimit(err) {
				r.publishStatus("error", err.Error(), 5)
				return nil, nil, fmt.Errorf("m-bias analysis: %w", err)
			}
			logging.Warn("m-bias analysis skipped", "error", err)
		} else {
			report.MBias = mbiasReport
		}
	}

	// Step 6: confounder discovery
	if !opts.SkipConfounders {
		r.publishStatus("confounders", "Discovering common-parent confounders...", 6)
		report.Confounders = confounders.Discover(current)
	}

	r.publishStatus("ready", "Analysis complete", totalSteps)
	r.publishSummary(report)
	logging.Info("analysis complete", "nodes", report.NodeCount, "edges", report.EdgeCount)
	return report, current, nil
}

// runPrune applies generic-node removal, iterative leaf pruning, and
// confounder-feedback breaking in that order.
func (r *Runner) runPrune(g *graph.Graph) (*graph.Graph, *model.PruneReport, error) {
	pruneReport := &model.PruneReport{}
	current := g

	if len(r.cfg.GenericNodes) > 0 {
		removed, err := prune.RemoveNodes(current, r.cfg.GenericNodes)
		if err != nil {
			return nil, nil, fmt.Errorf("removing generic nodes: %w", err)
		}
		pruneReport.RemovedGenericNodes = current.NodeCount() - removed.NodeCount()
		current = removed
	}

	before := current.NodeCount()
	pruned, iterations, err := prune.IterativeLeafPrune(current, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("leaf pruning: %w", err)
	}
	pruneReport.LeafPruneIterations = iterations
	pruneReport.LeafPrunedNodes = before - pruned.NodeCount()
	current = pruned

	if len(r.cfg.StrongConfounders) > 0 {
		broken, count, err := prune.BreakConfounderFeedback(current, r.cfg.StrongConfounders, current.Exposure(), current.Outcome())
		if err != nil {
			return nil, nil, fmt.Errorf("breaking confounder feedback: %w", err)
		}
		pruneReport.BrokenFeedbackEdges = count
		current = broken
	}

	return current, pruneReport, nil
}

func (r *Runner) validateConfiguredNodes(g *graph.Graph) error {
	for _, n := range r.cfg.GenericNodes {
		if !g.HasNode(n) {
			return &model.UnknownNodeError{Node: n}
		}
	}
	for _, n := range r.cfg.StrongConfounders {
		if !g.HasNode(n) {
			return &model.UnknownNodeError{Node: n}
		}
	}
	return nil
}

func (r *Runner) publishStatus(state, message string, step int) {
	if r.publisher == nil {
		return
	}
	status := pubsub.AnalysisStatus{
		State:   state,
		Message: message,
		Step:    step,
		Total:   totalSteps,
	}
	if err := r.publisher.Publish("analysis_status", state, status); err != nil {
		logging.Warn("failed to publish status", "error", err)
	}
}

func (r *Runner) publishSummary(report *model.AnalysisReport) {
	if r.publisher == nil {
		return
	}
	summary := pubsub.ReportSummary{
		NodeCount: report.NodeCount,
		EdgeCount: report.EdgeCount,
		Complete:  true,
	}
	if report.Cycles != nil {
		summary.CycleCount = len(report.Cycles.Cycles)
		summary.Complete = report.Cycles.Completed
	}
	if err := r.publisher.Publish("analysis_report", "complete", summary); err != nil {
		logging.Warn("failed to publish report summary", "error", err)
	}
}

func isResourceLimit(err error) bool {
	var tooLarge *model.GraphTooLargeError
	return errors.As(err, &tooLarge)
}
