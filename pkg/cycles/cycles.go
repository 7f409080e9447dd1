package cycles

import (
	"context"
	"sort"

	"github.com/ritzau/dag-analyzer/pkg/graph"
	"github.com/ritzau/dag-analyzer/pkg/model"
)

// Options bounds the elementary-cycle enumeration
type Options struct {
	MaxNodes  int // Precheck cap on nodes inside cyclic SCCs; 0 means DefaultMaxNodes
	MaxCycles int // Budget on cycle records gathered; 0 means DefaultMaxCycles
	Progress  func(found int)
}

// DefaultMaxNodes caps the total node count across cyclic SCCs
const DefaultMaxNodes = 200

// DefaultMaxCycles caps the number of cycle records gathered
const DefaultMaxCycles = 100000

const progressInterval = 50

// EnumerateElementaryCycles finds every elementary cycle in the graph,
// working per strongly connected component to bound the search space. Each
// cycle is recorded once, starting from its lexicographically smallest node,
// so reruns on an unmodified graph produce identical aggregates.
//
// The enumeration refuses to run when the cyclic SCCs together exceed the
// node cap, returning GraphTooLargeError alongside a report that still
// carries the SCC sizes. A cancelled or budget-exhausted run returns the
// records gathered so far with Completed=false.
func EnumerateElementaryCycles(ctx context.Context, g *graph.Graph, opts Options) (*model.CycleReport, error) {
	sccs := FindSCCs(g)

	report := &model.CycleReport{
		Participation:   make(map[string]int),
		LengthHistogram: make(map[int]int),
		Completed:       true,
	}
	cyclicNodes := 0
	for _, scc := range sccs {
		report.SCCSizes = append(report.SCCSizes, len(scc))
		cyclicNodes += len(scc)
	}

	maxNodes := opts.MaxNodes
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	if cyclicNodes > maxNodes {
		return report, &model.GraphTooLargeError{
			Operation: "elementary-cycle enumeration",
			Size:      cyclicNodes,
			Limit:     maxNodes,
		}
	}

	maxCycles := opts.MaxCycles
	if maxCycles <= 0 {
		maxCycles = DefaultMaxCycles
	}

	for _, scc := range sccs {
		done := enumerateSCC(ctx, g, scc, maxCycles, opts.Progress, report)
		if !done {
			report.Completed = false
			break
		}
	}

	aggregate(report)
	return report, nil
}

// enumerateSCC yields every elementary cycle inside one strongly connected
// component. For each start node, an explicit-stack DFS walks simple paths
// restricted to component members not smaller than the start; an edge back
// to the start closes a cycle. Starting each cycle at its smallest member
// guarantees each is found exactly once.
func enumerateSCC(ctx context.Context, g *graph.Graph, scc []string, maxCycles int, progress func(int), report *model.CycleReport) bool {
	member := make(map[string]bool, len(scc))
	for _, n := range scc {
		member[n] = true
	}

	for _, start := range scc {
		type frame struct {
			node string
			next int
		}
		adjacency := func(n string) []string { return g.Children(n) }

		stack := []frame{{node: start}}
		path := []string{start}
		onPath := map[string]bool{start: true}

		for len(stack) > 0 {
			if ctx.Err() != nil {
				return false
			}
			top := &stack[len(stack)-1]
			successors := adjacency(top.node)

			if top.next < len(successors) {
				succ := successors[top.next]
				top.next++

				if succ == start {
					record := model.CycleRecord{Nodes: make([]string, len(path))}
					copy(record.Nodes, path)
					report.Cycles = append(report.Cycles, record)
					if progress != nil && len(report.Cycles)%progressInterval == 0 {
						progress(len(report.Cycles))
					}
					if len(report.Cycles) >= maxCycles {
						return false
					}
					continue
				}
				// Restrict to component members above the start node so
				// each cycle is enumerated from its smallest member only.
				if !member[succ] || succ < start || onPath[succ] {
					continue
				}
				stack = append(stack, frame{node: succ})
				path = append(path, succ)
				onPath[succ] = true
				continue
			}

			stack = stack[:len(stack)-1]
			if len(path) > 0 {
				delete(onPath, path[len(path)-1])
				path = path[:len(path)-1]
			}
		}
	}
	return true
}

// aggregate fills participation counts, the length histogram, and the
// participation ranking from the gathered cycle records.
func aggregate(report *model.CycleReport) {
	for _, cycle := range report.Cycles {
		report.LengthHistogram[cycle.Len()]++
		for _, node := range cycle.Nodes {
			report.Participation[node]++
		}
	}

	report.Ranking = make([]model.NodeRank, 0, len(report.Participation))
	for node, count := range report.Participation {
		report.Ranking = append(report.Ranking, model.NodeRank{Node: node, Count: count})
	}
	sort.Slice(report.Ranking, func(i, j int) bool {
		if report.Ranking[i].Count != report.Ranking[j].Count {
			return report.Ranking[i].Count > report.Ranking[j].Count
		}
		return report.Ranking[i].Node < report.Ranking[j].Node
	})
}
