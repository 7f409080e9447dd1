// Package prune provides the graph-reduction passes used to make
// literature-derived causal graphs acyclic and analyzable: generic-node
// removal, iterative leaf pruning, and confounder-feedback breaking.
package prune

import (
	"github.com/ritzau/dag-analyzer/pkg/graph"
	"github.com/ritzau/dag-analyzer/pkg/logging"
	"github.com/ritzau/dag-analyzer/pkg/model"
)

// RemoveNodes returns a new graph without the given nodes and their incident
// edges. Names absent from the graph are a validation error; an empty set
// returns a graph identical to the input.
func RemoveNodes(g *graph.Graph, names []string) (*graph.Graph, error) {
	remove := make(map[string]bool, len(names))
	for _, n := range names {
		if !g.HasNode(n) {
			return nil, &model.UnknownNodeError{Node: n}
		}
		remove[n] = true
	}
	return g.WithoutNodes(remove)
}

// IterativeLeafPrune repeatedly removes every node of total degree one that
// is not protected, recomputing degrees after each pass since removals
// cascade. The exposure and outcome are always protected. It returns the
// final graph and the number of passes performed.
func IterativeLeafPrune(g *graph.Graph, protected map[string]bool) (*graph.Graph, int, error) {
	iterations := 0
	current := g

	for {
		leaves := make(map[string]bool)
		for _, n := range current.Nodes() {
			if n == current.Exposure() || n == current.Outcome() || protected[n] {
				continue
			}
			degree := len(current.Parents(n)) + len(current.Children(n))
			if degree == 1 {
				leaves[n] = true
			}
		}
		if len(leaves) == 0 {
			return current, iterations, nil
		}

		next, err := current.WithoutNodes(leaves)
		if err != nil {
			return current, iterations, err
		}
		iterations++
		logging.Debug("leaf prune pass", "iteration", iterations, "removed", len(leaves), "remaining", next.NodeCount())
		current = next
	}
}

// BreakConfounderFeedback deletes the feedback edges exposure->name and
// outcome->name for each named strong confounder present in the graph,
// keeping the forward edges name->exposure and name->outcome. The names are
// an explicit caller-supplied exception list; names absent from the graph
// are skipped. It returns the edited graph and the removed-edge count.
func BreakConfounderFeedback(g *graph.Graph, names []string, exposure, outcome string) (*graph.Graph, int, error) {
	var remove [][2]string
	for _, name := range names {
		if !g.HasNode(name) {
			continue
		}
		if g.HasEdge(exposure, name) {
			remove = append(remove, [2]string{exposure, name})
		}
		if g.HasEdge(outcome, name) {
			remove = append(remove, [2]string{outcome, name})
		}
	}
	if len(remove) == 0 {
		return g, 0, nil
	}

	edited, err := g.WithoutEdges(remove)
	if err != nil {
		return g, 0, err
	}
	logging.Debug("broke confounder feedback edges", "count", len(remove))
	return edited, len(remove), nil
}
