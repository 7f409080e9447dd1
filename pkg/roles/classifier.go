// Package roles classifies every variable of a causal graph into its causal
// role relative to the exposure/outcome pair.
package roles

import (
	"context"
	"sort"

	"github.com/ritzau/dag-analyzer/pkg/graph"
	"github.com/ritzau/dag-analyzer/pkg/logging"
	"github.com/ritzau/dag-analyzer/pkg/model"
)

// Classify assigns a causal role to every non-exposure/outcome node. The
// classification is deterministic and idempotent for an unchanged graph.
//
// A common ancestor counts as a confounder only if it appears in some valid
// backdoor adjustment set, and instrumental variables are excluded from the
// confounder set before that intersection. Ancestors of the exposure whose
// every directed path to the outcome passes through the exposure are
// instrumental variables; the membership test is structural, on the path's
// node sequence.
func Classify(ctx context.Context, g *graph.Graph, opts graph.SearchOptions) (*model.RoleReport, error) {
	exposure, outcome := g.Exposure(), g.Outcome()
	if exposure == "" || outcome == "" || exposure == outcome || !g.HasNode(exposure) || !g.HasNode(outcome) {
		return nil, &model.MissingExposureOutcomeError{Exposure: exposure, Outcome: outcome}
	}

	expAnc := g.Ancestors(exposure)
	outAnc := g.Ancestors(outcome)
	expDesc := g.Descendants(exposure)
	outDesc := g.Descendants(outcome)

	rawMediators := make(map[string]bool)
	for n := range expDesc {
		if outAnc[n] && n != exposure && n != outcome {
			rawMediators[n] = true
		}
	}

	instrumental := make(map[string]bool)
	for n := range expAnc {
		if n == outcome {
			continue
		}
		through, err := allPathsThroughExposure(ctx, g, n, outcome, exposure)
		if err != nil {
			return nil, err
		}
		if through {
			instrumental[n] = true
		}
	}

	precision := make(map[string]bool)
	for n := range outAnc {
		if !expAnc[n] && n != exposure && n != outcome && !rawMediators[n] {
			precision[n] = true
		}
	}

	rawConfounders := make(map[string]bool)
	for n := range expAnc {
		if outAnc[n] {
			rawConfounders[n] = true
		}
	}

	// A common ancestor is only a confounder if some valid adjustment set
	// contains it.
	allSets, err := g.BackdoorAdjustmentSets(ctx, graph.SearchAll, opts)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		// A cancelled search returns a quiet partial; roles derived from an
		// incomplete adjustable set would be wrong, so fail instead.
		return nil, ctx.Err()
	}
	adjustable := make(map[string]bool)
	for _, set := range allSets.Sets {
		for _, n := range set {
			adjustable[n] = true
		}
	}
	confounders := make(map[string]bool)
	for n := range rawConfounders {
		if !instrumental[n] && adjustable[n] {
			confounders[n] = true
		}
	}

	rawColliders := make(map[string]bool)
	for n := range expDesc {
		if outDesc[n] && n != exposure && n != outcome {
			rawColliders[n] = true
		}
	}

	report := &model.RoleReport{
		Exposure:       exposure,
		Outcome:        outcome,
		Roles:          make(map[string]model.Role),
		RawConfounders: setToSorted(rawConfounders),
		RawMediators:   setToSorted(rawMediators),
		RawColliders:   setToSorted(rawColliders),
	}

	for _, n := range g.Nodes() {
		if n == exposure || n == outcome {
			continue
		}
		report.Roles[n] = assign(n, confounders, rawMediators, rawColliders, instrumental, precision)
	}

	logging.Debug("classified roles",
		"nodes", len(report.Roles),
		"confounders", len(confounders),
		"mediators", len(rawMediators),
		"colliders", len(rawColliders),
		"instrumental", len(instrumental),
	)
	return report, nil
}

// assign resolves one node's role from the computed sets. The three-way
// confounder/mediator/collider overlap yields the combined roles; a node in
// none of the sets keeps its instrumental or precision role, or stays
// unclassified.
func assign(n string, confounders, mediators, colliders, instrumental, precision map[string]bool) model.Role {
	c, m, k := confounders[n], mediators[n], colliders[n]
	switch {
	case c && m && k:
		return model.RoleConfounderMediatorCollider
	case c && m:
		return model.RoleConfounderMediator
	case c && k:
		return model.RoleConfounderCollider
	case m && k:
		return model.RoleMediatorCollider
	case c:
		return model.RoleConfounder
	case m:
		return model.RoleMediator
	case k:
		return model.RoleCollider
	case instrumental[n]:
		return model.RoleInstrumentalVariable
	case precision[n]:
		return model.RolePrecisionVariable
	default:
		return model.RoleUnclassified
	}
}

// allPathsThroughExposure reports whether every directed path from the node
// to the outcome contains the exposure. A node with no path to the outcome
// passes vacuously; it still only reaches this test as an exposure ancestor.
// The path enumeration is exponential worst case, so cancellation is checked
// per yielded path.
func allPathsThroughExposure(ctx context.Context, g *graph.Graph, node, outcome, exposure string) (bool, error) {
	for path := range g.DirectedPaths(node, outcome, 0) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		through := false
		for _, n := range path {
			if n == exposure {
				through = true
				break
			}
		}
		if !through {
			return false, nil
		}
	}
	return true, nil
}

func setToSorted(s map[string]bool) []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
