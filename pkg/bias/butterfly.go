// Package bias detects the two named bias structures in a causal graph,
// butterfly bias and M-bias, and enumerates the adjustment sets that remain
// valid in their presence.
package bias

import (
	"context"
	"iter"
	"sort"

	"github.com/ritzau/dag-analyzer/pkg/graph"
	"github.com/ritzau/dag-analyzer/pkg/logging"
	"github.com/ritzau/dag-analyzer/pkg/model"
)

// ButterflyOptions bounds the butterfly valid-set enumeration
type ButterflyOptions struct {
	MaxOptions int // Precheck cap on the Cartesian-product size; 0 means DefaultMaxOptions
	Progress   func(produced int)
}

// DefaultMaxOptions caps the local-option product across butterfly nodes
const DefaultMaxOptions = 4096

// AnalyzeButterfly detects butterfly structures among the classified
// confounders and enumerates the valid adjustment sets.
//
// A confounder with two or more confounder parents is a butterfly node b
// with parent set P. Its local options are P itself (adjust for all parents,
// not b) and b together with any non-empty proper subset of P. The valid
// sets are the deduplicated products of one local option per butterfly node,
// each unioned with the confounders outside every butterfly structure.
//
// The product is refused above the option cap with GraphTooLargeError; a
// cancelled enumeration returns the sets produced so far with
// Completed=false.
func AnalyzeButterfly(ctx context.Context, g *graph.Graph, rolesReport *model.RoleReport, opts ButterflyOptions) (*model.ButterflyReport, error) {
	confounders := confounderSet(rolesReport)

	report := &model.ButterflyReport{Completed: true}

	var butterflies []model.ButterflyStructure
	inStructure := make(map[string]bool)
	for _, v := range sortedKeys(confounders) {
		var confParents []string
		for _, p := range g.Parents(v) {
			if confounders[p] {
				confParents = append(confParents, p)
			}
		}
		if len(confParents) < 2 {
			continue
		}
		sort.Strings(confParents)
		butterflies = append(butterflies, model.ButterflyStructure{Node: v, Parents: confParents})
		inStructure[v] = true
		for _, p := range confParents {
			inStructure[p] = true
		}
	}
	report.Structures = butterflies

	nonButterfly := make([]string, 0)
	for _, v := range sortedKeys(confounders) {
		if !inStructure[v] {
			nonButterfly = append(nonButterfly, v)
		}
	}
	report.NonButterflyConfounders = nonButterfly

	if len(butterflies) == 0 {
		report.Reason = model.ReasonNoButterflies
		return report, nil
	}

	maxOptions := opts.MaxOptions
	if maxOptions <= 0 {
		maxOptions = DefaultMaxOptions
	}
	optionCount := 1
	for _, b := range butterflies {
		optionCount *= (1 << len(b.Parents)) - 1
		if optionCount > maxOptions {
			return report, &model.GraphTooLargeError{
				Operation: "butterfly valid-set enumeration",
				Size:      optionCount,
				Limit:     maxOptions,
			}
		}
	}

	seen := make(map[string]bool)
	produced := 0
	for combined := range validSetProduct(butterflies) {
		if ctx.Err() != nil {
			report.Completed = false
			break
		}
		set := make(model.AdjustmentSet, 0, len(combined)+len(nonButterfly))
		set = append(set, combined...)
		set = append(set, nonButterfly...)
		sort.Strings(set)
		key := joinKey(set)
		if seen[key] {
			continue
		}
		seen[key] = true
		report.ValidSets = append(report.ValidSets, set)
		produced++
		if opts.Progress != nil {
			opts.Progress(produced)
		}
	}

	logging.Debug("butterfly analysis complete",
		"structures", len(butterflies),
		"validSets", len(report.ValidSets),
	)
	return report, nil
}

// localOptions returns one butterfly node's adjustment options in
// deterministic order: the full parent set first, then the node with every
// non-empty proper parent subset in increasing size.
func localOptions(b model.ButterflyStructure) [][]string {
	options := [][]string{append([]string(nil), b.Parents...)}
	k := len(b.Parents)
	for size := 1; size < k; size++ {
		forEachSubset(k, size, func(indices []int) {
			option := make([]string, 0, size+1)
			option = append(option, b.Node)
			for _, idx := range indices {
				option = append(option, b.Parents[idx])
			}
			options = append(options, option)
		})
	}
	return options
}

// validSetProduct lazily yields every combination of one local option per
// butterfly node, unioned, so callers can bound consumption without the
// producer materializing the full Cartesian product.
func validSetProduct(butterflies []model.ButterflyStructure) iter.Seq[[]string] {
	options := make([][][]string, len(butterflies))
	for i, b := range butterflies {
		options[i] = localOptions(b)
	}
	return func(yield func([]string) bool) {
		indices := make([]int, len(butterflies))
		for {
			union := make(map[string]bool)
			for i, idx := range indices {
				for _, n := range options[i][idx] {
					union[n] = true
				}
			}
			if !yield(sortedKeys(union)) {
				return
			}
			// Advance the mixed-radix counter.
			pos := len(indices) - 1
			for pos >= 0 {
				indices[pos]++
				if indices[pos] < len(options[pos]) {
					break
				}
				indices[pos] = 0
				pos--
			}
			if pos < 0 {
				return
			}
		}
	}
}

func forEachSubset(n, k int, fn func(indices []int)) {
	indices := make([]int, k)
	for i := range indices {
		indices[i] = i
	}
	for {
		fn(indices)
		i := k - 1
		for i >= 0 && indices[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		indices[i]++
		for j := i + 1; j < k; j++ {
			indices[j] = indices[j-1] + 1
		}
	}
}

// confounderSet collects every node the classifier marked with a confounder
// role, including the combined roles.
func confounderSet(report *model.RoleReport) map[string]bool {
	confounders := make(map[string]bool)
	for node, role := range report.Roles {
		switch role {
		case model.RoleConfounder, model.RoleConfounderMediator, model.RoleConfounderCollider, model.RoleConfounderMediatorCollider:
			confounders[node] = true
		}
	}
	return confounders
}

func sortedKeys(s map[string]bool) []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinKey(set []string) string {
	key := ""
	for _, n := range set {
		key += n + "\x00"
	}
	return key
}
