package graph

import (
	"context"
	"sort"

	"github.com/ritzau/dag-analyzer/pkg/model"
)

// SearchKind selects which adjustment sets the backdoor search returns
type SearchKind string

const (
	// SearchMinimal returns only sets with no removable member still valid
	SearchMinimal SearchKind = "minimal"
	// SearchAll returns every valid set found up to the size bound
	SearchAll SearchKind = "all"
)

// SearchOptions bounds the backdoor adjustment-set search
type SearchOptions struct {
	MaxSetSize    int  // Largest subset size to try; 0 means all candidates
	MaxCandidates int  // Precheck cap on the candidate pool; 0 means DefaultMaxCandidates
	MaxPathLen    int  // Bound on backdoor path length; 0 means unbounded
	Progress      func(checked, total int)
}

// DefaultMaxCandidates caps the candidate pool for the subset search; the
// search space is 2^candidates, so this bounds it to about a million subsets.
const DefaultMaxCandidates = 20

const progressInterval = 64

// BackdoorAdjustmentSets searches subsets of the ancestors of exposure and
// outcome (excluding descendants of the exposure) for sets that block every
// backdoor path. Subsets are tried in increasing size, then lexicographic
// order, which makes the result deterministic. The empty set is a valid
// result when all backdoor paths are naturally blocked; when no backdoor
// path exists at all the result is empty with ReasonNoBackdoorPaths.
//
// The search refuses to run above the candidate cap with GraphTooLargeError.
// Context cancellation is honored in both phases: the walk enumeration stops
// at the next yielded path, and the subset search stops at the next subset,
// each returning what was found so far with Completed=false.
func (g *Graph) BackdoorAdjustmentSets(ctx context.Context, kind SearchKind, opts SearchOptions) (*model.AdjustmentSetResult, error) {
	var backdoor []Path
	for p := range g.Walks(g.exposure, g.outcome, opts.MaxPathLen) {
		if ctx.Err() != nil {
			return &model.AdjustmentSetResult{}, nil
		}
		if p.IntoFirst() {
			backdoor = append(backdoor, p)
		}
	}
	if len(backdoor) == 0 {
		return &model.AdjustmentSetResult{Reason: model.ReasonNoBackdoorPaths, Completed: true}, nil
	}

	candidates := g.adjustmentCandidates()
	maxCandidates := opts.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}
	if len(candidates) > maxCandidates {
		return nil, &model.GraphTooLargeError{
			Operation: "backdoor adjustment-set search",
			Size:      len(candidates),
			Limit:     maxCandidates,
		}
	}

	maxSize := opts.MaxSetSize
	if maxSize <= 0 || maxSize > len(candidates) {
		maxSize = len(candidates)
	}

	total := subsetCount(len(candidates), maxSize)
	result := &model.AdjustmentSetResult{Completed: true}
	checked := 0

	for size := 0; size <= maxSize; size++ {
		done := forEachCombination(len(candidates), size, func(indices []int) bool {
			if ctx.Err() != nil {
				return false
			}
			checked++
			if opts.Progress != nil && checked%progressInterval == 0 {
				opts.Progress(checked, total)
			}

			z := make(map[string]bool, len(indices))
			set := make(model.AdjustmentSet, 0, len(indices))
			for _, idx := range indices {
				z[candidates[idx]] = true
				set = append(set, candidates[idx])
			}

			if !g.blocksAllBackdoorPaths(backdoor, z) {
				return true
			}
			if kind == SearchMinimal && containsSubsetOf(result.Sets, z) {
				return true
			}
			result.Sets = append(result.Sets, set)
			return true
		})
		if !done {
			result.Completed = false
			break
		}
	}

	if opts.Progress != nil {
		opts.Progress(checked, total)
	}
	if len(result.Sets) == 0 && result.Completed {
		result.Reason = model.ReasonNoValidSet
	}
	return result, nil
}

// adjustmentCandidates returns the sorted candidate pool for conditioning:
// ancestors of exposure or outcome, minus the endpoints and every descendant
// of the exposure (conditioning on those would block the causal path or
// introduce selection on the effect).
func (g *Graph) adjustmentCandidates() []string {
	expAnc := g.Ancestors(g.exposure)
	outAnc := g.Ancestors(g.outcome)
	expDesc := g.Descendants(g.exposure)

	pool := make(map[string]bool)
	for n := range expAnc {
		pool[n] = true
	}
	for n := range outAnc {
		pool[n] = true
	}
	delete(pool, g.exposure)
	delete(pool, g.outcome)
	for n := range expDesc {
		delete(pool, n)
	}

	candidates := make([]string, 0, len(pool))
	for n := range pool {
		candidates = append(candidates, n)
	}
	sort.Strings(candidates)
	return candidates
}

func (g *Graph) blocksAllBackdoorPaths(paths []Path, z map[string]bool) bool {
	for _, p := range paths {
		if g.IsPathOpen(p, z) {
			return false
		}
	}
	return true
}

// containsSubsetOf reports whether any already-found set is a subset of z.
// Sets are visited in increasing size, so this is the minimality check.
func containsSubsetOf(found []model.AdjustmentSet, z map[string]bool) bool {
	for _, set := range found {
		subset := true
		for _, n := range set {
			if !z[n] {
				subset = false
				break
			}
		}
		if subset {
			return true
		}
	}
	return false
}

// forEachCombination visits every size-k index combination of [0, n) in
// lexicographic order. The callback returns false to stop; the function
// reports whether the enumeration ran to completion.
func forEachCombination(n, k int, fn func(indices []int) bool) bool {
	if k == 0 {
		return fn(nil)
	}
	if k > n {
		return true
	}
	indices := make([]int, k)
	for i := range indices {
		indices[i] = i
	}
	for {
		if !fn(indices) {
			return false
		}
		// Advance to the next combination.
		i := k - 1
		for i >= 0 && indices[i] == n-k+i {
			i--
		}
		if i < 0 {
			return true
		}
		indices[i]++
		for j := i + 1; j < k; j++ {
			indices[j] = indices[j-1] + 1
		}
	}
}

func subsetCount(n, maxSize int) int {
	total := 0
	c := 1
	for k := 0; k <= maxSize; k++ {
		total += c
		if k < n {
			c = c * (n - k) / (k + 1)
		}
	}
	return total
}
