// Package confounders discovers common-parent confounder candidates and
// classifies their feedback behavior from return-path distances.
package confounders

import (
	"github.com/ritzau/dag-analyzer/pkg/graph"
	"github.com/ritzau/dag-analyzer/pkg/logging"
	"github.com/ritzau/dag-analyzer/pkg/model"
)

// Discover finds every common parent of the exposure and outcome and
// classifies it by the shortest feedback cycle it participates in. For a
// candidate c the closing edges c->exposure and c->outcome are already
// known, so the cycle length through an endpoint is the shortest directed
// distance from that endpoint back to c, plus one.
//
// A candidate with no return path from either endpoint is a pure confounder
// and valid for adjustment; a shortest cycle of three edges or fewer is
// tight feedback, anything longer is long feedback.
func Discover(g *graph.Graph) *model.ConfounderReport {
	exposure, outcome := g.Exposure(), g.Outcome()

	outParents := make(map[string]bool)
	for _, p := range g.Parents(outcome) {
		outParents[p] = true
	}

	report := &model.ConfounderReport{}
	for _, c := range g.Parents(exposure) {
		if !outParents[c] {
			continue
		}

		candidate := model.ConfounderCandidate{Node: c}
		minLen := 0
		if dist, ok := g.ShortestDistance(exposure, c); ok {
			candidate.CycleLenA = dist + 1
			minLen = candidate.CycleLenA
		}
		if dist, ok := g.ShortestDistance(outcome, c); ok {
			candidate.CycleLenY = dist + 1
			if minLen == 0 || candidate.CycleLenY < minLen {
				minLen = candidate.CycleLenY
			}
		}

		switch {
		case minLen == 0:
			candidate.Class = model.PureConfounder
			candidate.Adjustable = true
		case minLen <= 3:
			candidate.Class = model.TightFeedback
		default:
			candidate.Class = model.LongFeedback
		}
		report.Candidates = append(report.Candidates, candidate)
	}

	if len(report.Candidates) == 0 {
		report.Reason = model.ReasonNoCandidates
	}
	logging.Debug("confounder discovery complete", "candidates", len(report.Candidates))
	return report
}
