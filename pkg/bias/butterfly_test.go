package bias

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ritzau/dag-analyzer/pkg/graph"
	"github.com/ritzau/dag-analyzer/pkg/model"
	"github.com/ritzau/dag-analyzer/pkg/roles"
)

func mustBuild(t *testing.T, nodes []string, edges [][2]string, exposure, outcome string) *graph.Graph {
	t.Helper()
	g, err := graph.Build(nodes, edges, exposure, outcome)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return g
}

func mustClassify(t *testing.T, g *graph.Graph) *model.RoleReport {
	t.Helper()
	report, err := roles.Classify(context.Background(), g, graph.SearchOptions{})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	return report
}

func butterflyGraph(t *testing.T) *graph.Graph {
	t.Helper()
	// c1 and c2 each confound exposure and outcome and are both parents of
	// the hub b, itself a confounder.
	return mustBuild(t,
		[]string{"a", "y", "c1", "c2", "b"},
		[][2]string{
			{"c1", "a"}, {"c1", "y"},
			{"c2", "a"}, {"c2", "y"},
			{"c1", "b"}, {"c2", "b"},
			{"b", "a"}, {"b", "y"},
		},
		"a", "y")
}

func TestAnalyzeButterflyDetectsStructure(t *testing.T) {
	g := butterflyGraph(t)
	report, err := AnalyzeButterfly(context.Background(), g, mustClassify(t, g), ButterflyOptions{})
	if err != nil {
		t.Fatalf("AnalyzeButterfly() error = %v", err)
	}
	if len(report.Structures) != 1 {
		t.Fatalf("Expected 1 butterfly structure, got %d", len(report.Structures))
	}
	s := report.Structures[0]
	if s.Node != "b" {
		t.Errorf("Expected butterfly node b, got %q", s.Node)
	}
	if !reflect.DeepEqual(s.Parents, []string{"c1", "c2"}) {
		t.Errorf("Expected parents [c1 c2], got %v", s.Parents)
	}
	if len(report.NonButterflyConfounders) != 0 {
		t.Errorf("Expected no confounders outside the structure, got %v", report.NonButterflyConfounders)
	}
}

func TestAnalyzeButterflyValidSets(t *testing.T) {
	g := butterflyGraph(t)
	report, err := AnalyzeButterfly(context.Background(), g, mustClassify(t, g), ButterflyOptions{})
	if err != nil {
		t.Fatalf("AnalyzeButterfly() error = %v", err)
	}

	want := []model.AdjustmentSet{
		{"c1", "c2"},
		{"b", "c1"},
		{"b", "c2"},
	}
	if len(report.ValidSets) != len(want) {
		t.Fatalf("Expected %d valid sets, got %d: %v", len(want), len(report.ValidSets), report.ValidSets)
	}
	for _, w := range want {
		found := false
		for _, got := range report.ValidSets {
			if reflect.DeepEqual(got, w) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected valid set %v, got %v", w, report.ValidSets)
		}
	}
}

func TestAnalyzeButterflyNone(t *testing.T) {
	g := mustBuild(t,
		[]string{"x", "y", "z"},
		[][2]string{{"z", "x"}, {"z", "y"}, {"x", "y"}},
		"x", "y")

	report, err := AnalyzeButterfly(context.Background(), g, mustClassify(t, g), ButterflyOptions{})
	if err != nil {
		t.Fatalf("AnalyzeButterfly() error = %v", err)
	}
	if len(report.Structures) != 0 {
		t.Errorf("Expected no butterfly structures, got %v", report.Structures)
	}
	if report.Reason != model.ReasonNoButterflies {
		t.Errorf("Expected reason %q, got %q", model.ReasonNoButterflies, report.Reason)
	}
	if !reflect.DeepEqual(report.NonButterflyConfounders, []string{"z"}) {
		t.Errorf("Expected z outside any structure, got %v", report.NonButterflyConfounders)
	}
}

func TestAnalyzeButterflyIncludesOutsideConfounders(t *testing.T) {
	// An independent confounder w must appear in every valid set.
	g := mustBuild(t,
		[]string{"a", "y", "c1", "c2", "b", "w"},
		[][2]string{
			{"c1", "a"}, {"c1", "y"},
			{"c2", "a"}, {"c2", "y"},
			{"c1", "b"}, {"c2", "b"},
			{"b", "a"}, {"b", "y"},
			{"w", "a"}, {"w", "y"},
		},
		"a", "y")

	report, err := AnalyzeButterfly(context.Background(), g, mustClassify(t, g), ButterflyOptions{})
	if err != nil {
		t.Fatalf("AnalyzeButterfly() error = %v", err)
	}
	if !reflect.DeepEqual(report.NonButterflyConfounders, []string{"w"}) {
		t.Errorf("Expected non-butterfly confounders [w], got %v", report.NonButterflyConfounders)
	}
	for _, set := range report.ValidSets {
		if !set.Contains("w") {
			t.Errorf("Valid set %v should contain w", set)
		}
	}
}

func TestAnalyzeButterflyOptionCap(t *testing.T) {
	g := butterflyGraph(t)
	report, err := AnalyzeButterfly(context.Background(), g, mustClassify(t, g), ButterflyOptions{MaxOptions: 2})
	var tooLarge *model.GraphTooLargeError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("Expected GraphTooLargeError, got %v", err)
	}
	if report == nil || len(report.Structures) != 1 {
		t.Error("Report should still carry the detected structures")
	}
}

func TestAnalyzeButterflyCancellation(t *testing.T) {
	g := butterflyGraph(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := AnalyzeButterfly(ctx, g, mustClassify(t, g), ButterflyOptions{})
	if err != nil {
		t.Fatalf("AnalyzeButterfly() error = %v", err)
	}
	if report.Completed {
		t.Error("Cancelled enumeration should report Completed=false")
	}
}
