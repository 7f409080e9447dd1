package bias

import (
	"context"
	"reflect"
	"testing"

	"github.com/ritzau/dag-analyzer/pkg/graph"
)

func mGraph(t *testing.T) *graph.Graph {
	t.Helper()
	// Classic M structure: u1 -> c <- u2, u1 -> a, u2 -> y, a -> y.
	return mustBuild(t,
		[]string{"a", "y", "u1", "u2", "c"},
		[][2]string{{"u1", "c"}, {"u2", "c"}, {"u1", "a"}, {"u2", "y"}, {"a", "y"}},
		"a", "y")
}

func TestAnalyzeMBiasDetectsCollider(t *testing.T) {
	g := mGraph(t)
	report, err := AnalyzeMBias(context.Background(), g, MBiasOptions{})
	if err != nil {
		t.Fatalf("AnalyzeMBias() error = %v", err)
	}

	if len(report.MinimalSets) != 1 || len(report.MinimalSets[0]) != 0 {
		t.Fatalf("Expected the empty set as the only minimal set, got %v", report.MinimalSets)
	}
	if len(report.Structures) != 1 {
		t.Fatalf("Expected 1 M-bias structure, got %d", len(report.Structures))
	}
	s := report.Structures[0]
	if s.Node != "c" {
		t.Errorf("Expected structure node c, got %q", s.Node)
	}
	if !reflect.DeepEqual(s.Parents, []string{"u1", "u2"}) {
		t.Errorf("Expected parents [u1 u2], got %v", s.Parents)
	}
	if len(s.OffendingPaths) == 0 {
		t.Error("Expected at least one offending path through c")
	}
}

func TestAnalyzeMBiasVerification(t *testing.T) {
	g := mGraph(t)
	report, err := AnalyzeMBias(context.Background(), g, MBiasOptions{})
	if err != nil {
		t.Fatalf("AnalyzeMBias() error = %v", err)
	}

	// Only the direct causal path a -> y is open; the path through c is
	// blocked by the collider until c enters the conditioning set.
	if report.OpenPathsBaseline != 1 {
		t.Errorf("Expected 1 open path unconditioned, got %d", report.OpenPathsBaseline)
	}
	if report.OpenPathsChosen != 1 {
		t.Errorf("Expected 1 open path under the chosen set, got %d", report.OpenPathsChosen)
	}
	if report.OpenPathsWithMBias != 2 {
		t.Errorf("Expected 2 open paths after conditioning on c, got %d", report.OpenPathsWithMBias)
	}
	if report.VerifiedStructure != "c" {
		t.Errorf("Expected verified structure c, got %q", report.VerifiedStructure)
	}
	if report.OpenPathsWithMBias < report.OpenPathsChosen {
		t.Error("Conditioning on the structure must never close paths")
	}
}

func TestAnalyzeMBiasNone(t *testing.T) {
	g := mustBuild(t,
		[]string{"x", "y", "z"},
		[][2]string{{"z", "x"}, {"z", "y"}, {"x", "y"}},
		"x", "y")

	report, err := AnalyzeMBias(context.Background(), g, MBiasOptions{})
	if err != nil {
		t.Fatalf("AnalyzeMBias() error = %v", err)
	}
	if len(report.Structures) != 0 {
		t.Errorf("Expected no M-bias structures, got %v", report.Structures)
	}
	if !report.ChosenSet.Contains("z") {
		t.Errorf("Expected chosen set to contain z, got %v", report.ChosenSet)
	}
	if report.OpenPathsWithMBias != report.OpenPathsChosen {
		t.Error("With no structure the verification counts must match")
	}
}

func TestAnalyzeMBiasChosenSetDeterministic(t *testing.T) {
	g := mGraph(t)
	first, err := AnalyzeMBias(context.Background(), g, MBiasOptions{})
	if err != nil {
		t.Fatalf("AnalyzeMBias() error = %v", err)
	}
	second, err := AnalyzeMBias(context.Background(), g, MBiasOptions{})
	if err != nil {
		t.Fatalf("AnalyzeMBias() error = %v", err)
	}
	if !reflect.DeepEqual(first.ChosenSet, second.ChosenSet) {
		t.Errorf("Chosen sets differ: %v vs %v", first.ChosenSet, second.ChosenSet)
	}
	if !reflect.DeepEqual(first.Structures, second.Structures) {
		t.Errorf("Structures differ across reruns")
	}
}
