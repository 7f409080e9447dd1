package cycles

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ritzau/dag-analyzer/pkg/graph"
	"github.com/ritzau/dag-analyzer/pkg/model"
)

func mustBuild(t *testing.T, nodes []string, edges [][2]string, exposure, outcome string) *graph.Graph {
	t.Helper()
	g, err := graph.Build(nodes, edges, exposure, outcome)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return g
}

func TestEnumerateNoCycles(t *testing.T) {
	g := mustBuild(t,
		[]string{"x", "y", "z"},
		[][2]string{{"z", "x"}, {"z", "y"}, {"x", "y"}},
		"x", "y")

	report, err := EnumerateElementaryCycles(context.Background(), g, Options{})
	if err != nil {
		t.Fatalf("EnumerateElementaryCycles() error = %v", err)
	}
	if len(report.Cycles) != 0 {
		t.Errorf("Expected no cycles in a DAG, got %d", len(report.Cycles))
	}
	if len(report.SCCSizes) != 0 {
		t.Errorf("Expected no cyclic SCCs, got sizes %v", report.SCCSizes)
	}
	if !report.Completed {
		t.Error("Enumeration should be marked completed")
	}
}

func TestEnumerateTwoCycle(t *testing.T) {
	g := mustBuild(t,
		[]string{"x", "y", "a"},
		[][2]string{{"x", "y"}, {"a", "x"}, {"x", "a"}},
		"x", "y")

	report, err := EnumerateElementaryCycles(context.Background(), g, Options{})
	if err != nil {
		t.Fatalf("EnumerateElementaryCycles() error = %v", err)
	}
	if len(report.Cycles) != 1 {
		t.Fatalf("Expected 1 cycle, got %d", len(report.Cycles))
	}
	if !reflect.DeepEqual(report.Cycles[0].Nodes, []string{"a", "x"}) {
		t.Errorf("Expected cycle [a x], got %v", report.Cycles[0].Nodes)
	}
	if report.LengthHistogram[2] != 1 {
		t.Errorf("Expected one length-2 cycle, got histogram %v", report.LengthHistogram)
	}
}

func TestEnumerateOverlappingCycles(t *testing.T) {
	// a -> b -> c -> a with a shortcut b -> a: two elementary cycles
	// sharing the a-b edge.
	g := mustBuild(t,
		[]string{"x", "y", "a", "b", "c"},
		[][2]string{
			{"x", "y"},
			{"a", "b"}, {"b", "c"}, {"c", "a"}, {"b", "a"},
			{"a", "x"},
		},
		"x", "y")

	report, err := EnumerateElementaryCycles(context.Background(), g, Options{})
	if err != nil {
		t.Fatalf("EnumerateElementaryCycles() error = %v", err)
	}
	if len(report.Cycles) != 2 {
		t.Fatalf("Expected 2 cycles, got %d: %v", len(report.Cycles), report.Cycles)
	}
	if report.LengthHistogram[2] != 1 || report.LengthHistogram[3] != 1 {
		t.Errorf("Expected one 2-cycle and one 3-cycle, got histogram %v", report.LengthHistogram)
	}
	if report.Participation["a"] != 2 || report.Participation["b"] != 2 {
		t.Errorf("Expected a and b in both cycles, got participation %v", report.Participation)
	}
	if report.Participation["c"] != 1 {
		t.Errorf("Expected c in one cycle, got %d", report.Participation["c"])
	}
	if len(report.Ranking) == 0 || report.Ranking[0].Node != "a" {
		t.Errorf("Expected a ranked first, got %v", report.Ranking)
	}
}

func TestEnumerateMultipleSCCs(t *testing.T) {
	g := mustBuild(t,
		[]string{"x", "y", "a", "b", "c", "d"},
		[][2]string{
			{"x", "y"},
			{"a", "b"}, {"b", "a"},
			{"c", "d"}, {"d", "c"},
			{"b", "c"},
			{"a", "x"},
		},
		"x", "y")

	report, err := EnumerateElementaryCycles(context.Background(), g, Options{})
	if err != nil {
		t.Fatalf("EnumerateElementaryCycles() error = %v", err)
	}
	if len(report.SCCSizes) != 2 {
		t.Fatalf("Expected 2 cyclic SCCs, got sizes %v", report.SCCSizes)
	}
	if len(report.Cycles) != 2 {
		t.Errorf("Expected 2 cycles, got %d", len(report.Cycles))
	}
}

func TestEnumerateIdempotent(t *testing.T) {
	g := mustBuild(t,
		[]string{"x", "y", "a", "b", "c"},
		[][2]string{
			{"x", "y"},
			{"a", "b"}, {"b", "c"}, {"c", "a"}, {"b", "a"},
			{"a", "x"},
		},
		"x", "y")

	first, err := EnumerateElementaryCycles(context.Background(), g, Options{})
	if err != nil {
		t.Fatalf("EnumerateElementaryCycles() error = %v", err)
	}
	second, err := EnumerateElementaryCycles(context.Background(), g, Options{})
	if err != nil {
		t.Fatalf("EnumerateElementaryCycles() error = %v", err)
	}
	if !reflect.DeepEqual(first.Cycles, second.Cycles) {
		t.Errorf("Reruns differ: %v vs %v", first.Cycles, second.Cycles)
	}
	if !reflect.DeepEqual(first.Ranking, second.Ranking) {
		t.Errorf("Rankings differ: %v vs %v", first.Ranking, second.Ranking)
	}
}

func TestEnumerateNodeCap(t *testing.T) {
	g := mustBuild(t,
		[]string{"x", "y", "a", "b", "c"},
		[][2]string{
			{"x", "y"},
			{"a", "b"}, {"b", "c"}, {"c", "a"},
			{"a", "x"},
		},
		"x", "y")

	report, err := EnumerateElementaryCycles(context.Background(), g, Options{MaxNodes: 2})
	var tooLarge *model.GraphTooLargeError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("Expected GraphTooLargeError, got %v", err)
	}
	if tooLarge.Size != 3 || tooLarge.Limit != 2 {
		t.Errorf("Expected size 3, limit 2, got size %d, limit %d", tooLarge.Size, tooLarge.Limit)
	}
	if report == nil || len(report.SCCSizes) != 1 {
		t.Errorf("Report should still carry SCC sizes, got %+v", report)
	}
}

func TestEnumerateCycleBudget(t *testing.T) {
	// Complete directed graph on four nodes has 20 elementary cycles.
	nodes := []string{"x", "y", "a", "b", "c", "d"}
	edges := [][2]string{{"x", "y"}}
	cyclic := []string{"a", "b", "c", "d"}
	for _, from := range cyclic {
		for _, to := range cyclic {
			if from != to {
				edges = append(edges, [2]string{from, to})
			}
		}
	}
	g := mustBuild(t, nodes, edges, "x", "y")

	report, err := EnumerateElementaryCycles(context.Background(), g, Options{MaxCycles: 5})
	if err != nil {
		t.Fatalf("EnumerateElementaryCycles() error = %v", err)
	}
	if report.Completed {
		t.Error("Budget-exhausted run should report Completed=false")
	}
	if len(report.Cycles) != 5 {
		t.Errorf("Expected 5 cycles under the budget, got %d", len(report.Cycles))
	}
}

func TestEnumerateCancellation(t *testing.T) {
	g := mustBuild(t,
		[]string{"x", "y", "a", "b"},
		[][2]string{{"x", "y"}, {"a", "b"}, {"b", "a"}, {"a", "x"}},
		"x", "y")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := EnumerateElementaryCycles(ctx, g, Options{})
	if err != nil {
		t.Fatalf("EnumerateElementaryCycles() error = %v", err)
	}
	if report.Completed {
		t.Error("Cancelled run should report Completed=false")
	}
}
