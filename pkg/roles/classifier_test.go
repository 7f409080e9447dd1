package roles

import (
	"context"
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

func mustClassify(t *testing.T, g *graph.Graph) *model.RoleReport {
	t.Helper()
	report, err := Classify(context.Background(), g, graph.SearchOptions{})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	return report
}

func TestClassifyConfounder(t *testing.T) {
	g := mustBuild(t,
		[]string{"x", "y", "z"},
		[][2]string{{"z", "x"}, {"z", "y"}, {"x", "y"}},
		"x", "y")

	report := mustClassify(t, g)
	if report.Roles["z"] != model.RoleConfounder {
		t.Errorf("Expected z to be a confounder, got %q", report.Roles["z"])
	}
}

func TestClassifyMediator(t *testing.T) {
	g := mustBuild(t,
		[]string{"x", "y", "m"},
		[][2]string{{"x", "m"}, {"m", "y"}, {"x", "y"}},
		"x", "y")

	report := mustClassify(t, g)
	if report.Roles["m"] != model.RoleMediator {
		t.Errorf("Expected m to be a mediator, got %q", report.Roles["m"])
	}
}

func TestClassifyCollider(t *testing.T) {
	g := mustBuild(t,
		[]string{"x", "y", "k"},
		[][2]string{{"x", "k"}, {"y", "k"}, {"x", "y"}},
		"x", "y")

	report := mustClassify(t, g)
	if report.Roles["k"] != model.RoleCollider {
		t.Errorf("Expected k to be a collider, got %q", report.Roles["k"])
	}
}

func TestClassifyMGraph(t *testing.T) {
	// u1 -> c <- u2 with u1 -> x and u2 -> y. Neither u is a confounder:
	// the backdoor path through c is blocked by the collider, so the empty
	// set is valid and nothing needs adjusting.
	g := mustBuild(t,
		[]string{"x", "y", "u1", "u2", "c"},
		[][2]string{{"u1", "c"}, {"u2", "c"}, {"u1", "x"}, {"u2", "y"}, {"x", "y"}},
		"x", "y")

	report := mustClassify(t, g)
	if report.Roles["u1"] != model.RoleInstrumentalVariable {
		t.Errorf("Expected u1 to be an instrumental variable, got %q", report.Roles["u1"])
	}
	if report.Roles["u2"] != model.RolePrecisionVariable {
		t.Errorf("Expected u2 to be a precision variable, got %q", report.Roles["u2"])
	}
	if report.Roles["c"] != model.RoleUnclassified {
		t.Errorf("Expected c to be unclassified, got %q", report.Roles["c"])
	}
}

func TestClassifyInstrumentalVariable(t *testing.T) {
	// iv reaches y only through x.
	g := mustBuild(t,
		[]string{"x", "y", "iv"},
		[][2]string{{"iv", "x"}, {"x", "y"}},
		"x", "y")

	report := mustClassify(t, g)
	if report.Roles["iv"] != model.RoleInstrumentalVariable {
		t.Errorf("Expected iv to be an instrumental variable, got %q", report.Roles["iv"])
	}
}

func TestClassifyPrecisionVariable(t *testing.T) {
	g := mustBuild(t,
		[]string{"x", "y", "p"},
		[][2]string{{"p", "y"}, {"x", "y"}},
		"x", "y")

	report := mustClassify(t, g)
	if report.Roles["p"] != model.RolePrecisionVariable {
		t.Errorf("Expected p to be a precision variable, got %q", report.Roles["p"])
	}
}

func TestClassifyUnclassified(t *testing.T) {
	// Disconnected node gets no role.
	g := mustBuild(t,
		[]string{"x", "y", "lone", "a"},
		[][2]string{{"x", "y"}, {"lone", "a"}},
		"x", "y")

	report := mustClassify(t, g)
	if report.Roles["lone"] != model.RoleUnclassified {
		t.Errorf("Expected lone to be unclassified, got %q", report.Roles["lone"])
	}
}

func TestClassifyTotality(t *testing.T) {
	g := mustBuild(t,
		[]string{"x", "y", "z", "m", "k", "iv", "p"},
		[][2]string{
			{"z", "x"}, {"z", "y"},
			{"x", "m"}, {"m", "y"},
			{"x", "k"}, {"y", "k"},
			{"iv", "x"},
			{"p", "y"},
			{"x", "y"},
		},
		"x", "y")

	report := mustClassify(t, g)
	for _, n := range g.Nodes() {
		if n == "x" || n == "y" {
			if _, present := report.Roles[n]; present {
				t.Errorf("Endpoint %s should not carry a role", n)
			}
			continue
		}
		role, present := report.Roles[n]
		if !present {
			t.Errorf("Node %s has no role assigned", n)
		}
		if role == "" {
			t.Errorf("Node %s has an empty role", n)
		}
	}
	if report.Roles["z"] != model.RoleConfounder {
		t.Errorf("Expected z confounder, got %q", report.Roles["z"])
	}
	if report.Roles["m"] != model.RoleMediator {
		t.Errorf("Expected m mediator, got %q", report.Roles["m"])
	}
	if report.Roles["k"] != model.RoleCollider {
		t.Errorf("Expected k collider, got %q", report.Roles["k"])
	}
	if report.Roles["iv"] != model.RoleInstrumentalVariable {
		t.Errorf("Expected iv instrumental, got %q", report.Roles["iv"])
	}
	if report.Roles["p"] != model.RolePrecisionVariable {
		t.Errorf("Expected p precision, got %q", report.Roles["p"])
	}
}

func TestClassifyCombinedRole(t *testing.T) {
	// In a cyclic graph a node can be ancestor and descendant of both
	// endpoints at once.
	g := mustBuild(t,
		[]string{"x", "y", "w"},
		[][2]string{{"x", "y"}, {"x", "w"}, {"y", "w"}, {"w", "x"}},
		"x", "y")

	report := mustClassify(t, g)
	role := report.Roles["w"]
	if role != model.RoleMediatorCollider && role != model.RoleConfounderMediatorCollider {
		t.Errorf("Expected a combined role for w, got %q", role)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	g := mustBuild(t,
		[]string{"x", "y", "z", "m"},
		[][2]string{{"z", "x"}, {"z", "y"}, {"x", "m"}, {"m", "y"}, {"x", "y"}},
		"x", "y")

	first := mustClassify(t, g)
	second := mustClassify(t, g)
	if !reflect.DeepEqual(first.Roles, second.Roles) {
		t.Errorf("Reruns differ: %v vs %v", first.Roles, second.Roles)
	}
}

func TestClassifyCancellation(t *testing.T) {
	// iv guarantees the classifier reaches the per-path instrumental check.
	g := mustBuild(t,
		[]string{"x", "y", "z", "iv"},
		[][2]string{{"z", "x"}, {"z", "y"}, {"iv", "x"}, {"x", "y"}},
		"x", "y")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Classify(ctx, g, graph.SearchOptions{}); err == nil {
		t.Error("Expected an error from a cancelled classification")
	}
}

func TestClassifyRawSets(t *testing.T) {
	g := mustBuild(t,
		[]string{"x", "y", "z", "m", "k"},
		[][2]string{
			{"z", "x"}, {"z", "y"},
			{"x", "m"}, {"m", "y"},
			{"x", "k"}, {"y", "k"},
			{"x", "y"},
		},
		"x", "y")

	report := mustClassify(t, g)
	if !reflect.DeepEqual(report.RawConfounders, []string{"z"}) {
		t.Errorf("Expected raw confounders [z], got %v", report.RawConfounders)
	}
	if !reflect.DeepEqual(report.RawMediators, []string{"m"}) {
		t.Errorf("Expected raw mediators [m], got %v", report.RawMediators)
	}
	if !reflect.DeepEqual(report.RawColliders, []string{"k"}) {
		t.Errorf("Expected raw colliders [k], got %v", report.RawColliders)
	}
}
