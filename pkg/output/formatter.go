package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/ritzau/dag-analyzer/pkg/model"
)

// PrintReport prints a nicely formatted analysis report with colors
func PrintReport(report *model.AnalysisReport) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	bold.Println("Causal DAG Analyzer - Analysis Report")
	bold.Println("=====================================")
	fmt.Printf("Exposure: %s\n", report.Exposure)
	fmt.Printf("Outcome:  %s\n", report.Outcome)
	fmt.Printf("Graph: %d nodes, %d edges\n", report.NodeCount, report.EdgeCount)
	fmt.Println()

	if report.Prune != nil {
		cyan.Println("PRUNING:")
		fmt.Printf("  Generic nodes removed: %d\n", report.Prune.RemovedGenericNodes)
		fmt.Printf("  Leaf nodes removed: %d (%d passes)\n", report.Prune.LeafPrunedNodes, report.Prune.LeafPruneIterations)
		fmt.Printf("  Feedback edges broken: %d\n", report.Prune.BrokenFeedbackEdges)
		fmt.Println()
	}

	if report.Cycles != nil {
		printCycles(report.Cycles, red, green, yellow, cyan)
	}
	if report.Roles != nil {
		printRoles(report.Roles, cyan)
	}
	if report.Butterfly != nil {
		printButterfly(report.Butterfly, red, green, cyan)
	}
	if report.MBias != nil {
		printMBias(report.MBias, red, green, cyan)
	}
	if report.Confounders != nil {
		printConfounders(report.Confounders, green, yellow, cyan)
	}
}

func printCycles(cycles *model.CycleReport, red, green, yellow, cyan *color.Color) {
	cyan.Println("CYCLES:")
	if len(cycles.Cycles) == 0 {
		green.Println("  Graph is acyclic")
		fmt.Println()
		return
	}

	yellow.Printf("  Found %d elementary cycle(s)", len(cycles.Cycles))
	if !cycles.Completed {
		red.Print("  (enumeration incomplete)")
	}
	fmt.Println()

	lengths := make([]int, 0, len(cycles.LengthHistogram))
	for length := range cycles.LengthHistogram {
		lengths = append(lengths, length)
	}
	sort.Ints(lengths)
	for _, length := range lengths {
		fmt.Printf("    length %d: %d\n", length, cycles.LengthHistogram[length])
	}

	limit := len(cycles.Ranking)
	if limit > 10 {
		limit = 10
	}
	fmt.Println("  Most cycle-involved nodes:")
	for _, rank := range cycles.Ranking[:limit] {
		fmt.Printf("    %s: %d cycle(s)\n", rank.Node, rank.Count)
	}
	fmt.Println()
}

func printRoles(roleReport *model.RoleReport, cyan *color.Color) {
	cyan.Println("CAUSAL ROLES:")
	order := []model.Role{
		model.RoleConfounder,
		model.RoleMediator,
		model.RoleCollider,
		model.RoleInstrumentalVariable,
		model.RolePrecisionVariable,
		model.RoleConfounderMediator,
		model.RoleConfounderCollider,
		model.RoleMediatorCollider,
		model.RoleConfounderMediatorCollider,
		model.RoleUnclassified,
	}
	for _, role := range order {
		nodes := roleReport.NodesWithRole(role)
		if len(nodes) == 0 {
			continue
		}
		fmt.Printf("  %-28s %s\n", string(role)+":", strings.Join(nodes, ", "))
	}
	fmt.Println()
}

func printButterfly(butterfly *model.ButterflyReport, red, green, cyan *color.Color) {
	cyan.Println("BUTTERFLY BIAS:")
	if len(butterfly.Structures) == 0 {
		green.Println("  No butterfly structures detected")
		fmt.Println()
		return
	}

	for _, structure := range butterfly.Structures {
		red.Printf("  %s", structure.Node)
		fmt.Printf(" caused by confounders: %s\n", strings.Join(structure.Parents, ", "))
	}
	fmt.Println("  Valid adjustment sets:")
	for _, set := range butterfly.ValidSets {
		fmt.Printf("    {%s}\n", strings.Join(set, ", "))
	}
	if !butterfly.Completed {
		red.Println("  (enumeration incomplete)")
	}
	fmt.Println()
}

func printMBias(mbias *model.MBiasReport, red, green, cyan *color.Color) {
	cyan.Println("M-BIAS:")
	if len(mbias.Structures) == 0 {
		green.Println("  No M-bias structures detected")
		fmt.Println()
		return
	}

	for _, structure := range mbias.Structures {
		red.Printf("  %s", structure.Node)
		fmt.Printf(" (parents: %s) lies on %d exposure-outcome path(s)\n",
			strings.Join(structure.Parents, ", "), len(structure.OffendingPaths))
	}
	fmt.Printf("  Chosen adjustment set: {%s}\n", strings.Join(mbias.ChosenSet, ", "))
	fmt.Printf("  Open paths: %d unadjusted, %d adjusted, %d adjusted + %s\n",
		mbias.OpenPathsBaseline, mbias.OpenPathsChosen, mbias.OpenPathsWithMBias, mbias.VerifiedStructure)
	fmt.Println()
}

func printConfounders(confounderReport *model.ConfounderReport, green, yellow, cyan *color.Color) {
	cyan.Println("COMMON-PARENT CONFOUNDERS:")
	if len(confounderReport.Candidates) == 0 {
		fmt.Println("  No common-parent candidates found")
		fmt.Println()
		return
	}

	for _, candidate := range confounderReport.Candidates {
		if candidate.Adjustable {
			green.Printf("  %s: %s\n", candidate.Node, candidate.Class)
		} else {
			yellow.Printf("  %s: %s (cycle via exposure: %s, via outcome: %s)\n",
				candidate.Node, candidate.Class,
				cycleLen(candidate.CycleLenA), cycleLen(candidate.CycleLenY))
		}
	}
	fmt.Println()
}

func cycleLen(length int) string {
	if length == 0 {
		return "none"
	}
	return fmt.Sprintf("%d edges", length)
}
