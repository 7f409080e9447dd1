package model

import "sort"

// Role represents the causal role of a variable relative to exposure and outcome
type Role string

const (
	RoleConfounder                 Role = "confounder"
	RoleMediator                   Role = "mediator"
	RoleCollider                   Role = "collider"
	RoleInstrumentalVariable       Role = "instrumental_variable"
	RolePrecisionVariable          Role = "precision_variable"
	RoleConfounderMediator         Role = "confounder_mediator"
	RoleConfounderCollider         Role = "confounder_collider"
	RoleMediatorCollider           Role = "mediator_collider"
	RoleConfounderMediatorCollider Role = "confounder_mediator_collider"
	RoleUnclassified               Role = "unclassified"
)

// Reason explains why an enumeration produced an empty result
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonNoBackdoorPaths Reason = "no-backdoor-paths"
	ReasonNoValidSet      Reason = "no-valid-set"
	ReasonNoButterflies   Reason = "no-butterfly-structures"
	ReasonNoCandidates    Reason = "no-candidates"
)

// AdjustmentSet is a set of node ids proposed for statistical conditioning
type AdjustmentSet []string

// Contains reports whether the set includes the given node
func (s AdjustmentSet) Contains(node string) bool {
	for _, n := range s {
		if n == node {
			return true
		}
	}
	return false
}

// AdjustmentSetResult holds the outcome of an adjustment-set search
type AdjustmentSetResult struct {
	Sets      []AdjustmentSet `json:"sets"`
	Reason    Reason          `json:"reason,omitempty"`
	Completed bool            `json:"completed"` // False when the search was cancelled or hit its budget
}

// RoleReport maps every non-exposure/outcome node to its causal role
type RoleReport struct {
	Exposure string          `json:"exposure"`
	Outcome  string          `json:"outcome"`
	Roles    map[string]Role `json:"roles"`

	// Raw sets retained for audit; the pure categories are derived from
	// these by set difference.
	RawConfounders []string `json:"rawConfounders,omitempty"`
	RawMediators   []string `json:"rawMediators,omitempty"`
	RawColliders   []string `json:"rawColliders,omitempty"`
}

// NodesWithRole returns the nodes assigned the given role, sorted by id
func (r *RoleReport) NodesWithRole(role Role) []string {
	var nodes []string
	for node, assigned := range r.Roles {
		if assigned == role {
			nodes = append(nodes, node)
		}
	}
	sort.Strings(nodes)
	return nodes
}

// ButterflyStructure represents a confounder caused by two or more confounders
type ButterflyStructure struct {
	Node    string   `json:"node"`
	Parents []string `json:"parents"` // Confounder parents, sorted by id
}

// ButterflyReport holds the butterfly-bias analysis output
type ButterflyReport struct {
	Structures              []ButterflyStructure `json:"structures"`
	NonButterflyConfounders []string             `json:"nonButterflyConfounders"`
	ValidSets               []AdjustmentSet      `json:"validSets"`
	Reason                  Reason               `json:"reason,omitempty"`
	Completed               bool                 `json:"completed"`
}

// MBiasStructure represents a collider whose conditioning would open an
// otherwise-blocked backdoor path
type MBiasStructure struct {
	Node           string     `json:"node"`
	Parents        []string   `json:"parents"`
	OffendingPaths [][]string `json:"offendingPaths"` // Exposure-outcome paths through the node
}

// MBiasReport holds the M-bias analysis output, including the open-path
// verification that demonstrates the hazard of conditioning on the structure.
type MBiasReport struct {
	Structures         []MBiasStructure `json:"structures"`
	MinimalSets        []AdjustmentSet  `json:"minimalSets"`
	ChosenSet          AdjustmentSet    `json:"chosenSet"`
	OpenPathsBaseline  int              `json:"openPathsBaseline"`  // No conditioning
	OpenPathsChosen    int              `json:"openPathsChosen"`    // Conditioning on ChosenSet
	OpenPathsWithMBias int              `json:"openPathsWithMBias"` // ChosenSet plus one M-bias node
	VerifiedStructure  string           `json:"verifiedStructure,omitempty"`
	Completed          bool             `json:"completed"`
}

// CycleRecord represents a single elementary cycle as its node sequence
type CycleRecord struct {
	Nodes []string `json:"nodes"`
}

// Len returns the cycle length in edges
func (c CycleRecord) Len() int {
	return len(c.Nodes)
}

// NodeRank pairs a node with its cycle participation count
type NodeRank struct {
	Node  string `json:"node"`
	Count int    `json:"count"`
}

// CycleReport aggregates elementary-cycle enumeration results
type CycleReport struct {
	Cycles          []CycleRecord  `json:"cycles"`
	Participation   map[string]int `json:"participation"`
	LengthHistogram map[int]int    `json:"lengthHistogram"`
	Ranking         []NodeRank     `json:"ranking"` // Participation descending, ties by node id
	SCCSizes        []int          `json:"sccSizes"`
	Completed       bool           `json:"completed"`
}

// FeedbackClass classifies a confounder candidate's return path to exposure or outcome
type FeedbackClass string

const (
	PureConfounder FeedbackClass = "pure_confounder"
	TightFeedback  FeedbackClass = "tight_feedback"
	LongFeedback   FeedbackClass = "long_feedback"
)

// ConfounderCandidate represents a common parent of exposure and outcome,
// annotated with the shortest return-path cycle lengths through each endpoint.
// A cycle length of 0 means no return path exists through that endpoint.
type ConfounderCandidate struct {
	Node       string        `json:"node"`
	CycleLenA  int           `json:"cycleLenExposure"`
	CycleLenY  int           `json:"cycleLenOutcome"`
	Class      FeedbackClass `json:"class"`
	Adjustable bool          `json:"adjustable"` // Only pure confounders are valid for adjustment
}

// ConfounderReport holds the common-parent confounder discovery output
type ConfounderReport struct {
	Candidates []ConfounderCandidate `json:"candidates"`
	Reason     Reason                `json:"reason,omitempty"`
}

// PruneReport describes a pruning-pipeline run
type PruneReport struct {
	RemovedGenericNodes int `json:"removedGenericNodes"`
	LeafPruneIterations int `json:"leafPruneIterations"`
	LeafPrunedNodes     int `json:"leafPrunedNodes"`
	BrokenFeedbackEdges int `json:"brokenFeedbackEdges"`
}

// AnalysisReport bundles the outputs of a full analysis run
type AnalysisReport struct {
	Exposure    string            `json:"exposure"`
	Outcome     string            `json:"outcome"`
	NodeCount   int               `json:"nodeCount"`
	EdgeCount   int               `json:"edgeCount"`
	Prune       *PruneReport      `json:"prune,omitempty"`
	Cycles      *CycleReport      `json:"cycles,omitempty"`
	Roles       *RoleReport       `json:"roles,omitempty"`
	Butterfly   *ButterflyReport  `json:"butterfly,omitempty"`
	MBias       *MBiasReport      `json:"mbias,omitempty"`
	Confounders *ConfounderReport `json:"confounders,omitempty"`
}
