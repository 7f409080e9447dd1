package graph

import (
	"sort"
	"sync"

	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/ritzau/dag-analyzer/pkg/logging"
	"github.com/ritzau/dag-analyzer/pkg/model"
)

type gonumNodes = gonumgraph.Nodes

// Graph represents a directed causal graph with one designated exposure and
// one designated outcome node. A Graph is immutable once built; all
// transformations return a new Graph. Ancestor/descendant closures are
// memoized per instance.
type Graph struct {
	g        *simple.DirectedGraph
	ids      map[string]int64 // node id -> gonum id
	names    map[int64]string // gonum id -> node id
	nextID   int64
	exposure string
	outcome  string

	droppedSelfLoops int

	mu          sync.Mutex
	ancestors   map[string]map[string]bool
	descendants map[string]map[string]bool
}

// Build constructs and validates a Graph from a node list, a directed edge
// list, and the exposure/outcome designations. Self-loop edges are dropped
// with a diagnostic; parallel edges are deduplicated. Unknown edge endpoints
// and a missing, duplicate, or equal exposure/outcome pair are validation
// errors.
func Build(nodes []string, edges [][2]string, exposure, outcome string) (*Graph, error) {
	if len(nodes) == 0 {
		return nil, &model.InvalidGraphError{Detail: "empty node set"}
	}
	if exposure == "" || outcome == "" {
		return nil, &model.InvalidGraphError{Detail: "exposure and outcome must both be set"}
	}
	if exposure == outcome {
		return nil, &model.InvalidGraphError{Detail: "exposure and outcome must be distinct"}
	}

	g := &Graph{
		g:           simple.NewDirectedGraph(),
		ids:         make(map[string]int64),
		names:       make(map[int64]string),
		exposure:    exposure,
		outcome:     outcome,
		ancestors:   make(map[string]map[string]bool),
		descendants: make(map[string]map[string]bool),
	}

	for _, n := range nodes {
		g.addNode(n)
	}

	if _, ok := g.ids[exposure]; !ok {
		return nil, &model.InvalidGraphError{Detail: "exposure node " + exposure + " not in node set"}
	}
	if _, ok := g.ids[outcome]; !ok {
		return nil, &model.InvalidGraphError{Detail: "outcome node " + outcome + " not in node set"}
	}

	for _, e := range edges {
		from, to := e[0], e[1]
		if from == to {
			// Literature-derived graphs carry trivial self-assertions;
			// normalize them away but keep the count visible.
			g.droppedSelfLoops++
			logging.Warn("dropping self-loop edge", "node", from)
			continue
		}
		fromID, ok := g.ids[from]
		if !ok {
			return nil, &model.InvalidGraphError{Detail: "edge endpoint " + from + " not in node set"}
		}
		toID, ok := g.ids[to]
		if !ok {
			return nil, &model.InvalidGraphError{Detail: "edge endpoint " + to + " not in node set"}
		}
		if !g.g.HasEdgeFromTo(fromID, toID) {
			g.g.SetEdge(g.g.NewEdge(g.g.Node(fromID), g.g.Node(toID)))
		}
	}

	return g, nil
}

func (g *Graph) addNode(name string) {
	if _, exists := g.ids[name]; exists {
		return
	}
	g.ids[name] = g.nextID
	g.names[g.nextID] = name
	g.g.AddNode(simple.Node(g.nextID))
	g.nextID++
}

// Exposure returns the designated exposure node id
func (g *Graph) Exposure() string { return g.exposure }

// Outcome returns the designated outcome node id
func (g *Graph) Outcome() string { return g.outcome }

// DroppedSelfLoops returns how many self-loop edges were removed at build time
func (g *Graph) DroppedSelfLoops() int { return g.droppedSelfLoops }

// HasNode reports whether the node exists in the graph
func (g *Graph) HasNode(name string) bool {
	_, ok := g.ids[name]
	return ok
}

// HasEdge reports whether a directed edge from -> to exists
func (g *Graph) HasEdge(from, to string) bool {
	fromID, ok := g.ids[from]
	if !ok {
		return false
	}
	toID, ok := g.ids[to]
	if !ok {
		return false
	}
	return g.g.HasEdgeFromTo(fromID, toID)
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int { return len(g.ids) }

// EdgeCount returns the number of directed edges
func (g *Graph) EdgeCount() int {
	count := 0
	iter := g.g.Edges()
	for iter.Next() {
		count++
	}
	return count
}

// Nodes returns all node ids, sorted
func (g *Graph) Nodes() []string {
	nodes := make([]string, 0, len(g.ids))
	for name := range g.ids {
		nodes = append(nodes, name)
	}
	sort.Strings(nodes)
	return nodes
}

// Edges returns all directed edges as [from, to] pairs, sorted
func (g *Graph) Edges() [][2]string {
	var edges [][2]string
	iter := g.g.Edges()
	for iter.Next() {
		e := iter.Edge()
		edges = append(edges, [2]string{g.names[e.From().ID()], g.names[e.To().ID()]})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

// Parents returns the direct predecessors of a node, sorted
func (g *Graph) Parents(name string) []string {
	id, ok := g.ids[name]
	if !ok {
		return nil
	}
	var parents []string
	iter := g.g.To(id)
	for iter.Next() {
		parents = append(parents, g.names[iter.Node().ID()])
	}
	sort.Strings(parents)
	return parents
}

// Children returns the direct successors of a node, sorted
func (g *Graph) Children(name string) []string {
	id, ok := g.ids[name]
	if !ok {
		return nil
	}
	var children []string
	iter := g.g.From(id)
	for iter.Next() {
		children = append(children, g.names[iter.Node().ID()])
	}
	sort.Strings(children)
	return children
}

// Ancestors returns the set of nodes with a directed path to the given node,
// excluding the node itself. The closure is memoized per Graph.
func (g *Graph) Ancestors(name string) map[string]bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cached, ok := g.ancestors[name]; ok {
		return copySet(cached)
	}
	closure := g.reach(name, g.g.To)
	g.ancestors[name] = closure
	return copySet(closure)
}

// Descendants returns the set of nodes reachable from the given node by a
// directed path, excluding the node itself. The closure is memoized per Graph.
func (g *Graph) Descendants(name string) map[string]bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cached, ok := g.descendants[name]; ok {
		return copySet(cached)
	}
	closure := g.reach(name, g.g.From)
	g.descendants[name] = closure
	return copySet(closure)
}

// reach computes a BFS reachability closure along the given neighbor function
func (g *Graph) reach(name string, neighbors func(int64) gonumNodes) map[string]bool {
	closure := make(map[string]bool)
	start, ok := g.ids[name]
	if !ok {
		return closure
	}
	queue := []int64{start}
	visited := map[int64]bool{start: true}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		iter := neighbors(current)
		for iter.Next() {
			id := iter.Node().ID()
			if !visited[id] {
				visited[id] = true
				closure[g.names[id]] = true
				queue = append(queue, id)
			}
		}
	}
	return closure
}

// ShortestDistance returns the number of edges on the shortest directed path
// from one node to another. ok is false when no path exists.
func (g *Graph) ShortestDistance(from, to string) (dist int, ok bool) {
	fromID, okFrom := g.ids[from]
	toID, okTo := g.ids[to]
	if !okFrom || !okTo {
		return 0, false
	}
	if fromID == toID {
		return 0, true
	}
	type queueNode struct {
		id   int64
		dist int
	}
	queue := []queueNode{{fromID, 0}}
	visited := map[int64]bool{fromID: true}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		iter := g.g.From(current.id)
		for iter.Next() {
			id := iter.Node().ID()
			if id == toID {
				return current.dist + 1, true
			}
			if !visited[id] {
				visited[id] = true
				queue = append(queue, queueNode{id, current.dist + 1})
			}
		}
	}
	return 0, false
}

// WithoutNodes returns a new Graph with the given nodes and their incident
// edges removed. Removing the exposure or outcome node is a validation error.
func (g *Graph) WithoutNodes(remove map[string]bool) (*Graph, error) {
	var nodes []string
	for _, n := range g.Nodes() {
		if !remove[n] {
			nodes = append(nodes, n)
		}
	}
	var edges [][2]string
	for _, e := range g.Edges() {
		if !remove[e[0]] && !remove[e[1]] {
			edges = append(edges, e)
		}
	}
	return Build(nodes, edges, g.exposure, g.outcome)
}

// WithoutEdges returns a new Graph with the given directed edges removed.
// Edges absent from the graph are ignored.
func (g *Graph) WithoutEdges(remove [][2]string) (*Graph, error) {
	removeSet := make(map[[2]string]bool, len(remove))
	for _, e := range remove {
		removeSet[e] = true
	}
	var edges [][2]string
	for _, e := range g.Edges() {
		if !removeSet[e] {
			edges = append(edges, e)
		}
	}
	return Build(g.Nodes(), edges, g.exposure, g.outcome)
}

func copySet(s map[string]bool) map[string]bool {
	out := make(map[string]bool, len(s))
	for k, v := range s {
		if v {
			out[k] = true
		}
	}
	return out
}
