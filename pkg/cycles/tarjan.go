package cycles

import (
	"sort"

	"github.com/ritzau/dag-analyzer/pkg/graph"
)

// TarjanSCC finds strongly connected components using an explicit-stack
// variant of Tarjan's algorithm, so deep graphs cannot exhaust the call stack.
type TarjanSCC struct {
	adjacency map[string][]string
	nodes     []string
	index     int
	stack     []string
	onStack   map[string]bool
	indices   map[string]int
	lowLink   map[string]int
	sccs      [][]string
}

// NewTarjanSCC creates a new Tarjan SCC finder over the graph's adjacency
func NewTarjanSCC(g *graph.Graph) *TarjanSCC {
	nodes := g.Nodes()
	adjacency := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		adjacency[n] = g.Children(n)
	}
	return &TarjanSCC{
		adjacency: adjacency,
		nodes:     nodes,
		onStack:   make(map[string]bool),
		indices:   make(map[string]int),
		lowLink:   make(map[string]int),
	}
}

// FindSCCs returns all strongly connected components with more than one
// node. Any such component contains at least one cycle. Components and their
// members are returned in deterministic order.
func (t *TarjanSCC) FindSCCs() [][]string {
	for _, node := range t.nodes {
		if _, visited := t.indices[node]; !visited {
			t.strongConnect(node)
		}
	}
	for _, scc := range t.sccs {
		sort.Strings(scc)
	}
	sort.Slice(t.sccs, func(i, j int) bool { return t.sccs[i][0] < t.sccs[j][0] })
	return t.sccs
}

// frame holds one node's DFS state on the explicit stack
type frame struct {
	node string
	next int // Index of the next successor to consider
}

// strongConnect runs the Tarjan DFS from root without recursion
func (t *TarjanSCC) strongConnect(root string) {
	dfs := []frame{{node: root}}
	t.visit(root)

	for len(dfs) > 0 {
		top := &dfs[len(dfs)-1]
		successors := t.adjacency[top.node]

		if top.next < len(successors) {
			succ := successors[top.next]
			top.next++
			if _, visited := t.indices[succ]; !visited {
				t.visit(succ)
				dfs = append(dfs, frame{node: succ})
			} else if t.onStack[succ] {
				if t.indices[succ] < t.lowLink[top.node] {
					t.lowLink[top.node] = t.indices[succ]
				}
			}
			continue
		}

		// All successors handled; pop and propagate the low link.
		finished := top.node
		dfs = dfs[:len(dfs)-1]
		if len(dfs) > 0 {
			parent := &dfs[len(dfs)-1]
			if t.lowLink[finished] < t.lowLink[parent.node] {
				t.lowLink[parent.node] = t.lowLink[finished]
			}
		}

		if t.lowLink[finished] == t.indices[finished] {
			var scc []string
			for {
				w := t.stack[len(t.stack)-1]
				t.stack = t.stack[:len(t.stack)-1]
				t.onStack[w] = false
				scc = append(scc, w)
				if w == finished {
					break
				}
			}
			// Single nodes cannot carry a cycle (self-loops are removed
			// at graph construction).
			if len(scc) > 1 {
				t.sccs = append(t.sccs, scc)
			}
		}
	}
}

func (t *TarjanSCC) visit(node string) {
	t.indices[node] = t.index
	t.lowLink[node] = t.index
	t.index++
	t.stack = append(t.stack, node)
	t.onStack[node] = true
}

// FindSCCs finds all strongly connected components of size greater than one
func FindSCCs(g *graph.Graph) [][]string {
	return NewTarjanSCC(g).FindSCCs()
}
