package graph

import "iter"

// Path is a simple walk between two endpoints. Nodes holds the node
// sequence; Forward[i] reports whether the edge between Nodes[i] and
// Nodes[i+1] is oriented Nodes[i] -> Nodes[i+1]. Interior nodes with both
// adjacent edges pointing into them are colliders on the path.
type Path struct {
	Nodes   []string
	Forward []bool
}

// IsCollider reports whether the interior node at index i is a collider on
// this path, i.e. both adjacent edges point into it.
func (p Path) IsCollider(i int) bool {
	if i <= 0 || i >= len(p.Nodes)-1 {
		return false
	}
	return p.Forward[i-1] && !p.Forward[i]
}

// IntoFirst reports whether the path's first edge points into its first node,
// which makes a path starting at the exposure a backdoor path.
func (p Path) IntoFirst() bool {
	return len(p.Forward) > 0 && !p.Forward[0]
}

// IsPathOpen applies the d-separation blocking criterion to a path under the
// conditioning set z. A non-collider blocks the path iff it is in z; a
// collider blocks it iff it is not in z and none of its descendants are in z.
// The path is open iff no interior node blocks it.
func (g *Graph) IsPathOpen(p Path, z map[string]bool) bool {
	for i := 1; i < len(p.Nodes)-1; i++ {
		node := p.Nodes[i]
		if p.IsCollider(i) {
			if z[node] {
				continue
			}
			opened := false
			for desc := range g.Descendants(node) {
				if z[desc] {
					opened = true
					break
				}
			}
			if !opened {
				return false
			}
		} else if z[node] {
			return false
		}
	}
	return true
}

// DirectedPaths returns a lazy sequence of all simple directed paths from one
// node to another, each as a node sequence. maxLen bounds the number of edges
// per path; maxLen <= 0 means unbounded. Worst case is exponential, so
// callers must bound graph size or consumption.
func (g *Graph) DirectedPaths(from, to string, maxLen int) iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		if !g.HasNode(from) || !g.HasNode(to) {
			return
		}
		onPath := map[string]bool{from: true}
		path := []string{from}
		g.directedPathsFrom(from, to, maxLen, path, onPath, yield)
	}
}

func (g *Graph) directedPathsFrom(current, to string, maxLen int, path []string, onPath map[string]bool, yield func([]string) bool) bool {
	if current == to {
		out := make([]string, len(path))
		copy(out, path)
		return yield(out)
	}
	if maxLen > 0 && len(path) > maxLen {
		return true
	}
	for _, next := range g.Children(current) {
		if onPath[next] {
			continue
		}
		onPath[next] = true
		if !g.directedPathsFrom(next, to, maxLen, append(path, next), onPath, yield) {
			return false
		}
		delete(onPath, next)
	}
	return true
}

// Walks returns a lazy sequence of all simple paths between two nodes over
// the graph's skeleton, traversing edges in either direction and recording
// each step's orientation. These are the paths d-separation reasons about.
func (g *Graph) Walks(from, to string, maxLen int) iter.Seq[Path] {
	return func(yield func(Path) bool) {
		if !g.HasNode(from) || !g.HasNode(to) {
			return
		}
		onPath := map[string]bool{from: true}
		g.walksFrom(from, to, maxLen, []string{from}, nil, onPath, yield)
	}
}

type step struct {
	node    string
	forward bool
}

func (g *Graph) walksFrom(current, to string, maxLen int, nodes []string, forward []bool, onPath map[string]bool, yield func(Path) bool) bool {
	if current == to {
		p := Path{Nodes: make([]string, len(nodes)), Forward: make([]bool, len(forward))}
		copy(p.Nodes, nodes)
		copy(p.Forward, forward)
		return yield(p)
	}
	if maxLen > 0 && len(nodes) > maxLen {
		return true
	}
	for _, s := range g.neighborSteps(current) {
		if onPath[s.node] {
			continue
		}
		onPath[s.node] = true
		if !g.walksFrom(s.node, to, maxLen, append(nodes, s.node), append(forward, s.forward), onPath, yield) {
			return false
		}
		delete(onPath, s.node)
	}
	return true
}

// neighborSteps returns the skeleton neighbors of a node with orientation,
// children first then parents, each group sorted for deterministic traversal.
func (g *Graph) neighborSteps(name string) []step {
	children := g.Children(name)
	parents := g.Parents(name)
	steps := make([]step, 0, len(children)+len(parents))
	for _, c := range children {
		steps = append(steps, step{node: c, forward: true})
	}
	for _, p := range parents {
		// A neighbor joined by edges in both directions yields two steps;
		// the orientations give distinct paths for the blocking criterion.
		steps = append(steps, step{node: p, forward: false})
	}
	return steps
}

// BackdoorPaths returns every simple skeleton path from the exposure to the
// outcome whose first edge points into the exposure.
func (g *Graph) BackdoorPaths(maxLen int) []Path {
	var paths []Path
	for p := range g.Walks(g.exposure, g.outcome, maxLen) {
		if p.IntoFirst() {
			paths = append(paths, p)
		}
	}
	return paths
}
