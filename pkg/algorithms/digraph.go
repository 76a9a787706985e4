package algorithms

import "sort"

// Digraph is a small directed graph keyed by string identifiers.
// Node insertion order is preserved so every traversal is deterministic.
type Digraph struct {
	nodes []string
	index map[string]int
	out   map[string][]string
}

// NewDigraph creates an empty directed graph
func NewDigraph() *Digraph {
	return &Digraph{
		index: make(map[string]int),
		out:   make(map[string][]string),
	}
}

// AddNode adds a node if it is not already present
func (g *Digraph) AddNode(id string) {
	if _, exists := g.index[id]; exists {
		return
	}
	g.index[id] = len(g.nodes)
	g.nodes = append(g.nodes, id)
}

// AddEdge adds a directed edge, creating both endpoints if needed.
// Parallel edges are collapsed.
func (g *Digraph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	for _, existing := range g.out[from] {
		if existing == to {
			return
		}
	}
	g.out[from] = append(g.out[from], to)
}

// HasNode reports whether id is part of the graph
func (g *Digraph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Nodes returns the node identifiers in insertion order
func (g *Digraph) Nodes() []string {
	nodes := make([]string, len(g.nodes))
	copy(nodes, g.nodes)
	return nodes
}

// Successors returns the outgoing neighbours of id in insertion order
func (g *Digraph) Successors(id string) []string {
	succ := make([]string, len(g.out[id]))
	copy(succ, g.out[id])
	return succ
}

// NodeCount returns the number of nodes
func (g *Digraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of distinct edges
func (g *Digraph) EdgeCount() int {
	count := 0
	for _, succ := range g.out {
		count += len(succ)
	}
	return count
}

// InDegrees returns the in-degree of every node
func (g *Digraph) InDegrees() map[string]int {
	inDegree := make(map[string]int, len(g.nodes))
	for _, id := range g.nodes {
		inDegree[id] = 0
	}
	for _, id := range g.nodes {
		for _, to := range g.out[id] {
			inDegree[to]++
		}
	}
	return inDegree
}

// Reverse returns a copy of the graph with every edge flipped
func (g *Digraph) Reverse() *Digraph {
	rev := NewDigraph()
	for _, id := range g.nodes {
		rev.AddNode(id)
	}
	for _, id := range g.nodes {
		for _, to := range g.out[id] {
			rev.AddEdge(to, id)
		}
	}
	return rev
}

// Reachable returns every node reachable from the given sources (sources included)
func (g *Digraph) Reachable(sources ...string) map[string]bool {
	visited := make(map[string]bool)
	queue := make([]string, 0, len(sources))
	for _, s := range sources {
		if g.HasNode(s) && !visited[s] {
			visited[s] = true
			queue = append(queue, s)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range g.out[current] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	return visited
}

// sortedKeys returns map keys in ascending order
func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
