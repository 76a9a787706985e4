package algorithms

// Cycle represents a detected cycle as a sequence of node IDs
type Cycle []string

// DetectCycles finds cycles in the graph using DFS with three-color marking.
//
// Algorithm: Uses depth-first search with three colors:
//   - WHITE (0): Unvisited node
//   - GRAY (1): Currently visiting (node is in the recursion stack)
//   - BLACK (2): Finished visiting (all descendants have been explored)
//
// When we encounter a GRAY node during DFS, we've found a back edge, which indicates a cycle.
func DetectCycles(graph *Digraph) []Cycle {
	const WHITE = 0

	color := make(map[string]int)
	parent := make(map[string]string)
	cycles := make([]Cycle, 0)

	// DFS from each unvisited node to ensure we cover disconnected components
	for _, nodeID := range graph.Nodes() {
		if color[nodeID] == WHITE {
			dfsDetectCycle(graph, nodeID, color, parent, &cycles)
		}
	}

	return cycles
}

// dfsDetectCycle performs DFS to detect cycles
func dfsDetectCycle(
	graph *Digraph,
	nodeID string,
	color map[string]int,
	parent map[string]string,
	cycles *[]Cycle,
) {
	const (
		WHITE = 0
		GRAY  = 1
		BLACK = 2
	)

	color[nodeID] = GRAY

	for _, neighborID := range graph.Successors(nodeID) {
		// Self-loop detected
		if neighborID == nodeID {
			*cycles = append(*cycles, Cycle{nodeID})
			continue
		}

		if color[neighborID] == WHITE {
			parent[neighborID] = nodeID
			dfsDetectCycle(graph, neighborID, color, parent, cycles)
		} else if color[neighborID] == GRAY {
			// Back edge found - cycle detected!
			*cycles = append(*cycles, extractCycle(neighborID, nodeID, parent))
		}
	}

	color[nodeID] = BLACK
}

// extractCycle reconstructs the cycle from parent pointers
// Given a back edge from 'end' to 'start', we trace back from 'end' to 'start' using parent pointers
func extractCycle(start, end string, parent map[string]string) Cycle {
	cycle := Cycle{start}

	current := end
	for current != start {
		cycle = append(cycle, current)
		p, exists := parent[current]
		if !exists {
			break
		}
		current = p
	}

	return cycle
}

// HasCycle reports whether the graph contains at least one cycle
func HasCycle(graph *Digraph) bool {
	const (
		WHITE = 0
		GRAY  = 1
		BLACK = 2
	)

	color := make(map[string]int)

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = GRAY
		for _, next := range graph.Successors(id) {
			switch color[next] {
			case GRAY:
				return true
			case WHITE:
				if visit(next) {
					return true
				}
			}
		}
		color[id] = BLACK
		return false
	}

	for _, id := range graph.Nodes() {
		if color[id] == WHITE && visit(id) {
			return true
		}
	}
	return false
}
