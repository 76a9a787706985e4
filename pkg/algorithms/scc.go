package algorithms

// Component is one strongly connected component
type Component struct {
	ID      int
	Members []string
}

// SCCResult holds the result of Tarjan's strongly connected components algorithm.
type SCCResult struct {
	Components     []Component
	NodeComponent  map[string]int
	LargestSCC     *Component
	SingletonCount int
}

// tarjanState holds per-node state during Tarjan's DFS.
type tarjanState struct {
	index   int
	lowlink int
	onStack bool
}

// StronglyConnectedComponents finds all SCCs using Tarjan's algorithm in O(V+E) time.
// Only outgoing edges are followed (directed graph semantics). Components are
// emitted in reverse topological order of the condensation.
func StronglyConnectedComponents(graph *Digraph) *SCCResult {
	nodeIDs := graph.Nodes()

	state := make(map[string]*tarjanState, len(nodeIDs))
	var stack []string
	indexCounter := 0
	var components []Component
	nodeComponent := make(map[string]int, len(nodeIDs))

	var strongconnect func(u string)
	strongconnect = func(u string) {
		state[u] = &tarjanState{
			index:   indexCounter,
			lowlink: indexCounter,
			onStack: true,
		}
		indexCounter++
		stack = append(stack, u)

		for _, v := range graph.Successors(u) {
			if _, exists := state[v]; !exists {
				strongconnect(v)
				if state[v].lowlink < state[u].lowlink {
					state[u].lowlink = state[v].lowlink
				}
			} else if state[v].onStack {
				if state[v].index < state[u].lowlink {
					state[u].lowlink = state[v].index
				}
			}
		}

		// If u is a root node, pop the stack to form an SCC
		if state[u].lowlink == state[u].index {
			sccID := len(components)
			var members []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				state[w].onStack = false
				members = append(members, w)
				nodeComponent[w] = sccID
				if w == u {
					break
				}
			}

			components = append(components, Component{
				ID:      sccID,
				Members: members,
			})
		}
	}

	for _, nodeID := range nodeIDs {
		if _, exists := state[nodeID]; !exists {
			strongconnect(nodeID)
		}
	}

	result := &SCCResult{
		Components:    components,
		NodeComponent: nodeComponent,
	}
	for i := range components {
		if len(components[i].Members) == 1 {
			result.SingletonCount++
		}
		if result.LargestSCC == nil || len(components[i].Members) > len(result.LargestSCC.Members) {
			result.LargestSCC = &components[i]
		}
	}

	return result
}

// ClosedComponents returns the components that no edge leaves. In a Markov
// chain these are the recurrent classes; an absorbing state is a closed
// singleton. Members are sorted for stable reporting.
func ClosedComponents(graph *Digraph, scc *SCCResult) []Component {
	leaves := make(map[int]bool, len(scc.Components))
	for _, c := range scc.Components {
		leaves[c.ID] = true
	}

	for _, id := range graph.Nodes() {
		from := scc.NodeComponent[id]
		for _, to := range graph.Successors(id) {
			if scc.NodeComponent[to] != from {
				leaves[from] = false
				break
			}
		}
	}

	closed := make([]Component, 0)
	for _, c := range scc.Components {
		if !leaves[c.ID] {
			continue
		}
		members := make(map[string]bool, len(c.Members))
		for _, m := range c.Members {
			members[m] = true
		}
		closed = append(closed, Component{ID: c.ID, Members: sortedKeys(members)})
	}
	return closed
}
