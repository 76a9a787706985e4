package algorithms

import (
	"errors"
	"fmt"
)

// ErrNotDAG is returned when an ordering is requested for a cyclic graph
var ErrNotDAG = errors.New("graph contains cycles")

// IsDAG checks if the graph is a Directed Acyclic Graph
func IsDAG(graph *Digraph) bool {
	return !HasCycle(graph)
}

// TopologicalSort returns nodes in topological order using Kahn's algorithm.
// The ordering ensures that for every directed edge u->v, u comes before v.
// Ties are broken by insertion order.
func TopologicalSort(graph *Digraph) ([]string, error) {
	if HasCycle(graph) {
		return nil, fmt.Errorf("cannot perform topological sort: %w", ErrNotDAG)
	}

	nodeIDs := graph.Nodes()
	inDegree := graph.InDegrees()

	// Queue of nodes with in-degree 0
	queue := make([]string, 0)
	for _, nodeID := range nodeIDs {
		if inDegree[nodeID] == 0 {
			queue = append(queue, nodeID)
		}
	}

	sorted := make([]string, 0, len(nodeIDs))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted = append(sorted, current)

		for _, next := range graph.Successors(current) {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	// If we didn't process all nodes, there's a cycle (shouldn't happen since we checked)
	if len(sorted) != len(nodeIDs) {
		return nil, fmt.Errorf("unexpected cycle detected during sort: %w", ErrNotDAG)
	}

	return sorted, nil
}

// Roots returns the nodes with in-degree 0 in insertion order
func Roots(graph *Digraph) []string {
	inDegree := graph.InDegrees()
	roots := make([]string, 0)
	for _, id := range graph.Nodes() {
		if inDegree[id] == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// IsTree checks if the graph forms a rooted tree:
// exactly one root, every other node has exactly one parent,
// no cycles, and every node reachable from the root.
func IsTree(graph *Digraph) bool {
	if graph.NodeCount() == 0 {
		return false
	}

	roots := Roots(graph)
	if len(roots) != 1 {
		return false
	}

	for id, deg := range graph.InDegrees() {
		if id != roots[0] && deg != 1 {
			return false
		}
	}

	if HasCycle(graph) {
		return false
	}

	return len(graph.Reachable(roots[0])) == graph.NodeCount()
}
