package algorithms

import (
	"reflect"
	"sort"
	"testing"
)

func buildGraph(edges [][2]string, nodes ...string) *Digraph {
	g := NewDigraph()
	for _, n := range nodes {
		g.AddNode(n)
	}
	for _, e := range edges {
		g.AddEdge(e[0], e[1])
	}
	return g
}

func TestSCC_EmptyGraph(t *testing.T) {
	result := StronglyConnectedComponents(NewDigraph())

	if len(result.Components) != 0 {
		t.Errorf("Expected 0 SCCs, got %d", len(result.Components))
	}
	if result.SingletonCount != 0 {
		t.Errorf("Expected 0 singletons, got %d", result.SingletonCount)
	}
	if result.LargestSCC != nil {
		t.Error("Expected no largest SCC for empty graph")
	}
}

func TestSCC_SingleNode(t *testing.T) {
	result := StronglyConnectedComponents(buildGraph(nil, "grasp"))

	if len(result.Components) != 1 {
		t.Errorf("Expected 1 SCC, got %d", len(result.Components))
	}
	if result.SingletonCount != 1 {
		t.Errorf("Expected 1 singleton, got %d", result.SingletonCount)
	}
}

func TestSCC_SimpleCycle(t *testing.T) {
	g := buildGraph([][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}, {"c", "d"}})

	result := StronglyConnectedComponents(g)

	if len(result.Components) != 2 {
		t.Fatalf("Expected 2 SCCs, got %d", len(result.Components))
	}
	if got := len(result.LargestSCC.Members); got != 3 {
		t.Errorf("Expected largest SCC of size 3, got %d", got)
	}
	if result.NodeComponent["a"] != result.NodeComponent["c"] {
		t.Error("a and c should share a component")
	}
	if result.NodeComponent["a"] == result.NodeComponent["d"] {
		t.Error("d should be in its own component")
	}
}

func TestClosedComponents(t *testing.T) {
	tests := []struct {
		name   string
		edges  [][2]string
		closed [][]string
	}{
		{
			name:   "chain into absorbing sinks",
			edges:  [][2]string{{"grasp", "move"}, {"move", "FAILURE"}, {"move", "SUCCESS"}},
			closed: [][]string{{"FAILURE"}, {"SUCCESS"}},
		},
		{
			name:   "trapped cycle",
			edges:  [][2]string{{"a", "b"}, {"b", "a"}, {"c", "a"}, {"c", "FAILURE"}},
			closed: [][]string{{"FAILURE"}, {"a", "b"}},
		},
		{
			name:   "cycle with exit is not closed",
			edges:  [][2]string{{"a", "b"}, {"b", "a"}, {"b", "SUCCESS"}},
			closed: [][]string{{"SUCCESS"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildGraph(tt.edges)
			closed := ClosedComponents(g, StronglyConnectedComponents(g))

			got := make([][]string, 0, len(closed))
			for _, c := range closed {
				got = append(got, c.Members)
			}
			sort.Slice(got, func(i, j int) bool { return got[i][0] < got[j][0] })

			if !reflect.DeepEqual(got, tt.closed) {
				t.Errorf("ClosedComponents() = %v, want %v", got, tt.closed)
			}
		})
	}
}
