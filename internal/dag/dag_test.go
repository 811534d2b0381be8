package dag

import (
	"reflect"
	"testing"
)

func buildGraph(edges [][2]string) *Graph {
	g := NewGraph()
	for _, e := range edges {
		g.AddEdge(e[0], e[1])
	}
	return g
}

func TestGraph_AddEdgeDeduplicates(t *testing.T) {
	g := NewGraph()
	g.AddEdge("raw.employees", "silver.dim_employees")
	g.AddEdge("raw.employees", "silver.dim_employees")

	if g.NodeCount() != 2 {
		t.Errorf("expected 2 nodes, got %d", g.NodeCount())
	}
	if g.EdgeCount() != 1 {
		t.Errorf("expected 1 edge, got %d", g.EdgeCount())
	}
}

func TestGraph_Sources(t *testing.T) {
	g := buildGraph([][2]string{
		{"silver.fact_salaries", "conformed.career_summary"},
		{"silver.dim_employees", "conformed.churn_risk"},
		{"conformed.career_summary", "conformed.churn_risk"},
	})

	got := g.Sources("conformed.churn_risk")
	want := []string{"conformed.career_summary", "silver.dim_employees"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sources = %v, want %v", got, want)
	}

	if len(g.Sources("silver.dim_employees")) != 0 {
		t.Errorf("base table should have no sources")
	}
}

func TestGraph_TransitiveUpstream(t *testing.T) {
	g := buildGraph([][2]string{
		{"raw.salaries", "silver.fact_salaries"},
		{"silver.fact_salaries", "conformed.career_summary"},
		{"conformed.career_summary", "conformed.churn_risk"},
		{"silver.dim_employees", "conformed.churn_risk"},
	})

	got := g.TransitiveUpstream("conformed.churn_risk")
	want := []string{
		"conformed.career_summary",
		"raw.salaries",
		"silver.dim_employees",
		"silver.fact_salaries",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TransitiveUpstream = %v, want %v", got, want)
	}
}

func TestGraph_UpstreamTree(t *testing.T) {
	g := buildGraph([][2]string{
		{"raw.salaries", "silver.fact_salaries"},
		{"silver.fact_salaries", "conformed.career_summary"},
	})

	tree := g.UpstreamTree("conformed.career_summary", 10)
	if tree.Name != "conformed.career_summary" {
		t.Fatalf("root = %s", tree.Name)
	}
	if len(tree.Children) != 1 || tree.Children[0].Name != "silver.fact_salaries" {
		t.Fatalf("unexpected children: %+v", tree.Children)
	}
	leaf := tree.Children[0].Children[0]
	if leaf.Name != "raw.salaries" || !leaf.IsSource() {
		t.Errorf("raw.salaries should be a source leaf, got %+v", leaf)
	}
}

func TestGraph_UpstreamTreeDepthCap(t *testing.T) {
	g := buildGraph([][2]string{
		{"a", "b"},
		{"b", "c"},
		{"c", "d"},
	})

	tree := g.UpstreamTree("d", 2)
	// d -> c -> b, with b truncated since a is below the cap.
	c := tree.Children[0]
	if c.Name != "c" {
		t.Fatalf("expected c, got %s", c.Name)
	}
	b := c.Children[0]
	if b.Name != "b" || !b.Truncated {
		t.Errorf("b should be truncated at depth cap, got %+v", b)
	}
	if b.IsSource() {
		t.Error("truncated node must not present as a source")
	}
}

func TestGraph_UpstreamTreeCycleSafe(t *testing.T) {
	g := buildGraph([][2]string{
		{"a", "b"},
		{"b", "a"},
	})

	tree := g.UpstreamTree("a", 10)
	b := tree.Children[0]
	if b.Name != "b" {
		t.Fatalf("expected b, got %s", b.Name)
	}
	if len(b.Children) != 1 || !b.Children[0].Cycle {
		t.Fatalf("cycle back to a should be marked, got %+v", b.Children)
	}
	if b.Children[0].Name != "a" {
		t.Errorf("cycle node should name the repeated table")
	}
}

func TestGraph_UpstreamTreeDiamondNotCycle(t *testing.T) {
	// Diamond: d reads b and c, both read a. a appears twice but is not a
	// cycle because it repeats across branches, not along one path.
	g := buildGraph([][2]string{
		{"a", "b"},
		{"a", "c"},
		{"b", "d"},
		{"c", "d"},
	})

	tree := g.UpstreamTree("d", 10)
	if len(tree.Children) != 2 {
		t.Fatalf("expected 2 branches, got %d", len(tree.Children))
	}
	for _, branch := range tree.Children {
		if len(branch.Children) != 1 || branch.Children[0].Name != "a" {
			t.Fatalf("branch %s should expand to a, got %+v", branch.Name, branch.Children)
		}
		if branch.Children[0].Cycle {
			t.Errorf("diamond repeat must not be marked as a cycle")
		}
	}
}

func TestGraph_HasCycle(t *testing.T) {
	g := buildGraph([][2]string{
		{"a", "b"},
		{"b", "c"},
	})
	if ok, _ := g.HasCycle(); ok {
		t.Error("acyclic graph reported a cycle")
	}

	g.AddEdge("c", "a")
	ok, path := g.HasCycle()
	if !ok {
		t.Fatal("cycle not detected")
	}
	if len(path) < 2 {
		t.Errorf("cycle path too short: %v", path)
	}
}

func TestGraph_Roots(t *testing.T) {
	g := buildGraph([][2]string{
		{"raw.employees", "silver.dim_employees"},
		{"raw.salaries", "silver.fact_salaries"},
	})

	want := []string{"raw.employees", "raw.salaries"}
	if got := g.Roots(); !reflect.DeepEqual(got, want) {
		t.Errorf("Roots = %v, want %v", got, want)
	}
}
