// Package dag provides the table dependency graph used for lineage
// traversal. Unlike a build scheduler's DAG, lineage data loaded from a
// database may contain cycles, so every traversal is cycle-safe rather than
// cycle-rejecting.
package dag

import (
	"sort"
)

// Graph is a directed graph of table names. An edge source -> target means
// target was built by reading source.
type Graph struct {
	nodes      map[string]bool
	dependents map[string][]string // source -> targets built from it
	sources    map[string][]string // target -> sources it reads
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:      make(map[string]bool),
		dependents: make(map[string][]string),
		sources:    make(map[string][]string),
	}
}

// AddNode registers a table. Adding an existing table is a no-op.
func (g *Graph) AddNode(table string) {
	if !g.nodes[table] {
		g.nodes[table] = true
		g.dependents[table] = []string{}
		g.sources[table] = []string{}
	}
}

// AddEdge records that target reads from source. Both endpoints are
// registered implicitly and duplicate edges collapse.
func (g *Graph) AddEdge(source, target string) {
	g.AddNode(source)
	g.AddNode(target)

	if !contains(g.dependents[source], target) {
		g.dependents[source] = append(g.dependents[source], target)
	}
	if !contains(g.sources[target], source) {
		g.sources[target] = append(g.sources[target], source)
	}
}

// HasNode reports whether the table appears anywhere in the lineage graph.
func (g *Graph) HasNode(table string) bool {
	return g.nodes[table]
}

// NodeCount returns the number of tables in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, targets := range g.dependents {
		count += len(targets)
	}
	return count
}

// Sources returns the direct upstream tables of target, sorted.
func (g *Graph) Sources(target string) []string {
	out := append([]string(nil), g.sources[target]...)
	sort.Strings(out)
	return out
}

// Dependents returns the tables built directly from source, sorted.
func (g *Graph) Dependents(source string) []string {
	out := append([]string(nil), g.dependents[source]...)
	sort.Strings(out)
	return out
}

// TransitiveUpstream returns every table reachable upstream of target,
// sorted. Cycles are traversed once and never loop.
func (g *Graph) TransitiveUpstream(target string) []string {
	upstream := make(map[string]bool)

	var walk func(table string)
	walk = func(table string) {
		for _, src := range g.sources[table] {
			if !upstream[src] {
				upstream[src] = true
				walk(src)
			}
		}
	}
	walk(target)

	result := make([]string, 0, len(upstream))
	for table := range upstream {
		result = append(result, table)
	}
	sort.Strings(result)
	return result
}

// TreeNode is one table in an upstream lineage tree.
type TreeNode struct {
	Name     string
	Children []*TreeNode // upstream sources, sorted by name
	// Truncated marks a node whose sources were cut off by the depth cap.
	Truncated bool
	// Cycle marks a node already present on the path from the root, whose
	// expansion would loop forever.
	Cycle bool
}

// IsSource reports whether the node is a base table: nothing upstream of it
// and its expansion was neither depth-capped nor cycle-cut.
func (n *TreeNode) IsSource() bool {
	return len(n.Children) == 0 && !n.Truncated && !n.Cycle
}

// UpstreamTree expands the full upstream lineage of target as a tree.
// Expansion stops at maxDepth levels below the root, and a table already on
// the current root-to-node path is emitted once more with Cycle set instead
// of being expanded again. maxDepth <= 0 means the root alone.
func (g *Graph) UpstreamTree(target string, maxDepth int) *TreeNode {
	onPath := map[string]bool{}

	var expand func(table string, depth int) *TreeNode
	expand = func(table string, depth int) *TreeNode {
		node := &TreeNode{Name: table}

		srcs := g.Sources(table)
		if len(srcs) == 0 {
			return node
		}
		if depth >= maxDepth {
			node.Truncated = true
			return node
		}

		onPath[table] = true
		for _, src := range srcs {
			if onPath[src] {
				node.Children = append(node.Children, &TreeNode{Name: src, Cycle: true})
				continue
			}
			node.Children = append(node.Children, expand(src, depth+1))
		}
		delete(onPath, table)

		return node
	}

	return expand(target, 0)
}

// HasCycle reports whether the graph contains a dependency cycle, returning
// one offending path when it does.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string)

	var cyclePath []string

	var dfs func(table string) bool
	dfs = func(table string) bool {
		visited[table] = true
		recStack[table] = true

		for _, dep := range g.dependents[table] {
			if !visited[dep] {
				path[dep] = table
				if dfs(dep) {
					return true
				}
			} else if recStack[dep] {
				cyclePath = []string{dep}
				for curr := table; curr != dep; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{dep}, cyclePath...)
				return true
			}
		}

		recStack[table] = false
		return false
	}

	// Deterministic scan order.
	tables := make([]string, 0, len(g.nodes))
	for table := range g.nodes {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	for _, table := range tables {
		if !visited[table] {
			if dfs(table) {
				return true, cyclePath
			}
		}
	}

	return false, nil
}

// Roots returns tables nothing else was built from, sorted.
func (g *Graph) Roots() []string {
	var roots []string
	for table := range g.nodes {
		if len(g.sources[table]) == 0 {
			roots = append(roots, table)
		}
	}
	sort.Strings(roots)
	return roots
}

func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}
