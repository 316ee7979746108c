// Package lineage models parent/child relations between sessions as a
// directed graph over an arena of nodes. Agent sessions point at the
// session that spawned them; chains of agents form paths whose length and
// weight are worth surfacing.
package lineage

import "sort"

// Node is one session in the graph. Weight is whatever the caller wants to
// maximize along a path, typically session duration in seconds.
type Node struct {
	ID     string
	Weight float64
}

// Graph holds nodes in an arena addressed by index, with adjacency stored
// as index slices. Edges point parent -> child.
type Graph struct {
	nodes []Node
	index map[string]int
	out   [][]int
	in    [][]int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{index: make(map[string]int)}
}

// Add inserts a node and returns its index. Adding an existing ID updates
// its weight and returns the existing index.
func (g *Graph) Add(id string, weight float64) int {
	if i, ok := g.index[id]; ok {
		g.nodes[i].Weight = weight
		return i
	}
	i := len(g.nodes)
	g.nodes = append(g.nodes, Node{ID: id, Weight: weight})
	g.index[id] = i
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return i
}

// Link adds an edge from parent to child, creating missing nodes with zero
// weight. Duplicate edges are ignored.
func (g *Graph) Link(parentID, childID string) {
	p, ok := g.index[parentID]
	if !ok {
		p = g.Add(parentID, 0)
	}
	c, ok := g.index[childID]
	if !ok {
		c = g.Add(childID, 0)
	}
	for _, existing := range g.out[p] {
		if existing == c {
			return
		}
	}
	g.out[p] = append(g.out[p], c)
	g.in[c] = append(g.in[c], p)
}

// Len reports the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the node at index i.
func (g *Graph) Node(i int) Node { return g.nodes[i] }

// TopoSort returns node indices in topological order using Kahn's
// algorithm. Nodes on cycles are omitted; ok is false when any were.
func (g *Graph) TopoSort() (order []int, ok bool) {
	degree := make([]int, len(g.nodes))
	for i := range g.nodes {
		degree[i] = len(g.in[i])
	}

	var queue []int
	for i, d := range degree {
		if d == 0 {
			queue = append(queue, i)
		}
	}
	sort.Ints(queue)

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, m := range g.out[n] {
			degree[m]--
			if degree[m] == 0 {
				queue = append(queue, m)
			}
		}
	}
	return order, len(order) == len(g.nodes)
}

// Cycles returns the strongly connected components with more than one node,
// via Tarjan's algorithm. Self-loops are not produced by Link and are not
// reported.
func (g *Graph) Cycles() [][]string {
	n := len(g.nodes)
	const unvisited = -1
	indexOf := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	for i := range indexOf {
		indexOf[i] = unvisited
	}

	var (
		counter int
		stack   []int
		cycles  [][]string
		strong  func(v int)
	)

	strong = func(v int) {
		indexOf[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.out[v] {
			if indexOf[w] == unvisited {
				strong(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] && indexOf[w] < lowlink[v] {
				lowlink[v] = indexOf[w]
			}
		}

		if lowlink[v] == indexOf[v] {
			var comp []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, g.nodes[w].ID)
				if w == v {
					break
				}
			}
			if len(comp) > 1 {
				sort.Strings(comp)
				cycles = append(cycles, comp)
			}
		}
	}

	for v := 0; v < n; v++ {
		if indexOf[v] == unvisited {
			strong(v)
		}
	}
	return cycles
}

// CriticalPath returns the maximum-weight root-to-leaf path as node IDs,
// with its total weight. Nodes on cycles are excluded. An empty graph
// returns nil.
func (g *Graph) CriticalPath() (path []string, weight float64) {
	order, _ := g.TopoSort()
	if len(order) == 0 {
		return nil, 0
	}

	best := make(map[int]float64, len(order))
	prev := make(map[int]int, len(order))
	inOrder := make(map[int]bool, len(order))
	for _, i := range order {
		inOrder[i] = true
	}

	endNode, endWeight := -1, 0.0
	for _, v := range order {
		w := best[v] + g.nodes[v].Weight
		if endNode == -1 || w > endWeight {
			endNode, endWeight = v, w
		}
		for _, c := range g.out[v] {
			if !inOrder[c] {
				continue
			}
			if cur, ok := best[c]; !ok || w > cur {
				best[c] = w
				prev[c] = v
			}
		}
	}

	for v := endNode; ; {
		path = append(path, g.nodes[v].ID)
		p, ok := prev[v]
		if !ok {
			break
		}
		v = p
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, endWeight
}
