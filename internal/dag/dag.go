package dag

import (
	"fmt"
	"slices"
	"sort"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.addNodeLocked(id)
}

func (g *Graph) addNodeLocked(id string) *node {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	n := &node{
		id:         id,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.nodes[id] = n
	return n
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. An error is returned
// if either node does not exist or if the edge would create a self-reference.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode

	return nil
}

// Link adds both nodes if needed and then the edge between them.
func (g *Graph) Link(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode := g.addNodeLocked(fromID)
	toNode := g.addNodeLocked(toID)
	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode
	return nil
}

// Has reports whether a node with the given ID exists.
func (g *Graph) Has(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Dependencies returns the sorted IDs of the nodes the given node depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedKeys(n.deps), nil
}

// Dependents returns the sorted IDs of the nodes that depend on the given node.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedKeys(n.dependents), nil
}

// DetectCycles checks the graph for any cycles. It returns a non-nil error
// if a cycle is found, indicating the first node involved in the detected cycle.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	// Classic depth-first search with three sets of nodes:
	// permanent: nodes that have been fully visited and are not part of a cycle.
	// temporary: nodes currently in the recursion stack for the current traversal.
	// unvisited: all other nodes.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.id] {
			return nil
		}
		if temporary[n.id] {
			return &CycleError{Node: n.id}
		}

		temporary[n.id] = true
		for _, id := range sortedKeys(n.dependents) {
			if err := visit(n.dependents[id]); err != nil {
				return err
			}
		}
		delete(temporary, n.id)
		permanent[n.id] = true

		return nil
	}

	for _, id := range sortedKeys(g.nodes) {
		if err := visit(g.nodes[id]); err != nil {
			return err
		}
	}
	return nil
}

// Sort returns the IDs in order, rearranged so that every node comes after
// all of its dependencies that are also present in order. Among nodes whose
// dependencies are satisfied, the one appearing first in order wins, so a
// graph without edges returns order unchanged. IDs unknown to the graph are
// treated as having no edges. Only edges between members of order are
// considered.
func (g *Graph) Sort(order []string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	rank := make(map[string]int, len(order))
	for i, id := range order {
		if _, dup := rank[id]; dup {
			return nil, fmt.Errorf("duplicate node in order: %s", id)
		}
		rank[id] = i
	}

	indegree := make(map[string]int, len(order))
	for _, id := range order {
		n, ok := g.nodes[id]
		if !ok {
			continue
		}
		for depID := range n.deps {
			if _, member := rank[depID]; member {
				indegree[id]++
			}
		}
	}

	// ready is kept sorted by rank so the lowest-ranked ready node is taken first.
	var ready []string
	for _, id := range order {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	sorted := make([]string, 0, len(order))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		sorted = append(sorted, id)

		n, ok := g.nodes[id]
		if !ok {
			continue
		}
		for depID := range n.dependents {
			if _, member := rank[depID]; !member {
				continue
			}
			indegree[depID]--
			if indegree[depID] == 0 {
				pos := sort.Search(len(ready), func(i int) bool { return rank[ready[i]] > rank[depID] })
				ready = slices.Insert(ready, pos, depID)
			}
		}
	}

	if len(sorted) != len(order) {
		for _, id := range order {
			if indegree[id] > 0 {
				return nil, &CycleError{Node: id}
			}
		}
	}
	return sorted, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
