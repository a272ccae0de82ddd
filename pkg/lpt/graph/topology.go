// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"slices"

	"github.com/gomlx/exceptions"
)

// TopologicalOrder returns the nodes reachable from the outputs, producers before consumers.
//
// The order is deterministic: nodes are visited depth-first, following outputs and then
// inputs in their declared order.
func (g *Graph) TopologicalOrder() []NodeID {
	visited := make([]bool, len(g.nodes))
	order := make([]NodeID, 0, len(g.nodes))
	var visit func(id NodeID)
	visit = func(id NodeID) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, input := range g.nodes[id].inputs {
			visit(input)
		}
		order = append(order, id)
	}
	for _, output := range g.outputs {
		visit(output)
	}
	return order
}

// IsLive returns whether the node is reachable from the outputs.
func (g *Graph) IsLive(id NodeID) bool {
	return slices.Contains(g.TopologicalOrder(), id)
}

// Users returns the live nodes that take id as an input, in topological order.
// A node using id more than once is listed once.
func (g *Graph) Users(id NodeID) []NodeID {
	var users []NodeID
	for _, candidate := range g.TopologicalOrder() {
		if slices.Contains(g.nodes[candidate].inputs, id) {
			users = append(users, candidate)
		}
	}
	return users
}

// RemoveDead compacts the arena to the nodes reachable from the outputs, in topological
// order, and returns the number of nodes removed.
//
// It renumbers the nodes: NodeIDs taken before the call are no longer valid.
func (g *Graph) RemoveDead() int {
	order := g.TopologicalOrder()
	removed := len(g.nodes) - len(order)
	if removed == 0 {
		return 0
	}
	remap := make([]NodeID, len(g.nodes))
	for ii := range remap {
		remap[ii] = InvalidNodeID
	}
	nodes := make([]*Node, len(order))
	for newID, oldID := range order {
		node := g.nodes[oldID]
		node.id = NodeID(newID)
		for ii, input := range node.inputs {
			node.inputs[ii] = remap[input]
		}
		remap[oldID] = node.id
		nodes[newID] = node
	}
	for ii, output := range g.outputs {
		g.outputs[ii] = remap[output]
	}
	g.nodes = nodes
	return removed
}

// ReplaceAllUsesWith makes every node (and output) that uses oldID use newID instead.
// It panics if newID has a different shape than oldID.
func (g *Graph) ReplaceAllUsesWith(oldID, newID NodeID) {
	oldNode, newNode := g.Node(oldID), g.Node(newID)
	if !oldNode.shape.Equal(newNode.shape) {
		exceptions.Panicf("ReplaceAllUsesWith(#%d, #%d): shapes differ (%s and %s)",
			oldID, newID, oldNode.shape, newNode.shape)
	}
	for _, node := range g.nodes {
		if node.id == newID {
			continue
		}
		for ii, input := range node.inputs {
			if input == oldID {
				node.inputs[ii] = newID
			}
		}
	}
	for ii, output := range g.outputs {
		if output == oldID {
			g.outputs[ii] = newID
		}
	}
}
