// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graph is a minimal computation graph used by the low-precision rewrite pass.
//
// Nodes live in an arena owned by the Graph and are addressed by NodeID, their index in
// the arena. Edges are the list of input NodeIDs of each node, so rewiring the graph is
// just replacing IDs in those lists, and a Graph can be cheaply cloned to build a rewrite
// that is only committed if it succeeds.
//
// Rewiring leaves the replaced nodes in the arena: nodes unreachable from the outputs are
// ignored by TopologicalOrder, Users and Eval, until RemoveDead compacts the arena.
//
// Building a graph with invalid arguments (unknown IDs, incompatible shapes) panics with
// an error, following the usual exceptions convention: see package
// github.com/gomlx/exceptions to recover from them.
package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowprecision/types/shapes"
)

// NodeID is the index of a Node in its Graph.
type NodeID int

// InvalidNodeID is returned when a node is not found.
const InvalidNodeID = NodeID(-1)

// Node of the graph: the result of an operation.
type Node struct {
	id     NodeID
	opType OpType
	shape  shapes.Shape
	inputs []NodeID

	// data for the specific node type: *constantData, *poolData, or the parameter name.
	data any
}

// ID of the node in its Graph.
func (n *Node) ID() NodeID { return n.id }

// OpType of the node.
func (n *Node) OpType() OpType { return n.opType }

// Shape of the node's output.
func (n *Node) Shape() shapes.Shape { return n.shape }

// DType of the node's output.
func (n *Node) DType() dtypes.DType { return n.shape.DType }

// Input returns the i-th input of the node.
func (n *Node) Input(i int) NodeID { return n.inputs[i] }

// NumInputs returns the number of inputs of the node.
func (n *Node) NumInputs() int { return len(n.inputs) }

// String implements fmt.Stringer.
func (n *Node) String() string {
	inputs := make([]string, len(n.inputs))
	for ii, input := range n.inputs {
		inputs[ii] = fmt.Sprintf("#%d", input)
	}
	return fmt.Sprintf("#%d=%s(%s) %s", n.id, n.opType, strings.Join(inputs, ", "), n.shape)
}

// Graph is an arena of nodes, plus the list of outputs.
type Graph struct {
	name    string
	nodes   []*Node
	outputs []NodeID
}

// New creates an empty Graph.
func New(name string) *Graph {
	return &Graph{name: name}
}

// Name of the graph.
func (g *Graph) Name() string { return g.name }

// NumNodes returns the number of nodes in the arena, including the unreachable ones.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// Node returns the node with the given id. It panics for an invalid id.
func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		exceptions.Panicf("graph %q: invalid node id %d (graph has %d nodes)", g.name, id, len(g.nodes))
	}
	return g.nodes[id]
}

// SetOutputs sets the outputs of the graph.
func (g *Graph) SetOutputs(outputs ...NodeID) {
	for _, output := range outputs {
		_ = g.Node(output)
	}
	g.outputs = slices.Clone(outputs)
}

// Outputs returns a copy of the outputs of the graph.
func (g *Graph) Outputs() []NodeID { return slices.Clone(g.outputs) }

// Clone returns a copy of the graph that can be modified independently.
// Node data (constants values, parameters names) is immutable and shared.
func (g *Graph) Clone() *Graph {
	g2 := &Graph{
		name:    g.name,
		nodes:   make([]*Node, len(g.nodes)),
		outputs: slices.Clone(g.outputs),
	}
	for ii, node := range g.nodes {
		nodeCopy := *node
		nodeCopy.inputs = slices.Clone(node.inputs)
		nodeCopy.shape = node.shape.Clone()
		g2.nodes[ii] = &nodeCopy
	}
	return g2
}

// newNode adds a new node of the given opType and shape to the arena.
func (g *Graph) newNode(opType OpType, shape shapes.Shape, data any, inputs ...NodeID) NodeID {
	for _, input := range inputs {
		_ = g.Node(input)
	}
	n := &Node{
		id:     NodeID(len(g.nodes)),
		opType: opType,
		shape:  shape,
		inputs: slices.Clone(inputs),
		data:   data,
	}
	g.nodes = append(g.nodes, n)
	return n.id
}

// ParameterName returns the name of a parameter node, or "" if the node is not a parameter.
func (g *Graph) ParameterName(id NodeID) string {
	name, _ := g.Node(id).data.(string)
	return name
}

// String returns a multi-line listing of the nodes reachable from the outputs, in topological order.
func (g *Graph) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Graph %q:\n", g.name)
	for _, id := range g.TopologicalOrder() {
		fmt.Fprintf(&sb, "\t%s\n", g.nodes[id])
	}
	outputs := make([]string, len(g.outputs))
	for ii, output := range g.outputs {
		outputs[ii] = fmt.Sprintf("#%d", output)
	}
	fmt.Fprintf(&sb, "\toutputs: %s\n", strings.Join(outputs, ", "))
	return sb.String()
}
