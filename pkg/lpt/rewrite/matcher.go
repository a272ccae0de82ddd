// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package rewrite

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowprecision/pkg/lpt/dequantization"
	"github.com/gomlx/lowprecision/pkg/lpt/graph"
	"github.com/gomlx/lowprecision/pkg/lpt/rules"
	"github.com/gomlx/lowprecision/types/shapes"
	"github.com/pkg/errors"
)

// Match is an occurrence of a dequantization feeding a consumer operation.
type Match struct {
	// Consumer is the operation fed by the dequantization.
	Consumer graph.NodeID

	// Producer is the node producing the encoded (low-precision) values.
	Producer graph.NodeID

	// InputDType is the dtype of Producer: the encoded type.
	InputDType dtypes.DType

	// Descriptor of the dequantization between Producer and Consumer. It may be empty if
	// the Producer feeds the Consumer directly.
	Descriptor dequantization.Descriptor
}

// Candidates returns the live nodes of g with a rule in registry, in topological order.
func Candidates(g *graph.Graph, registry *rules.Registry) []graph.NodeID {
	var candidates []graph.NodeID
	for _, id := range g.TopologicalOrder() {
		if _, found := registry.Lookup(g.Node(id).OpType()); found {
			candidates = append(candidates, id)
		}
	}
	return candidates
}

// MatchDequantization walks back from the first input of consumer through an optional
// Multiply by a constant, an optional Subtract of a constant and an optional Convert to a
// floating type, and returns the corresponding Match.
//
// Constants may be used directly (zero-point in the target domain) or through a Convert.
// It returns an error wrapping dequantization.ErrMalformedDescriptor if a constant operand
// varies along any axis other than the channel axis.
func MatchDequantization(g *graph.Graph, consumer graph.NodeID) (Match, error) {
	consumerNode := g.Node(consumer)
	if consumerNode.NumInputs() == 0 {
		return Match{}, errors.Errorf("MatchDequantization(#%d): %s has no inputs", consumer, consumerNode.OpType())
	}
	match := Match{Consumer: consumer}
	x := consumerNode.Input(0)

	if node := g.Node(x); node.OpType() == graph.OpTypeMultiply {
		c, _, found, err := constantOperand(g, node)
		if err != nil {
			return Match{}, err
		}
		if found {
			match.Descriptor.Multiply = &dequantization.Multiply{Constant: c}
			x = node.Input(0)
		}
	}
	if node := g.Node(x); node.OpType() == graph.OpTypeSubtract {
		c, inTargetDomain, found, err := constantOperand(g, node)
		if err != nil {
			return Match{}, err
		}
		if found {
			match.Descriptor.Subtract = &dequantization.Subtract{Constant: c, InTargetDomain: inTargetDomain}
			x = node.Input(0)
		}
	}
	if node := g.Node(x); node.OpType() == graph.OpTypeConvert && node.DType().IsFloat() {
		match.Descriptor.Convert = &dequantization.Convert{DType: node.DType()}
		x = node.Input(0)
	}
	match.Producer = x
	match.InputDType = g.Node(x).DType()
	return match, nil
}

// constantOperand returns the constant second operand of a binary node, either directly
// (inTargetDomain=true) or through a Convert.
func constantOperand(g *graph.Graph, node *graph.Node) (c dequantization.Constant, inTargetDomain, found bool, err error) {
	operand := g.Node(node.Input(1))
	inTargetDomain = true
	if operand.OpType() == graph.OpTypeConvert && g.IsConstant(operand.Input(0)) {
		operand = g.Node(operand.Input(0))
		inTargetDomain = false
	}
	if operand.OpType() != graph.OpTypeConstant {
		return
	}
	shape := operand.Shape()
	for axis, dim := range shape.Dimensions {
		channelAxis := shapes.ChannelAxis
		if shape.Rank() == 1 {
			channelAxis = 0
		}
		if dim != 1 && axis != channelAxis {
			err = errors.Wrapf(dequantization.ErrMalformedDescriptor,
				"%s constant #%d with shape %s is not per-tensor nor per-channel", node.OpType(), operand.ID(), shape)
			return
		}
	}
	c = g.ConstantValues(operand.ID())
	found = true
	return
}
