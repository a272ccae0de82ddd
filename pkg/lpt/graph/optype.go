// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

// OpType is an enum of the operations a Graph node can hold.
type OpType int

//go:generate go tool enumer -type=OpType -trimprefix=OpType -output=gen_optype_enumer.go optype.go

const (
	OpTypeInvalid OpType = iota
	OpTypeParameter
	OpTypeConstant
	OpTypeConvert
	OpTypeSubtract
	OpTypeMultiply
	OpTypeRelu
	OpTypeMaxPool
	OpTypeAvgPool
	OpTypeConcatenate

	// OpTypeLast should always be kept the last, it is used as a counter/marker for OpType.
	OpTypeLast
)
