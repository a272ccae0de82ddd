// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dequantization

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
)

// Constant is a quantization constant (zero-point or scale): either a single value that
// broadcasts to every channel, or one value per channel.
//
// DType is the element type the constant is stored with in the graph.
type Constant struct {
	Values []float64
	DType  dtypes.DType
}

// NewConstant returns a Constant with a copy of the given values.
func NewConstant(dtype dtypes.DType, values ...float64) Constant {
	return Constant{Values: slices.Clone(values), DType: dtype}
}

// Len returns the number of values.
func (c Constant) Len() int { return len(c.Values) }

// IsScalar returns whether the constant broadcasts a single value to every channel.
func (c Constant) IsScalar() bool { return len(c.Values) == 1 }

// At returns the value for the given channel, broadcasting scalars.
func (c Constant) At(channel int) float64 {
	if c.IsScalar() {
		return c.Values[0]
	}
	return c.Values[channel]
}

// AllStrictlyPositive returns whether every value is > 0.
// NaN is not positive, and neither is 0.
func (c Constant) AllStrictlyPositive() bool {
	for _, v := range c.Values {
		if !(v > 0) {
			return false
		}
	}
	return true
}

// AnyNonZero returns whether at least one value is different from 0.
func (c Constant) AnyNonZero() bool {
	for _, v := range c.Values {
		if v != 0 {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (c Constant) Clone() Constant {
	return Constant{Values: slices.Clone(c.Values), DType: c.DType}
}

// Equal compares the dtype and the bit representation of the values.
func (c Constant) Equal(other Constant) bool {
	if c.DType != other.DType || len(c.Values) != len(other.Values) {
		return false
	}
	for ii, v := range c.Values {
		if math.Float64bits(v) != math.Float64bits(other.Values[ii]) {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (c Constant) String() string {
	parts := make([]string, len(c.Values))
	for ii, v := range c.Values {
		parts[ii] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ","))
}
