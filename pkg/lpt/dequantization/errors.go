// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dequantization

import "github.com/pkg/errors"

var (
	// ErrMalformedDescriptor is wrapped by errors about descriptors that cannot be
	// applied: missing convert, empty or inconsistent constants.
	ErrMalformedDescriptor = errors.New("malformed dequantization descriptor")

	// ErrShapeMismatch is wrapped by errors about per-channel constants whose length
	// disagrees with the channel dimension of the tensor.
	ErrShapeMismatch = errors.New("dequantization constant shape mismatch")
)
