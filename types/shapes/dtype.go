// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import "github.com/gomlx/gopjrt/dtypes"

// ShortName returns the compact name used in logs and reports: "u8", "i8", "f32", etc.
func ShortName(dtype dtypes.DType) string {
	if name, found := shortNames[dtype]; found {
		return name
	}
	return dtype.String()
}

// FromShortName is the inverse of ShortName. It returns dtypes.InvalidDType for unknown names.
func FromShortName(name string) dtypes.DType {
	for dtype, short := range shortNames {
		if short == name {
			return dtype
		}
	}
	return dtypes.InvalidDType
}

var shortNames = map[dtypes.DType]string{
	dtypes.Uint8:    "u8",
	dtypes.Int8:     "i8",
	dtypes.Uint16:   "u16",
	dtypes.Int16:    "i16",
	dtypes.Uint32:   "u32",
	dtypes.Int32:    "i32",
	dtypes.Float16:  "f16",
	dtypes.BFloat16: "bf16",
	dtypes.Float32:  "f32",
	dtypes.Float64:  "f64",
}
