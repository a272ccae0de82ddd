// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package params holds the immutable configuration of the low-precision rewrite pass.
//
// Build a Config (or start from one of the presets U8I8, I8I8 or U8U8), and call New
// to validate it and get the read-only Params shared by all rules:
//
//	p := params.MustNew(params.I8I8().WithSupportAsymmetricQuantization(false))
package params

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowprecision/pkg/support/sets"
	"github.com/gomlx/lowprecision/pkg/support/xslices"
	"github.com/gomlx/lowprecision/types/shapes"
	"github.com/pkg/errors"
)

// PrecisionPair is an (input, output) element type pair of an operation.
type PrecisionPair struct {
	Input, Output dtypes.DType
}

// String implements fmt.Stringer, e.g.: "u8->u8".
func (p PrecisionPair) String() string {
	return shapes.ShortName(p.Input) + "->" + shapes.ShortName(p.Output)
}

// Config is the mutable description of the parameters. See New.
type Config struct {
	// PrecisionPairs the rules are allowed to produce low-precision decisions for.
	PrecisionPairs []PrecisionPair

	// SupportAsymmetricQuantization allows splitting a dequantization with a non-zero
	// zero-point, so that the zero-point is applied before an operation and the scale after it.
	SupportAsymmetricQuantization bool

	// UpdatePrecisions allows the rewrite to change the declared element type of an operation.
	// If false the rewrite only reorders dequantization steps, and operations keep their
	// original floating point type.
	UpdatePrecisions bool
}

// WithPrecisionPairs returns a copy of the Config with the precision pairs replaced.
func (c Config) WithPrecisionPairs(pairs ...PrecisionPair) Config {
	c.PrecisionPairs = slices.Clone(pairs)
	return c
}

// WithSupportAsymmetricQuantization returns a copy of the Config with SupportAsymmetricQuantization set.
func (c Config) WithSupportAsymmetricQuantization(support bool) Config {
	c.SupportAsymmetricQuantization = support
	c.PrecisionPairs = slices.Clone(c.PrecisionPairs)
	return c
}

// WithUpdatePrecisions returns a copy of the Config with UpdatePrecisions set.
func (c Config) WithUpdatePrecisions(update bool) Config {
	c.UpdatePrecisions = update
	c.PrecisionPairs = slices.Clone(c.PrecisionPairs)
	return c
}

// U8I8 is the preset for unsigned 8-bit activations and signed 8-bit weights.
func U8I8() Config {
	return Config{
		PrecisionPairs: []PrecisionPair{
			{dtypes.Uint8, dtypes.Uint8},
			{dtypes.Int8, dtypes.Int8},
		},
		SupportAsymmetricQuantization: true,
		UpdatePrecisions:              true,
	}
}

// I8I8 is the preset for signed 8-bit activations and weights.
func I8I8() Config {
	return Config{
		PrecisionPairs:                []PrecisionPair{{dtypes.Int8, dtypes.Int8}},
		SupportAsymmetricQuantization: true,
		UpdatePrecisions:              true,
	}
}

// U8U8 is the preset for unsigned 8-bit activations and weights.
func U8U8() Config {
	return Config{
		PrecisionPairs:                []PrecisionPair{{dtypes.Uint8, dtypes.Uint8}},
		SupportAsymmetricQuantization: true,
		UpdatePrecisions:              true,
	}
}

// Params is the validated, immutable version of Config. It is safe to share.
type Params struct {
	pairs                         sets.Set[PrecisionPair]
	supportAsymmetricQuantization bool
	updatePrecisions              bool
}

// New validates the Config and returns the corresponding Params.
//
// It fails if there are no precision pairs, or if any of them uses an invalid dtype.
func New(config Config) (*Params, error) {
	if len(config.PrecisionPairs) == 0 {
		return nil, errors.New("params.New(): at least one supported precision pair is required")
	}
	for _, pair := range config.PrecisionPairs {
		if pair.Input == dtypes.InvalidDType || pair.Output == dtypes.InvalidDType {
			return nil, errors.Errorf("params.New(): invalid precision pair %s", pair)
		}
	}
	return &Params{
		pairs:                         sets.MakeWith(config.PrecisionPairs...),
		supportAsymmetricQuantization: config.SupportAsymmetricQuantization,
		updatePrecisions:              config.UpdatePrecisions,
	}, nil
}

// MustNew is like New, but panics on error.
func MustNew(config Config) *Params {
	p, err := New(config)
	if err != nil {
		exceptions.Panicf("%+v", err)
	}
	return p
}

// Supports returns whether the precision pair is in the supported set.
func (p *Params) Supports(pair PrecisionPair) bool {
	return p.pairs.Has(pair)
}

// SupportAsymmetricQuantization returns whether dequantizations with a zero-point can be split.
func (p *Params) SupportAsymmetricQuantization() bool { return p.supportAsymmetricQuantization }

// UpdatePrecisions returns whether the rewrite can change the declared type of operations.
func (p *Params) UpdatePrecisions() bool { return p.updatePrecisions }

// PrecisionPairs returns the supported pairs, sorted.
func (p *Params) PrecisionPairs() []PrecisionPair {
	pairs := p.pairs.Items()
	slices.SortFunc(pairs, func(a, b PrecisionPair) int {
		return cmp.Or(cmp.Compare(a.Input, b.Input), cmp.Compare(a.Output, b.Output))
	})
	return pairs
}

// String implements fmt.Stringer.
func (p *Params) String() string {
	pairs := xslices.Map(p.PrecisionPairs(), PrecisionPair.String)
	return fmt.Sprintf("Params{pairs=[%s], asymmetric=%v, updatePrecisions=%v}",
		strings.Join(pairs, " "), p.supportAsymmetricQuantization, p.updatePrecisions)
}
