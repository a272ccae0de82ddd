// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package rewrite

import (
	"fmt"
	"strings"

	"github.com/gomlx/lowprecision/pkg/lpt/dequantization"
	"github.com/gomlx/lowprecision/pkg/lpt/graph"
	"github.com/gomlx/lowprecision/pkg/lpt/rules"
)

// Outcome of a match.
type Outcome int

//go:generate go tool enumer -type=Outcome -trimprefix=Outcome -output=gen_outcome_enumer.go report.go

const (
	// OutcomeRewritten means the decision was committed to the graph.
	OutcomeRewritten Outcome = iota

	// OutcomeUnchanged means the decision keeps the dequantization where it was, so there
	// was nothing to rewrite.
	OutcomeUnchanged

	// OutcomeDeclined means there was no applicable rule (see rules.ErrUnsupportedPrecisionPair).
	OutcomeDeclined

	// OutcomeFailed means the match was aborted (malformed descriptor, shape mismatch or
	// a failure building the rewrite). The graph was left untouched.
	OutcomeFailed
)

// Diagnostic records what happened to one match.
type Diagnostic struct {
	Consumer   graph.NodeID
	OpType     graph.OpType
	Outcome    Outcome
	Descriptor dequantization.Descriptor

	// Decision is set for OutcomeRewritten and OutcomeUnchanged.
	Decision rules.Decision

	// Err is set for OutcomeDeclined and OutcomeFailed.
	Err error
}

// String implements fmt.Stringer.
func (d Diagnostic) String() string {
	s := fmt.Sprintf("#%d %s %s: %s", d.Consumer, d.OpType, d.Outcome, d.Descriptor)
	switch d.Outcome {
	case OutcomeRewritten, OutcomeUnchanged:
		s += " => " + d.Decision.String()
	default:
		if d.Err != nil {
			s += ": " + d.Err.Error()
		}
	}
	return s
}

// Report of a rewrite pass: one Diagnostic per match, in the order they were processed.
type Report struct {
	Diagnostics []Diagnostic
}

// NumMatches returns the number of matches processed.
func (r *Report) NumMatches() int { return len(r.Diagnostics) }

// Count returns the number of matches with the given outcome.
func (r *Report) Count(outcome Outcome) (count int) {
	for _, d := range r.Diagnostics {
		if d.Outcome == outcome {
			count++
		}
	}
	return
}

// String implements fmt.Stringer.
func (r *Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d matches: %d rewritten, %d unchanged, %d declined, %d failed\n",
		r.NumMatches(), r.Count(OutcomeRewritten), r.Count(OutcomeUnchanged),
		r.Count(OutcomeDeclined), r.Count(OutcomeFailed))
	for _, d := range r.Diagnostics {
		fmt.Fprintf(&sb, "\t%s\n", d)
	}
	return sb.String()
}
