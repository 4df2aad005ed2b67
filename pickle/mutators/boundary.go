// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutators

import (
	"math"

	"github.com/picklegen/picklegen/pickle"
)

// Boundary replaces numeric arguments with extreme values: zero, signed
// units, type limits, and for floats the infinities and NaN.
type Boundary struct {
	pickle.BaseMutator
}

func (Boundary) Name() string { return NameBoundary }

var (
	intBoundaries   = []int32{0, -1, 1, math.MaxInt32, math.MinInt32}
	longBoundaries  = []int64{0, -1, 1, math.MaxInt64, math.MinInt64}
	floatBoundaries = []float64{
		0, -1, 1, math.MaxFloat64, -math.MaxFloat64,
		math.Inf(1), math.Inf(-1), math.NaN(),
	}
)

func (Boundary) MutateInt(v int32, src pickle.Source, rate float64) (int32, bool) {
	if src.Float64() > rate {
		return v, false
	}
	return intBoundaries[src.Intn(len(intBoundaries))], true
}

func (Boundary) MutateLong(v int64, src pickle.Source, rate float64) (int64, bool) {
	if src.Float64() > rate {
		return v, false
	}
	return longBoundaries[src.Intn(len(longBoundaries))], true
}

func (Boundary) MutateFloat(v float64, src pickle.Source, rate float64) (float64, bool) {
	if src.Float64() > rate {
		return v, false
	}
	return floatBoundaries[src.Intn(len(floatBoundaries))], true
}
