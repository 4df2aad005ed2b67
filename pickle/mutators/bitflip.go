// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutators

import (
	"github.com/picklegen/picklegen/pickle"
)

// BitFlip flips one random bit in integer arguments.
type BitFlip struct {
	pickle.BaseMutator
}

func (BitFlip) Name() string { return NameBitFlip }

func (BitFlip) MutateInt(v int32, src pickle.Source, rate float64) (int32, bool) {
	if src.Float64() > rate {
		return v, false
	}
	return v ^ 1<<src.Intn(32), true
}

func (BitFlip) MutateLong(v int64, src pickle.Source, rate float64) (int64, bool) {
	if src.Float64() > rate {
		return v, false
	}
	return v ^ 1<<src.Intn(64), true
}
