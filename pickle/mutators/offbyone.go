// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutators

import (
	"github.com/picklegen/picklegen/pickle"
)

// OffByOne nudges integers and memo indices by one in either direction.
// Integers wrap on overflow; memo indices saturate at zero.
type OffByOne struct {
	pickle.BaseMutator
}

func (OffByOne) Name() string { return NameOffByOne }

func (OffByOne) MutateInt(v int32, src pickle.Source, rate float64) (int32, bool) {
	if src.Float64() > rate {
		return v, false
	}
	if src.Bool() {
		return v + 1, true
	}
	return v - 1, true
}

func (OffByOne) MutateLong(v int64, src pickle.Source, rate float64) (int64, bool) {
	if src.Float64() > rate {
		return v, false
	}
	if src.Bool() {
		return v + 1, true
	}
	return v - 1, true
}

func (OffByOne) MutateMemoIndex(index int, src pickle.Source, rate float64) (int, bool) {
	if src.Float64() > rate {
		return index, false
	}
	if src.Bool() {
		return index + 1, true
	}
	if index > 0 {
		return index - 1, true
	}
	return 0, true
}
