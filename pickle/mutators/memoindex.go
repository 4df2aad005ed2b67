// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutators

import (
	"github.com/picklegen/picklegen/pickle"
)

// MemoIndex perturbs memo indices. In safe mode it nudges by at most one,
// which can still reference a neighboring slot; in unsafe mode it picks an
// arbitrary small index that most likely dangles.
type MemoIndex struct {
	pickle.BaseMutator
	unsafeMode bool
}

func NewMemoIndex(unsafeMode bool) MemoIndex {
	return MemoIndex{unsafeMode: unsafeMode}
}

func (MemoIndex) Name() string { return NameMemoIndex }

func (m MemoIndex) Unsafe() bool { return m.unsafeMode }

func (m MemoIndex) MutateMemoIndex(index int, src pickle.Source, rate float64) (int, bool) {
	if src.Float64() > rate {
		return index, false
	}
	if m.unsafeMode {
		return src.Intn(1000), true
	}
	switch src.Intn(3) {
	case 0:
		return index + 1, true
	case 1:
		if index > 0 {
			return index - 1, true
		}
		return 0, true
	default:
		return index, true
	}
}
