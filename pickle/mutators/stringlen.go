// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutators

import (
	"github.com/picklegen/picklegen/pickle"
)

// StringLength changes the length of string and bytes payloads by
// truncating, extending with random tail content, or doubling.
type StringLength struct {
	pickle.BaseMutator
}

func (StringLength) Name() string { return NameStringLength }

func (StringLength) MutateString(s string, src pickle.Source, rate float64) (string, bool) {
	if src.Float64() > rate {
		return s, false
	}
	switch src.Intn(3) {
	case 0: // truncate
		if s == "" {
			return s, true
		}
		return s[:src.Intn(len(s))], true
	case 1: // extend
		extra := make([]byte, src.Range(1, 10))
		for i := range extra {
			extra[i] = src.Byte()%26 + 'a'
		}
		return s + string(extra), true
	default: // double
		return s + s, true
	}
}

func (StringLength) MutateBytes(b []byte, src pickle.Source, rate float64) ([]byte, bool) {
	if src.Float64() > rate {
		return b, false
	}
	switch src.Intn(3) {
	case 0: // truncate
		if len(b) == 0 {
			return b, true
		}
		return b[:src.Intn(len(b))], true
	case 1: // extend
		return append(append([]byte(nil), b...), src.Bytes(src.Range(1, 10))...), true
	default: // double
		return append(append([]byte(nil), b...), b...), true
	}
}
