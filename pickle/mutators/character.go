// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutators

import (
	"github.com/picklegen/picklegen/pickle"
)

// Character rewrites one position in a string or bytes payload. Strings get
// a random printable ASCII character, bytes get any value.
type Character struct {
	pickle.BaseMutator
}

func (Character) Name() string { return NameCharacter }

func (Character) MutateString(s string, src pickle.Source, rate float64) (string, bool) {
	if src.Float64() > rate || s == "" {
		return s, false
	}
	b := []byte(s)
	b[src.Intn(len(b))] = src.Byte()%94 + 33
	return string(b), true
}

func (Character) MutateBytes(b []byte, src pickle.Source, rate float64) ([]byte, bool) {
	if src.Float64() > rate || len(b) == 0 {
		return b, false
	}
	out := append([]byte(nil), b...)
	out[src.Intn(len(out))] = src.Byte()
	return out, true
}
