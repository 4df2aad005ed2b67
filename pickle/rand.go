// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package pickle

import (
	"encoding/binary"
	"math"
	"math/rand"
)

// Source supplies the entropy for every generation decision. It has two
// drop-in implementations: a seeded PRNG for standalone use and a finite
// byte cursor for fuzz-engine mode. Both are deterministic for identical
// inputs, and every query has a defined fallback, so a generation pass never
// stalls for lack of entropy.
type Source interface {
	// Intn chooses an index in [0, n). Returns 0 if n <= 0 or on exhaustion.
	Intn(n int) int
	Bool() bool
	Byte() byte
	Uint16() uint16
	Uint32() uint32
	Int32() int32
	Int64() int64
	Float64() float64
	// Range returns a value in [min, max), or min if min >= max.
	Range(min, max int) int
	Bytes(n int) []byte
	ASCIIChar() byte
}

// NewRandSource returns the seeded-PRNG entropy source. Same seed, same
// query sequence, same answers, in-process and across runs.
func NewRandSource(seed int64) Source { return newRandSource(seed) }

// NewByteSource returns the finite byte-cursor entropy source over data.
func NewByteSource(data []byte) Source { return newByteSource(data) }

// Printable ASCII used for generated string content. Quotes and backslash
// are excluded so the newline-terminated text opcodes reparse cleanly;
// mutation strategies can still introduce them.
const asciiChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 !#$%&()*+,-./:;<=>?@[]^_`{|}~"

// randSource is the seeded-PRNG source. Same seed, same query sequence,
// same answers, in-process and across runs.
type randSource struct {
	*rand.Rand
}

func newRandSource(seed int64) *randSource {
	return &randSource{rand.New(rand.NewSource(seed))}
}

func (r *randSource) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return r.Rand.Intn(n)
}

func (r *randSource) Bool() bool { return r.Rand.Intn(2) == 0 }

func (r *randSource) Byte() byte { return byte(r.Rand.Uint32()) }

func (r *randSource) Uint16() uint16 { return uint16(r.Rand.Uint32()) }

func (r *randSource) Uint32() uint32 { return r.Rand.Uint32() }

func (r *randSource) Int32() int32 { return int32(r.Rand.Uint32()) }

func (r *randSource) Int64() int64 { return int64(r.Rand.Uint64()) }

func (r *randSource) Float64() float64 { return r.Rand.Float64() }

func (r *randSource) Range(min, max int) int {
	if min >= max {
		return min
	}
	return min + r.Rand.Intn(max-min)
}

func (r *randSource) Bytes(n int) []byte {
	buf := make([]byte, n)
	r.Rand.Read(buf)
	return buf
}

func (r *randSource) ASCIIChar() byte {
	return asciiChars[r.Intn(len(asciiChars))]
}

// byteSource consumes a finite externally supplied buffer, typically handed
// in by a fuzz engine. Integers are read little-endian. A query that cannot
// be satisfied from the remaining bytes returns the documented default
// (false, 0, 0.0, zeros, index 0) instead of failing, which keeps every
// generation call total.
type byteSource struct {
	data []byte
	pos  int
}

func newByteSource(data []byte) *byteSource {
	return &byteSource{data: data}
}

// take returns the next n bytes, or nil if fewer remain. A short buffer is
// never partially consumed.
func (s *byteSource) take(n int) []byte {
	if s.pos+n > len(s.data) {
		return nil
	}
	b := s.data[s.pos : s.pos+n]
	s.pos += n
	return b
}

func (s *byteSource) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(s.Uint32() % uint32(n))
}

func (s *byteSource) Bool() bool {
	b := s.take(1)
	return b != nil && b[0]&1 == 1
}

func (s *byteSource) Byte() byte {
	b := s.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (s *byteSource) Uint16() uint16 {
	b := s.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (s *byteSource) Uint32() uint32 {
	b := s.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (s *byteSource) Int32() int32 { return int32(s.Uint32()) }

func (s *byteSource) Int64() int64 {
	b := s.take(8)
	if b == nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b))
}

func (s *byteSource) Float64() float64 {
	b := s.take(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func (s *byteSource) Range(min, max int) int {
	if min >= max {
		return min
	}
	return min + s.Intn(max-min)
}

func (s *byteSource) Bytes(n int) []byte {
	if b := s.take(n); b != nil {
		return append([]byte(nil), b...)
	}
	return make([]byte, n)
}

func (s *byteSource) ASCIIChar() byte {
	return asciiChars[s.Intn(len(asciiChars))]
}
