// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutators

import (
	"bytes"
	"math"
	"math/bits"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picklegen/picklegen/pickle"
)

func TestParse(t *testing.T) {
	ms, err := Parse("bitflip,boundary", false)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, NameBitFlip, ms[0].Name())
	assert.Equal(t, NameBoundary, ms[1].Name())

	ms, err = Parse(" offbyone , character ", false)
	require.NoError(t, err)
	assert.Len(t, ms, 2)

	ms, err = Parse("", false)
	require.NoError(t, err)
	assert.Empty(t, ms)

	_, err = Parse("nosuchthing", false)
	require.Error(t, err)
}

func TestParseAll(t *testing.T) {
	names := func(ms []pickle.Mutator) []string {
		var out []string
		for _, m := range ms {
			out = append(out, m.Name())
		}
		return out
	}

	ms, err := Parse(NameAll, false)
	require.NoError(t, err)
	assert.NotContains(t, names(ms), NameMemoIndex,
		"memo index mutation dangles references even in safe mode")

	ms, err = Parse(NameAll, true)
	require.NoError(t, err)
	assert.Contains(t, names(ms), NameMemoIndex)
	assert.Greater(t, len(ms), 5)
}

func TestKnownNames(t *testing.T) {
	names := KnownNames()
	assert.True(t, sort.StringsAreSorted(names))
	for _, name := range names {
		if name == NameAll {
			continue
		}
		m, err := ByName(name, false)
		require.NoError(t, err, name)
		assert.Equal(t, name, m.Name())
	}
}

func TestBitFlipSingleBit(t *testing.T) {
	src := pickle.NewRandSource(1)
	for i := 0; i < 100; i++ {
		v, ok := BitFlip{}.MutateInt(12345, src, 1)
		require.True(t, ok)
		assert.Equal(t, 1, bits.OnesCount32(uint32(v^12345)))

		l, ok := BitFlip{}.MutateLong(-7, src, 1)
		require.True(t, ok)
		assert.Equal(t, 1, bits.OnesCount64(uint64(l^-7)))
	}
}

func TestBoundaryPicksBoundaries(t *testing.T) {
	src := pickle.NewRandSource(2)
	for i := 0; i < 100; i++ {
		v, ok := Boundary{}.MutateInt(12345, src, 1)
		require.True(t, ok)
		assert.Contains(t, intBoundaries, v)

		f, ok := Boundary{}.MutateFloat(0.5, src, 1)
		require.True(t, ok)
		if !math.IsNaN(f) {
			assert.Contains(t, floatBoundaries[:len(floatBoundaries)-1], f)
		}
	}
}

func TestOffByOne(t *testing.T) {
	src := pickle.NewRandSource(3)
	for i := 0; i < 100; i++ {
		v, ok := OffByOne{}.MutateInt(100, src, 1)
		require.True(t, ok)
		assert.Contains(t, []int32{99, 101}, v)

		idx, ok := OffByOne{}.MutateMemoIndex(0, src, 1)
		require.True(t, ok)
		assert.Contains(t, []int{0, 1}, idx, "memo index must not go negative")
	}
}

func TestStringLengthChangesLength(t *testing.T) {
	src := pickle.NewRandSource(4)
	for i := 0; i < 100; i++ {
		s, ok := StringLength{}.MutateString("hello", src, 1)
		require.True(t, ok)
		assert.NotEqual(t, 5, len(s))

		b, ok := StringLength{}.MutateBytes([]byte{1, 2, 3}, src, 1)
		require.True(t, ok)
		assert.NotEqual(t, 3, len(b))
	}
}

func TestCharacterRewritesOnePosition(t *testing.T) {
	src := pickle.NewRandSource(5)
	for i := 0; i < 100; i++ {
		s, ok := Character{}.MutateString("aaaa", src, 1)
		require.True(t, ok)
		require.Len(t, s, 4)
		diff := 0
		for j := range s {
			if s[j] != 'a' {
				diff++
				assert.GreaterOrEqual(t, s[j], byte(33))
				assert.LessOrEqual(t, s[j], byte(126))
			}
		}
		assert.LessOrEqual(t, diff, 1)
	}
	// Empty payloads never trigger.
	_, ok := Character{}.MutateString("", pickle.NewRandSource(0), 1)
	assert.False(t, ok)
}

func TestMemoIndexModes(t *testing.T) {
	src := pickle.NewRandSource(6)
	safe := NewMemoIndex(false)
	assert.False(t, safe.Unsafe())
	for i := 0; i < 100; i++ {
		idx, ok := safe.MutateMemoIndex(5, src, 1)
		require.True(t, ok)
		assert.Contains(t, []int{4, 5, 6}, idx)
	}
	unsafe := NewMemoIndex(true)
	assert.True(t, unsafe.Unsafe())
	for i := 0; i < 100; i++ {
		idx, ok := unsafe.MutateMemoIndex(5, src, 1)
		require.True(t, ok)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 1000)
	}
}

func TestTypeConfusionRewrites(t *testing.T) {
	src := pickle.NewRandSource(7)
	m := NewTypeConfusion(true)
	assert.True(t, m.Unsafe())

	orig := []byte{byte(pickle.OpNone)}
	snap := &pickle.EmissionSnapshot{OutputLen: 0, OutputDelta: orig}
	for i := 0; i < 100; i++ {
		out, changed := m.PostProcess(snap, append([]byte(nil), orig...), src, 1)
		require.True(t, changed)
		require.NotEmpty(t, out)
		assert.NotEqual(t, byte(pickle.OpNone), out[0], "replacement must push a different type")
		_, isValue := valueOpcodeType[pickle.Opcode(out[0])]
		assert.True(t, isValue, "replacement opcode 0x%02x is not a value producer", out[0])
	}
}

func TestTypeConfusionGates(t *testing.T) {
	src := pickle.NewRandSource(8)
	orig := []byte{byte(pickle.OpNone)}
	snap := &pickle.EmissionSnapshot{OutputDelta: orig}

	// Without the unsafe flag the hook never rewrites.
	out, changed := NewTypeConfusion(false).PostProcess(snap, orig, src, 1)
	assert.False(t, changed)
	assert.True(t, bytes.Equal(orig, out))

	// Non-value opcodes are never rewritten.
	markSnap := &pickle.EmissionSnapshot{OutputDelta: []byte{byte(pickle.OpMark)}}
	_, changed = NewTypeConfusion(true).PostProcess(markSnap, []byte{byte(pickle.OpMark)}, src, 1)
	assert.False(t, changed)
}

func TestRateZeroMatchesNoMutators(t *testing.T) {
	for v := 0; v < pickle.NumVersions; v++ {
		plain, err := pickle.NewGenerator(v)
		require.NoError(t, err)
		want, err := plain.WithSeed(7).Generate()
		require.NoError(t, err)

		mutated, err := pickle.NewGenerator(v)
		require.NoError(t, err)
		got, err := mutated.WithSeed(7).WithMutators(All(false)).WithMutationRate(0).Generate()
		require.NoError(t, err)

		assert.Equal(t, want, got, "version %v: rate 0 must be byte-identical to no mutators", v)
	}
}

func TestBitFlipPerturbsOutput(t *testing.T) {
	differs := 0
	for seed := int64(0); seed < 20; seed++ {
		plain, err := pickle.NewGenerator(2)
		require.NoError(t, err)
		base, err := plain.WithSeed(seed).Generate()
		require.NoError(t, err)

		flipped, err := pickle.NewGenerator(2)
		require.NoError(t, err)
		out, err := flipped.WithSeed(seed).WithMutator(BitFlip{}).WithMutationRate(1).Generate()
		require.NoError(t, err)

		if !bytes.Equal(base, out) {
			differs++
		}
	}
	assert.Greater(t, differs, 15, "rate-1 bit flips changed almost no streams")
}

func TestGenerationWithAllMutators(t *testing.T) {
	for v := 0; v < pickle.NumVersions; v++ {
		g, err := pickle.NewGenerator(v)
		require.NoError(t, err)
		g.WithSeed(11).
			WithMutators(All(true)).
			WithMutationRate(0.5).
			WithUnsafeMutations(true)
		data, err := g.Generate()
		require.NoError(t, err)
		require.NotEmpty(t, data)
		// Mutation rewrites the body, never the header or the terminator.
		assert.EqualValues(t, pickle.OpStop, data[len(data)-1], "version %v", v)
		if v >= 2 {
			assert.EqualValues(t, pickle.OpProto, data[0], "version %v", v)
			assert.EqualValues(t, v, data[1], "version %v", v)
		}
	}
}
