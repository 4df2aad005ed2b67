// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package pickle

// Mutator is one mutation strategy. Value hooks run while an opcode's
// argument is being prepared; PostProcess runs after the opcode and its
// arguments have been written and may rewrite the raw output. Every hook is
// gated on the mutation rate internally, so a hook that does not trigger
// returns ok=false and the value flows through unchanged.
//
// Strategies that only care about some value types embed BaseMutator and
// override the hooks they implement.
type Mutator interface {
	Name() string

	MutateInt(v int32, src Source, rate float64) (int32, bool)
	MutateLong(v int64, src Source, rate float64) (int64, bool)
	MutateFloat(v float64, src Source, rate float64) (float64, bool)
	MutateString(s string, src Source, rate float64) (string, bool)
	MutateBytes(b []byte, src Source, rate float64) ([]byte, bool)
	MutateMemoIndex(index int, src Source, rate float64) (int, bool)

	// Unsafe reports whether this strategy can break pickle validity.
	Unsafe() bool

	// PostProcess may rewrite the output buffer after an emission. It returns
	// the new buffer and whether anything changed.
	PostProcess(snap *EmissionSnapshot, output []byte, src Source, rate float64) ([]byte, bool)
}

// BaseMutator provides no-op defaults for every Mutator hook.
type BaseMutator struct{}

func (BaseMutator) MutateInt(v int32, src Source, rate float64) (int32, bool) { return v, false }
func (BaseMutator) MutateLong(v int64, src Source, rate float64) (int64, bool) {
	return v, false
}
func (BaseMutator) MutateFloat(v float64, src Source, rate float64) (float64, bool) {
	return v, false
}
func (BaseMutator) MutateString(s string, src Source, rate float64) (string, bool) {
	return s, false
}
func (BaseMutator) MutateBytes(b []byte, src Source, rate float64) ([]byte, bool) {
	return b, false
}
func (BaseMutator) MutateMemoIndex(index int, src Source, rate float64) (int, bool) {
	return index, false
}
func (BaseMutator) Unsafe() bool { return false }
func (BaseMutator) PostProcess(snap *EmissionSnapshot, output []byte, src Source, rate float64) ([]byte, bool) {
	return output, false
}

// EmissionSnapshot captures the generator state around one opcode emission so
// PostProcess hooks can see exactly what the emission added.
type EmissionSnapshot struct {
	// State before the emission.
	StackDepth int
	OutputLen  int
	MemoSize   int

	// What the emission added. OutputDelta starts with the opcode byte.
	StackDelta  []*Object
	OutputDelta []byte
	MemoDelta   []int
}

// First-triggering-wins: each value passes through the strategy list in
// order and at most one mutation applies. With no strategies or a zero rate
// the hooks are skipped entirely, consuming no entropy, so such runs are
// byte-identical to runs without mutators.

func (g *Generator) mutationOff() bool {
	return len(g.mutators) == 0 || g.mutationRate <= 0
}

func (g *Generator) mutateInt(v int32, src Source) int32 {
	if g.mutationOff() {
		return v
	}
	for _, m := range g.mutators {
		if mv, ok := m.MutateInt(v, src, g.mutationRate); ok {
			return mv
		}
	}
	return v
}

func (g *Generator) mutateLong(v int64, src Source) int64 {
	if g.mutationOff() {
		return v
	}
	for _, m := range g.mutators {
		if mv, ok := m.MutateLong(v, src, g.mutationRate); ok {
			return mv
		}
	}
	return v
}

func (g *Generator) mutateFloat(v float64, src Source) float64 {
	if g.mutationOff() {
		return v
	}
	for _, m := range g.mutators {
		if mv, ok := m.MutateFloat(v, src, g.mutationRate); ok {
			return mv
		}
	}
	return v
}

func (g *Generator) mutateString(s string, src Source) string {
	if g.mutationOff() {
		return s
	}
	for _, m := range g.mutators {
		if ms, ok := m.MutateString(s, src, g.mutationRate); ok {
			return ms
		}
	}
	return s
}

func (g *Generator) mutateBytes(b []byte, src Source) []byte {
	if g.mutationOff() {
		return b
	}
	for _, m := range g.mutators {
		if mb, ok := m.MutateBytes(b, src, g.mutationRate); ok {
			return mb
		}
	}
	return b
}

func (g *Generator) mutateMemoIndex(index int, src Source) int {
	if g.mutationOff() {
		return index
	}
	for _, m := range g.mutators {
		if mi, ok := m.MutateMemoIndex(index, src, g.mutationRate); ok {
			return mi
		}
	}
	return index
}

// snapshot records the pre-emission state; postProcessEmission fills in the
// deltas and hands the buffer to each strategy's PostProcess hook.
func (g *Generator) snapshot() EmissionSnapshot {
	return EmissionSnapshot{
		StackDepth: g.state.stack.Len(),
		OutputLen:  len(g.output),
		MemoSize:   len(g.state.memo),
	}
}

func (g *Generator) postProcessEmission(snap EmissionSnapshot, src Source) {
	if g.mutationOff() {
		return
	}

	// The stack can shrink; only new items count as delta.
	if d := g.state.stack.Len(); d > snap.StackDepth {
		snap.StackDelta = append([]*Object(nil), g.state.stack.objs[snap.StackDepth:]...)
	}
	if len(g.output) >= snap.OutputLen {
		snap.OutputDelta = append([]byte(nil), g.output[snap.OutputLen:]...)
	}
	// The memo only grows, and PUT indices are assigned sequentially.
	for idx := snap.MemoSize; idx < len(g.state.memo); idx++ {
		snap.MemoDelta = append(snap.MemoDelta, idx)
	}

	for _, m := range g.mutators {
		if out, changed := m.PostProcess(&snap, g.output, src, g.mutationRate); changed {
			g.output = out
		}
	}
}
