// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package pickle generates syntactically valid Python pickle bytecode for
// fuzzing pickle parsers and scanners. Unlike byte-level fuzzing, generation
// simulates the pickle VM stack and memo table so that every emitted opcode
// sequence is legal for the chosen protocol version; the mutation subsystem
// then perturbs values and raw bytes to produce edge-case and deliberately
// invalid inputs.
package pickle

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// Default opcode count range for one generation pass.
const (
	DefaultMinOpcodes = 60
	DefaultMaxOpcodes = 300
)

// cleanupMaxSteps bounds the stack pair-down loop so cleanup terminates even
// if mutation has skewed the simulation.
const cleanupMaxSteps = 10000

// Generator produces one pickle bytecode stream per pass. It owns its VM
// state, output buffer and configuration exclusively; independent generators
// can run concurrently without locking.
type Generator struct {
	state  *state
	output []byte

	seed         *int64
	sizeHint     int
	minOpcodes   int
	maxOpcodes   int
	mutators     []Mutator
	mutationRate float64
	unsafeMut    bool
	allowExt     bool
	allowBuffer  bool
}

// NewGenerator creates a generator for the given protocol version (0-5).
func NewGenerator(version int) (*Generator, error) {
	v, err := ParseVersion(version)
	if err != nil {
		return nil, err
	}
	return &Generator{
		state:        newState(v),
		minOpcodes:   DefaultMinOpcodes,
		maxOpcodes:   DefaultMaxOpcodes,
		mutationRate: 0.1,
	}, nil
}

// Version returns the configured protocol version.
func (g *Generator) Version() Version { return g.state.version }

// WithSeed makes generation deterministic: same seed and configuration,
// byte-identical output.
func (g *Generator) WithSeed(seed int64) *Generator {
	g.seed = &seed
	return g
}

// WithBufferSize pre-sizes the output buffer.
func (g *Generator) WithBufferSize(n int) *Generator {
	g.sizeHint = n
	return g
}

func (g *Generator) WithMinOpcodes(min int) *Generator {
	g.minOpcodes = min
	return g
}

func (g *Generator) WithMaxOpcodes(max int) *Generator {
	g.maxOpcodes = max
	return g
}

// WithOpcodeRange sets the [min, max] target opcode count for the body loop.
func (g *Generator) WithOpcodeRange(min, max int) *Generator {
	g.minOpcodes = min
	g.maxOpcodes = max
	return g
}

// WithMutators replaces the active mutation strategies.
func (g *Generator) WithMutators(ms []Mutator) *Generator {
	g.mutators = ms
	return g
}

// WithMutator appends one mutation strategy.
func (g *Generator) WithMutator(m Mutator) *Generator {
	g.mutators = append(g.mutators, m)
	return g
}

// WithMutationRate sets how frequently mutations apply; clamped to [0, 1].
func (g *Generator) WithMutationRate(rate float64) *Generator {
	if rate < 0 {
		rate = 0
	} else if rate > 1 {
		rate = 1
	}
	g.mutationRate = rate
	return g
}

// WithUnsafeMutations permits mutations that may break pickle validity.
func (g *Generator) WithUnsafeMutations(allow bool) *Generator {
	g.unsafeMut = allow
	return g
}

// WithExtOpcodes permits EXT1/EXT2/EXT4, which only unpickle against a
// configured extension registry.
func (g *Generator) WithExtOpcodes(allow bool) *Generator {
	g.allowExt = allow
	return g
}

// WithBufferOpcodes permits NEXT_BUFFER/READONLY_BUFFER, which only unpickle
// with out-of-band buffer support.
func (g *Generator) WithBufferOpcodes(allow bool) *Generator {
	g.allowBuffer = allow
	return g
}

// Reset clears the VM state and output buffer for a fresh pass, preserving
// configuration.
func (g *Generator) Reset() {
	g.state.reset()
	g.output = g.output[:0]
}

// Output returns the bytes produced by the most recent pass.
func (g *Generator) Output() []byte { return g.output }

// Generate runs one pass with PRNG entropy, using the configured seed if
// present and a process-entropy seed otherwise.
func (g *Generator) Generate() ([]byte, error) {
	seed := time.Now().UnixNano()
	if g.seed != nil {
		seed = *g.seed
	}
	return g.generate(newRandSource(seed))
}

// GenerateFromBytes runs one pass driven entirely by the supplied buffer,
// typically fuzz-engine input. Identical input, byte-identical output; the
// pass completes even if the buffer runs dry (exhaustion falls back to the
// Source defaults).
func (g *Generator) GenerateFromBytes(data []byte) ([]byte, error) {
	return g.generate(newByteSource(data))
}

// generate drives one full pass:
// header, optional frame reservation, body loop, cleanup, STOP, frame patch.
func (g *Generator) generate(src Source) ([]byte, error) {
	g.Reset()
	if g.sizeHint > 0 && cap(g.output) < g.sizeHint {
		g.output = make([]byte, 0, g.sizeHint)
	}

	// Decide up front whether to frame the body (protocol 4+ only).
	useFrame := g.state.version >= V4 && src.Bool()

	g.emitProto()

	framePos := -1
	if useFrame {
		// Reserve 1 opcode byte + 8 length bytes, patched after STOP.
		framePos = len(g.output)
		g.output = append(g.output, make([]byte, 9)...)
	}

	target := g.minOpcodes
	if span := g.maxOpcodes - g.minOpcodes; span > 0 {
		target += src.Intn(span)
	}

	for i := 0; i < target; i++ {
		valid := g.validOpcodes()
		if len(valid) == 0 {
			// No safe move; end the body early.
			break
		}
		op := g.choose(valid, src)
		if err := g.emitAndProcess(op, src); err != nil {
			return nil, err
		}
	}

	g.cleanupForStop()
	g.emitOpcode(OpStop)

	if framePos >= 0 {
		size := len(g.output) - (framePos + 9)
		if size < 0 {
			return nil, fmt.Errorf("frame size underflow: output too small")
		}
		g.output[framePos] = byte(OpFrame)
		binary.LittleEndian.PutUint64(g.output[framePos+1:framePos+9], uint64(size))
	}

	return bytes.Clone(g.output), nil
}
