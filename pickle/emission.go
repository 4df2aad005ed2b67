// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package pickle

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// emitAndProcess writes one opcode with its arguments and updates the
// simulated VM from the bytes actually written. The flow for every opcode is
// snapshot, emit, simulate, post-process mutate.
func (g *Generator) emitAndProcess(op Opcode, src Source) error {
	snap := g.snapshot()

	switch op {
	case OpInt, OpLong, OpLong1, OpLong4, OpBinInt, OpBinInt1, OpBinInt2:
		if err := g.emitInt(src); err != nil {
			return err
		}

	case OpFloat:
		v := g.mutateFloat(src.Float64(), src)
		g.output = append(g.output, byte(OpFloat))
		arg := []byte(strconv.FormatFloat(v, 'g', -1, 64) + "\n")
		g.output = append(g.output, arg...)
		g.processStackOps(OpFloat, arg)
	case OpBinFloat:
		v := g.mutateFloat(src.Float64(), src)
		g.output = append(g.output, byte(OpBinFloat))
		var arg [8]byte
		binary.BigEndian.PutUint64(arg[:], math.Float64bits(v))
		g.output = append(g.output, arg[:]...)
		g.processStackOps(OpBinFloat, arg[:])

	case OpString, OpUnicode, OpShortBinUnicode, OpBinUnicode, OpBinUnicode8:
		g.emitString(op, src)

	case OpBinString, OpShortBinString, OpShortBinBytes, OpBinBytes, OpBinBytes8, OpByteArray8:
		g.emitBytes(op, src)

	case OpGlobal:
		g.emitGlobal(src)

	case OpPut:
		index := len(g.state.memo)
		g.output = append(g.output, byte(OpPut))
		arg := []byte(strconv.Itoa(index) + "\n")
		g.output = append(g.output, arg...)
		g.processStackOps(OpPut, arg)
	case OpBinPut:
		index := byte(len(g.state.memo) % 256)
		g.output = append(g.output, byte(OpBinPut), index)
		g.processStackOps(OpBinPut, []byte{index})
	case OpLongBinPut:
		index := uint32(len(g.state.memo))
		g.output = append(g.output, byte(OpLongBinPut))
		var arg [4]byte
		binary.LittleEndian.PutUint32(arg[:], index)
		g.output = append(g.output, arg[:]...)
		g.processStackOps(OpLongBinPut, arg[:])

	case OpGet:
		keys := g.sortedMemoKeys(0)
		if len(keys) == 0 {
			break
		}
		index := g.mutateMemoIndex(keys[src.Intn(len(keys))], src)
		g.output = append(g.output, byte(OpGet))
		arg := []byte(strconv.Itoa(index) + "\n")
		g.output = append(g.output, arg...)
		g.processStackOps(OpGet, arg)
	case OpBinGet:
		keys := g.sortedMemoKeys(256)
		if len(keys) == 0 {
			break
		}
		index := g.mutateMemoIndex(keys[src.Intn(len(keys))], src)
		if index > 255 {
			index = 255
		}
		g.output = append(g.output, byte(OpBinGet), byte(index))
		g.processStackOps(OpBinGet, []byte{byte(index)})
	case OpLongBinGet:
		keys := g.sortedMemoKeys(0)
		if len(keys) == 0 {
			break
		}
		index := g.mutateMemoIndex(keys[src.Intn(len(keys))], src)
		g.output = append(g.output, byte(OpLongBinGet))
		var arg [4]byte
		binary.LittleEndian.PutUint32(arg[:], uint32(index))
		g.output = append(g.output, arg[:]...)
		g.processStackOps(OpLongBinGet, arg[:])

	// Extension registry codes must be positive; saturate instead of wrapping
	// so 0 never escapes.
	case OpExt1:
		code := src.Byte()
		if code < 0xff {
			code++
		}
		g.output = append(g.output, byte(OpExt1), code)
		g.processStackOps(OpExt1, []byte{code})
	case OpExt2:
		code := src.Uint16()
		if code < 0xffff {
			code++
		}
		g.output = append(g.output, byte(OpExt2))
		var arg [2]byte
		binary.LittleEndian.PutUint16(arg[:], code)
		g.output = append(g.output, arg[:]...)
		g.processStackOps(OpExt2, arg[:])
	case OpExt4:
		code := src.Uint32()
		if code < 0xffffffff {
			code++
		}
		g.output = append(g.output, byte(OpExt4))
		var arg [4]byte
		binary.LittleEndian.PutUint32(arg[:], code)
		g.output = append(g.output, arg[:]...)
		g.processStackOps(OpExt4, arg[:])

	case OpPersID:
		g.output = append(g.output, byte(OpPersID))
		arg := []byte(fmt.Sprintf("pid_%d\n", src.Uint32()))
		g.output = append(g.output, arg...)
		g.processStackOps(OpPersID, arg)

	case OpInst:
		g.output = append(g.output, byte(OpInst))
		arg := []byte(randomModule(src))
		g.output = append(g.output, arg...)
		g.processStackOps(OpInst, arg)

	case OpFrame:
		// The driver writes frames via the reserved-slot patch.
		return fmt.Errorf("FRAME must not be emitted inline")

	default:
		g.emitOpcode(op)
	}

	g.postProcessEmission(snap, src)
	return nil
}

// emitOpcode writes a bare opcode byte and simulates it. Used for every
// opcode that takes no argument.
func (g *Generator) emitOpcode(op Opcode) {
	g.output = append(g.output, byte(op))
	g.processStackOps(op, nil)
}

// emitProto writes the PROTO header. Protocols 0 and 1 have no header and are
// identified by their opcode repertoire alone.
func (g *Generator) emitProto() {
	if g.state.version < V2 || g.state.protoEmitted {
		return
	}
	g.output = append(g.output, byte(OpProto), byte(g.state.version))
	g.state.protoEmitted = true
}

// emitInt picks uniformly among the integer opcodes the protocol version
// offers and writes one random (possibly mutated) value in that encoding.
func (g *Generator) emitInt(src Source) error {
	var intLike []Opcode
	for _, op := range OpcodesFor(g.state.version) {
		switch op {
		case OpInt, OpLong, OpLong1, OpLong4, OpBinInt, OpBinInt1, OpBinInt2:
			intLike = append(intLike, op)
		}
	}
	if len(intLike) == 0 {
		return fmt.Errorf("no integer opcodes for protocol %v", g.state.version)
	}
	chosen := intLike[src.Intn(len(intLike))]
	g.output = append(g.output, byte(chosen))

	v := g.mutateInt(src.Int32(), src)

	var arg []byte
	switch chosen {
	case OpInt:
		arg = []byte(strconv.FormatInt(int64(v), 10) + "\n")
	case OpLong:
		arg = []byte(strconv.FormatInt(int64(v), 10) + "L\n")
	case OpLong1:
		arg = make([]byte, 5)
		arg[0] = 4 // payload size
		binary.LittleEndian.PutUint32(arg[1:], uint32(v))
	case OpLong4:
		arg = make([]byte, 8)
		binary.LittleEndian.PutUint32(arg[:4], 4)
		binary.LittleEndian.PutUint32(arg[4:], uint32(v))
	case OpBinInt:
		arg = make([]byte, 4)
		binary.LittleEndian.PutUint32(arg, uint32(v))
	case OpBinInt1:
		arg = []byte{byte(v)}
	case OpBinInt2:
		arg = make([]byte, 2)
		binary.LittleEndian.PutUint16(arg, uint16(v))
	}
	g.output = append(g.output, arg...)
	g.processStackOps(chosen, arg)
	return nil
}

// emitString writes one of the text opcodes with a fresh short ASCII string.
func (g *Generator) emitString(op Opcode, src Source) {
	n := int(src.Byte() % 32)
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = src.ASCIIChar()
	}
	s := g.mutateString(string(buf), src)

	switch op {
	case OpString:
		// Protocol 0 wants a quoted Python string literal.
		g.output = append(g.output, byte(OpString))
		arg := []byte("'" + s + "'\n")
		g.output = append(g.output, arg...)
		g.processStackOps(OpString, arg)
	case OpUnicode:
		g.output = append(g.output, byte(OpUnicode))
		arg := []byte(s + "\n")
		g.output = append(g.output, arg...)
		g.processStackOps(OpUnicode, arg)
	case OpShortBinUnicode:
		// The 1-byte length cannot represent longer payloads; emit nothing.
		if len(s) < 256 {
			g.output = append(g.output, byte(OpShortBinUnicode), byte(len(s)))
			g.output = append(g.output, s...)
			g.processStackOps(OpShortBinUnicode, []byte(s))
		}
	case OpBinUnicode:
		g.output = append(g.output, byte(OpBinUnicode))
		var pre [4]byte
		binary.LittleEndian.PutUint32(pre[:], uint32(len(s)))
		g.output = append(g.output, pre[:]...)
		g.output = append(g.output, s...)
		g.processStackOps(OpBinUnicode, []byte(s))
	case OpBinUnicode8:
		g.output = append(g.output, byte(OpBinUnicode8))
		var pre [8]byte
		binary.LittleEndian.PutUint64(pre[:], uint64(len(s)))
		g.output = append(g.output, pre[:]...)
		g.output = append(g.output, s...)
		g.processStackOps(OpBinUnicode8, []byte(s))
	}
}

// emitBytes writes one of the length-prefixed byte-string opcodes with fresh
// random content.
func (g *Generator) emitBytes(op Opcode, src Source) {
	n := int(src.Byte() % 32)
	b := g.mutateBytes(src.Bytes(n), src)

	switch op {
	case OpBinString:
		// 4-byte signed length (protocol 0 binary string).
		g.output = append(g.output, byte(OpBinString))
		var pre [4]byte
		binary.LittleEndian.PutUint32(pre[:], uint32(int32(len(b))))
		g.output = append(g.output, pre[:]...)
		g.output = append(g.output, b...)
		g.processStackOps(OpBinString, b)
	case OpShortBinString, OpShortBinBytes:
		if len(b) < 256 {
			g.output = append(g.output, byte(op), byte(len(b)))
			g.output = append(g.output, b...)
			g.processStackOps(op, b)
		}
	case OpBinBytes:
		g.output = append(g.output, byte(OpBinBytes))
		var pre [4]byte
		binary.LittleEndian.PutUint32(pre[:], uint32(len(b)))
		g.output = append(g.output, pre[:]...)
		g.output = append(g.output, b...)
		g.processStackOps(OpBinBytes, b)
	case OpBinBytes8, OpByteArray8:
		g.output = append(g.output, byte(op))
		var pre [8]byte
		binary.LittleEndian.PutUint64(pre[:], uint64(len(b)))
		g.output = append(g.output, pre[:]...)
		g.output = append(g.output, b...)
		g.processStackOps(op, b)
	}
}

// emitGlobal writes GLOBAL with a random stdlib module/attribute pair.
func (g *Generator) emitGlobal(src Source) {
	g.output = append(g.output, byte(OpGlobal))
	arg := []byte(randomModule(src))
	g.output = append(g.output, arg...)
	g.processStackOps(OpGlobal, arg)
}

// sortedMemoKeys returns the memo keys in ascending order. A positive limit
// restricts the result to keys below it (for the 1-byte GET encoding).
func (g *Generator) sortedMemoKeys(limit int) []int {
	keys := make([]int, 0, len(g.state.memo))
	for k := range g.state.memo {
		if limit > 0 && k >= limit {
			continue
		}
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
