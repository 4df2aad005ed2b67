// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutators

import (
	"encoding/binary"
	"math"

	"github.com/picklegen/picklegen/pickle"
)

// TypeConfusion rewrites a just-emitted value opcode into one that pushes a
// different type. Scanners that assume an opcode's type (for example
// STACK_GLOBAL expecting two strings) trip over the mismatch. Always unsafe:
// the simulated stack no longer matches the stream.
type TypeConfusion struct {
	pickle.BaseMutator
	unsafeMode bool
}

func NewTypeConfusion(unsafeMode bool) TypeConfusion {
	return TypeConfusion{unsafeMode: unsafeMode}
}

func (TypeConfusion) Name() string { return NameTypeConfusion }

func (TypeConfusion) Unsafe() bool { return true }

// stackType classifies what a value opcode pushes.
type stackType int

const (
	typeInt stackType = iota
	typeFloat
	typeString
	typeBytes
	typeList
	typeDict
	typeTuple
	typeNone
	typeBool
	numStackTypes
)

// valueOpcodeType maps a value-pushing opcode to its pushed type. Opcodes
// with other effects are absent and never rewritten.
var valueOpcodeType = map[pickle.Opcode]stackType{
	pickle.OpInt: typeInt, pickle.OpBinInt: typeInt, pickle.OpBinInt1: typeInt,
	pickle.OpBinInt2: typeInt, pickle.OpLong: typeInt, pickle.OpLong1: typeInt,
	pickle.OpLong4: typeInt,

	pickle.OpFloat: typeFloat, pickle.OpBinFloat: typeFloat,

	pickle.OpString: typeString, pickle.OpUnicode: typeString,
	pickle.OpShortBinUnicode: typeString, pickle.OpBinUnicode: typeString,
	pickle.OpBinUnicode8: typeString,

	pickle.OpBinBytes: typeBytes, pickle.OpShortBinBytes: typeBytes,
	pickle.OpBinBytes8: typeBytes, pickle.OpBinString: typeBytes,
	pickle.OpShortBinString: typeBytes,

	pickle.OpEmptyList: typeList, pickle.OpList: typeList,

	pickle.OpEmptyTuple: typeTuple, pickle.OpTuple: typeTuple,
	pickle.OpTuple1: typeTuple, pickle.OpTuple2: typeTuple, pickle.OpTuple3: typeTuple,

	pickle.OpEmptyDict: typeDict, pickle.OpDict: typeDict,

	pickle.OpNone: typeNone,

	pickle.OpNewTrue: typeBool, pickle.OpNewFalse: typeBool,
}

func (m TypeConfusion) PostProcess(snap *pickle.EmissionSnapshot, output []byte, src pickle.Source, rate float64) ([]byte, bool) {
	if !m.unsafeMode || src.Float64() > rate {
		return output, false
	}
	if len(snap.OutputDelta) == 0 {
		return output, false
	}

	original, ok := valueOpcodeType[pickle.Opcode(snap.OutputDelta[0])]
	if !ok {
		return output, false
	}

	wrong := chooseWrongType(original, src)
	output = append(output[:snap.OutputLen], opcodeForType(wrong, src)...)
	return output, true
}

// chooseWrongType picks uniformly among the types other than the original.
func chooseWrongType(original stackType, src pickle.Source) stackType {
	others := make([]stackType, 0, numStackTypes-1)
	for t := stackType(0); t < numStackTypes; t++ {
		if t != original {
			others = append(others, t)
		}
	}
	return others[src.Intn(len(others))]
}

// opcodeForType emits minimal bytecode pushing a value of the given type.
func opcodeForType(t stackType, src pickle.Source) []byte {
	switch t {
	case typeInt:
		out := make([]byte, 5)
		out[0] = byte(pickle.OpBinInt)
		binary.LittleEndian.PutUint32(out[1:], uint32(src.Int32()))
		return out
	case typeFloat:
		out := make([]byte, 9)
		out[0] = byte(pickle.OpBinFloat)
		binary.BigEndian.PutUint64(out[1:], math.Float64bits(src.Float64()))
		return out
	case typeString:
		s := "confused"
		out := []byte{byte(pickle.OpShortBinUnicode), byte(len(s))}
		return append(out, s...)
	case typeBytes:
		data := "confused"
		out := []byte{byte(pickle.OpShortBinBytes), byte(len(data))}
		return append(out, data...)
	case typeList:
		return []byte{byte(pickle.OpEmptyList)}
	case typeDict:
		return []byte{byte(pickle.OpEmptyDict)}
	case typeTuple:
		return []byte{byte(pickle.OpEmptyTuple)}
	case typeNone:
		return []byte{byte(pickle.OpNone)}
	default: // typeBool
		if src.Bool() {
			return []byte{byte(pickle.OpNewTrue)}
		}
		return []byte{byte(pickle.OpNewFalse)}
	}
}
