// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package pickle

// Opcode is a single pickle wire operation. The constant value is the wire
// byte itself, per CPython's Lib/pickletools.py.
type Opcode byte

const (
	// Integers.
	OpInt     Opcode = 0x49 // decimal ASCII + newline
	OpBinInt  Opcode = 0x4a // 4-byte signed LE
	OpBinInt1 Opcode = 0x4b // 1-byte unsigned
	OpBinInt2 Opcode = 0x4d // 2-byte unsigned LE
	OpLong    Opcode = 0x4c // decimal ASCII + 'L' + newline
	OpLong1   Opcode = 0x8a // 1-byte size + LE magnitude
	OpLong4   Opcode = 0x8b // 4-byte size + LE magnitude

	// Strings and bytes.
	OpString         Opcode = 0x53 // quoted ASCII + newline
	OpBinString      Opcode = 0x54 // 4-byte signed length + bytes
	OpShortBinString Opcode = 0x55 // 1-byte length + bytes
	OpBinBytes       Opcode = 0x42 // 4-byte length + bytes
	OpShortBinBytes  Opcode = 0x43 // 1-byte length + bytes
	OpBinBytes8      Opcode = 0x8e // 8-byte length + bytes
	OpByteArray8     Opcode = 0x96 // 8-byte length + bytes (mutable)
	OpNextBuffer     Opcode = 0x97
	OpReadOnlyBuffer Opcode = 0x98

	// None and booleans.
	OpNone     Opcode = 0x4e
	OpNewTrue  Opcode = 0x88
	OpNewFalse Opcode = 0x89

	// Unicode text.
	OpUnicode         Opcode = 0x56 // raw text + newline
	OpShortBinUnicode Opcode = 0x8c // 1-byte length + UTF-8
	OpBinUnicode      Opcode = 0x58 // 4-byte length + UTF-8
	OpBinUnicode8     Opcode = 0x8d // 8-byte length + UTF-8

	// Floats.
	OpFloat    Opcode = 0x46 // decimal ASCII + newline
	OpBinFloat Opcode = 0x47 // 8-byte big-endian IEEE 754

	// Containers.
	OpEmptyList  Opcode = 0x5d
	OpAppend     Opcode = 0x61
	OpAppends    Opcode = 0x65
	OpList       Opcode = 0x6c
	OpEmptyTuple Opcode = 0x29
	OpTuple      Opcode = 0x74
	OpTuple1     Opcode = 0x85
	OpTuple2     Opcode = 0x86
	OpTuple3     Opcode = 0x87
	OpEmptyDict  Opcode = 0x7d
	OpDict       Opcode = 0x64
	OpSetItem    Opcode = 0x73
	OpSetItems   Opcode = 0x75
	OpEmptySet   Opcode = 0x8f
	OpAddItems   Opcode = 0x90
	OpFrozenSet  Opcode = 0x91

	// Stack and memo manipulation.
	OpPop        Opcode = 0x30
	OpDup        Opcode = 0x32
	OpMark       Opcode = 0x28
	OpPopMark    Opcode = 0x31
	OpGet        Opcode = 0x67 // decimal ASCII index + newline
	OpBinGet     Opcode = 0x68 // 1-byte index
	OpLongBinGet Opcode = 0x6a // 4-byte LE index
	OpPut        Opcode = 0x70 // decimal ASCII index + newline
	OpBinPut     Opcode = 0x71 // 1-byte index
	OpLongBinPut Opcode = 0x72 // 4-byte LE index
	OpMemoize    Opcode = 0x94

	// Extensions and object construction.
	OpExt1        Opcode = 0x82
	OpExt2        Opcode = 0x83
	OpExt4        Opcode = 0x84
	OpGlobal      Opcode = 0x63 // module + newline + attr + newline
	OpStackGlobal Opcode = 0x93
	OpReduce      Opcode = 0x52
	OpBuild       Opcode = 0x62
	OpInst        Opcode = 0x69 // module + newline + attr + newline
	OpObj         Opcode = 0x6f
	OpNewObj      Opcode = 0x81
	OpNewObjEx    Opcode = 0x92
	OpProto       Opcode = 0x80
	OpStop        Opcode = 0x2e
	OpFrame       Opcode = 0x95
	OpPersID      Opcode = 0x50
	OpBinPersID   Opcode = 0x51
)

var opcodeNames = map[Opcode]string{
	OpInt: "INT", OpBinInt: "BININT", OpBinInt1: "BININT1", OpBinInt2: "BININT2",
	OpLong: "LONG", OpLong1: "LONG1", OpLong4: "LONG4",
	OpString: "STRING", OpBinString: "BINSTRING", OpShortBinString: "SHORT_BINSTRING",
	OpBinBytes: "BINBYTES", OpShortBinBytes: "SHORT_BINBYTES", OpBinBytes8: "BINBYTES8",
	OpByteArray8: "BYTEARRAY8", OpNextBuffer: "NEXT_BUFFER", OpReadOnlyBuffer: "READONLY_BUFFER",
	OpNone: "NONE", OpNewTrue: "NEWTRUE", OpNewFalse: "NEWFALSE",
	OpUnicode: "UNICODE", OpShortBinUnicode: "SHORT_BINUNICODE",
	OpBinUnicode: "BINUNICODE", OpBinUnicode8: "BINUNICODE8",
	OpFloat: "FLOAT", OpBinFloat: "BINFLOAT",
	OpEmptyList: "EMPTY_LIST", OpAppend: "APPEND", OpAppends: "APPENDS", OpList: "LIST",
	OpEmptyTuple: "EMPTY_TUPLE", OpTuple: "TUPLE", OpTuple1: "TUPLE1", OpTuple2: "TUPLE2",
	OpTuple3: "TUPLE3", OpEmptyDict: "EMPTY_DICT", OpDict: "DICT", OpSetItem: "SETITEM",
	OpSetItems: "SETITEMS", OpEmptySet: "EMPTY_SET", OpAddItems: "ADDITEMS",
	OpFrozenSet: "FROZENSET",
	OpPop:       "POP", OpDup: "DUP", OpMark: "MARK", OpPopMark: "POP_MARK",
	OpGet: "GET", OpBinGet: "BINGET", OpLongBinGet: "LONG_BINGET",
	OpPut: "PUT", OpBinPut: "BINPUT", OpLongBinPut: "LONG_BINPUT", OpMemoize: "MEMOIZE",
	OpExt1: "EXT1", OpExt2: "EXT2", OpExt4: "EXT4",
	OpGlobal: "GLOBAL", OpStackGlobal: "STACK_GLOBAL", OpReduce: "REDUCE", OpBuild: "BUILD",
	OpInst: "INST", OpObj: "OBJ", OpNewObj: "NEWOBJ", OpNewObjEx: "NEWOBJ_EX",
	OpProto: "PROTO", OpStop: "STOP", OpFrame: "FRAME",
	OpPersID: "PERSID", OpBinPersID: "BINPERSID",
}

func (op Opcode) String() string {
	if name := opcodeNames[op]; name != "" {
		return name
	}
	return "UNKNOWN"
}

// Opcodes added by each protocol version. The legal set for a version is the
// union of all additions up to and including it.
var (
	v0Opcodes = []Opcode{
		OpInt, OpLong, OpString, OpNone, OpUnicode, OpFloat,
		OpAppend, OpList, OpTuple, OpDict, OpSetItem,
		OpPop, OpDup, OpMark, OpGet, OpPut,
		OpGlobal, OpReduce, OpBuild, OpInst, OpStop, OpPersID,
	}
	v1Additions = []Opcode{
		OpBinInt, OpBinInt1, OpBinInt2, OpBinString, OpShortBinString,
		OpBinUnicode, OpBinFloat, OpEmptyList, OpAppends, OpEmptyTuple,
		OpEmptyDict, OpSetItems, OpPopMark, OpBinGet, OpLongBinGet,
		OpBinPut, OpLongBinPut, OpObj, OpBinPersID,
	}
	v2Additions = []Opcode{
		OpLong1, OpLong4, OpNewTrue, OpNewFalse, OpTuple1, OpTuple2, OpTuple3,
		OpExt1, OpExt2, OpExt4, OpNewObj, OpProto,
	}
	v3Additions = []Opcode{
		OpBinBytes, OpShortBinBytes,
	}
	v4Additions = []Opcode{
		OpBinBytes8, OpShortBinUnicode, OpBinUnicode8, OpEmptySet, OpAddItems,
		OpFrozenSet, OpMemoize, OpStackGlobal, OpNewObjEx, OpFrame,
	}
	v5Additions = []Opcode{
		OpByteArray8, OpNextBuffer, OpReadOnlyBuffer,
	}
)

var opcodesByVersion [NumVersions][]Opcode

func init() {
	additions := [NumVersions][]Opcode{
		v0Opcodes, v1Additions, v2Additions, v3Additions, v4Additions, v5Additions,
	}
	var all []Opcode
	for v := 0; v < NumVersions; v++ {
		all = append(all, additions[v]...)
		opcodesByVersion[v] = append([]Opcode(nil), all...)
	}
}

// OpcodesFor returns the ordered set of opcodes legal in the given protocol
// version, or nil if the version has no table entry.
func OpcodesFor(v Version) []Opcode {
	if v < 0 || v >= NumVersions {
		return nil
	}
	return opcodesByVersion[v]
}
