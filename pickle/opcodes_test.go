// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package pickle

import (
	"testing"
)

func TestOpcodeSetsCumulative(t *testing.T) {
	for v := Version(1); v < NumVersions; v++ {
		prev := OpcodesFor(v - 1)
		cur := make(map[Opcode]bool)
		for _, op := range OpcodesFor(v) {
			cur[op] = true
		}
		if len(cur) <= len(prev) {
			t.Fatalf("version %v adds no opcodes over %v", v, v-1)
		}
		for _, op := range prev {
			if !cur[op] {
				t.Fatalf("version %v dropped %v from %v", v, op, v-1)
			}
		}
	}
}

func TestOpcodesForOutOfRange(t *testing.T) {
	if ops := OpcodesFor(-1); ops != nil {
		t.Fatalf("OpcodesFor(-1) = %v", ops)
	}
	if ops := OpcodesFor(NumVersions); ops != nil {
		t.Fatalf("OpcodesFor(%v) = %v", NumVersions, ops)
	}
}

func TestOpcodeAvailability(t *testing.T) {
	// The version that introduces each opcode; all later versions keep it.
	introduced := []struct {
		op    Opcode
		first Version
	}{
		{OpInt, V0},
		{OpMark, V0},
		{OpGlobal, V0},
		{OpBinInt, V1},
		{OpEmptyList, V1},
		{OpProto, V2},
		{OpNewTrue, V2},
		{OpTuple1, V2},
		{OpBinBytes, V3},
		{OpShortBinBytes, V3},
		{OpFrame, V4},
		{OpMemoize, V4},
		{OpStackGlobal, V4},
		{OpByteArray8, V5},
		{OpNextBuffer, V5},
	}
	for v := Version(0); v < NumVersions; v++ {
		set := make(map[Opcode]bool)
		for _, op := range OpcodesFor(v) {
			set[op] = true
		}
		for _, c := range introduced {
			if got, want := set[c.op], v >= c.first; got != want {
				t.Errorf("version %v: %v present = %v, want %v", v, c.op, got, want)
			}
		}
	}
}

func TestNoDuplicateOpcodes(t *testing.T) {
	seen := make(map[Opcode]bool)
	for _, op := range OpcodesFor(V5) {
		if seen[op] {
			t.Fatalf("opcode %v listed twice", op)
		}
		seen[op] = true
		if op.String() == "UNKNOWN" {
			t.Fatalf("opcode 0x%02x has no name", byte(op))
		}
	}
}

func TestOpcodeString(t *testing.T) {
	if got := OpStop.String(); got != "STOP" {
		t.Fatalf("OpStop.String() = %q", got)
	}
	if got := OpStackGlobal.String(); got != "STACK_GLOBAL" {
		t.Fatalf("OpStackGlobal.String() = %q", got)
	}
	if got := Opcode(0xff).String(); got != "UNKNOWN" {
		t.Fatalf("Opcode(0xff).String() = %q", got)
	}
}

func TestParseVersion(t *testing.T) {
	for v := 0; v < NumVersions; v++ {
		got, err := ParseVersion(v)
		if err != nil || got != Version(v) {
			t.Fatalf("ParseVersion(%v) = %v, %v", v, got, err)
		}
	}
	for _, v := range []int{-1, 6, 255} {
		if _, err := ParseVersion(v); err == nil {
			t.Fatalf("ParseVersion(%v) did not fail", v)
		}
	}
}
