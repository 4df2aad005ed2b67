// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package pickle

import (
	"bytes"
	"testing"
)

func testGen(t *testing.T, version int) *Generator {
	t.Helper()
	g, err := NewGenerator(version)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestTupleCollapsesToMark(t *testing.T) {
	g := testGen(t, 4)
	g.processStackOps(OpMark, nil)
	g.processStackOps(OpNewTrue, nil)
	g.processStackOps(OpNone, nil)
	g.processStackOps(OpTuple, nil)
	if g.state.stack.Len() != 1 {
		t.Fatalf("stack depth %v, want 1", g.state.stack.Len())
	}
	tup := g.state.stack.Peek()
	if tup.Kind != KindTuple || len(tup.Items) != 2 {
		t.Fatalf("bad tuple: kind %v, %v items", tup.Kind, len(tup.Items))
	}
	// Items keep stack order, bottom to top.
	if tup.Items[0].Kind != KindBool || !tup.Items[0].Bool {
		t.Fatalf("first item %v", tup.Items[0].Kind)
	}
	if tup.Items[1].Kind != KindNone {
		t.Fatalf("second item %v", tup.Items[1].Kind)
	}
}

func TestDictPairsItems(t *testing.T) {
	g := testGen(t, 4)
	g.processStackOps(OpMark, nil)
	for _, v := range []byte{1, 2, 3, 4} {
		g.processStackOps(OpBinInt1, []byte{v})
	}
	g.processStackOps(OpDict, nil)
	if g.state.stack.Len() != 1 {
		t.Fatalf("stack depth %v, want 1", g.state.stack.Len())
	}
	d := g.state.stack.Peek()
	if d.Kind != KindDict || len(d.Map) != 2 {
		t.Fatalf("bad dict: kind %v, %v entries", d.Kind, len(d.Map))
	}
}

func TestIntParsesBooleans(t *testing.T) {
	// Protocols 0-1 spell booleans as INT 0/1.
	for _, version := range []int{0, 1} {
		g := testGen(t, version)
		g.processStackOps(OpInt, []byte("1\n"))
		if top := g.state.stack.Peek(); top.Kind != KindBool || !top.Bool {
			t.Fatalf("version %v: INT 1 pushed %v", version, top.Kind)
		}
		g.processStackOps(OpInt, []byte("0\n"))
		if top := g.state.stack.Peek(); top.Kind != KindBool || top.Bool {
			t.Fatalf("version %v: INT 0 pushed %v", version, top.Kind)
		}
		g.processStackOps(OpInt, []byte("5\n"))
		if top := g.state.stack.Peek(); top.Kind != KindInt || top.Int != 5 {
			t.Fatalf("version %v: INT 5 pushed %v", version, top.Kind)
		}
	}
	g := testGen(t, 2)
	g.processStackOps(OpInt, []byte("1\n"))
	if top := g.state.stack.Peek(); top.Kind != KindInt || top.Int != 1 {
		t.Fatalf("version 2: INT 1 pushed %v", top.Kind)
	}
}

func TestMemoizeStoresClone(t *testing.T) {
	g := testGen(t, 4)
	g.processStackOps(OpShortBinUnicode, []byte("abc"))
	g.processStackOps(OpMemoize, nil)
	if len(g.state.memo) != 1 {
		t.Fatalf("memo size %v, want 1", len(g.state.memo))
	}
	stored, top := g.state.memo[0], g.state.stack.Peek()
	if !stored.Equal(top) {
		t.Fatalf("memo entry differs from stack top")
	}
	if stored == top {
		t.Fatalf("memo shares the stack object; a later in-place edit would leak through")
	}
}

func TestGetPushesClone(t *testing.T) {
	g := testGen(t, 1)
	g.processStackOps(OpBinInt1, []byte{9})
	g.processStackOps(OpBinPut, []byte{0})
	g.processStackOps(OpBinGet, []byte{0})
	if g.state.stack.Len() != 2 {
		t.Fatalf("stack depth %v, want 2", g.state.stack.Len())
	}
	top := g.state.stack.Peek()
	if !top.Equal(g.state.memo[0]) {
		t.Fatalf("GET pushed a different value")
	}
	if top == g.state.memo[0] {
		t.Fatalf("GET shares the memo object")
	}
}

func TestAppendsExtendsList(t *testing.T) {
	g := testGen(t, 1)
	g.processStackOps(OpEmptyList, nil)
	g.processStackOps(OpMark, nil)
	g.processStackOps(OpBinInt1, []byte{1})
	g.processStackOps(OpBinInt1, []byte{2})
	g.processStackOps(OpAppends, nil)
	if g.state.stack.Len() != 1 {
		t.Fatalf("stack depth %v, want 1", g.state.stack.Len())
	}
	list := g.state.stack.Peek()
	if list.Kind != KindList || len(list.Items) != 2 {
		t.Fatalf("bad list: kind %v, %v items", list.Kind, len(list.Items))
	}
	if list.Items[0].Int != 1 || list.Items[1].Int != 2 {
		t.Fatalf("bad item order: %v, %v", list.Items[0].Int, list.Items[1].Int)
	}
}

func TestPopMark(t *testing.T) {
	g := testGen(t, 1)
	g.processStackOps(OpNone, nil)
	g.processStackOps(OpMark, nil)
	g.processStackOps(OpBinInt1, []byte{1})
	g.processStackOps(OpBinInt1, []byte{2})
	g.processStackOps(OpPopMark, nil)
	if g.state.stack.Len() != 1 {
		t.Fatalf("stack depth %v, want 1", g.state.stack.Len())
	}
	if g.state.stack.Peek().Kind != KindNone {
		t.Fatalf("POP_MARK consumed below the mark")
	}
}

func TestDupSkipsMark(t *testing.T) {
	g := testGen(t, 0)
	g.processStackOps(OpMark, nil)
	g.processStackOps(OpDup, nil)
	if g.state.stack.Len() != 1 {
		t.Fatalf("DUP duplicated a mark")
	}
	g.processStackOps(OpInt, []byte("7\n"))
	g.processStackOps(OpDup, nil)
	if g.state.stack.Len() != 3 {
		t.Fatalf("stack depth %v, want 3", g.state.stack.Len())
	}
	if g.state.stack.Peek() != g.state.stack.PeekAt(1) {
		t.Fatalf("DUP copied instead of sharing")
	}
}

func TestBuildSetsInstanceState(t *testing.T) {
	g := testGen(t, 2)
	g.processStackOps(OpGlobal, []byte("builtins\nobject\n"))
	g.processStackOps(OpEmptyTuple, nil)
	g.processStackOps(OpReduce, nil)
	if top := g.state.stack.Peek(); top.Kind != KindInstance {
		t.Fatalf("REDUCE pushed %v", top.Kind)
	}
	g.processStackOps(OpEmptyDict, nil)
	g.processStackOps(OpBuild, nil)
	if g.state.stack.Len() != 1 {
		t.Fatalf("stack depth %v, want 1", g.state.stack.Len())
	}
	inst := g.state.stack.Peek()
	if inst.Kind != KindInstance || inst.Args == nil || inst.Args.Kind != KindDict {
		t.Fatalf("BUILD did not attach the state dict")
	}
}

func TestStackGlobalConsumesStrings(t *testing.T) {
	g := testGen(t, 4)
	g.processStackOps(OpShortBinUnicode, []byte("os"))
	g.processStackOps(OpShortBinUnicode, []byte("path"))
	g.processStackOps(OpStackGlobal, nil)
	if g.state.stack.Len() != 1 {
		t.Fatalf("stack depth %v, want 1", g.state.stack.Len())
	}
	module, name, ok := g.state.stack.Peek().AsGlobal()
	if !ok || module != "os" || name != "path" {
		t.Fatalf("STACK_GLOBAL pushed %v.%v, %v", module, name, ok)
	}
}

func TestObjTakesClassAboveMark(t *testing.T) {
	g := testGen(t, 1)
	g.processStackOps(OpMark, nil)
	g.processStackOps(OpGlobal, []byte("builtins\nobject\n"))
	g.processStackOps(OpBinInt1, []byte{1})
	g.processStackOps(OpObj, nil)
	if g.state.stack.Len() != 1 {
		t.Fatalf("stack depth %v, want 1", g.state.stack.Len())
	}
	inst := g.state.stack.Peek()
	if inst.Kind != KindInstance {
		t.Fatalf("OBJ pushed %v", inst.Kind)
	}
	if inst.Args.Kind != KindTuple || len(inst.Args.Items) != 1 {
		t.Fatalf("OBJ args: %v", inst.Args)
	}
}

func TestCleanupForStop(t *testing.T) {
	// A mark with items above collapses via TUPLE.
	g := testGen(t, 2)
	g.processStackOps(OpMark, nil)
	g.processStackOps(OpNone, nil)
	g.processStackOps(OpNone, nil)
	g.processStackOps(OpNone, nil)
	g.cleanupForStop()
	if g.state.stack.Len() != 1 {
		t.Fatalf("stack depth %v, want 1", g.state.stack.Len())
	}
	if !bytes.Equal(g.output, []byte{byte(OpTuple)}) {
		t.Fatalf("cleanup emitted % x", g.output)
	}

	// Three loose items pair down with one TUPLE3.
	g = testGen(t, 2)
	for i := 0; i < 3; i++ {
		g.processStackOps(OpNone, nil)
	}
	g.cleanupForStop()
	if g.state.stack.Len() != 1 || !bytes.Equal(g.output, []byte{byte(OpTuple3)}) {
		t.Fatalf("cleanup of 3 items emitted % x", g.output)
	}

	// Two items need a TUPLE2.
	g = testGen(t, 2)
	g.processStackOps(OpNone, nil)
	g.processStackOps(OpNone, nil)
	g.cleanupForStop()
	if g.state.stack.Len() != 1 || !bytes.Equal(g.output, []byte{byte(OpTuple2)}) {
		t.Fatalf("cleanup of 2 items emitted % x", g.output)
	}

	// An empty stack gets a NONE so STOP has a result to pop.
	g = testGen(t, 2)
	g.cleanupForStop()
	if g.state.stack.Len() != 1 || !bytes.Equal(g.output, []byte{byte(OpNone)}) {
		t.Fatalf("cleanup of empty stack emitted % x", g.output)
	}

	// A single item is already a valid result.
	g = testGen(t, 2)
	g.processStackOps(OpNewTrue, nil)
	g.cleanupForStop()
	if g.state.stack.Len() != 1 || len(g.output) != 0 {
		t.Fatalf("cleanup of single item emitted % x", g.output)
	}
}

func TestLeUint(t *testing.T) {
	if v := leUint([]byte{0x01, 0x02}); v != 0x0201 {
		t.Fatalf("leUint = %#x", v)
	}
	if v := leUint(nil); v != 0 {
		t.Fatalf("leUint(nil) = %v", v)
	}
	if v := leUint([]byte{0xff, 0xff, 0xff, 0xff}); v != 0xffffffff {
		t.Fatalf("leUint = %#x", v)
	}
}

func TestBeFloat(t *testing.T) {
	if v := beFloat([]byte{0x3f, 0xf0, 0, 0, 0, 0, 0, 0}); v != 1.0 {
		t.Fatalf("beFloat = %v, want 1.0", v)
	}
}

func TestSplitModuleAttr(t *testing.T) {
	module, name, ok := splitModuleAttr([]byte("os\npath\n"))
	if !ok || module != "os" || name != "path" {
		t.Fatalf("splitModuleAttr = %v, %v, %v", module, name, ok)
	}
	if _, _, ok := splitModuleAttr([]byte("nonewline")); ok {
		t.Fatalf("splitModuleAttr accepted malformed input")
	}
}
