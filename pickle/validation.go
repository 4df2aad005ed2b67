// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package pickle

// validOpcodes filters the protocol table's set for the current version down
// to the opcodes whose preconditions hold in the current VM state. This is
// the selection pool for each body-loop step.
func (g *Generator) validOpcodes() []Opcode {
	all := OpcodesFor(g.state.version)
	valid := make([]Opcode, 0, len(all))
	for _, op := range all {
		if g.canEmit(op) {
			valid = append(valid, op)
		}
	}
	return valid
}

// choose selects uniformly among the candidates. NONE is the fallback for an
// empty list; callers normally break out of the body loop before that.
func (g *Generator) choose(ops []Opcode, src Source) Opcode {
	if len(ops) == 0 {
		return OpNone
	}
	return ops[src.Intn(len(ops))]
}

// canEmit reports whether emitting op now keeps the stream structurally
// valid: stack depth, operand types, mark placement and memo state all
// checked against the simulated VM.
func (g *Generator) canEmit(op Opcode) bool {
	st := &g.state.stack
	switch op {
	case OpPop:
		return st.Len() >= 1
	case OpDup:
		// Duplicating a mark corrupts every later mark-consuming opcode.
		top := st.Peek()
		return top != nil && !top.IsMark()

	case OpAppend:
		return st.Len() >= 2 && g.kindAt(1, KindList)
	case OpAppends:
		n, ok := g.countToMark()
		return ok && n > 0 && g.kindBelowMark(KindList)

	case OpSetItem:
		return st.Len() >= 3 && g.kindAt(2, KindDict)
	case OpSetItems:
		// Items between mark and top must pair up into keys and values.
		n, ok := g.countToMark()
		return ok && n > 0 && n%2 == 0 && g.kindBelowMark(KindDict)

	case OpAddItems:
		n, ok := g.countToMark()
		return ok && n > 0 && g.kindBelowMark(KindSet)

	case OpTuple, OpList, OpFrozenSet:
		return g.hasMark()
	case OpDict:
		n, ok := g.countToMark()
		return ok && n > 0 && n%2 == 0
	case OpPopMark:
		return g.hasMark()

	case OpTuple1:
		return st.Len() >= 1
	case OpTuple2:
		return st.Len() >= 2
	case OpTuple3:
		return st.Len() >= 3

	case OpReduce, OpNewObj:
		// Layout: [... callable args-tuple] with the tuple on top.
		return st.Len() >= 2 && g.callableAt(1) && g.kindAt(0, KindTuple)
	case OpNewObjEx:
		// Layout: [... callable args-tuple kwargs-dict].
		return st.Len() >= 3 && g.callableAt(2) && g.kindAt(1, KindTuple) && g.kindAt(0, KindDict)
	case OpBuild:
		// State constrained to tuple/dict to avoid shapes no reducer accepts.
		return st.Len() >= 2 && g.kindAt(1, KindInstance) &&
			(g.kindAt(0, KindTuple) || g.kindAt(0, KindDict))
	case OpInst:
		n, ok := g.countToMark()
		return ok && n > 0
	case OpObj:
		return g.callableAboveMark()

	case OpGet, OpBinGet, OpLongBinGet:
		return len(g.state.memo) > 0

	case OpPut, OpBinPut, OpLongBinPut, OpMemoize:
		top := st.Peek()
		return top != nil && !top.IsMark()

	case OpStackGlobal:
		if g.unsafeMut {
			// Deliberate fuzzing escape hatch: any two values qualify.
			return st.Len() >= 2
		}
		return st.Len() >= 2 && g.kindAt(0, KindString) && g.kindAt(1, KindString)

	case OpBinPersID:
		return st.Len() >= 1

	case OpProto:
		return !g.state.protoEmitted

	case OpStop:
		// Only the driver emits STOP, after cleanup.
		return false

	case OpExt1, OpExt2, OpExt4:
		return g.allowExt
	case OpNextBuffer, OpReadOnlyBuffer:
		return g.allowBuffer

	case OpFrame:
		// Inserted by the driver via the reserved-slot patch, never inline.
		return false
	}
	// Pure value producers (ints, floats, strings, bytes, empty containers,
	// literals, GLOBAL, PERSID, MARK) are always legal.
	return true
}

// hasMark reports whether any mark is on the stack.
func (g *Generator) hasMark() bool {
	for _, o := range g.state.stack.objs {
		if o.IsMark() {
			return true
		}
	}
	return false
}

// countToMark returns the number of items strictly above the topmost mark.
func (g *Generator) countToMark() (int, bool) {
	objs := g.state.stack.objs
	for i := len(objs) - 1; i >= 0; i-- {
		if objs[i].IsMark() {
			return len(objs) - 1 - i, true
		}
	}
	return 0, false
}

// kindAt reports whether the object at the given depth has the given kind.
func (g *Generator) kindAt(depth int, kind ObjectKind) bool {
	o := g.state.stack.PeekAt(depth)
	return o != nil && o.Kind == kind
}

func (g *Generator) callableAt(depth int) bool {
	return g.state.stack.PeekAt(depth).IsCallable()
}

// belowMark returns the object immediately below the topmost mark, if any.
func (g *Generator) belowMark() *Object {
	objs := g.state.stack.objs
	for i := len(objs) - 1; i >= 0; i-- {
		if objs[i].IsMark() {
			if i > 0 {
				return objs[i-1]
			}
			return nil
		}
	}
	return nil
}

func (g *Generator) kindBelowMark(kind ObjectKind) bool {
	o := g.belowMark()
	return o != nil && o.Kind == kind
}

// callableAboveMark reports whether the object immediately above the topmost
// mark (toward the top) is callable; OBJ takes it as the class.
func (g *Generator) callableAboveMark() bool {
	objs := g.state.stack.objs
	for i := len(objs) - 1; i >= 0; i-- {
		if objs[i].IsMark() {
			if i+1 < len(objs) {
				return objs[i+1].IsCallable()
			}
			return false
		}
	}
	return false
}
