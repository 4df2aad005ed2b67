// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package pickle

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"
)

// cleanupForStop reduces the stack to exactly one item so STOP finds a valid
// result. Outstanding marks collapse via TUPLE, then leftover items pair down
// via TUPLE3/TUPLE2, and an empty stack gets a NONE.
func (g *Generator) cleanupForStop() {
	// TUPLE pops to the mark and consumes it. DUP never duplicates marks, so
	// every mark on the simulated stack has a real MARK byte in the output.
	for g.hasMark() {
		g.emitOpcode(OpTuple)
	}

	for steps := 0; g.state.stack.Len() > 1 && steps < cleanupMaxSteps; steps++ {
		if g.state.stack.Len() >= 3 {
			g.emitOpcode(OpTuple3)
		} else {
			g.emitOpcode(OpTuple2)
		}
	}

	if g.state.stack.Len() == 0 {
		g.emitOpcode(OpNone)
	}

	// Should not occur after the loops above, but a lone mark on top would
	// make STOP pop garbage.
	if top := g.state.stack.Peek(); top.IsMark() {
		g.state.stack.Pop()
		if g.state.stack.Len() == 0 {
			g.emitOpcode(OpNone)
		}
	}
}

// processStackOps replays one emitted opcode against the simulated VM. The
// args slice holds the bytes written after the opcode byte (content only for
// length-prefixed opcodes), so the simulation tracks what a real unpickler
// would see, including mutated values.
func (g *Generator) processStackOps(op Opcode, args []byte) {
	st := &g.state.stack
	switch op {
	case OpPop:
		st.Pop()
	case OpDup:
		// Never duplicate a mark: TUPLE would then pop past the real one.
		if top := st.Peek(); top != nil && !top.IsMark() {
			st.Push(top)
		}
	case OpMark:
		st.Push(NewMark())
	case OpPopMark:
		for {
			o := st.Pop()
			if o == nil || o.IsMark() {
				break
			}
		}

	case OpEmptyList:
		st.Push(NewList(nil))
	case OpAppend:
		if st.Len() < 2 {
			return
		}
		item := st.Pop()
		if list := st.Peek(); list != nil && list.Kind == KindList {
			list.Items = append(list.Items, item)
		}
	case OpAppends:
		items := g.popToMark()
		if list := st.Peek(); list != nil && list.Kind == KindList {
			list.Items = append(list.Items, items...)
		}
	case OpList:
		st.Push(NewList(g.popToMark()))

	case OpEmptyTuple:
		st.Push(NewTuple(nil))
	case OpTuple:
		st.Push(NewTuple(g.popToMark()))
	case OpTuple1:
		if item := st.Pop(); item != nil {
			st.Push(NewTuple([]*Object{item}))
		}
	case OpTuple2:
		if st.Len() >= 2 {
			second, first := st.Pop(), st.Pop()
			st.Push(NewTuple([]*Object{first, second}))
		}
	case OpTuple3:
		if st.Len() >= 3 {
			third, second, first := st.Pop(), st.Pop(), st.Pop()
			st.Push(NewTuple([]*Object{first, second, third}))
		}

	case OpEmptyDict:
		st.Push(NewDict())
	case OpDict:
		d := NewDict()
		for {
			value := st.Pop()
			if value == nil || value.IsMark() {
				break
			}
			if key := st.Pop(); key != nil {
				d.Map[key] = value
			}
		}
		st.Push(d)
	case OpSetItem:
		if st.Len() < 3 {
			return
		}
		value, key := st.Pop(), st.Pop()
		if d := st.Peek(); d != nil && d.Kind == KindDict {
			d.Map[key] = value
		}
	case OpSetItems:
		type pair struct{ key, value *Object }
		var pairs []pair
		for {
			value := st.Pop()
			if value == nil || value.IsMark() {
				break
			}
			if key := st.Pop(); key != nil {
				pairs = append(pairs, pair{key, value})
			}
		}
		if d := st.Peek(); d != nil && d.Kind == KindDict {
			for _, p := range pairs {
				d.Map[p.key] = p.value
			}
		}

	case OpEmptySet:
		st.Push(NewSet())
	case OpAddItems:
		items := g.popToMark()
		if s := st.Peek(); s != nil && s.Kind == KindSet {
			for _, item := range items {
				s.Set[item] = struct{}{}
			}
		}
	case OpFrozenSet:
		fs := NewFrozenSet()
		for _, item := range g.popToMark() {
			fs.Set[item] = struct{}{}
		}
		st.Push(fs)

	case OpInt:
		v, _ := strconv.ParseInt(strings.TrimSpace(string(args)), 10, 64)
		// Protocols 0-1 spell booleans as INT 00/01; 2+ have NEWTRUE/NEWFALSE.
		if g.state.version <= V1 && (v == 0 || v == 1) {
			st.Push(NewBool(v == 1))
		} else {
			st.Push(NewInt(v))
		}
	case OpBinInt:
		if len(args) < 4 {
			return
		}
		st.Push(NewInt(int64(int32(leUint(args[:4])))))
	case OpBinInt1:
		if len(args) < 1 {
			return
		}
		st.Push(NewInt(int64(args[0])))
	case OpBinInt2:
		if len(args) < 2 {
			return
		}
		st.Push(NewInt(int64(leUint(args[:2]))))
	case OpLong:
		s := strings.TrimSuffix(strings.TrimSuffix(string(args), "\n"), "L")
		v, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		st.Push(NewInt(v))
	case OpLong1:
		if len(args) < 1 {
			return
		}
		size := int(args[0])
		if len(args) > size {
			st.Push(NewInt(int64(leUint(args[1 : 1+size]))))
		}
	case OpLong4:
		if len(args) < 4 {
			return
		}
		size := int(leUint(args[:4]))
		if len(args) >= 4+size {
			st.Push(NewInt(int64(leUint(args[4 : 4+size]))))
		}

	case OpString, OpUnicode, OpShortBinUnicode, OpBinUnicode, OpBinUnicode8:
		st.Push(NewString(string(args)))
	case OpBinString, OpShortBinString, OpBinBytes, OpShortBinBytes, OpBinBytes8:
		st.Push(NewBytes(append([]byte(nil), args...)))
	case OpByteArray8:
		st.Push(NewByteArray(append([]byte(nil), args...)))

	case OpNone:
		st.Push(NewNone())
	case OpNewTrue:
		st.Push(NewBool(true))
	case OpNewFalse:
		st.Push(NewBool(false))

	case OpFloat:
		v, _ := strconv.ParseFloat(strings.TrimSpace(string(args)), 64)
		st.Push(NewFloat(v))
	case OpBinFloat:
		if len(args) < 8 {
			return
		}
		st.Push(NewFloat(beFloat(args[:8])))

	case OpGlobal:
		if module, name, ok := splitModuleAttr(args); ok {
			st.Push(NewCallable(NewGlobal(module, name)))
		}
	case OpStackGlobal:
		attr, module := st.Pop(), st.Pop()
		if module != nil && module.Kind == KindString && attr != nil && attr.Kind == KindString {
			st.Push(NewCallable(NewGlobal(module.Str, attr.Str)))
		}

	case OpReduce, OpNewObj:
		if st.Len() < 2 {
			return
		}
		argsObj, callable := st.Pop(), st.Pop()
		st.Push(NewInstance(unwrapCallable(callable), argsObj))
	case OpNewObjEx:
		if st.Len() < 3 {
			return
		}
		st.Pop() // kwargs
		argsObj, callable := st.Pop(), st.Pop()
		st.Push(NewInstance(unwrapCallable(callable), argsObj))
	case OpBuild:
		if st.Len() < 2 {
			return
		}
		buildState, inst := st.Pop(), st.Pop()
		if inst.Kind == KindInstance {
			inst.Args = buildState
		}
		st.Push(inst.Clone())
	case OpInst:
		if module, name, ok := splitModuleAttr(args); ok {
			items := g.popToMark()
			st.Push(NewInstance(NewGlobal(module, name), NewTuple(items)))
		}
	case OpObj:
		// First item above the mark is the class, the rest are its args.
		items := g.popToMark()
		if len(items) > 0 {
			st.Push(NewInstance(items[0], NewTuple(items[1:])))
		}

	case OpPersID:
		st.Push(NewString(string(args)))
	case OpBinPersID:
		if st.Pop() != nil {
			// Stand-in that stays usable if STACK_GLOBAL later consumes it.
			st.Push(NewString("persistent_object"))
		}

	case OpGet:
		index, err := strconv.Atoi(strings.TrimSpace(string(args)))
		if err != nil {
			return
		}
		if o, ok := g.state.memo[index]; ok {
			st.Push(o.Clone())
		}
	case OpBinGet:
		if len(args) < 1 {
			return
		}
		if o, ok := g.state.memo[int(args[0])]; ok {
			st.Push(o.Clone())
		}
	case OpLongBinGet:
		if len(args) < 4 {
			return
		}
		if o, ok := g.state.memo[int(leUint(args[:4]))]; ok {
			st.Push(o.Clone())
		}

	case OpPut:
		index, err := strconv.Atoi(strings.TrimSpace(string(args)))
		if err != nil {
			return
		}
		g.memoPut(index)
	case OpBinPut:
		if len(args) >= 1 {
			g.memoPut(int(args[0]))
		}
	case OpLongBinPut:
		if len(args) >= 4 {
			g.memoPut(int(leUint(args[:4])))
		}
	case OpMemoize:
		if top := st.Pop(); top != nil {
			g.state.memo[len(g.state.memo)] = top.Clone()
			st.Push(top.Clone())
		}

	case OpExt1, OpExt2, OpExt4:
		// Real lookups need an extension registry; stand in a callable so a
		// later REDUCE still makes sense.
		st.Push(NewCallable(NewGlobal("builtins", "object")))

	case OpNextBuffer:
		st.Push(NewBytes(nil))

	case OpProto, OpReadOnlyBuffer, OpStop, OpFrame:
		// No stack effect.
	}
}

// popToMark pops up to and including the topmost mark and returns the items
// above it in bottom-to-top order.
func (g *Generator) popToMark() []*Object {
	var items []*Object
	for {
		o := g.state.stack.Pop()
		if o == nil || o.IsMark() {
			break
		}
		items = append(items, o)
	}
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items
}

// memoPut stores a clone of the top of stack at the given memo index. Marks
// are never memoized.
func (g *Generator) memoPut(index int) {
	if top := g.state.stack.Peek(); top != nil && !top.IsMark() {
		g.state.memo[index] = top.Clone()
	}
}

// unwrapCallable strips the Callable wrapper to the invocable underneath.
func unwrapCallable(o *Object) *Object {
	if o != nil && o.Kind == KindCallable && o.Callable != nil {
		return o.Callable
	}
	return o
}

// splitModuleAttr parses the "module\nattr\n" argument of GLOBAL and INST.
func splitModuleAttr(args []byte) (module, name string, ok bool) {
	parts := strings.Split(string(args), "\n")
	if len(parts) < 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// beFloat decodes the big-endian IEEE 754 argument of BINFLOAT.
func beFloat(b []byte) float64 {
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}

// leUint assembles an unsigned little-endian integer from up to 8 bytes.
func leUint(b []byte) uint64 {
	var v uint64
	for i := 0; i < len(b) && i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
