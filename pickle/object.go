// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package pickle

// ObjectKind tags the variants of a simulated stack value.
type ObjectKind int

const (
	KindInt ObjectKind = iota
	KindFloat
	KindBool
	KindNone
	KindBytes
	KindString
	KindByteArray
	KindList
	KindTuple
	KindDict
	KindSet
	KindFrozenSet
	KindMark
	KindGlobal
	KindInstance
	KindCallable
)

// Object is a value on the simulated pickle VM stack. Objects are shared by
// pointer: a container and the memo table may hold the same object, and a
// mutation through one holder is visible through all of them. Containers may
// end up containing themselves via memo round-trips, so anything that walks
// an object must guard against cycles.
//
// Dict keys and set members are keyed by object pointer; that is pure
// bookkeeping for the simulation. Value equality is Equal below.
type Object struct {
	Kind ObjectKind

	Int   int64
	Float float64
	Bool  bool
	Data  []byte // Bytes, ByteArray
	Str   string // String

	Items []*Object            // List, Tuple
	Map   map[*Object]*Object  // Dict
	Set   map[*Object]struct{} // Set, FrozenSet

	Module string // Global
	Name   string // Global

	Callable *Object // Callable wraps a global; Instance records its callable
	Args     *Object // Instance argument bundle
}

func NewInt(v int64) *Object     { return &Object{Kind: KindInt, Int: v} }
func NewFloat(v float64) *Object { return &Object{Kind: KindFloat, Float: v} }
func NewBool(v bool) *Object     { return &Object{Kind: KindBool, Bool: v} }
func NewNone() *Object           { return &Object{Kind: KindNone} }
func NewBytes(b []byte) *Object  { return &Object{Kind: KindBytes, Data: b} }
func NewString(s string) *Object { return &Object{Kind: KindString, Str: s} }
func NewByteArray(b []byte) *Object {
	return &Object{Kind: KindByteArray, Data: b}
}
func NewList(items []*Object) *Object  { return &Object{Kind: KindList, Items: items} }
func NewTuple(items []*Object) *Object { return &Object{Kind: KindTuple, Items: items} }
func NewDict() *Object {
	return &Object{Kind: KindDict, Map: make(map[*Object]*Object)}
}
func NewSet() *Object {
	return &Object{Kind: KindSet, Set: make(map[*Object]struct{})}
}
func NewFrozenSet() *Object {
	return &Object{Kind: KindFrozenSet, Set: make(map[*Object]struct{})}
}
func NewMark() *Object { return &Object{Kind: KindMark} }
func NewGlobal(module, name string) *Object {
	return &Object{Kind: KindGlobal, Module: module, Name: name}
}
func NewCallable(inner *Object) *Object {
	return &Object{Kind: KindCallable, Callable: inner}
}
func NewInstance(callable, args *Object) *Object {
	return &Object{Kind: KindInstance, Callable: callable, Args: args}
}

// Clone returns a shallow copy: container membership is copied but the
// elements themselves stay shared. PUT/GET and MEMOIZE store and retrieve
// clones, so a later in-place change to the stack copy does not rewrite the
// memo's view.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	c := *o
	if o.Items != nil {
		c.Items = append([]*Object(nil), o.Items...)
	}
	if o.Map != nil {
		c.Map = make(map[*Object]*Object, len(o.Map))
		for k, v := range o.Map {
			c.Map[k] = v
		}
	}
	if o.Set != nil {
		c.Set = make(map[*Object]struct{}, len(o.Set))
		for m := range o.Set {
			c.Set[m] = struct{}{}
		}
	}
	return &c
}

// IsMark reports whether the object is the structural mark sentinel.
func (o *Object) IsMark() bool { return o != nil && o.Kind == KindMark }

// IsCallable reports whether the object can be invoked by REDUCE/NEWOBJ.
func (o *Object) IsCallable() bool {
	return o != nil && (o.Kind == KindCallable || o.Kind == KindGlobal)
}

// AsGlobal unwraps Callable and Instance wrappers and returns the underlying
// module/attribute pair if the object bottoms out in a global.
func (o *Object) AsGlobal() (module, name string, ok bool) {
	switch {
	case o == nil:
		return "", "", false
	case o.Kind == KindGlobal:
		return o.Module, o.Name, true
	case o.Kind == KindCallable && o.Callable != nil && o.Callable.Kind == KindGlobal:
		return o.Callable.Module, o.Callable.Name, true
	case o.Kind == KindInstance && o.Callable != nil && o.Callable.Kind == KindGlobal:
		return o.Callable.Module, o.Callable.Name, true
	}
	return "", "", false
}

// maxEqualDepth bounds recursion in Equal so that self-referential containers
// (a list appended to itself via the memo) terminate.
const maxEqualDepth = 64

// Equal compares two objects by value, not identity. Containers compare
// element-wise; recursion is depth-bounded and identical pointers
// short-circuit, so cyclic structures terminate.
func (a *Object) Equal(b *Object) bool {
	return equalAt(a, b, 0)
}

func equalAt(a, b *Object, depth int) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	if depth > maxEqualDepth {
		// Too deep to prove different; treat as equal like a visited node.
		return true
	}
	switch a.Kind {
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float
	case KindBool:
		return a.Bool == b.Bool
	case KindNone, KindMark:
		return true
	case KindBytes, KindByteArray:
		return string(a.Data) == string(b.Data)
	case KindString:
		return a.Str == b.Str
	case KindList, KindTuple:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !equalAt(a.Items[i], b.Items[i], depth+1) {
				return false
			}
		}
		return true
	case KindDict:
		if len(a.Map) != len(b.Map) {
			return false
		}
		for ka, va := range a.Map {
			found := false
			for kb, vb := range b.Map {
				if equalAt(ka, kb, depth+1) && equalAt(va, vb, depth+1) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	case KindSet, KindFrozenSet:
		if len(a.Set) != len(b.Set) {
			return false
		}
		for ma := range a.Set {
			found := false
			for mb := range b.Set {
				if equalAt(ma, mb, depth+1) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	case KindGlobal:
		return a.Module == b.Module && a.Name == b.Name
	case KindCallable:
		return equalAt(a.Callable, b.Callable, depth+1)
	case KindInstance:
		// Shallow, mirroring the simulation's needs: instances are opaque.
		return true
	}
	return false
}

// Stack is the simulated pickle VM stack.
type Stack struct {
	objs []*Object
}

func (s *Stack) Len() int { return len(s.objs) }

func (s *Stack) Push(o *Object) { s.objs = append(s.objs, o) }

func (s *Stack) Pop() *Object {
	if len(s.objs) == 0 {
		return nil
	}
	o := s.objs[len(s.objs)-1]
	s.objs = s.objs[:len(s.objs)-1]
	return o
}

func (s *Stack) Peek() *Object {
	if len(s.objs) == 0 {
		return nil
	}
	return s.objs[len(s.objs)-1]
}

// PeekAt returns the object at the given depth from the top (0 = top), or
// nil if the depth exceeds the stack size.
func (s *Stack) PeekAt(depth int) *Object {
	if depth < 0 || depth >= len(s.objs) {
		return nil
	}
	return s.objs[len(s.objs)-1-depth]
}

func (s *Stack) Reset() { s.objs = s.objs[:0] }
