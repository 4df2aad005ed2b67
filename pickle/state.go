// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package pickle

// state is the simulated pickle VM: the value stack, the memo table and the
// per-pass header flag. It is owned exclusively by one Generator and mutated
// only during emission.
type state struct {
	version      Version
	protoEmitted bool
	stack        Stack
	memo         map[int]*Object
}

func newState(version Version) *state {
	return &state{
		version: version,
		memo:    make(map[int]*Object),
	}
}

// reset clears the stack, the memo table and the header flag, preserving the
// configured protocol version.
func (st *state) reset() {
	st.protoEmitted = false
	st.stack.Reset()
	for k := range st.memo {
		delete(st.memo, k)
	}
}
