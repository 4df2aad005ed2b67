// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package pickle

import "fmt"

// Version is a pickle protocol version. Python's pickle module supports
// protocols 0-5, each a superset of the previous:
//   - V0: original ASCII protocol
//   - V1: binary protocol
//   - V2: new-style classes
//   - V3: bytes support
//   - V4: large data support (framing)
//   - V5: out-of-band data
type Version int

const (
	V0 Version = iota
	V1
	V2
	V3
	V4
	V5

	NumVersions = 6
)

// ParseVersion validates a protocol ordinal. Versions outside 0-5 are
// rejected at construction time so generation itself never sees them.
func ParseVersion(v int) (Version, error) {
	if v < 0 || v >= NumVersions {
		return 0, fmt.Errorf("protocol version must be 0-5, got %v", v)
	}
	return Version(v), nil
}

func (v Version) String() string {
	return fmt.Sprintf("protocol %d", int(v))
}
