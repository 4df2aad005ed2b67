// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package mutators implements the mutation strategies that perturb generated
// pickle streams: value-level edits (bit flips, boundary values, off-by-one,
// string surgery) and raw bytecode rewrites (type confusion). Strategies are
// selected by name, typically from a command line flag.
package mutators

import (
	"fmt"
	"sort"
	"strings"

	"github.com/picklegen/picklegen/pickle"
)

// Names of all individual strategies, plus the "all" meta-name that expands
// to every strategy appropriate for the safety mode.
const (
	NameAll           = "all"
	NameBitFlip       = "bitflip"
	NameBoundary      = "boundary"
	NameOffByOne      = "offbyone"
	NameStringLength  = "stringlen"
	NameCharacter     = "character"
	NameMemoIndex     = "memoindex"
	NameTypeConfusion = "typeconfusion"
)

// ByName instantiates a single strategy. unsafeMode is passed through to the
// strategies whose behavior depends on it.
func ByName(name string, unsafeMode bool) (pickle.Mutator, error) {
	switch name {
	case NameBitFlip:
		return BitFlip{}, nil
	case NameBoundary:
		return Boundary{}, nil
	case NameOffByOne:
		return OffByOne{}, nil
	case NameStringLength:
		return StringLength{}, nil
	case NameCharacter:
		return Character{}, nil
	case NameMemoIndex:
		return NewMemoIndex(unsafeMode), nil
	case NameTypeConfusion:
		return NewTypeConfusion(unsafeMode), nil
	}
	return nil, fmt.Errorf("unknown mutator %q (known: %s)", name, strings.Join(KnownNames(), ", "))
}

// All returns every strategy. The memo index strategy can produce dangling
// references even in its safe mode, so it is included only when unsafe
// mutations were requested explicitly.
func All(unsafeMode bool) []pickle.Mutator {
	ms := []pickle.Mutator{
		BitFlip{},
		Boundary{},
		OffByOne{},
		StringLength{},
		Character{},
		NewTypeConfusion(unsafeMode),
	}
	if unsafeMode {
		ms = append(ms, NewMemoIndex(unsafeMode))
	}
	return ms
}

// Parse expands a comma-separated strategy list ("bitflip,boundary" or
// "all") into instantiated strategies.
func Parse(list string, unsafeMode bool) ([]pickle.Mutator, error) {
	var ms []pickle.Mutator
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if name == NameAll {
			ms = append(ms, All(unsafeMode)...)
			continue
		}
		m, err := ByName(name, unsafeMode)
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	return ms, nil
}

// KnownNames lists every accepted strategy name, sorted, for usage text.
func KnownNames() []string {
	names := []string{
		NameAll, NameBitFlip, NameBoundary, NameOffByOne,
		NameStringLength, NameCharacter, NameMemoIndex, NameTypeConfusion,
	}
	sort.Strings(names)
	return names
}
