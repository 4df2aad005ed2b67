// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package pickle

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
)

// modules.txt holds one "module.attr" entry per line, harvested from the
// Python standard library. GLOBAL and INST arguments are drawn from it so
// generated pickles reference names a real interpreter can resolve.
//
//go:embed modules.txt
var modulesData string

var stdlibEntries = sync.OnceValue(func() []string {
	var entries []string
	for _, line := range strings.Split(modulesData, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			entries = append(entries, line)
		}
	}
	return entries
})

// randomModule picks a stdlib entry and formats it as the two
// newline-terminated strings GLOBAL and INST expect.
func randomModule(src Source) string {
	entries := stdlibEntries()
	chosen := entries[src.Intn(len(entries))]
	module, attr, found := strings.Cut(chosen, ".")
	if module == "" {
		module = "builtins"
	}
	if !found || attr == "" {
		attr = "object"
	}
	return fmt.Sprintf("%s\n%s\n", module, attr)
}
