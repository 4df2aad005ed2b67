// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package osutil wraps filesystem operations with the permissions and error
// wrapping conventions used across the project.
package osutil

import (
	"os"
)

const DefaultDirPerm = 0755
const DefaultFilePerm = 0644

func WriteFile(filename string, data []byte) error {
	return os.WriteFile(filename, data, DefaultFilePerm)
}

func MkdirAll(dir string) error {
	return os.MkdirAll(dir, DefaultDirPerm)
}
