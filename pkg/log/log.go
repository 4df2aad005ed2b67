// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package log is a thin layer over the standard log package with verbosity
// levels shared by all packages and optional in-memory caching of recent
// output for inclusion in reports.
package log

import (
	"bytes"
	"flag"
	"fmt"
	golog "log"
	"sync"
	"time"
)

var (
	flagV       = flag.Int("vv", 0, "verbosity")
	mu          sync.Mutex
	cacheMem    int
	cacheMaxMem int
	cachePos    int
	cacheLines  []string
	prependTime = true // for testing
)

// EnableLogCaching keeps the most recent log lines (up to maxLines lines and
// maxMem bytes) in memory for later retrieval with CachedLogOutput.
func EnableLogCaching(maxLines, maxMem int) {
	mu.Lock()
	defer mu.Unlock()
	if cacheLines != nil {
		Fatalf("log caching is already enabled")
	}
	if maxLines < 1 || maxMem < 1 {
		panic("invalid maxLines/maxMem")
	}
	cacheMaxMem = maxMem
	cacheLines = make([]string, maxLines)
}

// CachedLogOutput returns the cached lines, oldest first.
func CachedLogOutput() string {
	mu.Lock()
	defer mu.Unlock()
	buf := new(bytes.Buffer)
	for i := range cacheLines {
		pos := (cachePos + i) % len(cacheLines)
		if cacheLines[pos] == "" {
			continue
		}
		buf.WriteString(cacheLines[pos])
		buf.WriteByte('\n')
	}
	return buf.String()
}

// Logf prints the message if the global verbosity is at least v.
// Messages with v <= 1 also land in the cache when caching is enabled.
func Logf(v int, msg string, args ...interface{}) {
	mu.Lock()
	doLog := v <= *flagV
	if cacheLines != nil && v <= 1 {
		cacheMem -= len(cacheLines[cachePos])
		timeStr := ""
		if prependTime {
			timeStr = time.Now().Format("2006/01/02 15:04:05 ")
		}
		cacheLines[cachePos] = fmt.Sprintf(timeStr+msg, args...)
		cacheMem += len(cacheLines[cachePos])
		cachePos = (cachePos + 1) % len(cacheLines)
		for i := 0; i < len(cacheLines)-1 && cacheMem > cacheMaxMem; i++ {
			pos := (cachePos + i) % len(cacheLines)
			cacheMem -= len(cacheLines[pos])
			cacheLines[pos] = ""
		}
		if cacheMem < 0 {
			panic("log cache size underflow")
		}
	}
	mu.Unlock()

	if doLog {
		golog.Printf(msg, args...)
	}
}

// Errorf prints the message regardless of the verbosity level.
func Errorf(msg string, args ...interface{}) {
	Logf(0, msg, args...)
}

func Fatal(err error) {
	golog.Fatal(err)
}

func Fatalf(msg string, args ...interface{}) {
	golog.Fatalf(msg, args...)
}
