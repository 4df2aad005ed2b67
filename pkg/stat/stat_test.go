// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stat

import (
	"testing"
	"time"
)

func TestVal(t *testing.T) {
	v := New("test counter", "test counter desc")
	v.Add(1)
	v.Add(10)
	if got := v.Val(); got != 11 {
		t.Fatalf("Val() = %v, want 11", got)
	}
}

func TestExternal(t *testing.T) {
	v := New("test external", "", func() int { return 42 })
	if got := v.Val(); got != 42 {
		t.Fatalf("Val() = %v, want 42", got)
	}
}

func TestDistribution(t *testing.T) {
	v := New("test distribution", "", Distribution{})
	if got := v.Val(); got != 0 {
		t.Fatalf("empty distribution Val() = %v", got)
	}
	for i := 0; i < 10; i++ {
		v.Add(100)
	}
	if got := v.Val(); got != 100 {
		t.Fatalf("Val() = %v, want 100", got)
	}
}

func TestCollect(t *testing.T) {
	v := New("test collect", "desc", Rate{})
	v.Add(1)
	var found bool
	for _, ui := range Collect() {
		if ui.Name != "test collect" {
			continue
		}
		found = true
		if ui.V != 1 || ui.Desc != "desc" || ui.Value == "" {
			t.Fatalf("bad UI: %+v", ui)
		}
	}
	if !found {
		t.Fatalf("metric not collected")
	}
}

func TestFormatRate(t *testing.T) {
	tests := []struct {
		v      int
		period time.Duration
		want   string
	}{
		{100, time.Second, "100 (100/sec)"},
		{20, 2 * time.Second, "20 (10/sec)"},
		{10, time.Minute, "10 (10/min)"},
		{1, time.Hour, "1 (1/hour)"},
	}
	for _, test := range tests {
		if got := formatRate(test.v, test.period); got != test.want {
			t.Errorf("formatRate(%v, %v) = %q, want %q", test.v, test.period, got, test.want)
		}
	}
}
