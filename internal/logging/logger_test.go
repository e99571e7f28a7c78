// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package logging

import (
	"bytes"
	"strings"
	"testing"
)

// TestNew_WritesLogfmtToBuffer verifies that a non-terminal writer gets the
// logfmt formatter and that the level follows the Verbose option.
func TestNew_WritesLogfmtToBuffer(t *testing.T) {
	var buf bytes.Buffer
	var l Logger = New(&buf, Options{Verbose: true})

	l.Debugf("hello %s", "dbg")
	l.Infof("info %d", 1)
	l.Warnf("warn")
	l.Errorf("err %v", "E")

	out := buf.String()
	for _, want := range []string{"hello dbg", "info 1", "warn", "err E"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output; got: %s", want, out)
		}
	}
	if !strings.Contains(out, "level=debug") {
		t.Fatalf("expected logfmt level key; got: %s", out)
	}
}

func TestNew_InfoLevelDropsDebug(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Options{})
	l.Debugf("hidden")
	l.Infof("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked at info level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("missing info line: %s", out)
	}
}

func TestDiscard(t *testing.T) {
	// Must not panic and must satisfy Logger.
	var l Logger = Discard()
	l.Errorf("nothing %d", 1)
}
