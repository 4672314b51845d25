package monitoring

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestStream(t *testing.T) {
	var buf bytes.Buffer
	s := NewStream("[drive] ", &buf)
	s.Printf("stale heading sample on cycle %d", 7)

	if got := buf.String(); !strings.Contains(got, "[drive] stale heading sample on cycle 7") {
		t.Errorf("stream output = %q", got)
	}
}

func TestStream_NilDiscards(t *testing.T) {
	s := NewStream("[drive] ", nil)
	if s != nil {
		t.Fatal("NewStream with nil writer should return nil")
	}
	// Must not panic.
	s.Printf("dropped %d", 1)
}
