package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevels_String(t *testing.T) {
	cases := map[Level]string{
		LevelDebug: "DEBUG",
		LevelInfo:  "INFO",
		LevelWarn:  "WARN",
		LevelError: "ERROR",
	}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", level, got, want)
		}
	}
}

func TestInfo_WritesToConsole(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(&buf, "", false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Close()

	Info("compared %d documents", 2)
	if !strings.Contains(buf.String(), "compared 2 documents") {
		t.Errorf("console output = %q", buf.String())
	}
}

func TestDebug_SuppressedUnlessVerbose(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(&buf, "", false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Close()

	Debug("hidden detail")
	if strings.Contains(buf.String(), "hidden detail") {
		t.Error("debug output leaked to non-verbose console")
	}

	buf.Reset()
	if err := Init(&buf, "", true); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Debug("visible detail")
	if !strings.Contains(buf.String(), "visible detail") {
		t.Errorf("verbose console missing debug output: %q", buf.String())
	}
}
