package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{" WARN ", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			if got := ParseLevel(tc.in); got != tc.want {
				t.Errorf("ParseLevel(%q) = %s; want %s", tc.in, got, tc.want)
			}
		})
	}
}

func TestLevelFilteringAndFormat(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelWarn)
	t.Cleanup(func() {
		SetLevel(LevelInfo)
	})

	Info("dropped", "k", "v")
	Warn("kept", "city", "Kuala Lumpur", "n", 3)
	Error("failed", errors.New("boom"), "id", "e1")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, `[WARN] kept city="Kuala Lumpur" n=3`) {
		t.Errorf("warn line missing or malformed: %q", out)
	}
	if !strings.Contains(out, "[ERROR] failed err=boom id=e1") {
		t.Errorf("error line missing or malformed: %q", out)
	}
}
