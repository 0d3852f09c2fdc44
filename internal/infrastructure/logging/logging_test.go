package logging

import (
	"testing"

	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "debug"},
		{" WARN ", "warn"},
		{"error", "error"},
		{"info", "info"},
		{"", "info"},
		{"verbose", "info"},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in).String(); got != tt.want {
			t.Fatalf("ParseLevel(%q)=%s want %s", tt.in, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	lg, err := New("debug")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !lg.Core().Enabled(zap.DebugLevel) {
		t.Fatalf("debug level not enabled")
	}
	lg, err = New("warn")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if lg.Core().Enabled(zap.InfoLevel) {
		t.Fatalf("info enabled at warn")
	}
}
