package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		json    bool
		debug   bool
	}{
		{"console quiet", false, false, false},
		{"console verbose", true, false, true},
		{"json quiet", false, true, false},
		{"json verbose", true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.verbose, tt.json)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := logger.Core().Enabled(zapcore.DebugLevel); got != tt.debug {
				t.Errorf("debug enabled = %v, want %v", got, tt.debug)
			}
			if !logger.Core().Enabled(zapcore.WarnLevel) {
				t.Error("warnings must always be enabled")
			}
		})
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
}
