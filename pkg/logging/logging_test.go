package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestSetLevel(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		want    log.Level
		wantErr bool
	}{
		{name: "debug", level: "debug", want: log.DebugLevel},
		{name: "warn", level: "warn", want: log.WarnLevel},
		{name: "unknown", level: "chatty", wantErr: true},
	}

	defer Logger().SetLevel(log.InfoLevel)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SetLevel(tt.level)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SetLevel(%q) succeeded, want error", tt.level)
				}
				return
			}
			if err != nil {
				t.Fatalf("SetLevel(%q): %v", tt.level, err)
			}
			if got := Logger().GetLevel(); got != tt.want {
				t.Errorf("GetLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSharedLoggerOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	Logger().Infof("reconstructed %d triangles", 12)
	Logger().Debug("hidden at info level")

	out := buf.String()
	if !strings.Contains(out, "reconstructed 12 triangles") {
		t.Errorf("output %q missing info message", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("output %q contains a debug message at info level", out)
	}
}

func TestNewPrefix(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", "bpa"},
		{"pivot", "bpa/pivot"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			l := New(tt.name, log.WarnLevel)
			if got := l.GetPrefix(); got != tt.want {
				t.Errorf("GetPrefix() = %q, want %q", got, tt.want)
			}
			if got := l.GetLevel(); got != log.WarnLevel {
				t.Errorf("GetLevel() = %v, want %v", got, log.WarnLevel)
			}
		})
	}
}
