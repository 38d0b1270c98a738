package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSetupLevels(t *testing.T) {
	tests := []struct {
		level      string
		debugShown bool
		infoShown  bool
	}{
		{level: "debug", debugShown: true, infoShown: true},
		{level: "info", debugShown: false, infoShown: true},
		{level: "warn", debugShown: false, infoShown: false},
		{level: "error", debugShown: false, infoShown: false},
		{level: "bogus", debugShown: false, infoShown: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := Setup(&buf, tt.level)

			logger.Debug("debug message")
			logger.Info("info message")

			out := buf.String()
			if got := strings.Contains(out, "debug message"); got != tt.debugShown {
				t.Errorf("debug shown = %v, want %v", got, tt.debugShown)
			}
			if got := strings.Contains(out, "info message"); got != tt.infoShown {
				t.Errorf("info shown = %v, want %v", got, tt.infoShown)
			}
		})
	}
}

func TestErrNilSafe(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("no error", Err(nil))
	if strings.Contains(buf.String(), "error=") {
		t.Errorf("nil error should not produce an error attribute: %s", buf.String())
	}
}

func TestAnonymizeEmail(t *testing.T) {
	hashed := AnonymizeEmail("user@example.com")
	if !strings.HasPrefix(hashed, "user:") {
		t.Errorf("AnonymizeEmail() = %q, want user: prefix", hashed)
	}
	if strings.Contains(hashed, "example.com") {
		t.Errorf("AnonymizeEmail() leaked the address: %q", hashed)
	}
	if hashed != AnonymizeEmail("user@example.com") {
		t.Error("AnonymizeEmail() must be deterministic")
	}
	if AnonymizeEmail("") != "" {
		t.Error("empty address should stay empty")
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken(""); got != "<empty>" {
		t.Errorf("SanitizeToken(\"\") = %q", got)
	}
	got := SanitizeToken("super-secret-token")
	if strings.Contains(got, "super") {
		t.Errorf("SanitizeToken() leaked token content: %q", got)
	}
	if got != "[token:18 chars]" {
		t.Errorf("SanitizeToken() = %q, want [token:18 chars]", got)
	}
}
