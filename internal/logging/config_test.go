package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":    zerolog.TraceLevel,
		" DEBUG ":  zerolog.DebugLevel,
		"info":     zerolog.InfoLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"off":      zerolog.Disabled,
		"inactive": zerolog.Disabled,
	}
	for raw, want := range cases {
		got, ok := parseLevel(raw)
		if !ok || got != want {
			t.Fatalf("parseLevel(%q) got=%v ok=%v want=%v", raw, got, ok, want)
		}
	}
	if _, ok := parseLevel(""); ok {
		t.Fatalf("empty level should not override")
	}
	if _, ok := parseLevel("loud"); ok {
		t.Fatalf("unknown level should not override")
	}
}

func TestParseBool(t *testing.T) {
	if v, ok := parseBool("true"); !ok || !v {
		t.Fatalf("expected true")
	}
	if v, ok := parseBool(" 0 "); !ok || v {
		t.Fatalf("expected false")
	}
	if _, ok := parseBool("maybe"); ok {
		t.Fatalf("invalid bool should not override")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "false")
	t.Setenv(EnvLogNoColor, "true")
	t.Setenv(EnvLogBypass, "1")

	cfg := defaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)
	if cfg.Level != zerolog.ErrorLevel {
		t.Fatalf("unexpected level: %v", cfg.Level)
	}
	if cfg.Timestamp {
		t.Fatalf("expected timestamp disabled")
	}
	if !cfg.NoColor {
		t.Fatalf("expected no color")
	}
	if !cfg.Bypass {
		t.Fatalf("expected bypass")
	}
}

func TestDefaultConfigTestProfile(t *testing.T) {
	cfg := defaultConfig(ProfileTest)
	if cfg.Level != zerolog.DebugLevel || cfg.Timestamp || !cfg.NoColor {
		t.Fatalf("unexpected test profile: %+v", cfg)
	}
}

func TestApplyBypassWritesJSON(t *testing.T) {
	prevLogger := log.Logger
	prevLevel := zerolog.GlobalLevel()
	defer func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	}()

	var buf bytes.Buffer
	Apply(Config{Level: zerolog.InfoLevel, Bypass: true, Out: &buf})
	logger := Component("session")
	logger.Info().Str("addr", "127.0.0.1:5000").Msg("session.Conn connected")

	out := buf.String()
	if !strings.Contains(out, `"component":"session"`) || !strings.Contains(out, `"addr":"127.0.0.1:5000"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestRedirectRuntimeWritesPlainText(t *testing.T) {
	prevLogger := log.Logger
	prevLevel := zerolog.GlobalLevel()
	defer func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	}()
	t.Setenv(EnvLogLevel, "info")
	t.Setenv(EnvLogBypass, "false")

	var buf bytes.Buffer
	RedirectRuntime(&buf)
	logger := Component("ui")
	logger.Info().Msg("tasksync started")

	out := buf.String()
	if !strings.Contains(out, "tasksync started") || !strings.Contains(out, "component=ui") {
		t.Fatalf("unexpected output: %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("redirected output should not carry color codes: %q", out)
	}
}
