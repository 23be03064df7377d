package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/tasksync/internal/testutil/testlog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppConfigExample(t *testing.T) {
	testlog.Start(t)
	cfg, err := loadAppConfig("ex.config.toml")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cc := cfg.clientConfig()
	if cc.Session.Address != "127.0.0.1:5000" {
		t.Fatalf("unexpected address: %q", cc.Session.Address)
	}
	if cc.Session.ConnectTimeout != 3*time.Second {
		t.Fatalf("unexpected connect timeout: %v", cc.Session.ConnectTimeout)
	}
	if cc.Session.ReadTimeout != 0 {
		t.Fatalf("unexpected read timeout: %v", cc.Session.ReadTimeout)
	}
	if cc.Session.WriteTimeout != 2*time.Second {
		t.Fatalf("unexpected write timeout: %v", cc.Session.WriteTimeout)
	}
	if cc.Session.ReadBufferSize != 1024 || cc.Session.MaxConnectAttempts != 1 {
		t.Fatalf("unexpected session config: %+v", cc.Session)
	}
	if cc.Frame.MaxLineBytes != 0 {
		t.Fatalf("unexpected max line bytes: %d", cc.Frame.MaxLineBytes)
	}
	if cfg.MetricsAddr != "127.0.0.1:9105" {
		t.Fatalf("unexpected metrics addr: %q", cfg.MetricsAddr)
	}
	if len(cfg.CorsOrigins) != 1 || cfg.CorsOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins: %v", cfg.CorsOrigins)
	}
	if cc.Session.TLS.Enabled {
		t.Fatalf("expected tls disabled")
	}
}

func TestLoadAppConfigPartialKeepsDefaults(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, "port = 6001\n[tls]\nenabled = true\nca_file = \" /etc/tasksync/ca.pem \"\n")
	cfg, err := loadAppConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	def := defaultAppConfig()
	cc := cfg.clientConfig()
	if cc.Session.Address != "127.0.0.1:6001" {
		t.Fatalf("unexpected address: %q", cc.Session.Address)
	}
	if cc.Session.ConnectTimeout != def.Client.Session.ConnectTimeout {
		t.Fatalf("connect timeout should keep default: %v", cc.Session.ConnectTimeout)
	}
	if !cc.Session.TLS.Enabled || cc.Session.TLS.CAFile != "/etc/tasksync/ca.pem" {
		t.Fatalf("unexpected tls config: %+v", cc.Session.TLS)
	}
	if cfg.MetricsAddr != "" {
		t.Fatalf("metrics should default off: %q", cfg.MetricsAddr)
	}
}

func TestLoadAppConfigBadDuration(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, "connect_timeout = \"soon\"\n")
	_, err := loadAppConfig(path)
	if err == nil || !strings.Contains(err.Error(), "connect_timeout") {
		t.Fatalf("expected connect_timeout parse error, got %v", err)
	}
}

func TestLoadAppConfigBadPort(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, "port = 70000\n")
	if _, err := loadAppConfig(path); err == nil {
		t.Fatalf("expected port range error")
	}
}

func TestLoadAppConfigMissingFile(t *testing.T) {
	testlog.Start(t)
	_, err := loadAppConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Fatalf("expected load error")
	}
}
