package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/tasksync/internal/client"
	"github.com/danmuck/tasksync/internal/protocol/session"
)

type fileConfig struct {
	Host               string        `toml:"host"`
	Port               int           `toml:"port"`
	ConnectTimeout     string        `toml:"connect_timeout"`
	ReadTimeout        string        `toml:"read_timeout"`
	WriteTimeout       string        `toml:"write_timeout"`
	ReadBufferSize     int           `toml:"read_buffer_size"`
	MaxLineBytes       int           `toml:"max_line_bytes"`
	MaxConnectAttempts int           `toml:"max_connect_attempts"`
	MetricsAddr        string        `toml:"metrics_addr"`
	CorsOrigins        []string      `toml:"cors_origins"`
	TLS                tlsFileConfig `toml:"tls"`
}

type tlsFileConfig struct {
	Enabled            bool   `toml:"enabled"`
	CAFile             string `toml:"ca_file"`
	ServerName         string `toml:"server_name"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

type appConfig struct {
	Host        string
	Port        int
	MetricsAddr string
	CorsOrigins []string
	Client      client.Config
}

func defaultAppConfig() appConfig {
	cfg := appConfig{Client: client.DefaultConfig()}
	host, port, _ := net.SplitHostPort(session.DefaultAddress)
	cfg.Host = host
	cfg.Port, _ = strconv.Atoi(port)
	return cfg
}

// clientConfig resolves host and port into the session address.
func (c appConfig) clientConfig() client.Config {
	out := c.Client
	out.Session.Address = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	return out
}

func loadAppConfig(path string) (appConfig, error) {
	cfg := defaultAppConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return appConfig{}, fmt.Errorf("load tasksync config: %w", err)
	}

	if meta.IsDefined("host") {
		if host := strings.TrimSpace(raw.Host); host != "" {
			cfg.Host = host
		}
	}
	if meta.IsDefined("port") {
		if raw.Port <= 0 || raw.Port > 65535 {
			return appConfig{}, fmt.Errorf("parse port: out of range: %d", raw.Port)
		}
		cfg.Port = raw.Port
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"connect_timeout", raw.ConnectTimeout, &cfg.Client.Session.ConnectTimeout},
		{"read_timeout", raw.ReadTimeout, &cfg.Client.Session.ReadTimeout},
		{"write_timeout", raw.WriteTimeout, &cfg.Client.Session.WriteTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return appConfig{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if meta.IsDefined("read_buffer_size") {
		cfg.Client.Session.ReadBufferSize = raw.ReadBufferSize
	}
	if meta.IsDefined("max_line_bytes") {
		cfg.Client.Frame.MaxLineBytes = raw.MaxLineBytes
	}
	if meta.IsDefined("max_connect_attempts") {
		cfg.Client.Session.MaxConnectAttempts = raw.MaxConnectAttempts
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}

	if meta.IsDefined("cors_origins") {
		for _, origin := range raw.CorsOrigins {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CorsOrigins = append(cfg.CorsOrigins, origin)
			}
		}
	}

	if meta.IsDefined("tls", "enabled") {
		cfg.Client.Session.TLS.Enabled = raw.TLS.Enabled
	}
	if meta.IsDefined("tls", "ca_file") {
		cfg.Client.Session.TLS.CAFile = strings.TrimSpace(raw.TLS.CAFile)
	}
	if meta.IsDefined("tls", "server_name") {
		cfg.Client.Session.TLS.ServerName = strings.TrimSpace(raw.TLS.ServerName)
	}
	if meta.IsDefined("tls", "insecure_skip_verify") {
		cfg.Client.Session.TLS.InsecureSkipVerify = raw.TLS.InsecureSkipVerify
	}

	return cfg, nil
}
