package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	gotoml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

var errConfigExists = errors.New("config: file exists (use --force to overwrite)")

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or check a tasksync config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write a config template filled with defaults",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := writeTemplate(args[0], force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	validateCmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Load a config file and report errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadAppConfig(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok %s\n", cfg.clientConfig().Session.Address)
			return nil
		},
	}

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}

// templateConfig renders the defaults in file form.
func templateConfig() fileConfig {
	def := defaultAppConfig()
	s := def.Client.Session
	return fileConfig{
		Host:               def.Host,
		Port:               def.Port,
		ConnectTimeout:     s.ConnectTimeout.String(),
		ReadTimeout:        s.ReadTimeout.String(),
		WriteTimeout:       s.WriteTimeout.String(),
		ReadBufferSize:     s.ReadBufferSize,
		MaxLineBytes:       def.Client.Frame.MaxLineBytes,
		MaxConnectAttempts: s.MaxConnectAttempts,
		MetricsAddr:        def.MetricsAddr,
		CorsOrigins:        []string{},
		TLS: tlsFileConfig{
			Enabled:            s.TLS.Enabled,
			CAFile:             s.TLS.CAFile,
			ServerName:         s.TLS.ServerName,
			InsecureSkipVerify: s.TLS.InsecureSkipVerify,
		},
	}
}

func writeTemplate(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", errConfigExists, path)
		}
	}
	data, err := gotoml.Marshal(templateConfig())
	if err != nil {
		return fmt.Errorf("render config template: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config template: %w", err)
	}
	return nil
}
