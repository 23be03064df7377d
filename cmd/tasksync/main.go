package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/danmuck/tasksync/internal/client"
	"github.com/danmuck/tasksync/internal/logging"
	"github.com/danmuck/tasksync/internal/observability"
	"github.com/danmuck/tasksync/internal/protocol"
	"github.com/danmuck/tasksync/internal/store"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type options struct {
	configPath  string
	host        string
	port        int
	metricsAddr string
	timeout     time.Duration
	logFile     string
}

func main() {
	logging.ConfigureRuntime()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tasksync: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "tasksync",
		Short:         "Shared task list client",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			return runInteractive(cmd.Context(), cfg, opts.logFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a TOML config file")
	flags.StringVar(&opts.host, "host", "", "server host")
	flags.IntVarP(&opts.port, "port", "p", 0, "server port")
	flags.DurationVar(&opts.timeout, "timeout", 5*time.Second, "how long one-shot commands wait for the server")
	root.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address while the UI runs")
	root.Flags().StringVar(&opts.logFile, "log-file", "", "write logs here while the UI runs (discarded when empty)")

	root.AddCommand(newListCmd(opts), newAddCmd(opts), newToggleCmd(opts), newConfigCmd())
	return root
}

// resolve layers flags over the config file over defaults.
func (o *options) resolve(cmd *cobra.Command) (appConfig, error) {
	cfg := defaultAppConfig()
	if o.configPath != "" {
		loaded, err := loadAppConfig(o.configPath)
		if err != nil {
			return appConfig{}, err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = strings.TrimSpace(o.host)
	}
	if flags.Changed("port") {
		if o.port <= 0 || o.port > 65535 {
			return appConfig{}, fmt.Errorf("parse port: out of range: %d", o.port)
		}
		cfg.Port = o.port
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = strings.TrimSpace(o.metricsAddr)
	}
	return cfg, nil
}

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the current task list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOneShot(cmd, opts, nil)
		},
	}
}

// action sends one intent and returns a match for the first snapshot that
// reflects it. Snapshot counts are not usable here: the server may push a list
// on accept and answer the connect GET before applying the change.
type action func(c *client.Client) (func(store.Snapshot) bool, error)

func newAddCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add <description>",
		Short: "Add a task and print the resulting list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOneShot(cmd, opts, addAction(strings.Join(args, " ")))
		},
	}
}

func addAction(text string) action {
	return func(c *client.Client) (func(store.Snapshot) bool, error) {
		desc, err := protocol.ValidateDescription(text)
		if err != nil {
			return nil, err
		}
		before := countDescription(c.Store().Items(), desc)
		if err := c.SubmitNewItem(desc); err != nil {
			return nil, err
		}
		return func(snap store.Snapshot) bool {
			return countDescription(snap.Items, desc) > before
		}, nil
	}
}

func newToggleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a task's completed flag and print the resulting list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parse id %q: %w", args[0], err)
			}
			return runOneShot(cmd, opts, toggleAction(id))
		},
	}
}

func toggleAction(id int64) action {
	return func(c *client.Client) (func(store.Snapshot) bool, error) {
		item, ok := findItem(c.Store().Items(), id)
		if !ok {
			return nil, fmt.Errorf("toggle: no task with id %d", id)
		}
		c.ToggleItem(item)
		return func(snap store.Snapshot) bool {
			now, ok := findItem(snap.Items, id)
			return ok && now.Completed != item.Completed
		}, nil
	}
}

func findItem(items []store.TaskItem, id int64) (store.TaskItem, bool) {
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return store.TaskItem{}, false
}

func countDescription(items []store.TaskItem, desc string) int {
	n := 0
	for _, item := range items {
		if item.Description == desc {
			n++
		}
	}
	return n
}

// runOneShot connects, waits for the first snapshot and prints the list. A
// non-nil act runs after that first snapshot; its change is then requested
// explicitly and the list printed once a snapshot shows it.
func runOneShot(cmd *cobra.Command, opts *options, act action) error {
	cfg, err := opts.resolve(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	c := client.New(cfg.clientConfig())
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Close()

	snap, err := c.WaitForSnapshot(ctx, 0)
	if err != nil {
		return fmt.Errorf("wait for list: %w", err)
	}
	if act != nil {
		applied, err := act(c)
		if err != nil {
			return err
		}
		c.RequestList()
		snap, err = c.WaitUntil(ctx, applied)
		if err != nil {
			return fmt.Errorf("wait for list: %w", err)
		}
	}
	printList(cmd.OutOrStdout(), snap.Items)
	return nil
}

func printList(w io.Writer, items []store.TaskItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "no tasks")
		return
	}
	for _, item := range items {
		box := "[ ]"
		if item.Completed {
			box = "[x]"
		}
		fmt.Fprintf(w, "%s %d %s\n", box, item.ID, item.Description)
	}
}

func runInteractive(parent context.Context, cfg appConfig, logFile string) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var logOut io.Writer = io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logging.RedirectRuntime(logOut)

	if cfg.MetricsAddr != "" {
		ln, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			return fmt.Errorf("listen metrics %s: %w", cfg.MetricsAddr, err)
		}
		logger := logging.Component("metrics")
		go func() {
			rc := observability.RouterConfig{Logger: logger, CorsOrigins: cfg.CorsOrigins}
			if err := observability.Serve(ctx, ln, rc); err != nil {
				logger.Error().Err(err).Msg("observability.Serve stopped")
			}
		}()
	}

	cc := cfg.clientConfig()
	c := client.New(cc)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Close()

	p := tea.NewProgram(newListModel(c, cc.Session.Address), tea.WithAltScreen(), tea.WithContext(ctx))
	forwardStop := make(chan struct{})
	go forwardSnapshots(p, c.Store(), c.Done(), forwardStop)
	defer close(forwardStop)

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run ui: %w", err)
	}
	log.Info().Str("session", c.ID()).Msg("tasksync exiting")
	return nil
}
