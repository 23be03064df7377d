package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/danmuck/tasksync/internal/observability"
	"github.com/danmuck/tasksync/internal/protocol"
	"github.com/danmuck/tasksync/internal/protocol/frame"
	"github.com/danmuck/tasksync/internal/protocol/session"
	"github.com/danmuck/tasksync/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrAlreadyConnected = errors.New("client: already connected")
	ErrStreamClosed     = errors.New("client: stream closed")
)

type Config struct {
	Session session.Config
	Frame   frame.Limits
}

func DefaultConfig() Config {
	return Config{
		Session: session.DefaultConfig(),
		Frame:   frame.DefaultLimits(),
	}
}

// Client is one server session plus the store it keeps in sync.
type Client struct {
	cfg    Config
	id     string
	store  *store.Store
	framer *frame.Framer
	logger zerolog.Logger

	connecting atomic.Bool
	mu         sync.RWMutex
	conn       *session.Conn
}

func New(cfg Config) *Client {
	id := uuid.NewString()
	return &Client{
		cfg:    cfg,
		id:     id,
		store:  store.New(),
		framer: frame.NewFramer(cfg.Frame),
		logger: log.Logger.With().Str("component", "client").Str("session", id).Logger(),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Store is the read side handed to the presentation layer.
func (c *Client) Store() *store.Store {
	return c.store
}

// Connect dials the server, requests the initial list and starts the receive
// loop. It does not retry beyond cfg.Session.MaxConnectAttempts; a failed
// Connect may be called again.
func (c *Client) Connect(ctx context.Context) error {
	if !c.connecting.CompareAndSwap(false, true) {
		return ErrAlreadyConnected
	}
	conn, err := session.Dial(ctx, c.cfg.Session)
	if err != nil {
		c.connecting.Store(false)
		c.logger.Error().Err(err).Msg("client.Client connect failed")
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.logger.Info().Str("addr", c.cfg.Session.Address).Msg("client.Client connected")
	c.send(protocol.RequestList{})
	if err := conn.StartReceiveLoop(c.onBytes); err != nil {
		_ = conn.Close()
		return err
	}
	return nil
}

func (c *Client) currentConn() *session.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// Status is StatusDisconnected until Connect succeeds.
func (c *Client) Status() session.Status {
	return c.currentConn().Status()
}

// Done closes when the receive loop ends. It is nil before Connect, so a
// select on it blocks.
func (c *Client) Done() <-chan struct{} {
	conn := c.currentConn()
	if conn == nil {
		return nil
	}
	return conn.Done()
}

func (c *Client) Close() error {
	return c.currentConn().Close()
}

// RequestList asks for a fresh snapshot. It reports whether the bytes were written.
func (c *Client) RequestList() bool {
	return c.send(protocol.RequestList{})
}

// SubmitNewItem trims text and sends ADD. Empty input returns
// protocol.ErrEmptyDescription and nothing is sent. The item only appears once
// the server's next snapshot arrives.
func (c *Client) SubmitNewItem(text string) error {
	desc, err := protocol.ValidateDescription(text)
	if err != nil {
		return err
	}
	c.send(protocol.AddItem{Description: desc})
	return nil
}

// ToggleItem sends TOGGLE for item. The local store is left untouched.
func (c *Client) ToggleItem(item store.TaskItem) bool {
	return c.Toggle(item.ID)
}

func (c *Client) Toggle(id int64) bool {
	return c.send(protocol.ToggleItem{ID: id})
}

func (c *Client) send(cmd protocol.Command) bool {
	conn := c.currentConn()
	name := commandName(cmd)
	if !conn.Status().Open() {
		observability.RecordCommand(name, observability.CommandResultDropped)
		c.logger.Debug().Str("command", name).Str("status", conn.Status().String()).Msg("client.Client command dropped")
		return false
	}
	if !conn.Send(protocol.Encode(cmd)) {
		observability.RecordCommand(name, observability.CommandResultFailed)
		return false
	}
	observability.RecordCommand(name, observability.CommandResultSent)
	return true
}

func commandName(cmd protocol.Command) string {
	switch cmd.(type) {
	case protocol.RequestList:
		return "get"
	case protocol.AddItem:
		return "add"
	case protocol.ToggleItem:
		return "toggle"
	default:
		return "unknown"
	}
}

// WaitForSnapshot blocks until the store version exceeds after.
func (c *Client) WaitForSnapshot(ctx context.Context, after uint64) (store.Snapshot, error) {
	return c.WaitUntil(ctx, func(snap store.Snapshot) bool { return snap.Version > after })
}

// WaitUntil blocks until a snapshot satisfies match. Snapshots that arrive
// while the caller is not waiting are only seen through the latest one.
func (c *Client) WaitUntil(ctx context.Context, match func(store.Snapshot) bool) (store.Snapshot, error) {
	updates, cancel := c.store.Subscribe()
	defer cancel()

	if snap := c.store.Snapshot(); match(snap) {
		return snap, nil
	}
	done := c.Done()
	for {
		select {
		case snap := <-updates:
			if match(snap) {
				return snap, nil
			}
		case <-done:
			if snap := c.store.Snapshot(); match(snap) {
				return snap, nil
			}
			return store.Snapshot{}, ErrStreamClosed
		case <-ctx.Done():
			return store.Snapshot{}, ctx.Err()
		}
	}
}
