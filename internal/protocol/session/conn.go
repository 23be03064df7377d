package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/tasksync/internal/observability"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrConnect            = errors.New("session: connect failed")
	ErrAddressRequired    = errors.New("session: address required")
	ErrReceiveLoopRunning = errors.New("session: receive loop already started")
)

// Conn is one client connection. Writes may come from any goroutine; reads
// happen only inside the receive loop.
type Conn struct {
	cfg    Config
	conn   net.Conn
	logger zerolog.Logger

	writeMu     sync.Mutex
	status      atomic.Int32
	loopStarted atomic.Bool
	done        chan struct{}
	closeOnce   sync.Once
}

// Dial connects to cfg.Address, retrying up to cfg.MaxConnectAttempts times.
// Every failure wraps ErrConnect.
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
	cfg = cfg.WithDefaults()
	if cfg.Address == "" {
		return nil, ErrAddressRequired
	}
	if err := cfg.ValidateClientTransport(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var attempt int
	for {
		attempt++
		start := time.Now()
		raw, err := dialOnce(ctx, cfg)
		observability.RecordConnect(time.Since(start), err == nil)
		if err == nil {
			return NewConn(raw, cfg), nil
		}
		log.Warn().Msgf("session.Dial attempt=%d addr=%q err=%v", attempt, cfg.Address, err)
		if attempt >= cfg.MaxConnectAttempts {
			return nil, fmt.Errorf("%w: %s: %w", ErrConnect, cfg.Address, err)
		}
		if err := sleepBackoff(ctx, cfg.Backoff.Delay(attempt, rng)); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrConnect, cfg.Address, err)
		}
	}
}

func dialOnce(ctx context.Context, cfg Config) (net.Conn, error) {
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", cfg.Address)
	if err != nil {
		return nil, err
	}
	if !cfg.TLS.Enabled {
		return rawConn, nil
	}

	tlsCfg, err := cfg.clientTLSConfig()
	if err != nil {
		_ = rawConn.Close()
		return nil, err
	}
	conn := tls.Client(rawConn, tlsCfg)
	handshakeCtx, cancel := context.WithTimeout(ctx, cfg.HandshakeTimeout)
	defer cancel()
	if err := conn.HandshakeContext(handshakeCtx); err != nil {
		_ = rawConn.Close()
		return nil, err
	}
	return conn, nil
}

func sleepBackoff(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NewConn wraps an established connection.
func NewConn(conn net.Conn, cfg Config) *Conn {
	cfg = cfg.WithDefaults()
	c := &Conn{
		cfg:  cfg,
		conn: conn,
		done: make(chan struct{}),
		logger: log.Logger.With().
			Str("component", "session").
			Str("remote", conn.RemoteAddr().String()).
			Logger(),
	}
	c.status.Store(int32(StatusConnected))
	return c
}

// Status is safe on a nil Conn, which reports StatusDisconnected.
func (c *Conn) Status() Status {
	if c == nil {
		return StatusDisconnected
	}
	return Status(c.status.Load())
}

// Send writes p as one unit. It never returns an error: on a nil or closed
// Conn the bytes are dropped, and a failed write only moves the status to
// StatusDegraded. The result reports whether p reached the socket.
func (c *Conn) Send(p []byte) bool {
	if !c.Status().Open() {
		return false
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.cfg.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	if _, err := c.conn.Write(p); err != nil {
		c.status.CompareAndSwap(int32(StatusConnected), int32(StatusDegraded))
		c.logger.Warn().Err(err).Int("bytes", len(p)).Msg("session.Conn write dropped")
		return false
	}
	return true
}

// StartReceiveLoop launches the receive loop on its own goroutine. onBytes is
// called for every read of n > 0 bytes and must not retain the slice; a
// non-nil return ends the loop. The loop can be started once per Conn.
func (c *Conn) StartReceiveLoop(onBytes func([]byte) error) error {
	if !c.loopStarted.CompareAndSwap(false, true) {
		return ErrReceiveLoopRunning
	}
	go c.receiveLoop(onBytes)
	return nil
}

func (c *Conn) receiveLoop(onBytes func([]byte) error) {
	defer close(c.done)
	defer c.shutdown()

	buf := make([]byte, c.cfg.ReadBufferSize)
	for {
		if c.cfg.ReadTimeout > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		}
		n, err := c.conn.Read(buf)
		if n > 0 {
			observability.RecordBytesReceived(n)
			if cbErr := onBytes(buf[:n]); cbErr != nil {
				c.logger.Warn().Err(cbErr).Msg("session.Conn receive loop stopped")
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.logger.Info().Msg("session.Conn peer closed stream")
			} else if !errors.Is(err, net.ErrClosed) {
				c.logger.Warn().Err(err).Msg("session.Conn read failed")
			}
			return
		}
	}
}

// Done is closed when the receive loop exits, or by Close if it never started.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close shuts the socket. Safe to call more than once.
func (c *Conn) Close() error {
	if c == nil {
		return nil
	}
	err := c.shutdown()
	if c.loopStarted.CompareAndSwap(false, true) {
		close(c.done)
	}
	return err
}

func (c *Conn) shutdown() error {
	var err error
	c.closeOnce.Do(func() {
		c.status.Store(int32(StatusClosed))
		err = c.conn.Close()
	})
	return err
}
