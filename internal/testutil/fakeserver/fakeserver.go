// Package fakeserver is a loopback tasksync server for tests. It speaks the
// GET / ADD:<desc> / TOGGLE:<id> line protocol and answers with FULL_LIST
// snapshots, broadcasting to every client after a mutation.
package fakeserver

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tidwall/sjson"
)

type item struct {
	id          int64
	description string
	completed   bool
}

type Option func(*Server)

// WithInitialSnapshot pushes the list to each client as soon as it connects.
func WithInitialSnapshot() Option {
	return func(s *Server) { s.pushOnAccept = true }
}

// WithItems seeds the list with incomplete items.
func WithItems(descriptions ...string) Option {
	return func(s *Server) {
		for _, d := range descriptions {
			s.items = append(s.items, item{id: s.nextID, description: d})
			s.nextID++
		}
	}
}

// WithTLS serves TLS using the given PEM files.
func WithTLS(certFile, keyFile string) Option {
	return func(s *Server) {
		s.certFile = certFile
		s.keyFile = keyFile
	}
}

// Silent disables command handling; lines are recorded but never answered.
func Silent() Option {
	return func(s *Server) { s.silent = true }
}

type Server struct {
	ln           net.Listener
	pushOnAccept bool
	silent       bool
	certFile     string
	keyFile      string

	mu       sync.Mutex
	closed   bool
	items    []item
	nextID   int64
	conns    map[net.Conn]struct{}
	accepted chan net.Conn
	received chan string
	wg       sync.WaitGroup
}

// Start listens on 127.0.0.1:0 and stops the server when the test ends.
func Start(t testing.TB, opts ...Option) *Server {
	t.Helper()
	s := &Server{
		nextID:   1,
		conns:    make(map[net.Conn]struct{}),
		accepted: make(chan net.Conn, 16),
		received: make(chan string, 256),
	}
	for _, opt := range opts {
		opt(s)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	if s.certFile != "" {
		cert, err := tls.LoadX509KeyPair(s.certFile, s.keyFile)
		if err != nil {
			_ = ln.Close()
			t.Fatalf("load server cert: %v", err)
		}
		ln = tls.NewListener(ln, &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12})
	}
	s.ln = ln

	s.wg.Add(1)
	go s.acceptLoop()
	t.Cleanup(s.Close)
	return s
}

func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// WaitForClient returns the next accepted connection.
func (s *Server) WaitForClient(t testing.TB, timeout time.Duration) net.Conn {
	t.Helper()
	select {
	case c := <-s.accepted:
		return c
	case <-time.After(timeout):
		t.Fatalf("no client connected within %v", timeout)
		return nil
	}
}

// NextLine returns the next command line received from any client.
func (s *Server) NextLine(t testing.TB, timeout time.Duration) string {
	t.Helper()
	select {
	case line := <-s.received:
		return line
	case <-time.After(timeout):
		t.Fatalf("no line received within %v", timeout)
		return ""
	}
}

// ExpectNoLine fails if a line arrives within wait.
func (s *Server) ExpectNoLine(t testing.TB, wait time.Duration) {
	t.Helper()
	select {
	case line := <-s.received:
		t.Fatalf("unexpected line received: %q", line)
	case <-time.After(wait):
	}
}

// Broadcast writes raw bytes unchanged to every connected client.
func (s *Server) Broadcast(raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_, _ = c.Write(raw)
	}
}

// Snapshot renders the current list as one FULL_LIST line.
func (s *Server) Snapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// DropClients closes every client connection without stopping the listener.
func (s *Server) DropClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
}

func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	_ = s.ln.Close()
	s.DropClients()
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		if s.pushOnAccept {
			_, _ = conn.Write(s.snapshotLocked())
		}
		s.mu.Unlock()

		select {
		case s.accepted <- conn:
		default:
		}
		s.wg.Add(1)
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case s.received <- line:
		default:
		}
		if !s.silent {
			s.apply(conn, line)
		}
	}
}

func (s *Server) apply(conn net.Conn, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case line == "GET":
		_, _ = conn.Write(s.snapshotLocked())
	case strings.HasPrefix(line, "ADD:"):
		s.items = append(s.items, item{id: s.nextID, description: strings.TrimPrefix(line, "ADD:")})
		s.nextID++
		s.broadcastLocked()
	case strings.HasPrefix(line, "TOGGLE:"):
		id, err := strconv.ParseInt(strings.TrimPrefix(line, "TOGGLE:"), 10, 64)
		if err != nil {
			return
		}
		for i := range s.items {
			if s.items[i].id == id {
				s.items[i].completed = !s.items[i].completed
				s.broadcastLocked()
				return
			}
		}
	}
}

func (s *Server) broadcastLocked() {
	msg := s.snapshotLocked()
	for c := range s.conns {
		_, _ = c.Write(msg)
	}
}

func (s *Server) snapshotLocked() []byte {
	doc, err := BuildFullList(s.itemsLocked()...)
	if err != nil {
		panic(err)
	}
	return append([]byte(doc), '\n')
}

func (s *Server) itemsLocked() []Item {
	out := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, Item{ID: it.id, Description: it.description, Completed: it.completed})
	}
	return out
}

// Item is the wire shape of one list entry.
type Item struct {
	ID          int64
	Description string
	Completed   bool
}

var errBuild = errors.New("fakeserver: build snapshot")

// BuildFullList renders a FULL_LIST document without a trailing newline.
func BuildFullList(items ...Item) (string, error) {
	doc := `{"type":"FULL_LIST","items":[]}`
	for i, it := range items {
		obj, err := sjson.Set("", "id", it.ID)
		if err == nil {
			obj, err = sjson.Set(obj, "description", it.Description)
		}
		if err == nil {
			obj, err = sjson.Set(obj, "completed", it.Completed)
		}
		if err == nil {
			doc, err = sjson.SetRaw(doc, "items.-1", obj)
		}
		if err != nil {
			return "", fmt.Errorf("%w: items[%d]: %v", errBuild, i, err)
		}
	}
	return doc, nil
}
