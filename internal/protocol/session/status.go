package session

// Status is the observable state of one Conn.
type Status int32

const (
	// StatusDisconnected: no socket yet.
	StatusDisconnected Status = iota
	// StatusConnected: socket open, receive loop may be running.
	StatusConnected
	// StatusDegraded: socket open but at least one write failed and was dropped.
	StatusDegraded
	// StatusClosed: peer closed, read failed, or Close was called.
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnected:
		return "connected"
	case StatusDegraded:
		return "degraded"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Open reports whether writes are still attempted in this state.
func (s Status) Open() bool {
	return s == StatusConnected || s == StatusDegraded
}
