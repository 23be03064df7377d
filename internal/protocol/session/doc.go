// Package session owns the client side of the tasksync TCP connection.
//
// Ownership boundary:
// - dial (optional TLS, bounded attempts with backoff)
// - serialized fire-and-forget writes
// - the single receive loop per connection
// - observable connection status
//
// A Conn never reconnects. When the peer closes or a read fails the receive
// loop exits quietly, the status becomes StatusClosed and later writes are
// dropped.
package session
