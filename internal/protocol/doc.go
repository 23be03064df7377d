// Package protocol owns the tasksync wire contract.
//
// Ownership boundary:
// - outbound command encoding (GET, ADD:<desc>, TOGGLE:<id>)
// - inbound message decoding (one JSON object per line)
// - the closed set of known message kinds
//
// Line framing lives in protocol/frame and the socket in protocol/session.
//
// Wire limitation: descriptions are sent raw. A ':' is harmless because the
// server splits on the first one, but a '\n' inside a description splits the
// command into two lines on the wire. There is no escaping in this protocol
// version.
package protocol
