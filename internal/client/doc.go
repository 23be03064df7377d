// Package client wires one tasksync session together.
//
// Ownership boundary:
// - connect and initial GET
// - receive path: session.Conn -> frame.Framer -> protocol.Decode -> store.Store
// - intent path: presentation intents -> protocol.Encode -> session.Conn
//
// Only connect errors are returned to callers. Decode errors are logged and
// dropped, and write failures or a closed stream show up through Status.
package client
