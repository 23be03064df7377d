// Package store owns the client-side task list.
//
// Ownership boundary:
// - ordered TaskItem collection
// - whole-collection replacement from server snapshots
// - change notification to presentation subscribers
//
// The store never merges. Every snapshot replaces the previous one, so an id
// missing from the latest snapshot is gone client-side.
package store
