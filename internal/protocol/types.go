package protocol

import "github.com/danmuck/tasksync/internal/store"

// MessageType is the inbound `type` discriminator.
type MessageType string

const (
	TypeFullList MessageType = "FULL_LIST"
)

// Message is one decoded inbound line. The set of implementations is closed:
// FullList for every known kind, Unrecognized for everything else.
type Message interface {
	Type() MessageType
	isMessage()
}

// FullList is an authoritative snapshot of the whole task list.
type FullList struct {
	Items []store.TaskItem
}

func (FullList) Type() MessageType { return TypeFullList }
func (FullList) isMessage()        {}

// Event converts the snapshot into the reconciliation event applied to the store.
func (m FullList) Event() ReplaceAll {
	return ReplaceAll{Items: m.Items}
}

// Unrecognized carries a well-formed message whose type is not known to this client.
type Unrecognized struct {
	Kind MessageType
}

func (m Unrecognized) Type() MessageType { return m.Kind }
func (Unrecognized) isMessage()          {}

// ReplaceAll replaces the client's entire collection with Items.
type ReplaceAll struct {
	Items []store.TaskItem
}

// Apply hands the event to s.
func (e ReplaceAll) Apply(s *store.Store) store.Snapshot {
	return s.ApplyReplaceAll(e.Items)
}
