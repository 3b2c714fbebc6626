// Package chat
package chat

import "time"

const (
	wireTimeLayout  = "2006-01-02T15:04:05"
	clockTimeLayout = "15:04"
)

// AttemptState tracks how far an outbound message got.
type AttemptState int

const (
	Unsent AttemptState = iota
	SocketSent
	Confirmed
)

// OutboundMessage is a user-submitted message owned by the delivery
// queue until confirmed. CorrelationID is a locally generated token
// used only for matching the server echo back to this entry; it never
// goes over the wire.
type OutboundMessage struct {
	ReceiverID    int
	Content       string
	CreatedAt     time.Time
	CorrelationID string
	Attempt       AttemptState
}

// ChatMessage is one rendered entry of the conversation. Optimistic
// self-sent entries are updated in place once the server echo is
// reconciled.
type ChatMessage struct {
	Sender          string
	Text            string
	FromSelf        bool
	Timestamp       string
	ServerMessageID int
	Confirmed       bool
}

// Snapshot is the read-only view published to the UI layer.
type Snapshot struct {
	State     State
	Messages  []ChatMessage
	PeerID    int
	PeerName  string
	LastError string
}
