// Package chat
package chat

// State of the hub connection. Transitions are sequential; all
// mutation happens on the coordinator's run loop.
type State int

const (
	Disconnected State = iota
	Connecting
	HandshakeSent
	Active
	Closing
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case HandshakeSent:
		return "handshake-sent"
	case Active:
		return "active"
	case Closing:
		return "closing"
	default:
		return "invalid"
	}
}
