// Package codec
package codec

import (
	"bytes"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RecordSeparator terminates every record on the wire.
const RecordSeparator byte = 0x1E

// Kind of a decoded frame.
type Kind int

const (
	Unknown Kind = iota
	Handshake
	Invocation
	Ping
)

func (k Kind) String() string {
	switch k {
	case Handshake:
		return "handshake"
	case Invocation:
		return "invocation"
	case Ping:
		return "ping"
	default:
		return "unknown"
	}
}

// Invocation targets understood by this client.
const (
	TargetSendMessage    = "SendMessage"
	TargetReceiveMessage = "ReceiveMessage"
)

// receiveArgumentCount is the positional argument count of a
// ReceiveMessage invocation: [messageId, senderId, receiverId,
// content, date, time, isSentByCaller].
const receiveArgumentCount = 7

// Frame is one parsed wire record. Frames are transient values and
// are never persisted.
type Frame struct {
	Kind         Kind
	Target       string
	Arguments    []interface{}
	InvocationID string
}

type wireRecord struct {
	Type         int           `json:"type,omitempty"`
	Target       string        `json:"target,omitempty"`
	Arguments    []interface{} `json:"arguments,omitempty"`
	InvocationID string        `json:"invocationId,omitempty"`
	Protocol     string        `json:"protocol,omitempty"`
	Version      int           `json:"version,omitempty"`
}

const (
	invocationType = 1
	pingType       = 6

	handshakeRecord = `{"protocol":"json","version":1}`
	pingRecord      = `{"type":6}`
)

// EncodeHandshake produces the protocol negotiation record.
func EncodeHandshake() []byte {
	return terminate([]byte(handshakeRecord))
}

// EncodePing produces a keepalive record.
func EncodePing() []byte {
	return terminate([]byte(pingRecord))
}

// EncodeInvocation produces an invocation record with a fresh
// invocation id.
func EncodeInvocation(target string, arguments ...interface{}) []byte {
	r := wireRecord{
		Type:         invocationType,
		Target:       target,
		Arguments:    arguments,
		InvocationID: newInvocationID(),
	}
	data, err := json.Marshal(&r)
	if err != nil {
		// arguments are primitives in practice; never reached
		return nil
	}
	return terminate(data)
}

func terminate(data []byte) []byte {
	return append(data, RecordSeparator)
}

func newInvocationID() string {
	return uuid.NewString()[:8]
}

// Decode splits data on the record separator and parses each
// fragment. Empty fragments are discarded; anything unparseable or
// unrecognized comes back as an Unknown frame so the pipeline can
// drop it without failing.
func Decode(data []byte) []Frame {
	fragments := bytes.Split(data, []byte{RecordSeparator})
	frames := make([]Frame, 0, len(fragments))
	for _, fragment := range fragments {
		if len(bytes.TrimSpace(fragment)) == 0 {
			continue
		}
		frames = append(frames, decodeRecord(fragment))
	}
	return frames
}

func decodeRecord(fragment []byte) Frame {
	var r wireRecord
	if err := json.Unmarshal(fragment, &r); err != nil {
		return Frame{Kind: Unknown}
	}

	switch {
	case r.Type == invocationType:
		return decodeInvocation(&r)
	case r.Type == pingType:
		return Frame{Kind: Ping}
	case r.Protocol != "":
		return Frame{Kind: Handshake}
	default:
		return Frame{Kind: Unknown}
	}
}

func decodeInvocation(r *wireRecord) Frame {
	f := Frame{
		Kind:         Invocation,
		Target:       r.Target,
		Arguments:    r.Arguments,
		InvocationID: r.InvocationID,
	}
	switch {
	case equalFold(r.Target, TargetReceiveMessage):
		if len(r.Arguments) < receiveArgumentCount {
			return Frame{Kind: Unknown}
		}
	case equalFold(r.Target, TargetSendMessage):
	default:
		return Frame{Kind: Unknown}
	}
	return f
}
