// Package codec
package codec

import "strings"

// Received is the typed view of a ReceiveMessage invocation's
// positional arguments.
type Received struct {
	MessageID    int
	SenderID     int
	ReceiverID   int
	Content      string
	Date         string
	Time         string
	SentByCaller bool
}

// Received extracts the typed arguments of a ReceiveMessage
// invocation. The second return is false for any other frame.
func (f *Frame) Received() (Received, bool) {
	if f.Kind != Invocation || !equalFold(f.Target, TargetReceiveMessage) {
		return Received{}, false
	}
	if len(f.Arguments) < receiveArgumentCount {
		return Received{}, false
	}
	return Received{
		MessageID:    toInt(f.Arguments[0]),
		SenderID:     toInt(f.Arguments[1]),
		ReceiverID:   toInt(f.Arguments[2]),
		Content:      toString(f.Arguments[3]),
		Date:         toString(f.Arguments[4]),
		Time:         toString(f.Arguments[5]),
		SentByCaller: toBool(f.Arguments[6]),
	}, true
}

func equalFold(a, b string) bool {
	return strings.EqualFold(a, b)
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toBool(v interface{}) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}
