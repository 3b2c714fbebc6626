// Package codec
package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeHandshake(t *testing.T) {
	data := EncodeHandshake()
	assert.Equal(t, `{"protocol":"json","version":1}`+"\x1e", string(data))
}

func TestEncodePing(t *testing.T) {
	data := EncodePing()
	assert.Equal(t, `{"type":6}`+"\x1e", string(data))
}

func TestInvocationRoundTrip(t *testing.T) {
	data := EncodeInvocation(TargetSendMessage, 7, 12, "hello there")
	assert.Equal(t, RecordSeparator, data[len(data)-1])

	frames := Decode(data)
	require.Len(t, frames, 1)

	f := frames[0]
	assert.Equal(t, Invocation, f.Kind)
	assert.Equal(t, TargetSendMessage, f.Target)
	assert.NotEmpty(t, f.InvocationID)
	require.Len(t, f.Arguments, 3)
	assert.EqualValues(t, 7, f.Arguments[0])
	assert.EqualValues(t, 12, f.Arguments[1])
	assert.Equal(t, "hello there", f.Arguments[2])
}

func TestDecodeReceiveMessage(t *testing.T) {
	data := EncodeInvocation(TargetReceiveMessage, 42, 7, 12, "hi", "2025-05-01", "10:23", true)
	frames := Decode(data)
	require.Len(t, frames, 1)

	rm, ok := frames[0].Received()
	require.True(t, ok)
	assert.Equal(t, 42, rm.MessageID)
	assert.Equal(t, 7, rm.SenderID)
	assert.Equal(t, 12, rm.ReceiverID)
	assert.Equal(t, "hi", rm.Content)
	assert.Equal(t, "2025-05-01", rm.Date)
	assert.Equal(t, "10:23", rm.Time)
	assert.True(t, rm.SentByCaller)
}

func TestDecodeTargetCaseInsensitive(t *testing.T) {
	raw := `{"type":1,"target":"receivemessage","arguments":[1,2,3,"x","d","t",false]}` + "\x1e"
	frames := Decode([]byte(raw))
	require.Len(t, frames, 1)
	assert.Equal(t, Invocation, frames[0].Kind)

	_, ok := frames[0].Received()
	assert.True(t, ok)
}

func TestDecodeTwoFramesNoTrailingSeparator(t *testing.T) {
	data := append([]byte{}, EncodePing()...)
	data = append(data, []byte(`{"type":1,"target":"ReceiveMessage","arguments":[1,2,3,"x","d","t",false]}`)...)

	frames := Decode(data)
	require.Len(t, frames, 2)
	assert.Equal(t, Ping, frames[0].Kind)
	assert.Equal(t, Invocation, frames[1].Kind)
}

func TestDecodeMalformedIsUnknown(t *testing.T) {
	frames := Decode([]byte("{not json at all\x1e"))
	require.Len(t, frames, 1)
	assert.Equal(t, Unknown, frames[0].Kind)
}

func TestDecodeShortReceiveArgumentsIsUnknown(t *testing.T) {
	raw := `{"type":1,"target":"ReceiveMessage","arguments":[1,2,"x"]}` + "\x1e"
	frames := Decode([]byte(raw))
	require.Len(t, frames, 1)
	assert.Equal(t, Unknown, frames[0].Kind)
}

func TestDecodeUnrecognizedTargetIsUnknown(t *testing.T) {
	raw := `{"type":1,"target":"TypingIndicator","arguments":[1]}` + "\x1e"
	frames := Decode([]byte(raw))
	require.Len(t, frames, 1)
	assert.Equal(t, Unknown, frames[0].Kind)
}

func TestDecodeDiscardsEmptyFragments(t *testing.T) {
	data := append([]byte{RecordSeparator}, EncodePing()...)
	data = append(data, RecordSeparator)
	frames := Decode(data)
	require.Len(t, frames, 1)
	assert.Equal(t, Ping, frames[0].Kind)
}

func TestDecodeHandshakeAck(t *testing.T) {
	frames := Decode([]byte(`{"protocol":"json","version":1}` + "\x1e"))
	require.Len(t, frames, 1)
	assert.Equal(t, Handshake, frames[0].Kind)
}
