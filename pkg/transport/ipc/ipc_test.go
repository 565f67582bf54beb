package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandRoundTrip(t *testing.T) {
	cmd := Command{
		Action: "send_message",
		Payload: map[string]any{
			"jid":  "1234@s.whatsapp.net",
			"text": "hello there",
		},
	}

	frame, err := EncodeCommand(cmd)
	require.NoError(t, err)
	require.Equal(t, Delimiter, frame[len(frame)-1])
	require.NotContains(t, frame[:len(frame)-1], Delimiter)

	decoded, err := DecodeCommand(frame[:len(frame)-1])
	require.NoError(t, err)
	assert.Equal(t, cmd.Action, decoded.Action)
	assert.Equal(t, "1234@s.whatsapp.net", decoded.Payload["jid"])
	assert.Equal(t, "hello there", decoded.Payload["text"])
}

func TestEncodeCommandOmitsEmptyPayload(t *testing.T) {
	frame, err := EncodeCommand(Command{Action: "shutdown"})
	require.NoError(t, err)
	assert.Equal(t, `{"action":"shutdown"}`, string(frame[:len(frame)-1]))
}

func TestFrameBufferPartialReads(t *testing.T) {
	raw := []byte(`{"type":"connected"}` + "\x00" + `{"type":"message"}` + "\x00")

	var fb FrameBuffer
	var frames [][]byte
	// Feed one byte at a time to simulate arbitrary read boundaries.
	for _, b := range raw {
		frames = append(frames, fb.Feed([]byte{b})...)
	}

	require.Len(t, frames, 2)
	assert.Equal(t, `{"type":"connected"}`, string(frames[0]))
	assert.Equal(t, `{"type":"message"}`, string(frames[1]))
}

func TestFrameBufferBackToBack(t *testing.T) {
	raw := []byte(`{"type":"a"}` + "\x00" + `{"type":"b"}` + "\x00" + `{"type":`)

	var fb FrameBuffer
	frames := fb.Feed(raw)
	require.Len(t, frames, 2)

	// The trailing partial frame completes on the next feed.
	frames = fb.Feed([]byte(`"c"}` + "\x00"))
	require.Len(t, frames, 1)
	assert.Equal(t, `{"type":"c"}`, string(frames[0]))
}

func TestFrameBufferSkipsEmptyFrames(t *testing.T) {
	var fb FrameBuffer
	frames := fb.Feed([]byte("\x00 \x00" + `{"type":"x"}` + "\x00"))
	require.Len(t, frames, 1)
}

func TestReadEventsDispatchesInOrder(t *testing.T) {
	raw := `{"type":"connected","data":{"user":{"id":"u1"}}}` + "\x00" +
		`not json at all` + "\x00" +
		`{"type":"message","data":{"text":"hi"}}` + "\x00"

	var got []Event
	err := ReadEvents(context.Background(), bytes.NewReader([]byte(raw)), "test", func(ev Event) {
		got = append(got, ev)
	})
	require.ErrorIs(t, err, ErrStreamClosed)

	// The malformed frame is dropped without stalling the stream.
	require.Len(t, got, 2)
	assert.Equal(t, "connected", got[0].Type)
	assert.Equal(t, "message", got[1].Type)

	var data struct {
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(got[1].Data, &data))
	assert.Equal(t, "hi", data.Text)
}

func TestReadEventsStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pr, pw := io.Pipe()
	defer pw.Close()

	err := ReadEvents(ctx, pr, "test", func(Event) {})
	assert.ErrorIs(t, err, context.Canceled)
}
