// Package ipc implements the bridging protocol spoken between the core and
// an out-of-process transport worker: a stream of UTF-8 JSON objects, each
// terminated by a single NUL byte. Commands flow core -> worker, events flow
// worker -> core. JSON encoding guarantees no unescaped NUL can appear
// inside a frame.
package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/tinyland-inc/wingmate/pkg/logger"
)

// Delimiter separates frames on the wire.
const Delimiter byte = 0x00

// ErrStreamClosed is returned by the read loop when the worker closes its
// output stream. Callers treat it as a transport failure, not a clean stop.
var ErrStreamClosed = errors.New("ipc: worker stream closed")

// Command is a core -> worker frame.
type Command struct {
	Action  string         `json:"action"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Event is a worker -> core frame.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// EncodeCommand renders a command as a single delimited frame.
func EncodeCommand(cmd Command) ([]byte, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode command %q: %w", cmd.Action, err)
	}
	return append(data, Delimiter), nil
}

// DecodeCommand parses a frame body (without the delimiter) back into a
// command. Used by tests and by worker-side tooling.
func DecodeCommand(body []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(body, &cmd); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	return cmd, nil
}

// Writer serializes commands onto the worker's input stream. Safe for
// concurrent use.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter wraps the worker's stdin.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteCommand frames and writes one command.
func (w *Writer) WriteCommand(cmd Command) error {
	frame, err := EncodeCommand(cmd)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(frame); err != nil {
		return fmt.Errorf("write command %q: %w", cmd.Action, err)
	}
	return nil
}

// FrameBuffer accumulates raw bytes and splits out complete frames. It never
// assumes a read boundary lines up with a frame boundary: every Feed scans
// the whole buffer and returns each complete frame body in order.
type FrameBuffer struct {
	buf []byte
}

// Feed appends raw bytes and returns the bodies of all frames completed by
// them, in arrival order. Empty frames are discarded.
func (fb *FrameBuffer) Feed(p []byte) [][]byte {
	fb.buf = append(fb.buf, p...)
	var frames [][]byte
	for {
		idx := bytes.IndexByte(fb.buf, Delimiter)
		if idx < 0 {
			return frames
		}
		body := fb.buf[:idx]
		fb.buf = fb.buf[idx+1:]
		if len(bytes.TrimSpace(body)) == 0 {
			continue
		}
		frame := make([]byte, len(body))
		copy(frame, body)
		frames = append(frames, frame)
	}
}

// EventHandler consumes decoded worker events.
type EventHandler func(ev Event)

// ReadEvents drains the worker's output stream until end-of-stream or
// context cancellation, dispatching each complete frame as it appears. A
// frame that is not valid JSON is logged and dropped; it never stalls the
// buffer or stops the loop. End-of-stream is reported as ErrStreamClosed.
func ReadEvents(ctx context.Context, r io.Reader, component string, handler EventHandler) error {
	var fb FrameBuffer
	chunk := make([]byte, 4096)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := r.Read(chunk)
		if n > 0 {
			for _, body := range fb.Feed(chunk[:n]) {
				var ev Event
				if jsonErr := json.Unmarshal(body, &ev); jsonErr != nil {
					logger.WarnCF(component, "Dropping malformed frame",
						map[string]any{"error": jsonErr.Error(), "bytes": len(body)})
					continue
				}
				handler(ev)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrStreamClosed
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("ipc: read worker stream: %w", err)
		}
	}
}
