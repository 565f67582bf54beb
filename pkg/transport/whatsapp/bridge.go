package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tinyland-inc/wingmate/pkg/logger"
	"github.com/tinyland-inc/wingmate/pkg/transport/ipc"
)

const bridgeDialTimeout = 10 * time.Second

// bridgeLink talks to an already-running bridge over a websocket. Each
// websocket text frame carries one JSON object, so no NUL framing is
// needed on this path.
type bridgeLink struct {
	url string

	mu   sync.Mutex
	conn *websocket.Conn
}

func newBridgeLink(url string) *bridgeLink {
	return &bridgeLink{url: url}
}

func (b *bridgeLink) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: bridgeDialTimeout}
	conn, _, err := dialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial bridge at %s: %w", b.url, err)
	}
	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()
	logger.InfoCF("whatsapp", "Connected to bridge", map[string]any{"url": b.url})
	return nil
}

func (b *bridgeLink) read(ctx context.Context, handler ipc.EventHandler) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("bridge not connected")
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("bridge read failed: %w", err)
		}
		var ev ipc.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			logger.WarnCF("whatsapp", "Skipping malformed bridge frame", map[string]any{"error": err.Error()})
			continue
		}
		handler(ev)
	}
}

func (b *bridgeLink) send(cmd ipc.Command) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return fmt.Errorf("bridge not connected")
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}
	return b.conn.WriteMessage(websocket.TextMessage, data)
}

func (b *bridgeLink) close(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return
	}
	deadline := time.Now().Add(time.Second)
	_ = b.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	_ = b.conn.Close()
	b.conn = nil
}
