// Package whatsapp bridges WhatsApp through an external worker speaking
// the NUL-delimited JSON protocol, either over the worker's stdio or over
// a websocket to an already-running bridge.
package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyland-inc/wingmate/pkg/logger"
	"github.com/tinyland-inc/wingmate/pkg/transport"
	"github.com/tinyland-inc/wingmate/pkg/transport/ipc"
)

// link abstracts how the bridge is reached: a spawned subprocess or a
// websocket connection.
type link interface {
	// connect establishes the link.
	connect(ctx context.Context) error
	// read drains events until failure or cancellation; end-of-stream is
	// an error, not a clean return.
	read(ctx context.Context, handler ipc.EventHandler) error
	// send writes one command to the bridge.
	send(cmd ipc.Command) error
	// close tears the link down.
	close(ctx context.Context)
}

// Options configures the transport. BridgeURL selects websocket mode;
// otherwise Command is spawned as the worker.
type Options struct {
	Command   string
	WorkDir   string
	BridgeURL string

	// OnSelfID is invoked once the bridge reports the connected account.
	OnSelfID func(id string)
}

// Transport is the WhatsApp implementation of transport.Transport.
type Transport struct {
	link     link
	onSelfID func(id string)

	mu      sync.Mutex
	handler transport.Handler
	running atomic.Bool
	stopped atomic.Bool
	selfID  string
}

func New(opts Options) *Transport {
	t := &Transport{onSelfID: opts.OnSelfID}
	if opts.BridgeURL != "" {
		t.link = newBridgeLink(opts.BridgeURL)
	} else {
		t.link = &processLink{worker: newWorker(opts.Command, opts.WorkDir)}
	}
	return t
}

func (t *Transport) Platform() string { return transport.PlatformWhatsApp }

func (t *Transport) SetHandler(h transport.Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = h
}

func (t *Transport) IsRunning() bool { return t.running.Load() }

// Start connects the bridge and blocks in the event read loop until the
// link fails or ctx is cancelled.
func (t *Transport) Start(ctx context.Context) error {
	if err := t.link.connect(ctx); err != nil {
		return err
	}
	t.running.Store(true)
	defer t.running.Store(false)

	err := t.link.read(ctx, func(ev ipc.Event) { t.handleEvent(ctx, ev) })
	if ctx.Err() != nil || t.stopped.Load() {
		return nil
	}
	return fmt.Errorf("whatsapp bridge stream ended: %w", err)
}

// Stop tears the link down. Safe to call more than once.
func (t *Transport) Stop(ctx context.Context) error {
	if t.stopped.Swap(true) {
		return nil
	}
	t.link.close(ctx)
	t.running.Store(false)
	return nil
}

// Send asks the bridge to deliver text to a chat.
func (t *Transport) Send(ctx context.Context, chatID, text string) error {
	return t.link.send(ipc.Command{
		Action: "send_message",
		Payload: map[string]any{
			"jid":  chatID,
			"text": text,
		},
	})
}

// bridgeMessage mirrors the worker's message event payload.
type bridgeMessage struct {
	ChatID     string  `json:"chatId"`
	SenderID   string  `json:"senderId"`
	SenderName string  `json:"senderName"`
	Text       string  `json:"text"`
	Timestamp  float64 `json:"timestamp"` // unix seconds
	IsGroup    bool    `json:"isGroup"`
	IsSelf     bool    `json:"isSelf"`
	Quoted     *struct {
		SenderID string `json:"senderId"`
		Text     string `json:"text"`
	} `json:"quotedMessage"`
}

func (t *Transport) handleEvent(ctx context.Context, ev ipc.Event) {
	switch ev.Type {
	case "message":
		var msg bridgeMessage
		if err := json.Unmarshal(ev.Data, &msg); err != nil {
			logger.WarnCF("whatsapp", "Dropping malformed message event", map[string]any{"error": err.Error()})
			return
		}
		t.dispatch(ctx, msg)

	case "connected":
		var data struct {
			User struct {
				ID string `json:"id"`
			} `json:"user"`
		}
		if err := json.Unmarshal(ev.Data, &data); err == nil && data.User.ID != "" {
			t.mu.Lock()
			t.selfID = data.User.ID
			t.mu.Unlock()
			logger.InfoCF("whatsapp", "Connected", map[string]any{"user": data.User.ID})
			if t.onSelfID != nil {
				t.onSelfID(data.User.ID)
			}
		}

	case "disconnected", "logged_out":
		logger.WarnCF("whatsapp", "Bridge reports disconnect", map[string]any{"event": ev.Type})

	case "qr_code":
		logger.InfoC("whatsapp", "QR code received, check terminal")

	case "error":
		var data struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(ev.Data, &data)
		logger.ErrorCF("whatsapp", "Bridge error", map[string]any{"message": data.Message})

	case "send_result":
		var data struct {
			Success bool   `json:"success"`
			JID     string `json:"jid"`
		}
		_ = json.Unmarshal(ev.Data, &data)
		if !data.Success {
			logger.ErrorCF("whatsapp", "Send failed", map[string]any{"jid": data.JID})
		}

	case "starting", "pong":
		logger.DebugCF("whatsapp", "Bridge event", map[string]any{"type": ev.Type})

	default:
		logger.DebugCF("whatsapp", "Ignoring unknown bridge event", map[string]any{"type": ev.Type})
	}
}

func (t *Transport) dispatch(ctx context.Context, msg bridgeMessage) {
	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()
	if handler == nil {
		return
	}

	ts := time.Now()
	if msg.Timestamp > 0 {
		ts = time.Unix(int64(msg.Timestamp), 0)
	}
	ev := transport.Event{
		ChatID:     msg.ChatID,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Text:       msg.Text,
		Timestamp:  ts,
		Platform:   transport.PlatformWhatsApp,
		IsGroup:    msg.IsGroup,
		IsSelf:     msg.IsSelf,
	}
	if msg.Quoted != nil {
		ev.Quoted = &transport.QuotedMessage{
			SenderID: msg.Quoted.SenderID,
			Text:     msg.Quoted.Text,
		}
	}
	handler(ctx, ev)
}

// processLink runs the bridge as a child process over piped stdio.
type processLink struct {
	worker *worker
}

func (p *processLink) connect(ctx context.Context) error {
	return p.worker.start()
}

func (p *processLink) read(ctx context.Context, handler ipc.EventHandler) error {
	return ipc.ReadEvents(ctx, p.worker.stdout, "whatsapp", handler)
}

func (p *processLink) send(cmd ipc.Command) error {
	return p.worker.send(cmd)
}

func (p *processLink) close(ctx context.Context) {
	p.worker.stop(ctx)
}
