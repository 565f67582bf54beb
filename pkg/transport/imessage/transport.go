package imessage

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyland-inc/wingmate/pkg/logger"
	"github.com/tinyland-inc/wingmate/pkg/transport"
)

// chatIDPrefix marks direct-message chat ids so Send can tell a handle
// from a group identifier.
const chatIDPrefix = "imessage:"

// Options configures the iMessage transport.
type Options struct {
	// DBPath is the chat.db location. Defaults to the user's
	// Library/Messages/chat.db.
	DBPath string
	// PollInterval is how often chat.db is checked for new rows.
	PollInterval time.Duration
}

// Transport polls chat.db for inbound messages and sends through
// Messages.app.
type Transport struct {
	dbPath   string
	interval time.Duration
	sender   *sender

	mu      sync.Mutex
	handler transport.Handler
	running atomic.Bool
	cancel  context.CancelFunc
}

func New(opts Options) *Transport {
	dbPath := opts.DBPath
	if dbPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dbPath = home + "/Library/Messages/chat.db"
		}
	}
	return &Transport{
		dbPath:   dbPath,
		interval: opts.PollInterval,
		sender:   newSender(),
	}
}

func (t *Transport) Platform() string { return transport.PlatformIMessage }

func (t *Transport) SetHandler(h transport.Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = h
}

func (t *Transport) IsRunning() bool { return t.running.Load() }

// Available reports whether this host can run the transport at all:
// chat.db must exist and Messages.app must answer AppleScript.
func (t *Transport) Available(ctx context.Context) bool {
	if _, err := os.Stat(t.dbPath); err != nil {
		return false
	}
	return t.sender.available(ctx)
}

// Start begins polling and blocks until ctx is cancelled or the poller
// fails to initialize.
func (t *Transport) Start(ctx context.Context) error {
	if _, err := os.Stat(t.dbPath); err != nil {
		return fmt.Errorf("chat.db not found at %s, grant Full Disk Access and sign in to Messages: %w", t.dbPath, err)
	}

	p, err := newPoller(t.dbPath, t.interval)
	if err != nil {
		return err
	}
	defer p.close()

	if err := p.seek(ctx); err != nil {
		return err
	}
	logger.InfoCF("imessage", "Polling chat.db", map[string]any{
		"path":      t.dbPath,
		"fromRowID": p.lastRowID,
	})

	ctx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()

	t.running.Store(true)
	defer t.running.Store(false)

	err = p.run(ctx, func(rec record) { t.dispatch(ctx, rec) })
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (t *Transport) Stop(ctx context.Context) error {
	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// Send routes to the direct or group AppleScript path based on the chat
// id shape.
func (t *Transport) Send(ctx context.Context, chatID, text string) error {
	if handle, ok := strings.CutPrefix(chatID, chatIDPrefix); ok {
		return t.sender.sendDirect(ctx, handle, text)
	}
	return t.sender.sendGroup(ctx, chatID, text)
}

func (t *Transport) dispatch(ctx context.Context, rec record) {
	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()
	if handler == nil {
		return
	}

	chatID := rec.ChatID
	if chatID == "" {
		chatID = chatIDPrefix + rec.HandleID
	}
	senderName := ""
	if rec.IsGroup {
		senderName = rec.ChatName
	}
	handler(ctx, transport.Event{
		ChatID:     chatID,
		SenderID:   chatIDPrefix + rec.HandleID,
		SenderName: senderName,
		Text:       rec.Text,
		Timestamp:  rec.Timestamp,
		Platform:   transport.PlatformIMessage,
		IsGroup:    rec.IsGroup,
		IsSelf:     rec.IsFromMe,
	})
}
