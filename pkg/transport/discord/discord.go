// Package discord delivers DMs and guild messages through a Discord bot
// session.
package discord

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/tinyland-inc/wingmate/pkg/logger"
	"github.com/tinyland-inc/wingmate/pkg/transport"
)

// Discord rejects messages over this many characters.
const maxMessageLen = 2000

// Options configures the Discord transport.
type Options struct {
	Token string
	// BotName is the assistant's configured name, substituted for raw
	// <@id> mentions so text-level trigger checks still fire.
	BotName string
	// AllowFrom restricts inbound messages to these user ids. Empty
	// means everyone.
	AllowFrom []string
	// OnSelfID is invoked once the gateway reports the bot account.
	OnSelfID func(id string)
}

// Transport is the Discord implementation of transport.Transport.
type Transport struct {
	session    *discordgo.Session
	botName    string
	allowUsers map[string]bool
	onSelfID   func(id string)

	mu        sync.Mutex
	handler   transport.Handler
	botUserID string
	running   atomic.Bool
}

func New(opts Options) (*Transport, error) {
	session, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages | discordgo.IntentMessageContent

	t := &Transport{
		session:    session,
		botName:    opts.BotName,
		allowUsers: toSet(opts.AllowFrom),
		onSelfID:   opts.OnSelfID,
	}
	session.AddHandler(t.handleReady)
	session.AddHandler(t.handleMessage)
	return t, nil
}

func (t *Transport) Platform() string { return transport.PlatformDiscord }

func (t *Transport) SetHandler(h transport.Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = h
}

func (t *Transport) IsRunning() bool { return t.running.Load() }

// Start opens the gateway connection and blocks until ctx is cancelled.
func (t *Transport) Start(ctx context.Context) error {
	if err := t.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord connection: %w", err)
	}
	t.running.Store(true)
	defer t.running.Store(false)

	<-ctx.Done()
	return t.session.Close()
}

func (t *Transport) Stop(ctx context.Context) error {
	t.running.Store(false)
	return t.session.Close()
}

// Send writes text to a channel, splitting at newline boundaries when it
// exceeds the Discord message limit.
func (t *Transport) Send(ctx context.Context, chatID, text string) error {
	for _, chunk := range splitMessage(text, maxMessageLen) {
		if _, err := t.session.ChannelMessageSend(chatID, chunk); err != nil {
			return fmt.Errorf("failed to send discord message: %w", err)
		}
	}
	return nil
}

func (t *Transport) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	t.mu.Lock()
	t.botUserID = r.User.ID
	t.mu.Unlock()
	logger.InfoCF("discord", "Connected", map[string]any{"user": r.User.Username})
	if t.onSelfID != nil {
		t.onSelfID(r.User.ID)
	}
}

func (t *Transport) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	t.mu.Lock()
	handler := t.handler
	botID := t.botUserID
	t.mu.Unlock()
	if handler == nil {
		return
	}

	// Other bots never get replies.
	if m.Author == nil || m.Author.Bot {
		return
	}
	isSelf := m.Author.ID == botID
	if !isSelf && len(t.allowUsers) > 0 && !t.allowUsers[m.Author.ID] {
		return
	}

	text := m.Content
	mentioned := false
	if botID != "" {
		for _, u := range m.Mentions {
			if u.ID == botID {
				mentioned = true
				break
			}
		}
		text = strings.ReplaceAll(text, "<@"+botID+">", "")
		text = strings.ReplaceAll(text, "<@!"+botID+">", "")
		text = strings.TrimSpace(text)
	}
	if text == "" {
		return
	}
	if mentioned && t.botName != "" {
		// Keep an explicit mention so downstream trigger checks see it.
		text = "@" + t.botName + " " + text
	}

	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	ev := transport.Event{
		ChatID:     m.ChannelID,
		SenderID:   m.Author.ID,
		SenderName: m.Author.Username,
		Text:       text,
		Timestamp:  ts,
		Platform:   transport.PlatformDiscord,
		IsGroup:    m.GuildID != "",
		IsSelf:     isSelf,
	}
	if m.ReferencedMessage != nil && m.ReferencedMessage.Author != nil {
		ev.Quoted = &transport.QuotedMessage{
			SenderID: m.ReferencedMessage.Author.ID,
			Text:     m.ReferencedMessage.Content,
		}
	}
	handler(context.Background(), ev)
}

func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}
		cutAt := maxLen
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > 0 {
			cutAt = idx + 1
		}
		chunks = append(chunks, text[:cutAt])
		text = text[cutAt:]
	}
	return chunks
}

func toSet(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}
