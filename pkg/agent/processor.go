// Package agent holds the message pipeline: safety gating, policy
// evaluation, context assembly, generation and dispatch.
package agent

import (
	"context"
	"strings"
	"time"

	"github.com/tinyland-inc/wingmate/pkg/logger"
	"github.com/tinyland-inc/wingmate/pkg/policy"
	"github.com/tinyland-inc/wingmate/pkg/providers"
	"github.com/tinyland-inc/wingmate/pkg/registry"
	"github.com/tinyland-inc/wingmate/pkg/safety"
	"github.com/tinyland-inc/wingmate/pkg/store"
	"github.com/tinyland-inc/wingmate/pkg/transport"
)

// messageStore is the slice of the store the pipeline uses.
type messageStore interface {
	Store(*store.Message) error
	Recent(chatID string, limit int) ([]store.Message, error)
	WasLastFromSelf(chatID string) (bool, error)
}

// SendFunc routes an outgoing message to the transport for a platform.
type SendFunc func(ctx context.Context, platform, chatID, text string) error

// ProcessorOptions collects the pipeline's collaborators and tunables.
type ProcessorOptions struct {
	Store     messageStore
	Provider  providers.Provider
	Contacts  *registry.ContactRegistry
	Groups    *registry.GroupRegistry
	Evaluator *policy.Evaluator
	State     *RuntimeState
	Send      SendFunc

	BotName            string
	Triggers           []string
	MaxRepliesPerHour  int
	DefaultCooldown    time.Duration
	QuietStart         int
	QuietEnd           int
	QuietEnabled       bool
	ContextWindow      int
	SkipIfLastFromSelf bool
}

// Processor runs every inbound event through the pipeline. It is shared
// by all transports; per-transport ordering comes from each transport
// invoking it synchronously from its receive loop.
type Processor struct {
	store     messageStore
	provider  providers.Provider
	contacts  *registry.ContactRegistry
	groups    *registry.GroupRegistry
	evaluator *policy.Evaluator
	state     *RuntimeState
	send      SendFunc

	rateLimiter *safety.RateLimiter
	cooldown    *safety.CooldownManager
	quietHours  *safety.QuietHours
	triggers    *safety.TriggerDetector

	contextBuilder *ContextBuilder
	promptBuilder  *PromptBuilder

	botName            string
	skipIfLastFromSelf bool
}

func NewProcessor(opts ProcessorOptions) *Processor {
	return &Processor{
		store:       opts.Store,
		provider:    opts.Provider,
		contacts:    opts.Contacts,
		groups:      opts.Groups,
		evaluator:   opts.Evaluator,
		state:       opts.State,
		send:        opts.Send,
		rateLimiter: safety.NewRateLimiter(opts.MaxRepliesPerHour),
		cooldown:    safety.NewCooldownManager(opts.DefaultCooldown),
		quietHours:  safety.NewQuietHours(opts.QuietStart, opts.QuietEnd, opts.QuietEnabled),
		triggers:    safety.NewTriggerDetector(opts.BotName, opts.Triggers...),

		contextBuilder: NewContextBuilder(opts.Store, opts.ContextWindow, opts.BotName),
		promptBuilder:  NewPromptBuilder(opts.BotName),

		botName:            opts.BotName,
		skipIfLastFromSelf: opts.SkipIfLastFromSelf,
	}
}

// Process runs one event through the pipeline. Gate rejections, empty
// generations and failed sends are logged no-ops; only the initial
// persistence happens unconditionally.
func (p *Processor) Process(ctx context.Context, ev transport.Event) {
	logger.InfoCF("agent", "Processing message", map[string]any{
		"platform": ev.Platform,
		"chat":     truncate(ev.ChatID, 20),
		"sender":   senderLabel(ev),
		"text":     truncate(ev.Text, 50),
	})

	msg := &store.Message{
		Platform:   ev.Platform,
		ChatID:     ev.ChatID,
		SenderID:   ev.SenderID,
		SenderName: ev.SenderName,
		Text:       ev.Text,
		Timestamp:  ev.Timestamp,
		IsFromSelf: ev.IsSelf,
		IsGroup:    ev.IsGroup,
	}
	if err := p.store.Store(msg); err != nil {
		logger.ErrorCF("agent", "Failed to store message", map[string]any{"error": err.Error()})
	}

	if ev.IsSelf {
		logger.DebugC("agent", "Skipping self message")
		return
	}

	contact := p.contacts.Resolve(ev.SenderID)
	var group *registry.GroupConfig
	if ev.IsGroup {
		g := p.groups.Resolve(ev.ChatID)
		group = &g
	}

	if contact.CooldownOverride != nil {
		p.cooldown.SetOverride(ev.ChatID, time.Duration(*contact.CooldownOverride)*time.Second)
	}

	if reason := p.checkGates(ev.ChatID); reason != "" {
		logger.InfoCF("agent", "Skipping message", map[string]any{"reason": reason})
		return
	}

	msgCtx := &policy.MessageContext{
		ChatID:       ev.ChatID,
		SenderID:     ev.SenderID,
		Text:         ev.Text,
		IsDM:         !ev.IsGroup,
		IsGroup:      ev.IsGroup,
		Platform:     ev.Platform,
		Contact:      contact,
		Group:        group,
		IsReplyToBot: p.isReplyToBot(ev),
		// Word-boundary trigger words count as mentions on top of the
		// evaluator's name check.
		IsMentioned: p.triggers.HasTrigger(ev.Text),
	}
	decision := p.evaluator.Evaluate(msgCtx)
	if !decision.ShouldRespond {
		logger.DebugCF("agent", "Policy decision: no response", map[string]any{"reason": decision.Reason})
		return
	}
	logger.InfoCF("agent", "Responding to message", map[string]any{
		"policy": decision.Reason,
		"action": string(decision.Action),
	})

	reply, err := p.generate(ctx, ev, contact)
	if err != nil {
		logger.WarnCF("agent", "Generation failed", map[string]any{"error": err.Error()})
		return
	}
	if reply == "" {
		logger.WarnC("agent", "Generation returned no text")
		return
	}

	if err := p.send(ctx, ev.Platform, ev.ChatID, reply); err != nil {
		logger.ErrorCF("agent", "Failed to send reply", map[string]any{
			"platform": ev.Platform,
			"error":    err.Error(),
		})
		return
	}

	// Counters move only after a successful send, so a failed send never
	// consumes budget.
	p.rateLimiter.RecordReply()
	p.cooldown.RecordReply(ev.ChatID)

	selfID := p.state.SelfID(ev.Platform)
	if selfID == "" {
		selfID = "self"
	}
	if err := p.store.Store(&store.Message{
		Platform:   ev.Platform,
		ChatID:     ev.ChatID,
		SenderID:   selfID,
		SenderName: p.botName,
		Text:       reply,
		Timestamp:  time.Now(),
		IsFromSelf: true,
		IsGroup:    ev.IsGroup,
	}); err != nil {
		logger.ErrorCF("agent", "Failed to store reply", map[string]any{"error": err.Error()})
	}

	logger.InfoCF("agent", "Response sent", map[string]any{
		"platform": ev.Platform,
		"text":     truncate(reply, 50),
	})
}

// RecordOutgoing persists a message the operator forced out through the
// control plane, keeping the chat history complete.
func (p *Processor) RecordOutgoing(platform, chatID, text string) {
	selfID := p.state.SelfID(platform)
	if selfID == "" {
		selfID = "self"
	}
	if err := p.store.Store(&store.Message{
		Platform:   platform,
		ChatID:     chatID,
		SenderID:   selfID,
		SenderName: p.botName,
		Text:       text,
		Timestamp:  time.Now(),
		IsFromSelf: true,
	}); err != nil {
		logger.ErrorCF("agent", "Failed to store forced message", map[string]any{"error": err.Error()})
	}
}

// checkGates runs the safety gates in their fixed order and returns the
// first failing gate's reason, or empty when all pass.
func (p *Processor) checkGates(chatID string) string {
	if p.state.CheckPaused() {
		return "paused"
	}
	if p.quietHours.IsQuietTime() {
		return "quiet_hours"
	}
	if !p.rateLimiter.CanReply() {
		return "rate_limit"
	}
	if p.cooldown.IsOnCooldown(chatID) {
		return "cooldown"
	}
	if p.skipIfLastFromSelf {
		fromSelf, err := p.store.WasLastFromSelf(chatID)
		if err != nil {
			logger.WarnCF("agent", "Double-reply check failed", map[string]any{"error": err.Error()})
		} else if fromSelf {
			return "double_reply"
		}
	}
	return ""
}

// isReplyToBot compares the quoted message's sender against the platform's
// recorded self identity, falling back to a name match.
func (p *Processor) isReplyToBot(ev transport.Event) bool {
	if ev.Quoted == nil {
		return false
	}
	if selfID := p.state.SelfID(ev.Platform); selfID != "" && ev.Quoted.SenderID == selfID {
		return true
	}
	return strings.Contains(strings.ToLower(ev.Quoted.SenderID), strings.ToLower(p.botName))
}

func (p *Processor) generate(ctx context.Context, ev transport.Event, contact registry.ContactProfile) (string, error) {
	window, err := p.contextBuilder.Build(ev)
	if err != nil {
		return "", err
	}

	language := DetectLanguage(ev.Text)
	logger.DebugCF("agent", "Detected language", map[string]any{"language": language})

	return p.provider.Generate(ctx, p.promptBuilder.Build(contact), window, LanguageInstruction(language))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func senderLabel(ev transport.Event) string {
	if ev.SenderName != "" {
		return ev.SenderName
	}
	return truncate(ev.SenderID, 15)
}
