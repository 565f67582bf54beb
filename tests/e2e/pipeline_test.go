package e2e

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tinyland-inc/wingmate/pkg/agent"
	"github.com/tinyland-inc/wingmate/pkg/policy"
	"github.com/tinyland-inc/wingmate/pkg/providers"
	"github.com/tinyland-inc/wingmate/pkg/registry"
	"github.com/tinyland-inc/wingmate/pkg/store"
	"github.com/tinyland-inc/wingmate/pkg/transport"
)

// memoryTransport is an in-process transport for exercising the full
// inbound-to-outbound path without a real platform.
type memoryTransport struct {
	mu      sync.Mutex
	handler transport.Handler
	sent    []string
	running bool
}

func (m *memoryTransport) Platform() string { return transport.PlatformWhatsApp }

func (m *memoryTransport) Start(ctx context.Context) error {
	m.mu.Lock()
	m.running = true
	m.mu.Unlock()
	<-ctx.Done()
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
	return nil
}

func (m *memoryTransport) Stop(ctx context.Context) error { return nil }

func (m *memoryTransport) Send(ctx context.Context, chatID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, chatID+"|"+text)
	return nil
}

func (m *memoryTransport) SetHandler(h transport.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
}

func (m *memoryTransport) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *memoryTransport) inject(ctx context.Context, ev transport.Event) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h != nil {
		h(ctx, ev)
	}
}

func (m *memoryTransport) sentMessages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

type echoProvider struct{}

func (echoProvider) Name() string { return "echo" }

func (echoProvider) Generate(ctx context.Context, systemPrompt string, messages []providers.Message, languageInstruction string) (string, error) {
	if len(messages) == 0 {
		return "", nil
	}
	return "reply to: " + messages[len(messages)-1].Content, nil
}

// TestMessageRoundtrip drives a message through the live wiring: fake
// transport in, policy and gates, provider call, and send back out, with
// history landing in a real sqlite store.
func TestMessageRoundtrip(t *testing.T) {
	dir := t.TempDir()

	messageStore, err := store.Open(filepath.Join(dir, "messages.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer messageStore.Close()

	contacts, err := registry.NewContactRegistry(filepath.Join(dir, "contacts.yaml"))
	if err != nil {
		t.Fatalf("loading contacts: %v", err)
	}
	defer contacts.Close()
	groups, err := registry.NewGroupRegistry(filepath.Join(dir, "groups.yaml"))
	if err != nil {
		t.Fatalf("loading groups: %v", err)
	}
	defer groups.Close()

	evaluator, err := policy.LoadEvaluator(filepath.Join(dir, "rules.yaml"), "max")
	if err != nil {
		t.Fatalf("loading rules: %v", err)
	}

	mt := &memoryTransport{}
	manager := transport.NewManager()
	if err := manager.Register(mt); err != nil {
		t.Fatalf("registering transport: %v", err)
	}

	state := agent.NewRuntimeState()
	processor := agent.NewProcessor(agent.ProcessorOptions{
		Store:             messageStore,
		Provider:          echoProvider{},
		Contacts:          contacts,
		Groups:            groups,
		Evaluator:         evaluator,
		State:             state,
		Send:              manager.Send,
		BotName:           "max",
		MaxRepliesPerHour: 100,
		ContextWindow:     10,
	})
	orchestrator := agent.NewOrchestrator(manager, processor)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		orchestrator.Run(ctx)
		close(done)
	}()
	waitFor(t, mt.IsRunning)

	mt.inject(ctx, transport.Event{
		ChatID:    "friend@s.whatsapp.net",
		SenderID:  "friend@s.whatsapp.net",
		Text:      "are you free tonight?",
		Timestamp: time.Now(),
		Platform:  transport.PlatformWhatsApp,
	})

	sent := mt.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("expected 1 outbound message, got %d: %v", len(sent), sent)
	}
	if !strings.Contains(sent[0], "reply to: are you free tonight?") {
		t.Errorf("unexpected outbound message: %s", sent[0])
	}

	// Both sides of the exchange must be in history.
	history, err := messageStore.Recent("friend@s.whatsapp.net", 10)
	if err != nil {
		t.Fatalf("reading history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 stored messages, got %d", len(history))
	}
	if history[0].IsFromSelf || !history[1].IsFromSelf {
		t.Errorf("expected inbound then outbound, got self flags %v %v",
			history[0].IsFromSelf, history[1].IsFromSelf)
	}

	// Paused agent stays silent but keeps recording.
	state.Pause(0)
	mt.inject(ctx, transport.Event{
		ChatID:    "friend@s.whatsapp.net",
		SenderID:  "friend@s.whatsapp.net",
		Text:      "hello?",
		Timestamp: time.Now(),
		Platform:  transport.PlatformWhatsApp,
	})
	if got := len(mt.sentMessages()); got != 1 {
		t.Errorf("paused agent sent a reply, outbound count %d", got)
	}
	history, err = messageStore.Recent("friend@s.whatsapp.net", 10)
	if err != nil {
		t.Fatalf("reading history: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("expected 3 stored messages after paused inbound, got %d", len(history))
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("orchestrator did not stop")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
