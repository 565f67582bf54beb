package transport

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tinyland-inc/wingmate/pkg/logger"
)

// Manager holds the registered transports keyed by platform and owns their
// lifecycle tasks. A transport failing takes only that platform offline;
// the others keep running.
type Manager struct {
	mu         sync.RWMutex
	transports map[string]Transport
}

// NewManager creates an empty transport manager.
func NewManager() *Manager {
	return &Manager{transports: make(map[string]Transport)}
}

// Register adds a transport. Registering the same platform twice is an error.
func (m *Manager) Register(t Transport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transports[t.Platform()]; ok {
		return fmt.Errorf("transport already registered for platform %q", t.Platform())
	}
	m.transports[t.Platform()] = t
	return nil
}

// Get returns the transport for a platform.
func (m *Manager) Get(platform string) (Transport, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transports[platform]
	return t, ok
}

// Platforms returns the registered platform tags, sorted.
func (m *Manager) Platforms() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.transports))
	for p := range m.transports {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Active returns a platform -> running flag snapshot for status reporting.
func (m *Manager) Active() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]bool, len(m.transports))
	for p, t := range m.transports {
		out[p] = t.IsRunning()
	}
	return out
}

// Send routes an outbound message to the transport owning the platform.
func (m *Manager) Send(ctx context.Context, platform, chatID, text string) error {
	t, ok := m.Get(platform)
	if !ok {
		return fmt.Errorf("no transport for platform %q", platform)
	}
	return t.Send(ctx, chatID, text)
}

// StartAll launches one lifecycle task per transport and blocks until all
// of them have returned. A transport error is logged and leaves the other
// transports untouched.
func (m *Manager) StartAll(ctx context.Context) {
	m.mu.RLock()
	transports := make([]Transport, 0, len(m.transports))
	for _, t := range m.transports {
		transports = append(transports, t)
	}
	m.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, t := range transports {
		g.Go(func() error {
			logger.InfoC(t.Platform(), "Starting transport")
			if err := t.Start(ctx); err != nil {
				logger.ErrorCF(t.Platform(), "Transport stopped with error",
					map[string]any{"error": err.Error()})
			}
			// A failed transport is offline; never cancel the siblings.
			return nil
		})
	}
	_ = g.Wait()
}

// StopAll stops every transport, logging individual failures.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.RLock()
	transports := make([]Transport, 0, len(m.transports))
	for _, t := range m.transports {
		transports = append(transports, t)
	}
	m.mu.RUnlock()

	for _, t := range transports {
		if err := t.Stop(ctx); err != nil {
			logger.ErrorCF(t.Platform(), "Error stopping transport",
				map[string]any{"error": err.Error()})
		}
	}
}
