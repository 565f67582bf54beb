package safety

import (
	"sync"
	"time"
)

// CooldownManager tracks the last reply time per chat and enforces a
// minimum gap between replies to the same chat. A per-chat override
// replaces the global default for that chat only.
type CooldownManager struct {
	mu         sync.Mutex
	defaultDur time.Duration
	lastReply  map[string]time.Time
	overrides  map[string]time.Duration
	now        func() time.Time
}

// NewCooldownManager creates a manager with the given default cooldown.
func NewCooldownManager(defaultDur time.Duration) *CooldownManager {
	return &CooldownManager{
		defaultDur: defaultDur,
		lastReply:  make(map[string]time.Time),
		overrides:  make(map[string]time.Duration),
		now:        time.Now,
	}
}

// SetOverride installs a per-chat cooldown duration.
func (c *CooldownManager) SetOverride(chatID string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overrides[chatID] = d
}

// IsOnCooldown reports whether the chat is still inside its cooldown.
func (c *CooldownManager) IsOnCooldown(chatID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	last, ok := c.lastReply[chatID]
	if !ok {
		return false
	}
	dur := c.defaultDur
	if o, ok := c.overrides[chatID]; ok {
		dur = o
	}
	return c.now().Sub(last) < dur
}

// RecordReply marks a reply to the chat at the current time.
func (c *CooldownManager) RecordReply(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastReply[chatID] = c.now()
}
