package registry

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tinyland-inc/wingmate/pkg/logger"
)

type contactsFile struct {
	Contacts map[string]ContactProfile `yaml:"contacts"`
	Defaults *ContactProfile           `yaml:"defaults"`
}

// ContactRegistry resolves sender IDs to contact profiles. Lookups never
// fail: unknown senders get a default profile.
type ContactRegistry struct {
	mu             sync.RWMutex
	path           string
	contacts       map[string]ContactProfile
	imessageLookup map[string]string // imessage:<id> -> primary ID
	defaults       ContactProfile
	watcher        *fileWatcher
}

// NewContactRegistry loads the contacts file and starts watching it for
// changes. A missing file is not an error; the registry simply serves
// defaults until the file appears.
func NewContactRegistry(path string) (*ContactRegistry, error) {
	r := &ContactRegistry{
		path:           path,
		contacts:       make(map[string]ContactProfile),
		imessageLookup: make(map[string]string),
		defaults:       ContactProfile{Name: "Unknown", Role: RoleUnknown, Tone: ToneNeutral},
	}
	if err := r.load(); err != nil {
		return nil, err
	}

	w, err := watchFile(path, "contacts", r.reload)
	if err != nil {
		logger.WarnCF("contacts", "Config watch unavailable",
			map[string]any{"error": err.Error()})
	} else {
		r.watcher = w
	}
	return r, nil
}

func (r *ContactRegistry) reload() {
	if err := r.load(); err != nil {
		logger.ErrorCF("contacts", "Reload failed", map[string]any{"error": err.Error()})
	}
}

func (r *ContactRegistry) load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read contacts config: %w", err)
	}

	var file contactsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse contacts config %s: %w", r.path, err)
	}

	contacts := make(map[string]ContactProfile, len(file.Contacts))
	imessageLookup := make(map[string]string)
	for id, p := range file.Contacts {
		p.ID = id
		if p.Name == "" {
			p.Name = "Unknown"
		}
		if p.Role == "" {
			p.Role = RoleUnknown
		}
		if p.Tone == "" {
			p.Tone = ToneNeutral
		}
		contacts[id] = p
		if p.IMessageID != "" {
			imessageLookup["imessage:"+p.IMessageID] = id
		}
	}

	defaults := ContactProfile{Name: "Unknown", Role: RoleUnknown, Tone: ToneNeutral}
	if file.Defaults != nil {
		if file.Defaults.Role != "" {
			defaults.Role = file.Defaults.Role
		}
		if file.Defaults.Tone != "" {
			defaults.Tone = file.Defaults.Tone
		}
		defaults.AllowProactive = file.Defaults.AllowProactive
		defaults.CooldownOverride = file.Defaults.CooldownOverride
	}

	r.mu.Lock()
	r.contacts = contacts
	r.imessageLookup = imessageLookup
	r.defaults = defaults
	r.mu.Unlock()

	logger.InfoCF("contacts", "Loaded contacts", map[string]any{
		"count": len(contacts), "path": r.path,
	})
	return nil
}

// Resolve maps a sender ID to a profile. Supports platform-native IDs and
// imessage:-prefixed identifiers linked to a primary contact. Unknown
// senders receive the configured defaults.
func (r *ContactRegistry) Resolve(senderID string) ContactProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.contacts[senderID]; ok {
		return p
	}
	if primary, ok := r.imessageLookup[senderID]; ok {
		return r.contacts[primary]
	}
	// Bare phone/email without a prefix: retry as an iMessage identity.
	if !strings.HasPrefix(senderID, "imessage:") && !strings.Contains(senderID, "@") {
		key := "imessage:" + senderID
		if p, ok := r.contacts[key]; ok {
			return p
		}
		if primary, ok := r.imessageLookup[key]; ok {
			return r.contacts[primary]
		}
	}

	d := r.defaults
	d.ID = senderID
	return d
}

// IsKnown reports whether the sender is explicitly configured.
func (r *ContactRegistry) IsKnown(senderID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.contacts[senderID]
	return ok
}

// All returns every configured contact, sorted by ID.
func (r *ContactRegistry) All() []ContactProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ContactProfile, 0, len(r.contacts))
	for _, p := range r.contacts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close stops the file watcher.
func (r *ContactRegistry) Close() {
	if r.watcher != nil {
		r.watcher.close()
	}
}
