package registry

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tinyland-inc/wingmate/pkg/logger"
)

type groupsFile struct {
	Groups   map[string]GroupConfig `yaml:"groups"`
	Defaults *GroupConfig           `yaml:"defaults"`
}

// GroupRegistry resolves chat IDs to group configurations with the same
// never-fails contract as ContactRegistry.
type GroupRegistry struct {
	mu       sync.RWMutex
	path     string
	groups   map[string]GroupConfig
	defaults GroupConfig
	watcher  *fileWatcher
}

// NewGroupRegistry loads the groups file and starts watching it.
func NewGroupRegistry(path string) (*GroupRegistry, error) {
	r := &GroupRegistry{
		path:     path,
		groups:   make(map[string]GroupConfig),
		defaults: GroupConfig{Name: "Unknown Group", Category: GroupUnknown, ReplyPolicy: ReplySelective},
	}
	if err := r.load(); err != nil {
		return nil, err
	}

	w, err := watchFile(path, "groups", r.reload)
	if err != nil {
		logger.WarnCF("groups", "Config watch unavailable",
			map[string]any{"error": err.Error()})
	} else {
		r.watcher = w
	}
	return r, nil
}

func (r *GroupRegistry) reload() {
	if err := r.load(); err != nil {
		logger.ErrorCF("groups", "Reload failed", map[string]any{"error": err.Error()})
	}
}

func (r *GroupRegistry) load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read groups config: %w", err)
	}

	var file groupsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse groups config %s: %w", r.path, err)
	}

	groups := make(map[string]GroupConfig, len(file.Groups))
	for id, g := range file.Groups {
		g.ID = id
		if g.Name == "" {
			g.Name = "Unknown Group"
		}
		if g.Category == "" {
			g.Category = GroupUnknown
		}
		if g.ReplyPolicy == "" {
			g.ReplyPolicy = ReplySelective
		}
		groups[id] = g
	}

	defaults := GroupConfig{Name: "Unknown Group", Category: GroupUnknown, ReplyPolicy: ReplySelective}
	if file.Defaults != nil {
		if file.Defaults.Category != "" {
			defaults.Category = file.Defaults.Category
		}
		if file.Defaults.ReplyPolicy != "" {
			defaults.ReplyPolicy = file.Defaults.ReplyPolicy
		}
	}

	r.mu.Lock()
	r.groups = groups
	r.defaults = defaults
	r.mu.Unlock()

	logger.InfoCF("groups", "Loaded groups", map[string]any{
		"count": len(groups), "path": r.path,
	})
	return nil
}

// Resolve maps a chat ID to its group configuration, falling back to the
// configured defaults for unknown groups.
func (r *GroupRegistry) Resolve(chatID string) GroupConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if g, ok := r.groups[chatID]; ok {
		return g
	}
	d := r.defaults
	d.ID = chatID
	return d
}

// IsKnown reports whether the group is explicitly configured.
func (r *GroupRegistry) IsKnown(chatID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.groups[chatID]
	return ok
}

// All returns every configured group, sorted by ID.
func (r *GroupRegistry) All() []GroupConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]GroupConfig, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close stops the file watcher.
func (r *GroupRegistry) Close() {
	if r.watcher != nil {
		r.watcher.close()
	}
}
