package safety

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// TriggerDetector matches trigger words (the bot's name plus configured
// variants) in message text. The pipeline feeds its result into the policy
// engine's mention flag; it also offers a standalone response heuristic.
type TriggerDetector struct {
	mu       sync.RWMutex
	botName  string
	triggers map[string]struct{}
	pattern  *regexp.Regexp
}

// NewTriggerDetector builds a detector for the bot name and any additional
// trigger strings. Matching is case-insensitive on word boundaries.
func NewTriggerDetector(botName string, additional ...string) *TriggerDetector {
	d := &TriggerDetector{
		botName:  strings.ToLower(botName),
		triggers: make(map[string]struct{}),
	}
	d.triggers[d.botName] = struct{}{}
	d.triggers["@"+d.botName] = struct{}{}
	for _, t := range additional {
		d.triggers[strings.ToLower(t)] = struct{}{}
	}
	d.compile()
	return d
}

func (d *TriggerDetector) compile() {
	escaped := make([]string, 0, len(d.triggers))
	for t := range d.triggers {
		escaped = append(escaped, regexp.QuoteMeta(t))
	}
	sort.Strings(escaped)
	d.pattern = regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)
}

// AddTrigger registers another trigger word.
func (d *TriggerDetector) AddTrigger(trigger string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.triggers[strings.ToLower(trigger)] = struct{}{}
	d.compile()
}

// HasTrigger reports whether the text contains any trigger word.
func (d *TriggerDetector) HasTrigger(text string) bool {
	if text == "" {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pattern.MatchString(text)
}

// IsDirectMention reports whether the message starts with a mention of the
// bot, indicating a direct address.
func (d *TriggerDetector) IsDirectMention(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(text))
	d.mu.RLock()
	defer d.mu.RUnlock()
	for t := range d.triggers {
		if strings.HasPrefix(lower, t) || strings.HasPrefix(lower, "@"+t) {
			return true
		}
	}
	return false
}

// ShouldRespond applies the fallback response heuristic: always respond to
// DMs and bot-replies, in groups respond only on a trigger match.
func (d *TriggerDetector) ShouldRespond(text string, isGroup, isDM, isReplyToBot bool) (bool, string) {
	if isDM {
		return true, "direct_message"
	}
	if isReplyToBot {
		return true, "reply_to_bot"
	}
	if isGroup {
		if d.HasTrigger(text) {
			return true, "trigger_word"
		}
		return false, "no_trigger"
	}
	return false, "no_match"
}
