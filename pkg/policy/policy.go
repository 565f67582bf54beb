// Package policy implements the rule-based decision engine that determines
// whether the bot responds to a message. Rules are evaluated top to bottom;
// the first rule whose conditions all match wins, and a configured fallback
// action applies when none match.
package policy

import (
	"strings"

	"github.com/tinyland-inc/wingmate/pkg/registry"
)

// MessageContext is the per-event attribute set rules match against. It is
// built fresh for each pipeline pass; IsMentioned may be pre-set by the
// caller and is augmented by the evaluator's own name check.
type MessageContext struct {
	ChatID   string
	SenderID string
	Text     string

	IsDM    bool
	IsGroup bool

	Platform string
	Contact  registry.ContactProfile
	Group    *registry.GroupConfig

	IsReplyToBot bool
	IsMentioned  bool
}

// GroupCategory returns the context's group category, or empty outside
// groups.
func (c *MessageContext) GroupCategory() registry.GroupCategory {
	if c.Group == nil {
		return ""
	}
	return c.Group.Category
}

// Conditions is the fixed, enumerated condition set a rule may constrain.
// A nil field is a wildcard; a set field must equal the context attribute.
type Conditions struct {
	Platform      *string                 `yaml:"platform"`
	IsDM          *bool                   `yaml:"is_dm"`
	IsGroup       *bool                   `yaml:"is_group"`
	Role          *registry.Role          `yaml:"role"`
	GroupCategory *registry.GroupCategory `yaml:"group_category"`
	IsReplyToBot  *bool                   `yaml:"is_reply_to_bot"`
	IsMentioned   *bool                   `yaml:"is_mentioned"`
}

func (c Conditions) match(ctx *MessageContext) bool {
	if c.Platform != nil && *c.Platform != ctx.Platform {
		return false
	}
	if c.IsDM != nil && *c.IsDM != ctx.IsDM {
		return false
	}
	if c.IsGroup != nil && *c.IsGroup != ctx.IsGroup {
		return false
	}
	if c.Role != nil && *c.Role != ctx.Contact.Role {
		return false
	}
	if c.GroupCategory != nil {
		if ctx.Group == nil || *c.GroupCategory != ctx.Group.Category {
			return false
		}
	}
	if c.IsReplyToBot != nil && *c.IsReplyToBot != ctx.IsReplyToBot {
		return false
	}
	if c.IsMentioned != nil && *c.IsMentioned != ctx.IsMentioned {
		return false
	}
	return true
}

// Rule pairs a condition set with the action taken when it matches.
type Rule struct {
	Name       string               `yaml:"name"`
	Conditions Conditions           `yaml:"conditions"`
	Action     registry.ReplyPolicy `yaml:"action"`
}

// Decision is the immutable result of one evaluation.
type Decision struct {
	ShouldRespond bool
	Reason        string
	RuleName      string
	Action        registry.ReplyPolicy
}

// Evaluator holds the ordered rule list and the fallback action.
type Evaluator struct {
	rules    []Rule
	fallback registry.ReplyPolicy
	botName  string
}

// NewEvaluator creates an evaluator over the given rules. The bot name
// drives mention detection.
func NewEvaluator(rules []Rule, fallback registry.ReplyPolicy, botName string) *Evaluator {
	if fallback == "" {
		fallback = registry.ReplySelective
	}
	return &Evaluator{
		rules:    rules,
		fallback: fallback,
		botName:  strings.ToLower(botName),
	}
}

// Rules returns the loaded rule list in evaluation order.
func (e *Evaluator) Rules() []Rule { return e.rules }

// Fallback returns the action applied when no rule matches.
func (e *Evaluator) Fallback() registry.ReplyPolicy { return e.fallback }

// isMentioned checks for the bot's name or an @name form anywhere in the
// text. Deliberately a plain substring match, not tokenized or anchored.
func (e *Evaluator) isMentioned(text string) bool {
	if text == "" || e.botName == "" {
		return false
	}
	lower := strings.ToLower(text)
	return strings.Contains(lower, "@"+e.botName) || strings.Contains(lower, e.botName)
}

// Evaluate runs the ordered rules against the context. First full match
// wins; absent conditions are wildcards. The name-based mention check is
// OR-ed into the context's mention flag before matching, so callers may
// pre-set it from their own trigger detection.
func (e *Evaluator) Evaluate(ctx *MessageContext) Decision {
	ctx.IsMentioned = ctx.IsMentioned || e.isMentioned(ctx.Text)

	for _, rule := range e.rules {
		if rule.Conditions.match(ctx) {
			return Decision{
				ShouldRespond: e.shouldRespond(rule.Action, ctx),
				Reason:        "rule:" + rule.Name,
				RuleName:      rule.Name,
				Action:        rule.Action,
			}
		}
	}

	return Decision{
		ShouldRespond: e.shouldRespond(e.fallback, ctx),
		Reason:        "fallback",
		Action:        e.fallback,
	}
}

func (e *Evaluator) shouldRespond(action registry.ReplyPolicy, ctx *MessageContext) bool {
	switch action {
	case registry.ReplyAlways:
		return true
	case registry.ReplyNever:
		return false
	case registry.ReplySelective:
		return ctx.IsMentioned || ctx.IsReplyToBot
	}
	return false
}
