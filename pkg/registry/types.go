// Package registry resolves sender and chat identifiers to configured
// profiles. Profiles live in YAML files beside the main config and are
// reloaded live when the files change.
package registry

// Role categorizes a contact's relationship to the operator.
type Role string

const (
	RoleGirlfriend Role = "girlfriend"
	RoleSister     Role = "sister"
	RoleFriend     Role = "friend"
	RoleFamily     Role = "family"
	RoleColleague  Role = "colleague"
	RoleUnknown    Role = "unknown"
)

// Tone selects the voice used when replying to a contact.
type Tone string

const (
	ToneAffectionate Tone = "affectionate"
	ToneLoving       Tone = "loving"
	ToneFriendly     Tone = "friendly"
	ToneCasual       Tone = "casual"
	ToneSarcastic    Tone = "sarcastic"
	ToneNeutral      Tone = "neutral"
)

// GroupCategory classifies a group chat.
type GroupCategory string

const (
	GroupFamily  GroupCategory = "family"
	GroupFriends GroupCategory = "friends"
	GroupWork    GroupCategory = "work"
	GroupUnknown GroupCategory = "unknown"
)

// ReplyPolicy controls when the bot replies in a chat.
type ReplyPolicy string

const (
	ReplyAlways    ReplyPolicy = "always"
	ReplySelective ReplyPolicy = "selective"
	ReplyNever     ReplyPolicy = "never"
)

// ContactProfile is the resolved configuration for a sender.
type ContactProfile struct {
	ID               string `yaml:"-"`
	Name             string `yaml:"name"`
	Role             Role   `yaml:"role"`
	Tone             Tone   `yaml:"tone"`
	AllowProactive   bool   `yaml:"allow_proactive"`
	CooldownOverride *int   `yaml:"cooldown_override"` // seconds
	IMessageID       string `yaml:"imessage_id"`
}

// GroupConfig is the resolved configuration for a group chat.
type GroupConfig struct {
	ID          string        `yaml:"-"`
	Name        string        `yaml:"name"`
	Category    GroupCategory `yaml:"category"`
	ReplyPolicy ReplyPolicy   `yaml:"reply_policy"`
}
