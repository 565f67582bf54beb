package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/wingmate/pkg/registry"
)

func boolPtr(b bool) *bool                                { return &b }
func strPtr(s string) *string                             { return &s }
func rolePtr(r registry.Role) *registry.Role              { return &r }
func catPtr(c registry.GroupCategory) *registry.GroupCategory { return &c }

func dmContext(text string) *MessageContext {
	return &MessageContext{
		ChatID:   "+15550001111",
		SenderID: "+15550001111",
		Text:     text,
		IsDM:     true,
		Platform: "whatsapp",
		Contact:  registry.ContactProfile{ID: "+15550001111", Role: registry.RoleFriend},
	}
}

func groupContext(text string, cat registry.GroupCategory) *MessageContext {
	return &MessageContext{
		ChatID:   "group-1",
		SenderID: "+15550002222",
		Text:     text,
		IsGroup:  true,
		Platform: "whatsapp",
		Contact:  registry.ContactProfile{ID: "+15550002222", Role: registry.RoleUnknown},
		Group:    &registry.GroupConfig{ID: "group-1", Name: "College", Category: cat},
	}
}

func TestFirstMatchWins(t *testing.T) {
	eval := NewEvaluator([]Rule{
		{Name: "dm_always", Conditions: Conditions{IsDM: boolPtr(true)}, Action: registry.ReplyAlways},
		{Name: "dm_never", Conditions: Conditions{IsDM: boolPtr(true)}, Action: registry.ReplyNever},
	}, registry.ReplySelective, "max")

	d := eval.Evaluate(dmContext("hello"))
	assert.True(t, d.ShouldRespond)
	assert.Equal(t, "rule:dm_always", d.Reason)
	assert.Equal(t, "dm_always", d.RuleName)
}

func TestDMAlwaysRespondsRegardlessOfMention(t *testing.T) {
	eval := NewEvaluator([]Rule{
		{Name: "dm_always", Conditions: Conditions{IsDM: boolPtr(true)}, Action: registry.ReplyAlways},
	}, registry.ReplySelective, "max")

	for _, text := range []string{"hello", "max are you there", "nothing relevant at all"} {
		d := eval.Evaluate(dmContext(text))
		assert.True(t, d.ShouldRespond, "text %q", text)
	}
}

func TestSelectiveRequiresMentionOrReply(t *testing.T) {
	eval := NewEvaluator(nil, registry.ReplySelective, "max")

	d := eval.Evaluate(groupContext("anyone seen the slides?", registry.GroupFriends))
	assert.False(t, d.ShouldRespond)
	assert.Equal(t, "fallback", d.Reason)

	d = eval.Evaluate(groupContext("hey @max can you share them", registry.GroupFriends))
	assert.True(t, d.ShouldRespond)

	ctx := groupContext("what do you think?", registry.GroupFriends)
	ctx.IsReplyToBot = true
	d = eval.Evaluate(ctx)
	assert.True(t, d.ShouldRespond)
}

func TestMentionIsCaseInsensitiveSubstring(t *testing.T) {
	eval := NewEvaluator(nil, registry.ReplySelective, "Max")

	d := eval.Evaluate(groupContext("MAX knows", registry.GroupFriends))
	assert.True(t, d.ShouldRespond)
	assert.True(t, eval.isMentioned("climax of the movie"))
}

func TestNeverRuleSilencesCategory(t *testing.T) {
	eval := NewEvaluator([]Rule{
		{Name: "work_silent", Conditions: Conditions{GroupCategory: catPtr(registry.GroupWork)}, Action: registry.ReplyNever},
	}, registry.ReplySelective, "max")

	d := eval.Evaluate(groupContext("max please reply", registry.GroupWork))
	assert.False(t, d.ShouldRespond)
	assert.Equal(t, "rule:work_silent", d.Reason)
	assert.True(t, d.ShouldRespond == false && d.Action == registry.ReplyNever)

	d = eval.Evaluate(groupContext("max please reply", registry.GroupFriends))
	assert.True(t, d.ShouldRespond)
}

func TestAbsentConditionsAreWildcards(t *testing.T) {
	eval := NewEvaluator([]Rule{
		{Name: "match_all", Conditions: Conditions{}, Action: registry.ReplyAlways},
	}, registry.ReplyNever, "max")

	assert.True(t, eval.Evaluate(dmContext("hi")).ShouldRespond)
	assert.True(t, eval.Evaluate(groupContext("hi", registry.GroupWork)).ShouldRespond)
}

func TestRoleAndPlatformConditions(t *testing.T) {
	eval := NewEvaluator([]Rule{
		{
			Name: "imessage_family",
			Conditions: Conditions{
				Platform: strPtr("imessage"),
				Role:     rolePtr(registry.RoleFamily),
			},
			Action: registry.ReplyAlways,
		},
	}, registry.ReplyNever, "max")

	ctx := dmContext("hi")
	ctx.Platform = "imessage"
	ctx.Contact.Role = registry.RoleFamily
	assert.True(t, eval.Evaluate(ctx).ShouldRespond)

	ctx.Platform = "whatsapp"
	assert.False(t, eval.Evaluate(ctx).ShouldRespond)
}

func TestGroupCategoryNeverMatchesDM(t *testing.T) {
	eval := NewEvaluator([]Rule{
		{Name: "friends", Conditions: Conditions{GroupCategory: catPtr(registry.GroupFriends)}, Action: registry.ReplyAlways},
	}, registry.ReplyNever, "max")

	assert.False(t, eval.Evaluate(dmContext("hi")).ShouldRespond)
}

func TestEvaluateWritesMentionFlagBack(t *testing.T) {
	eval := NewEvaluator(nil, registry.ReplySelective, "max")

	ctx := groupContext("ping max", registry.GroupFriends)
	eval.Evaluate(ctx)
	assert.True(t, ctx.IsMentioned)
}

func TestLoadEvaluator(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `
rules:
  - name: dm_always
    conditions:
      is_dm: true
    action: always
  - name: work_silent
    conditions:
      group_category: work
    action: never
fallback:
  action: selective
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	eval, err := LoadEvaluator(path, "max")
	require.NoError(t, err)
	require.Len(t, eval.Rules(), 2)
	assert.Equal(t, registry.ReplySelective, eval.Fallback())

	assert.True(t, eval.Evaluate(dmContext("anything")).ShouldRespond)
	assert.False(t, eval.Evaluate(groupContext("max?", registry.GroupWork)).ShouldRespond)
}

func TestLoadEvaluatorMissingFile(t *testing.T) {
	eval, err := LoadEvaluator(filepath.Join(t.TempDir(), "absent.yaml"), "max")
	require.NoError(t, err)
	assert.Empty(t, eval.Rules())
	assert.Equal(t, registry.ReplySelective, eval.Fallback())
}

func TestLoadEvaluatorRejectsBadAction(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := "rules:\n  - name: bad\n    action: sometimes\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadEvaluator(path, "max")
	assert.Error(t, err)
}
