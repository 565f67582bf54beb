package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contactsYAML = `
contacts:
  "+14155551234@s.whatsapp.net":
    name: Alice
    role: friend
    tone: casual
    allow_proactive: true
    cooldown_override: 30
    imessage_id: "+14155551234"
  "+15550001111@s.whatsapp.net":
    name: Bea
    role: sister
    tone: friendly
defaults:
  role: unknown
  tone: neutral
`

const groupsYAML = `
groups:
  "12036304@g.us":
    name: Family Chat
    category: family
    reply_policy: always
defaults:
  category: unknown
  reply_policy: selective
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestContactResolve(t *testing.T) {
	path := writeFile(t, t.TempDir(), "contacts.yaml", contactsYAML)
	r, err := NewContactRegistry(path)
	require.NoError(t, err)
	defer r.Close()

	alice := r.Resolve("+14155551234@s.whatsapp.net")
	assert.Equal(t, "Alice", alice.Name)
	assert.Equal(t, RoleFriend, alice.Role)
	assert.Equal(t, ToneCasual, alice.Tone)
	assert.True(t, alice.AllowProactive)
	require.NotNil(t, alice.CooldownOverride)
	assert.Equal(t, 30, *alice.CooldownOverride)

	assert.True(t, r.IsKnown("+14155551234@s.whatsapp.net"))
	assert.Len(t, r.All(), 2)
}

func TestContactResolveIMessageLink(t *testing.T) {
	path := writeFile(t, t.TempDir(), "contacts.yaml", contactsYAML)
	r, err := NewContactRegistry(path)
	require.NoError(t, err)
	defer r.Close()

	// The imessage identity maps back to Alice's primary profile.
	byPrefix := r.Resolve("imessage:+14155551234")
	assert.Equal(t, "Alice", byPrefix.Name)

	// A bare phone number without prefix is retried as an iMessage ID.
	bare := r.Resolve("+14155551234")
	assert.Equal(t, "Alice", bare.Name)
}

func TestContactResolveUnknownGetsDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "contacts.yaml", contactsYAML)
	r, err := NewContactRegistry(path)
	require.NoError(t, err)
	defer r.Close()

	p := r.Resolve("stranger@s.whatsapp.net")
	assert.Equal(t, "Unknown", p.Name)
	assert.Equal(t, RoleUnknown, p.Role)
	assert.Equal(t, ToneNeutral, p.Tone)
	assert.Equal(t, "stranger@s.whatsapp.net", p.ID)
	assert.False(t, r.IsKnown("stranger@s.whatsapp.net"))
}

func TestContactMissingFileServesDefaults(t *testing.T) {
	r, err := NewContactRegistry(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	defer r.Close()

	p := r.Resolve("anyone")
	assert.Equal(t, RoleUnknown, p.Role)
}

func TestContactReloadOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "contacts.yaml", contactsYAML)
	r, err := NewContactRegistry(path)
	require.NoError(t, err)
	defer r.Close()

	updated := `
contacts:
  "new@s.whatsapp.net":
    name: Newcomer
    role: colleague
    tone: neutral
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if r.IsKnown("new@s.whatsapp.net") {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	assert.True(t, r.IsKnown("new@s.whatsapp.net"))
	assert.False(t, r.IsKnown("+14155551234@s.whatsapp.net"))
}

func TestGroupResolve(t *testing.T) {
	path := writeFile(t, t.TempDir(), "groups.yaml", groupsYAML)
	r, err := NewGroupRegistry(path)
	require.NoError(t, err)
	defer r.Close()

	g := r.Resolve("12036304@g.us")
	assert.Equal(t, "Family Chat", g.Name)
	assert.Equal(t, GroupFamily, g.Category)
	assert.Equal(t, ReplyAlways, g.ReplyPolicy)

	unknown := r.Resolve("other@g.us")
	assert.Equal(t, GroupUnknown, unknown.Category)
	assert.Equal(t, ReplySelective, unknown.ReplyPolicy)
}
