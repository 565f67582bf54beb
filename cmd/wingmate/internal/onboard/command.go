package onboard

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/wingmate/cmd/wingmate/internal"
	"github.com/tinyland-inc/wingmate/pkg/config"
)

func NewOnboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Create a starter configuration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return onboardCmd()
		},
	}
}

const sampleContacts = `# Contacts known to wingmate, keyed by platform chat id. For WhatsApp
# that is the JID; add imessage_id to link an iMessage identity.
contacts:
  "919812345678@s.whatsapp.net":
    name: "Asha"
    role: partner
    tone: affectionate
    allow_proactive: true
    imessage_id: "+919812345678"
  "919811111111@s.whatsapp.net":
    name: "Rahul"
    role: friend
    tone: casual
`

const sampleGroups = `groups:
  "120363000000000000@g.us":
    name: "College Friends"
    category: friends
    reply_policy: selective
`

const sampleRules = `# Reply rules, checked top to bottom, first match wins.
rules:
  - name: dm_from_partner
    conditions:
      is_dm: true
      role: partner
    action: always
  - name: dm_known
    conditions:
      is_dm: true
    action: always
  - name: group_when_mentioned
    conditions:
      is_group: true
    action: selective
fallback:
  action: never
`

func onboardCmd() error {
	configPath := internal.GetConfigPath()
	dataDir := filepath.Dir(configPath)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("error creating %s: %w", dataDir, err)
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config already exists at %s\n", configPath)
	} else {
		cfg := config.DefaultConfig()
		if err := config.SaveConfig(configPath, cfg); err != nil {
			return fmt.Errorf("error writing config: %w", err)
		}
		fmt.Printf("✓ Created %s\n", configPath)
	}

	samples := map[string]string{
		"contacts.yaml": sampleContacts,
		"groups.yaml":   sampleGroups,
		"rules.yaml":    sampleRules,
	}
	for name, content := range samples {
		path := filepath.Join(dataDir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			return fmt.Errorf("error writing %s: %w", name, err)
		}
		fmt.Printf("✓ Created %s\n", path)
	}

	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set your provider key: export WINGMATE_PROVIDER_API_KEY=...")
	fmt.Printf("  2. Edit %s and enable a transport\n", configPath)
	fmt.Println("  3. Edit contacts.yaml so wingmate knows who is who")
	fmt.Println("  4. Run: wingmate gateway")

	return nil
}
