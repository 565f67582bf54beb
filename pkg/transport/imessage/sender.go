package imessage

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/tinyland-inc/wingmate/pkg/logger"
)

const scriptTimeout = 10 * time.Second

// sender delivers messages through Messages.app with osascript.
type sender struct {
	// runScript is swapped out in tests.
	runScript func(ctx context.Context, script string) error
}

func newSender() *sender {
	s := &sender{}
	s.runScript = s.osascript
	return s
}

func (s *sender) osascript(ctx context.Context, script string) error {
	ctx, cancel := context.WithTimeout(ctx, scriptTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("osascript failed: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}

func (s *sender) sendDirect(ctx context.Context, recipient, text string) error {
	script := fmt.Sprintf(`tell application "Messages"
    set targetService to 1st account whose service type = iMessage
    set targetBuddy to participant "%s" of targetService
    send "%s" to targetBuddy
end tell`, escapeAppleScript(recipient), escapeAppleScript(text))
	return s.runScript(ctx, script)
}

func (s *sender) sendGroup(ctx context.Context, chatID, text string) error {
	escapedText := escapeAppleScript(text)
	escapedChat := escapeAppleScript(chatID)

	script := fmt.Sprintf(`tell application "Messages"
    set targetChat to a reference to chat id "%s"
    send "%s" to targetChat
end tell`, escapedChat, escapedText)
	if err := s.runScript(ctx, script); err == nil {
		return nil
	}

	// Fall back to scanning chats when the literal id lookup fails.
	logger.DebugC("imessage", "Retrying group send with chat scan")
	fallback := fmt.Sprintf(`tell application "Messages"
    set allChats to every chat
    repeat with aChat in allChats
        if id of aChat contains "%s" then
            send "%s" to aChat
            return
        end if
    end repeat
end tell`, escapedChat, escapedText)
	return s.runScript(ctx, fallback)
}

// available reports whether Messages.app is reachable via osascript.
func (s *sender) available(ctx context.Context) bool {
	script := `tell application "System Events"
    return exists application process "Messages"
end tell`
	return s.runScript(ctx, script) == nil
}

// escapeAppleScript makes text safe inside a double-quoted AppleScript
// string literal.
func escapeAppleScript(text string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	)
	return r.Replace(text)
}
