package send

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/wingmate/cmd/wingmate/internal"
	"github.com/tinyland-inc/wingmate/pkg/rpc"
)

func NewSendCommand() *cobra.Command {
	var platform string

	cmd := &cobra.Command{
		Use:   "send <chat-id> <text>",
		Short: "Send a message through the running daemon",
		Example: `  wingmate send 919812345678@s.whatsapp.net "running late, be there soon"
  wingmate send --platform imessage imessage:+15551234 "on my way"`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return sendCmd(platform, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&platform, "platform", "p", "whatsapp", "Target platform")

	return cmd
}

func sendCmd(platform, chatID, text string) error {
	client, err := internal.NewClient()
	if err != nil {
		return err
	}

	if err := client.SendMessage(platform, chatID, text); err != nil {
		if errors.Is(err, rpc.ErrDaemonNotRunning) {
			return fmt.Errorf("wingmate is not running, start it with: wingmate gateway")
		}
		return fmt.Errorf("error sending message: %w", err)
	}

	fmt.Println("✓ Message sent")
	return nil
}
