// Wingmate - personal chat auto-reply agent

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/wingmate/cmd/wingmate/internal"
	"github.com/tinyland-inc/wingmate/cmd/wingmate/internal/ctl"
	"github.com/tinyland-inc/wingmate/cmd/wingmate/internal/gateway"
	"github.com/tinyland-inc/wingmate/cmd/wingmate/internal/onboard"
	"github.com/tinyland-inc/wingmate/cmd/wingmate/internal/send"
	"github.com/tinyland-inc/wingmate/cmd/wingmate/internal/status"
	"github.com/tinyland-inc/wingmate/cmd/wingmate/internal/version"
)

func NewWingmateCommand() *cobra.Command {
	short := fmt.Sprintf("%s wingmate - Personal Chat Auto-Reply v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "wingmate",
		Short:   short,
		Example: "wingmate gateway",
	}

	cmd.AddCommand(
		onboard.NewOnboardCommand(),
		gateway.NewGatewayCommand(),
		status.NewStatusCommand(),
		send.NewSendCommand(),
		ctl.NewPauseCommand(),
		ctl.NewResumeCommand(),
		ctl.NewChatsCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewWingmateCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
