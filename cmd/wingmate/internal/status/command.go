package status

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/wingmate/cmd/wingmate/internal"
	"github.com/tinyland-inc/wingmate/pkg/rpc"
)

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return statusCmd()
		},
	}
}

func statusCmd() error {
	client, err := internal.NewClient()
	if err != nil {
		return err
	}

	st, err := client.Status()
	if err != nil {
		if errors.Is(err, rpc.ErrDaemonNotRunning) {
			fmt.Println("wingmate is not running")
			fmt.Println("Start it with: wingmate gateway")
			return nil
		}
		return fmt.Errorf("error querying daemon: %w", err)
	}

	fmt.Printf("%s wingmate is running\n\n", internal.Logo)
	fmt.Printf("  Bot name:  %s\n", st.BotName)
	fmt.Printf("  Model:     %s\n", st.Model)
	fmt.Printf("  Uptime:    %s\n", formatUptime(st.Uptime))
	if st.Paused {
		if st.PauseUntil != nil {
			fmt.Printf("  Paused:    until %s\n", st.PauseUntil.Local().Format("15:04:05"))
		} else {
			fmt.Println("  Paused:    yes (until resumed)")
		}
	}
	fmt.Println("\n  Transports:")
	for platform, ts := range st.Transports {
		marker := "✗"
		if ts.Active {
			marker = "✓"
		}
		fmt.Printf("    %s %s\n", marker, platform)
	}

	return nil
}

func formatUptime(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	if d < time.Minute {
		return d.String()
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
