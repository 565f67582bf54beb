// Package ctl holds the small control-plane subcommands that talk to a
// running daemon over the unix socket.
package ctl

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/wingmate/cmd/wingmate/internal"
	"github.com/tinyland-inc/wingmate/pkg/rpc"
)

func NewPauseCommand() *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "pause",
		Short: "Pause auto-replies",
		Example: `  wingmate pause
  wingmate pause --for 2h`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			client, err := internal.NewClient()
			if err != nil {
				return err
			}
			if err := client.Pause(duration); err != nil {
				return daemonErr(err)
			}
			if duration > 0 {
				fmt.Printf("✓ Paused for %s\n", duration)
			} else {
				fmt.Println("✓ Paused until resumed")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&duration, "for", 0, "Pause duration (0 pauses until resume)")

	return cmd
}

func NewResumeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume auto-replies",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			client, err := internal.NewClient()
			if err != nil {
				return err
			}
			if err := client.Resume(); err != nil {
				return daemonErr(err)
			}
			fmt.Println("✓ Resumed")
			return nil
		},
	}
}

func NewChatsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List recently active chats",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			client, err := internal.NewClient()
			if err != nil {
				return err
			}
			chats, err := client.ListActiveChats(limit)
			if err != nil {
				return daemonErr(err)
			}
			if len(chats) == 0 {
				fmt.Println("No chats yet")
				return nil
			}
			for _, c := range chats {
				fmt.Printf("  %-10s %-40s %4d msgs  last %s\n",
					c.Platform, c.ChatID, c.MessageCount,
					c.LastActivity.Local().Format("Jan 2 15:04"))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum chats to list")

	return cmd
}

func daemonErr(err error) error {
	if errors.Is(err, rpc.ErrDaemonNotRunning) {
		return fmt.Errorf("wingmate is not running, start it with: wingmate gateway")
	}
	return err
}
