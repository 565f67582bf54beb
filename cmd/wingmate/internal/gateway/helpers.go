package gateway

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tinyland-inc/wingmate/cmd/wingmate/internal"
	"github.com/tinyland-inc/wingmate/pkg/agent"
	"github.com/tinyland-inc/wingmate/pkg/config"
	"github.com/tinyland-inc/wingmate/pkg/heartbeat"
	"github.com/tinyland-inc/wingmate/pkg/logger"
	"github.com/tinyland-inc/wingmate/pkg/policy"
	"github.com/tinyland-inc/wingmate/pkg/providers"
	"github.com/tinyland-inc/wingmate/pkg/registry"
	"github.com/tinyland-inc/wingmate/pkg/rpc"
	"github.com/tinyland-inc/wingmate/pkg/store"
	"github.com/tinyland-inc/wingmate/pkg/transport"
	"github.com/tinyland-inc/wingmate/pkg/transport/discord"
	"github.com/tinyland-inc/wingmate/pkg/transport/imessage"
	"github.com/tinyland-inc/wingmate/pkg/transport/whatsapp"
)

func gatewayCmd(debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	messageStore, err := store.Open(cfg.Paths.Database)
	if err != nil {
		return fmt.Errorf("error opening message store: %w", err)
	}
	defer messageStore.Close()

	provider, err := providers.New(cfg.Provider)
	if err != nil {
		return fmt.Errorf("error creating provider: %w", err)
	}

	contacts, err := registry.NewContactRegistry(cfg.Paths.Contacts)
	if err != nil {
		return fmt.Errorf("error loading contacts: %w", err)
	}
	defer contacts.Close()

	groups, err := registry.NewGroupRegistry(cfg.Paths.Groups)
	if err != nil {
		return fmt.Errorf("error loading groups: %w", err)
	}
	defer groups.Close()

	evaluator, err := policy.LoadEvaluator(cfg.Paths.Rules, cfg.Bot.Name)
	if err != nil {
		return fmt.Errorf("error loading reply rules: %w", err)
	}

	state := agent.NewRuntimeState()

	manager := transport.NewManager()
	if err := registerTransports(manager, cfg, state); err != nil {
		return err
	}
	if len(manager.Platforms()) == 0 {
		return fmt.Errorf("no transports enabled, edit %s", internal.GetConfigPath())
	}
	fmt.Printf("✓ Transports enabled: %v\n", manager.Platforms())

	processor := agent.NewProcessor(agent.ProcessorOptions{
		Store:              messageStore,
		Provider:           provider,
		Contacts:           contacts,
		Groups:             groups,
		Evaluator:          evaluator,
		State:              state,
		Send:               manager.Send,
		BotName:            cfg.Bot.Name,
		Triggers:           cfg.Bot.Triggers,
		MaxRepliesPerHour:  cfg.Safety.MaxRepliesPerHour,
		DefaultCooldown:    time.Duration(cfg.Safety.CooldownSeconds) * time.Second,
		QuietStart:         cfg.Safety.QuietHoursStart,
		QuietEnd:           cfg.Safety.QuietHoursEnd,
		QuietEnabled:       cfg.Safety.QuietHoursEnabled,
		ContextWindow:      cfg.Agent.ContextWindow,
		SkipIfLastFromSelf: cfg.Safety.SkipIfLastFromSelf,
	})
	orchestrator := agent.NewOrchestrator(manager, processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rpcServer := rpc.NewServer(cfg.Paths.Socket)
	service := &rpc.Service{
		State:        state,
		Orchestrator: orchestrator,
		Store:        messageStore,
		BotName:      cfg.Bot.Name,
		Model:        cfg.Provider.Model,
	}
	service.RegisterAll(rpcServer)
	go func() {
		if err := rpcServer.Start(ctx); err != nil {
			logger.ErrorCF("rpc", "Control socket failed", map[string]any{"error": err.Error()})
		}
	}()
	fmt.Printf("✓ Control socket at %s\n", cfg.Paths.Socket)

	if cfg.Heartbeat.Enabled {
		sweeper, err := heartbeat.NewSweeper(messageStore, cfg.Heartbeat.Schedule, cfg.Heartbeat.RetentionDays)
		if err != nil {
			return fmt.Errorf("error setting up history sweeper: %w", err)
		}
		go sweeper.Run(ctx)
		fmt.Println("✓ History sweeper started")
	}

	done := make(chan struct{})
	go func() {
		orchestrator.Run(ctx)
		close(done)
	}()
	fmt.Println("✓ Gateway started")
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
		fmt.Println("\nShutting down...")
	case <-done:
		fmt.Println("All transports stopped, shutting down...")
	}

	cancel()
	orchestrator.Stop()
	<-done
	fmt.Println("✓ Gateway stopped")

	return nil
}

func registerTransports(manager *transport.Manager, cfg *config.Config, state *agent.RuntimeState) error {
	if cfg.Transports.WhatsApp.Enabled {
		wa := whatsapp.New(whatsapp.Options{
			Command:   cfg.Transports.WhatsApp.Command,
			WorkDir:   cfg.Transports.WhatsApp.WorkDir,
			BridgeURL: cfg.Transports.WhatsApp.BridgeURL,
			OnSelfID: func(id string) {
				state.SetSelfID(transport.PlatformWhatsApp, id)
			},
		})
		if err := manager.Register(wa); err != nil {
			return fmt.Errorf("error registering whatsapp transport: %w", err)
		}
	}

	if cfg.Transports.IMessage.Enabled {
		im := imessage.New(imessage.Options{
			DBPath:       cfg.Transports.IMessage.DBPath,
			PollInterval: time.Duration(cfg.Transports.IMessage.PollInterval) * time.Second,
		})
		if err := manager.Register(im); err != nil {
			return fmt.Errorf("error registering imessage transport: %w", err)
		}
	}

	if cfg.Transports.Discord.Enabled {
		dc, err := discord.New(discord.Options{
			Token:     cfg.Transports.Discord.Token,
			BotName:   cfg.Bot.Name,
			AllowFrom: cfg.Transports.Discord.AllowFrom,
			OnSelfID: func(id string) {
				state.SetSelfID(transport.PlatformDiscord, id)
			},
		})
		if err != nil {
			return fmt.Errorf("error creating discord transport: %w", err)
		}
		if err := manager.Register(dc); err != nil {
			return fmt.Errorf("error registering discord transport: %w", err)
		}
	}

	return nil
}
