package agent

import (
	"context"
	"time"

	"github.com/tinyland-inc/wingmate/pkg/logger"
	"github.com/tinyland-inc/wingmate/pkg/transport"
)

// Orchestrator ties the transports to the processor: it installs the
// pipeline as every transport's event handler, runs the transport
// lifecycle tasks, and routes outbound sends.
type Orchestrator struct {
	manager   *transport.Manager
	processor *Processor
}

func NewOrchestrator(manager *transport.Manager, processor *Processor) *Orchestrator {
	return &Orchestrator{manager: manager, processor: processor}
}

// Processor exposes the pipeline for the control plane.
func (o *Orchestrator) Processor() *Processor { return o.processor }

// Manager exposes the transport registry for the control plane.
func (o *Orchestrator) Manager() *transport.Manager { return o.manager }

// Run installs the pipeline handler on every registered transport and
// blocks until all transport tasks have returned, normally after ctx is
// cancelled.
func (o *Orchestrator) Run(ctx context.Context) {
	for _, platform := range o.manager.Platforms() {
		t, _ := o.manager.Get(platform)
		t.SetHandler(func(ctx context.Context, ev transport.Event) {
			o.processor.Process(ctx, ev)
		})
	}

	logger.InfoCF("agent", "Orchestrator running", map[string]any{
		"transports": o.manager.Platforms(),
	})
	o.manager.StartAll(ctx)
}

// Stop tears down every transport with a bounded grace period.
func (o *Orchestrator) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	o.manager.StopAll(ctx)
	logger.InfoC("agent", "Orchestrator stopped")
}

// Send routes a message out through the transport for a platform.
func (o *Orchestrator) Send(ctx context.Context, platform, chatID, text string) error {
	return o.manager.Send(ctx, platform, chatID, text)
}
