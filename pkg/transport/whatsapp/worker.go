package whatsapp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/tinyland-inc/wingmate/pkg/logger"
	"github.com/tinyland-inc/wingmate/pkg/transport/ipc"
)

const (
	shutdownWait  = 2 * time.Second
	terminateWait = 5 * time.Second
	killWait      = 2 * time.Second
)

// worker manages the bridge subprocess: piped stdio, a stderr drain, and
// the three-tier shutdown escalation.
type worker struct {
	command string
	workDir string

	cmd    *exec.Cmd
	stdout io.ReadCloser
	writer *ipc.Writer
	done   chan error
}

func newWorker(command, workDir string) *worker {
	return &worker{command: command, workDir: workDir}
}

// start spawns the subprocess and begins draining stderr.
func (w *worker) start() error {
	parts := strings.Fields(w.command)
	if len(parts) == 0 {
		return fmt.Errorf("empty worker command")
	}

	cmd := exec.Command(parts[0], parts[1:]...)
	cmd.Dir = w.workDir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open worker stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open worker stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}

	w.cmd = cmd
	w.stdout = stdout
	w.writer = ipc.NewWriter(stdin)
	w.done = make(chan error, 1)
	go func() { w.done <- cmd.Wait() }()
	go drainStderr(stderr)

	logger.InfoCF("whatsapp", "Bridge worker started", map[string]any{"pid": cmd.Process.Pid})
	return nil
}

// drainStderr logs the worker's diagnostic output. Lines that look like
// terminal QR block art are printed verbatim so the operator can scan
// them.
func drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.ContainsAny(line, "▄█▀=") {
			fmt.Println(line)
		} else {
			logger.DebugCF("whatsapp", "[bridge] "+line, nil)
		}
	}
}

func (w *worker) send(cmd ipc.Command) error {
	if w.writer == nil {
		return fmt.Errorf("worker not started")
	}
	return w.writer.WriteCommand(cmd)
}

func (w *worker) running() bool {
	if w.cmd == nil {
		return false
	}
	select {
	case err := <-w.done:
		// Keep the exit status readable for stop.
		w.done <- err
		return false
	default:
		return true
	}
}

// stop runs the escalation: shutdown command, then terminate signal, then
// kill. Every tier runs in order even when the previous one errors.
func (w *worker) stop(ctx context.Context) {
	if w.cmd == nil {
		return
	}

	logger.InfoC("whatsapp", "Stopping bridge worker")

	if err := w.send(ipc.Command{Action: "shutdown"}); err != nil {
		logger.WarnCF("whatsapp", "Failed to send shutdown command", map[string]any{"error": err.Error()})
	}
	if w.waitExit(shutdownWait) {
		logger.InfoC("whatsapp", "Bridge worker exited gracefully")
		return
	}

	logger.WarnC("whatsapp", "Bridge worker still running, terminating")
	if err := w.cmd.Process.Signal(syscallTerm); err != nil {
		logger.WarnCF("whatsapp", "Failed to signal worker", map[string]any{"error": err.Error()})
	}
	if w.waitExit(terminateWait) {
		return
	}

	logger.ErrorC("whatsapp", "Bridge worker did not terminate, killing")
	_ = w.cmd.Process.Kill()
	w.waitExit(killWait)
}

func (w *worker) waitExit(timeout time.Duration) bool {
	select {
	case err := <-w.done:
		w.done <- err
		return true
	case <-time.After(timeout):
		return false
	}
}
