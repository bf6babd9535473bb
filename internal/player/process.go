package player

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
)

// playerProcess wraps an exec.Cmd for the external player binary.
type playerProcess struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}
	err    error
	stderr bytes.Buffer
}

// newPlayerProcess creates the process but does not start it. When stdin is
// non-nil the media is piped into the player.
func newPlayerProcess(ctx context.Context, path string, args []string, stdin io.Reader) *playerProcess {
	ctx2, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx2, path, args...)
	if stdin != nil {
		cmd.Stdin = stdin
	}
	return &playerProcess{
		cmd:    cmd,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (p *playerProcess) Start() error {
	p.cmd.Stdout = io.Discard
	p.cmd.Stderr = &p.stderr

	if err := p.cmd.Start(); err != nil {
		p.cancel()
		return err
	}
	go func() {
		p.err = p.cmd.Wait()
		close(p.done)
	}()
	return nil
}

// Stop cancels the process context, killing the player if still running.
func (p *playerProcess) Stop() {
	p.cancel()
}

// Wait blocks until the process exits.
func (p *playerProcess) Wait() error {
	<-p.done
	return p.err
}

// Done returns a channel closed when the process exits.
func (p *playerProcess) Done() <-chan struct{} {
	return p.done
}

func (p *playerProcess) IsDone() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Stderr returns the accumulated stderr output, for exit diagnostics.
func (p *playerProcess) Stderr() string {
	return strings.TrimSpace(p.stderr.String())
}
