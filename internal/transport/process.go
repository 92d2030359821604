package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/giantswarm/mcpcore/internal/api"
	"github.com/giantswarm/mcpcore/pkg/logging"
)

const subsystem = "Transport"

// DefaultStopGrace is how long Close waits for a process to exit on its own
// after stdin has been closed.
const DefaultStopGrace = 3 * time.Second

// maxStderrLine caps how much of a single stderr line is logged.
const maxStderrLine = 64 * 1024

// execCommand is a variable to allow mocking in tests
var execCommand = exec.Command

// ProcessConfig describes a server subprocess.
type ProcessConfig struct {
	// ServerID names the owning server in logs and errors.
	ServerID string
	// Command is the resolved executable path.
	Command string
	Args    []string
	// Env is the complete environment of the child, in KEY=VALUE form.
	Env []string
	Dir string
	// StopGrace bounds the graceful part of Close. Zero means DefaultStopGrace.
	StopGrace time.Duration
}

// Process is a Transport over the stdin/stdout of a child process. Lines the
// child writes to stderr are logged under "Server:<id>".
type Process struct {
	*Stream

	cfg  ProcessConfig
	cmd  *exec.Cmd
	done chan struct{}

	mu      sync.Mutex
	waitErr error

	closeOnce sync.Once
	closeErr  error
}

// StartProcess spawns the child and returns once it is running. The process
// is not tied to ctx; it lives until Close or until it exits.
func StartProcess(ctx context.Context, cfg ProcessConfig) (*Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Command == "" {
		return nil, api.NewTransportError(cfg.ServerID, "spawn", errors.New("empty command"))
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = DefaultStopGrace
	}

	cmd := execCommand(cfg.Command, cfg.Args...)
	cmd.Env = cfg.Env
	cmd.Dir = cfg.Dir
	configureProcAttr(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, api.NewTransportError(cfg.ServerID, "spawn", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, api.NewTransportError(cfg.ServerID, "spawn", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, api.NewTransportError(cfg.ServerID, "spawn", err)
	}

	logging.Debug(subsystem, "Starting %s %v for server %s", cfg.Command, cfg.Args, cfg.ServerID)
	if err := cmd.Start(); err != nil {
		return nil, api.NewTransportError(cfg.ServerID, "spawn", err)
	}

	p := &Process{
		cfg:  cfg,
		cmd:  cmd,
		done: make(chan struct{}),
	}

	var pipes sync.WaitGroup
	pipes.Add(1)
	go func() {
		defer pipes.Done()
		logStderr(cfg.ServerID, stderr)
	}()

	// os/exec requires all reads from the pipes to finish before Wait.
	stdoutDone := make(chan struct{})
	p.Stream = NewStream(&notifyReader{r: stdout, eof: stdoutDone}, stdin)

	go func() {
		pipes.Wait()
		select {
		case <-stdoutDone:
		case <-time.After(cfg.StopGrace):
		}
		err := cmd.Wait()
		p.mu.Lock()
		p.waitErr = err
		p.mu.Unlock()
		if err != nil {
			logging.Debug(subsystem, "Server %s process exited: %v", cfg.ServerID, err)
		} else {
			logging.Debug(subsystem, "Server %s process exited", cfg.ServerID)
		}
		close(p.done)
	}()

	return p, nil
}

// Pid returns the process id of the child.
func (p *Process) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Exited is closed once the child has been reaped.
func (p *Process) Exited() <-chan struct{} {
	return p.done
}

// ExitErr returns the error from waiting on the child, if it has exited.
func (p *Process) ExitErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waitErr
}

// Close closes stdin and waits for the child to exit. If it is still alive
// after the grace period, or when ctx expires first, the child is killed.
func (p *Process) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		_ = p.CloseWrite()

		timer := time.NewTimer(p.cfg.StopGrace)
		defer timer.Stop()

		select {
		case <-p.done:
		case <-timer.C:
			logging.Warn(subsystem, "Server %s did not exit within %s, killing it", p.cfg.ServerID, p.cfg.StopGrace)
			p.kill()
		case <-ctx.Done():
			p.kill()
		}
		_ = p.Stream.Close(ctx)
	})
	return p.closeErr
}

func (p *Process) kill() {
	if p.cmd.Process == nil {
		return
	}
	if err := killProcessGroup(p.cmd.Process.Pid); err != nil {
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.closeErr = api.NewTransportError(p.cfg.ServerID, "kill", err)
			return
		}
	}
	<-p.done
}

// logStderr logs the child's stderr line by line until the pipe closes.
// Overlong lines are logged truncated; the pipe is always drained so the
// child never blocks on a stderr write.
func logStderr(serverID string, r io.Reader) {
	br := bufio.NewReaderSize(r, maxStderrLine)
	name := fmt.Sprintf("Server:%s", serverID)
	for {
		line, isPrefix, err := br.ReadLine()
		if err != nil {
			return
		}
		if !isPrefix {
			logging.Debug(name, "%s", line)
			continue
		}
		logging.Debug(name, "%s [truncated]", line)
		for isPrefix {
			if _, isPrefix, err = br.ReadLine(); err != nil {
				return
			}
		}
	}
}

// notifyReader closes eof once the wrapped reader reports an error.
type notifyReader struct {
	r    io.Reader
	eof  chan struct{}
	once sync.Once
}

func (n *notifyReader) Read(p []byte) (int, error) {
	c, err := n.r.Read(p)
	if err != nil {
		n.once.Do(func() { close(n.eof) })
	}
	return c, err
}
