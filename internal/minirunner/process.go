package minirunner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Process is a launched job process observed by the scheduler. Poll must
// never block: the runner checks every running job once per pass.
type Process interface {
	// Poll reports whether the process has exited and, once it has, its
	// exit code. The exit code is only meaningful when done is true.
	Poll() (done bool, exitCode int)
	// Kill terminates the process. Used only when the whole run is being
	// torn down.
	Kill() error
}

// LaunchFunc starts the process for a job, writing its combined output to
// logPath. The runner's default launches through the shell; tests
// substitute deterministic fakes.
type LaunchFunc func(ctx context.Context, job *Job, logPath string) (Process, error)

// execProcess runs a job command via `sh -c`, collecting the exit status
// on a channel so Poll stays non-blocking.
type execProcess struct {
	cmd  *exec.Cmd
	log  *os.File
	done chan struct{}
	code int
}

// launchShell is the default LaunchFunc.
func launchShell(ctx context.Context, job *Job, logPath string) (Process, error) {
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("creating log file for job %s: %w", job.Name, err)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", job.Command)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("starting job %s: %w", job.Name, err)
	}

	p := &execProcess{cmd: cmd, log: logFile, done: make(chan struct{})}
	go p.wait()
	return p, nil
}

// wait collects the exit status in the background; the scheduler itself
// never blocks on the process.
func (p *execProcess) wait() {
	err := p.cmd.Wait()
	p.log.Close()

	switch {
	case err == nil:
		p.code = 0
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			p.code = exitErr.ExitCode()
		} else {
			p.code = -1
		}
	}
	close(p.done)
}

func (p *execProcess) Poll() (bool, int) {
	select {
	case <-p.done:
		return true, p.code
	default:
		return false, 0
	}
}

func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}
