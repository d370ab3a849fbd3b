package minirunner

import (
	"fmt"
	"time"
)

// State is the lifecycle state of a job. The only legal transitions are
// Pending → Runnable → Running → {Succeeded, Failed}, plus Aborted from
// Pending or Runnable when an upstream dependency fails.
type State string

const (
	// Pending means not all dependencies are terminal-successful yet.
	Pending State = "pending"
	// Runnable means every dependency succeeded (or was skipped under
	// resume) and the job is waiting for resources.
	Runnable State = "runnable"
	// Running means resources are allocated and the process is launched.
	Running State = "running"
	// Succeeded means the process exited successfully and every declared
	// output exists.
	Succeeded State = "succeeded"
	// Failed means the process exited with an error, or exited cleanly but
	// left a declared output missing.
	Failed State = "failed"
	// Aborted means the job was never launched because an ancestor failed.
	Aborted State = "aborted"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	switch s {
	case Succeeded, Failed, Aborted:
		return true
	}
	return false
}

// Job is a single executable unit: one stage instance bound to a command
// line, a resource request, and a lifecycle state. A job is owned
// exclusively by the runner for its lifetime; once terminal its state is
// frozen.
type Job struct {
	// Name identifies the job and names its log file.
	Name string
	// Command is the full shell command to execute.
	Command string
	// NodeCount and CoresPerNode form the resource request.
	NodeCount    int
	CoresPerNode int
	// Outputs are the declared output paths verified after a clean exit.
	Outputs []string

	state    State
	start    time.Time
	end      time.Time
	exitCode int
	logPath  string
	alloc    *Allocation
	proc     Process
}

// NewJob creates a pending job. A non-positive resource request is
// normalized to the minimal one-core shape.
func NewJob(name, command string, nodeCount, coresPerNode int, outputs []string) *Job {
	if nodeCount < 1 {
		nodeCount = 1
	}
	if coresPerNode < 1 {
		coresPerNode = 1
	}
	return &Job{
		Name:         name,
		Command:      command,
		NodeCount:    nodeCount,
		CoresPerNode: coresPerNode,
		Outputs:      outputs,
		state:        Pending,
		exitCode:     -1,
	}
}

// State returns the job's current lifecycle state.
func (j *Job) State() State { return j.state }

// ExitCode returns the process exit status, or -1 if the job never ran.
func (j *Job) ExitCode() int { return j.exitCode }

// LogPath returns the path of the job's combined stdout/stderr log, empty
// if the job never launched.
func (j *Job) LogPath() string { return j.logPath }

// Runtime returns how long the job ran, zero if it never started.
func (j *Job) Runtime() time.Duration {
	if j.start.IsZero() {
		return 0
	}
	if j.end.IsZero() {
		return time.Since(j.start)
	}
	return j.end.Sub(j.start)
}

func (j *Job) String() string {
	return fmt.Sprintf("<Job %s %s>", j.Name, j.state)
}

// setState enforces the frozen-once-terminal rule.
func (j *Job) setState(s State) {
	if j.state.Terminal() {
		panic(fmt.Sprintf("minirunner: job %s already terminal (%s), cannot become %s", j.Name, j.state, s))
	}
	j.state = s
}
