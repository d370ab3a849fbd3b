package minirunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vk/stageflow/internal/ctxlog"
)

// ErrStalled reports a pass in which nothing was running and no transition
// was possible while non-terminal jobs remained. A correctly built graph
// cannot reach this state: it indicates an internal invariant violation
// (e.g. a job whose request exceeds the whole pool) and is fatal.
var ErrStalled = errors.New("minirunner: no job can make progress")

// Runner schedules submitted jobs against a resource pool with a
// single-threaded cooperative polling loop. Concurrency comes from the job
// processes themselves; the runner's own transitions never interleave.
type Runner struct {
	pool   *Pool
	logDir string

	jobs   []*Job
	byName map[string]*Job
	deps   map[string][]string

	resume   bool
	launch   LaunchFunc
	sleep    func(time.Duration)
	callback Callback
}

// Option customizes a Runner.
type Option func(*Runner)

// WithResume makes the pre-pass mark jobs whose declared outputs already
// exist as Succeeded without launching them.
func WithResume(resume bool) Option {
	return func(r *Runner) { r.resume = resume }
}

// WithLaunch replaces the process launcher. Tests use this to substitute
// deterministic fake processes.
func WithLaunch(launch LaunchFunc) Option {
	return func(r *Runner) { r.launch = launch }
}

// WithSleep replaces the between-pass sleep.
func WithSleep(sleep func(time.Duration)) Option {
	return func(r *Runner) { r.sleep = sleep }
}

// WithCallback installs a lifecycle event callback.
func WithCallback(cb Callback) Option {
	return func(r *Runner) { r.callback = cb }
}

// New creates a Runner over the given pool. Job logs are written under
// logDir as <name>.out.
func New(pool *Pool, logDir string, opts ...Option) *Runner {
	r := &Runner{
		pool:   pool,
		logDir: logDir,
		byName: make(map[string]*Job),
		deps:   make(map[string][]string),
		launch: launchShell,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Submit adds a job and the names of the jobs it depends on. Submission
// order is the tie-break order for resource grants and the record order in
// the report.
func (r *Runner) Submit(job *Job, deps ...string) error {
	if _, ok := r.byName[job.Name]; ok {
		return fmt.Errorf("minirunner: job '%s' submitted twice", job.Name)
	}
	r.jobs = append(r.jobs, job)
	r.byName[job.Name] = job
	r.deps[job.Name] = deps
	return nil
}

// Run drives every submitted job to a terminal state and returns the
// report. Job failures do not produce an error: they are recorded and
// cascade to dependents as Aborted. The error return is reserved for
// invariant violations (unknown dependencies, a stalled graph) and context
// cancellation; a partial report accompanies those too.
func (r *Runner) Run(ctx context.Context, interval time.Duration) (*Report, error) {
	logger := ctxlog.FromContext(ctx)

	for name, deps := range r.deps {
		for _, dep := range deps {
			if _, ok := r.byName[dep]; !ok {
				return r.report(), fmt.Errorf("minirunner: job '%s' depends on unknown job '%s'", name, dep)
			}
		}
	}

	if r.pool.TotalCores() == 0 && len(r.jobs) > 0 {
		return r.report(), fmt.Errorf("minirunner: resource pool is empty")
	}

	for _, job := range r.jobs {
		if !r.pool.CanEverFit(job.NodeCount, job.CoresPerNode) {
			return r.report(), fmt.Errorf("minirunner: job '%s' requests %d node(s) x %d core(s), more than the pool can ever provide: %w",
				job.Name, job.NodeCount, job.CoresPerNode, ErrStalled)
		}
	}

	if r.resume {
		r.skipCompleted(logger)
	}

	for {
		if err := ctx.Err(); err != nil {
			r.abortAll()
			return r.report(), err
		}

		transitioned := false

		// Step 1: promote Pending jobs whose predecessors all succeeded.
		for _, job := range r.jobs {
			if job.State() == Pending && r.predecessorsSucceeded(job) {
				job.setState(Runnable)
				transitioned = true
			}
		}

		// Step 2: cascade failure. Loop to a fixpoint so an abort
		// propagates transitively within a single pass.
		for changed := true; changed; {
			changed = false
			for _, job := range r.jobs {
				state := job.State()
				if (state == Pending || state == Runnable) && r.predecessorFailed(job) {
					job.setState(Aborted)
					r.emit(Event{Type: EventAborted, Job: job.Name, Time: time.Now(), Detail: "upstream dependency failed"})
					logger.Info("⤵️ Job aborted: upstream dependency failed.", "job", job.Name)
					changed = true
					transitioned = true
				}
			}
		}

		// Step 3: launch Runnable jobs for which resources are free, in
		// submission order (first seen, first served).
		for _, job := range r.jobs {
			if job.State() != Runnable {
				continue
			}
			alloc := r.pool.TryAcquire(job.NodeCount, job.CoresPerNode)
			if alloc == nil {
				continue
			}
			if err := r.start(ctx, job, alloc, logger); err != nil {
				// A job that cannot even start is a failed job, not a
				// scheduler crash.
				r.pool.Release(alloc)
				job.end = time.Now()
				job.setState(Failed)
				r.emit(Event{Type: EventFailed, Job: job.Name, Time: job.end, Detail: err.Error()})
				logger.Error("Job failed to launch.", "job", job.Name, "error", err)
			}
			transitioned = true
		}

		// Step 4: poll running jobs with a non-blocking exit check.
		for _, job := range r.jobs {
			if job.State() != Running {
				continue
			}
			done, code := job.proc.Poll()
			if !done {
				continue
			}
			r.finish(job, code, logger)
			transitioned = true
		}

		if r.allTerminal() {
			report := r.report()
			detail := "success"
			if !report.Success() {
				detail = "failure"
			}
			r.emit(Event{Type: EventCompleted, Time: time.Now(), Detail: detail})
			return report, nil
		}

		// With nothing running and nothing changed, no later pass can ever
		// differ: the graph is stalled.
		if !transitioned && !r.anyRunning() {
			r.abortAll()
			return r.report(), ErrStalled
		}

		// Step 5: the only suspension point. Skipped when a transition
		// occurred, so progress is never delayed by the poll interval.
		if !transitioned {
			r.sleep(interval)
		}
	}
}

// skipCompleted is the resume pre-pass: a job whose declared outputs all
// exist is marked Succeeded without launching.
func (r *Runner) skipCompleted(logger *slog.Logger) {
	for _, job := range r.jobs {
		if len(job.Outputs) == 0 || !outputsExist(job.Outputs) {
			continue
		}
		job.setState(Succeeded)
		job.exitCode = 0
		r.emit(Event{Type: EventSkipped, Job: job.Name, Time: time.Now(), Detail: "outputs already exist"})
		logger.Info("⏭️ Job skipped: outputs already exist.", "job", job.Name)
	}
}

func (r *Runner) start(ctx context.Context, job *Job, alloc *Allocation, logger *slog.Logger) error {
	logPath := filepath.Join(r.logDir, job.Name+".out")
	proc, err := r.launch(ctx, job, logPath)
	if err != nil {
		return err
	}

	job.proc = proc
	job.alloc = alloc
	job.logPath = logPath
	job.start = time.Now()
	job.setState(Running)
	r.emit(Event{Type: EventLaunched, Job: job.Name, Time: job.start, Detail: job.Command})
	logger.Info("▶️ Executing job.", "job", job.Name, "nodes", alloc.Nodes(), "log", logPath)
	return nil
}

// finish applies the exit rules: success status AND all declared outputs
// present means Succeeded; anything else means Failed. Resources are
// released in both cases.
func (r *Runner) finish(job *Job, code int, logger *slog.Logger) {
	job.end = time.Now()
	job.exitCode = code
	r.pool.Release(job.alloc)
	job.alloc = nil

	switch {
	case code != 0:
		job.setState(Failed)
		r.emit(Event{Type: EventFailed, Job: job.Name, Time: job.end, Detail: fmt.Sprintf("exit status %d", code)})
		logger.Info("❌ Job failed.", "job", job.Name, "exit_code", code, "runtime", job.Runtime())
	case !outputsExist(job.Outputs):
		job.setState(Failed)
		r.emit(Event{Type: EventFailed, Job: job.Name, Time: job.end, Detail: "declared output missing after clean exit"})
		logger.Info("❌ Job failed: declared output missing after clean exit.", "job", job.Name)
	default:
		job.setState(Succeeded)
		r.emit(Event{Type: EventSucceeded, Job: job.Name, Time: job.end, Detail: fmt.Sprintf("runtime %s", job.Runtime())})
		logger.Info("✅ Job completed successfully.", "job", job.Name, "runtime", job.Runtime())
	}
}

// abortAll tears the run down: running processes are killed, and every
// non-terminal job is frozen as Aborted.
func (r *Runner) abortAll() {
	for _, job := range r.jobs {
		if job.State() == Running {
			_ = job.proc.Kill()
			r.pool.Release(job.alloc)
			job.alloc = nil
			job.end = time.Now()
			job.setState(Failed)
			r.emit(Event{Type: EventFailed, Job: job.Name, Time: job.end, Detail: "killed during teardown"})
			continue
		}
		if !job.State().Terminal() {
			job.setState(Aborted)
			r.emit(Event{Type: EventAborted, Job: job.Name, Time: time.Now(), Detail: "run torn down"})
		}
	}
}

func (r *Runner) predecessorsSucceeded(job *Job) bool {
	for _, dep := range r.deps[job.Name] {
		if r.byName[dep].State() != Succeeded {
			return false
		}
	}
	return true
}

func (r *Runner) predecessorFailed(job *Job) bool {
	for _, dep := range r.deps[job.Name] {
		switch r.byName[dep].State() {
		case Failed, Aborted:
			return true
		}
	}
	return false
}

func (r *Runner) allTerminal() bool {
	for _, job := range r.jobs {
		if !job.State().Terminal() {
			return false
		}
	}
	return true
}

func (r *Runner) anyRunning() bool {
	for _, job := range r.jobs {
		if job.State() == Running {
			return true
		}
	}
	return false
}

func (r *Runner) emit(e Event) {
	if r.callback != nil {
		r.callback(e)
	}
}

// report freezes the current state of every job into a Report.
func (r *Runner) report() *Report {
	report := NewReport()
	for _, job := range r.jobs {
		report.Records = append(report.Records, JobRecord{
			Name:     job.Name,
			State:    job.State(),
			Start:    job.start,
			End:      job.end,
			ExitCode: job.exitCode,
			LogPath:  job.logPath,
			Skipped:  job.State() == Succeeded && job.start.IsZero(),
		})
	}
	return report
}

func outputsExist(paths []string) bool {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}
