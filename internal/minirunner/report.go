package minirunner

import (
	"time"

	"github.com/google/uuid"
)

// JobRecord is the frozen outcome of one job.
type JobRecord struct {
	Name     string
	State    State
	Start    time.Time
	End      time.Time
	ExitCode int
	LogPath  string
	// Skipped marks a job satisfied by resume rather than execution.
	Skipped bool
}

// Report is the outcome of a whole run: one record per job, in submission
// order. Overall success requires every job to have succeeded.
type Report struct {
	RunID   string
	Records []JobRecord
}

// NewReport creates an empty report with a fresh run identifier.
func NewReport() *Report {
	return &Report{RunID: uuid.NewString()}
}

// Success reports whether every job succeeded.
func (r *Report) Success() bool {
	for _, rec := range r.Records {
		if rec.State != Succeeded {
			return false
		}
	}
	return true
}

// Record returns the record for the named job.
func (r *Report) Record(name string) (JobRecord, bool) {
	for _, rec := range r.Records {
		if rec.Name == name {
			return rec, true
		}
	}
	return JobRecord{}, false
}
