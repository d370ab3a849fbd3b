package app

import (
	"fmt"
	"time"

	"github.com/gookit/color"

	"github.com/vk/stageflow/internal/minirunner"
)

// printSummary renders the per-job outcome table for a finished run.
func (a *App) printSummary(report *minirunner.Report) {
	color.Fprintf(a.outW, "\nRun <cyan>%s</> summary:\n", report.RunID)

	for _, rec := range report.Records {
		switch {
		case rec.Skipped:
			color.Fprintf(a.outW, "  <gray>⏭  %-24s skipped (outputs present)</>\n", rec.Name)
		case rec.State == minirunner.Succeeded:
			color.Fprintf(a.outW, "  <green>✅ %-24s succeeded</>  %s\n", rec.Name, runtime(rec))
		case rec.State == minirunner.Failed:
			detail := fmt.Sprintf("exit %d", rec.ExitCode)
			if rec.LogPath != "" {
				detail += "  log: " + rec.LogPath
			}
			color.Fprintf(a.outW, "  <red>❌ %-24s failed</>     %s\n", rec.Name, detail)
		case rec.State == minirunner.Aborted:
			color.Fprintf(a.outW, "  <yellow>🚫 %-24s aborted (upstream failure)</>\n", rec.Name)
		default:
			color.Fprintf(a.outW, "  %-24s %s\n", rec.Name, rec.State)
		}
	}

	if report.Success() {
		color.Fprintf(a.outW, "<green>Pipeline completed successfully.</>\n")
	} else {
		color.Fprintf(a.outW, "<red>Pipeline finished with failures.</>\n")
	}
}

// runtime formats a record's wall-clock duration, empty when unknown.
func runtime(rec minirunner.JobRecord) string {
	if rec.Start.IsZero() || rec.End.IsZero() {
		return ""
	}
	return rec.End.Sub(rec.Start).Round(time.Millisecond).String()
}
