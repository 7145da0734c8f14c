package workflow

import (
	"fmt"

	"github.com/huhu-tiger/reportgen/internal/ingest"
	"github.com/huhu-tiger/reportgen/models"
)

// EventKind names the lifecycle stages a run reports.
type EventKind string

const (
	// EventPlanReady carries the accepted keyword plan.
	EventPlanReady EventKind = "plan_ready"
	// EventCorpusProgress carries raw per-keyword result counts.
	EventCorpusProgress EventKind = "corpus_progress"
	// EventReportDelta carries one streamed fragment of the first draft.
	EventReportDelta EventKind = "report_delta"
	// EventReportReady carries the authoritative report and its corpus.
	EventReportReady EventKind = "report_ready"
	// EventRunError terminates the run with a classified error.
	EventRunError EventKind = "run_error"
	// EventRunCancelled terminates the run after caller cancellation.
	EventRunCancelled EventKind = "run_cancelled"
)

// Event is one entry in a run's event stream. RunID and Kind are always set;
// the payload fields are populated per kind. ReportReady, RunError and
// RunCancelled are terminal.
type Event struct {
	Kind  EventKind
	RunID string

	Plan      *models.KeywordPlan
	Progress  *ingest.Progress
	Delta     string
	Report    string
	Corpus    *models.RunCorpus
	FromCache bool
	Err       *RunError
}

// Terminal reports whether the kind ends a run's event stream.
func (k EventKind) Terminal() bool {
	switch k {
	case EventReportReady, EventRunError, EventRunCancelled:
		return true
	}
	return false
}

// Error kinds carried by RunError.
const (
	ErrKindPlanner   = "planner"
	ErrKindConfig    = "config"
	ErrKindSynthesis = "synthesis"
	ErrKindInternal  = "internal"
)

// RunError is a terminal run failure tagged with the stage family that
// produced it.
type RunError struct {
	Kind string
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
