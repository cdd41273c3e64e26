// Package progress tracks the stage and percentage of a long-running
// generation job.
package progress

import (
	"github.com/codeready-toolchain/drafter/pkg/models"
)

// State is the tracker's lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateErrored State = "errored"
)

// Tracker is the generation state machine:
//
//	Idle ──started──▶ Running ──completed──▶ Idle (percent 100)
//	                     └─────error──────▶ Errored (percent unchanged)
//
// Reported percentages are clamped to [0,100] and never move backwards within
// one run. Not safe for concurrent use.
type Tracker struct {
	state   State
	stage   string
	percent int
	lastErr string
}

// NewTracker returns an Idle tracker.
func NewTracker() *Tracker {
	return &Tracker{state: StateIdle}
}

// Start begins a new run with no stage and 0%.
func (t *Tracker) Start() {
	t.state = StateRunning
	t.stage = ""
	t.percent = 0
	t.lastErr = ""
}

// Update records a progress report. A report arriving while not Running
// starts a run implicitly. It returns false when the percentage was a
// regression and was therefore not applied; the stage is updated regardless.
func (t *Tracker) Update(stage string, percent int) bool {
	if t.state != StateRunning {
		t.Start()
	}
	if stage != "" {
		t.stage = stage
	}
	percent = clamp(percent)
	if percent < t.percent {
		return false
	}
	t.percent = percent
	return true
}

// Complete finishes the run successfully.
func (t *Tracker) Complete() {
	t.state = StateIdle
	t.percent = 100
}

// Fail finishes the run with an error. Percent is left where it was.
func (t *Tracker) Fail(message string) {
	t.state = StateErrored
	t.lastErr = message
}

// Reset returns to Idle with no stage.
func (t *Tracker) Reset() {
	*t = Tracker{state: StateIdle}
}

// State returns the lifecycle state.
func (t *Tracker) State() State {
	return t.state
}

// LastError returns the message of the last failed run.
func (t *Tracker) LastError() string {
	return t.lastErr
}

// Snapshot returns the view rendered by the UI.
func (t *Tracker) Snapshot() models.GenerationProgress {
	return models.GenerationProgress{
		Stage:    t.stage,
		Percent:  t.percent,
		IsActive: t.state == StateRunning,
	}
}

func clamp(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
