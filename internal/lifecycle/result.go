package lifecycle

import (
	"errors"
	"time"

	"seqpoll/internal/runstatus"
)

// Outcome is the result of one conversion branch.
type Outcome int

const (
	OutcomeComplete Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComplete:
		return "complete"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status maps the outcome onto the conversion status vocabulary.
func (o Outcome) Status() runstatus.Status {
	switch o {
	case OutcomeSkipped:
		return runstatus.StatusSkipped
	case OutcomeFailed:
		return runstatus.StatusFailed
	default:
		return runstatus.StatusComplete
	}
}

// Combine returns the outcome of several branches: failed beats skipped,
// skipped beats complete.
func Combine(outcomes ...Outcome) Outcome {
	result := OutcomeComplete
	for _, o := range outcomes {
		if o > result {
			result = o
		}
	}
	return result
}

// StepResult records one sub-step of a branch.
type StepResult struct {
	Name     string
	Err      error
	Duration time.Duration
}

// OK reports whether the step succeeded.
func (s StepResult) OK() bool { return s.Err == nil }

// BranchResult is the composed outcome of a conversion branch.
type BranchResult struct {
	Name    string
	Outcome Outcome
	Steps   []StepResult
}

// Err joins the errors of failed steps.
func (b BranchResult) Err() error {
	var errs []error
	for _, step := range b.Steps {
		if step.Err != nil {
			errs = append(errs, step.Err)
		}
	}
	return errors.Join(errs...)
}

func (b *BranchResult) record(name string, started time.Time, err error) bool {
	b.Steps = append(b.Steps, StepResult{Name: name, Err: err, Duration: time.Since(started)})
	if err != nil {
		b.Outcome = OutcomeFailed
		return false
	}
	return true
}

// State is the lifecycle position derived from the store at the start of a pass.
type State string

const (
	StateDiscovered         State = "discovered"
	StateSequencingTerminal State = "sequencing_terminal"
	StateConversionPending  State = "conversion_pending"
	StateConversionTerminal State = "conversion_terminal"
)

// Disposition summarizes what a pass did.
type Disposition string

const (
	DispositionWaiting    Disposition = "waiting"    // sequencing not terminal
	DispositionRegistered Disposition = "registered" // register mode finished transition (a)
	DispositionIdle       Disposition = "idle"       // nothing applicable
	DispositionInvalid    Disposition = "invalid"    // malformed input, nothing written
	DispositionUnexpected Disposition = "unexpected" // unrecognized status value, nothing written
	DispositionComplete   Disposition = "complete"
	DispositionSkipped    Disposition = "skipped"
	DispositionFailed     Disposition = "failed"
)

// StatusWrite is one status mutation issued during a pass.
type StatusWrite struct {
	Category runstatus.Category
	Status   runstatus.Status
}

// PassResult describes one engine pass over a run.
type PassResult struct {
	Run         string
	State       State
	Sequencing  runstatus.Status
	Conversion  runstatus.Status
	Delivery    runstatus.DeliveryType
	Disposition Disposition
	Reason      string
	Writes      []StatusWrite
	Branches    []BranchResult
	Duration    time.Duration
}
