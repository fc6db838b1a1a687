package commander

// Outcome is how a single job ended. The queue sees every outcome as
// consumed; the distinction only feeds logs and tests.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeIgnored
	OutcomeRenderFailed
	OutcomeStoreFailed
	OutcomeEnqueueFailed
	OutcomeCrashed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeRenderFailed:
		return "render_failed"
	case OutcomeStoreFailed:
		return "store_failed"
	case OutcomeEnqueueFailed:
		return "enqueue_failed"
	case OutcomeCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// Result reports the command that ran and how it ended
type Result struct {
	Command string
	Outcome Outcome
	Err     error
}

// Failed reports whether an intended side effect was dropped
func (r Result) Failed() bool {
	return r.Outcome != OutcomeOK && r.Outcome != OutcomeIgnored
}
