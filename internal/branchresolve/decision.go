package branchresolve

// DecisionState enumerates the states of a pending resolution.
type DecisionState int

// A decision starts awaiting acknowledgment only when the resolution blocked;
// it otherwise begins resolved.
const (
	DecisionStateAwaiting DecisionState = iota
	DecisionStateResolved
)

// Decision tracks user acknowledgment of a blocking warning. There is no
// automatic retry: the only transition is acknowledgment.
type Decision struct {
	resolution     Resolution
	state          DecisionState
	suppressionKey string
}

// NewDecision wraps a resolution in its acknowledgment state machine.
func NewDecision(resolution Resolution) *Decision {
	decisionState := DecisionStateResolved
	if !resolution.Proceed && resolution.Warning != nil {
		decisionState = DecisionStateAwaiting
	}
	return &Decision{resolution: resolution, state: decisionState}
}

// State reports the current decision state.
func (decision *Decision) State() DecisionState {
	return decision.state
}

// Resolution returns the underlying resolution.
func (decision *Decision) Resolution() Resolution {
	return decision.resolution
}

// Acknowledge records the user's response to a blocking warning and moves the
// decision to the resolved state. When suppressFutureWarnings is set and the
// warning is suppressible, the returned key names the settings flag the caller
// must persist.
func (decision *Decision) Acknowledge(suppressFutureWarnings bool) (string, bool) {
	if decision.state != DecisionStateAwaiting {
		return "", false
	}

	decision.state = DecisionStateResolved
	decision.resolution.Proceed = true

	if suppressFutureWarnings && decision.resolution.Warning != nil && decision.resolution.Warning.Suppressible() {
		decision.suppressionKey = decision.resolution.Warning.SuppressibleKey
		return decision.suppressionKey, true
	}

	return "", false
}
