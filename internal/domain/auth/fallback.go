package auth

import "strings"

// Phase is a state of the profile fallback cycle.
type Phase string

const (
	PhaseTryingAdmin       Phase = "TRYING_ADMIN"
	PhaseTryingResponsable Phase = "TRYING_RESPONSABLE"
	PhaseTryingEvaluador   Phase = "TRYING_EVALUADOR"
	PhaseResolved          Phase = "RESOLVED"
	PhaseFailed            Phase = "FAILED"
)

// Outcome is the result of one profile endpoint attempt.
type Outcome int

const (
	// OutcomeResolved means the endpoint accepted the token and returned a profile.
	OutcomeResolved Outcome = iota
	// OutcomeRejected means the endpoint answered 401/419 for this token.
	OutcomeRejected
	// OutcomeFailed means a transport, server or payload failure.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var phaseByKind = map[Kind]Phase{
	KindAdmin:       PhaseTryingAdmin,
	KindResponsable: PhaseTryingResponsable,
	KindEvaluador:   PhaseTryingEvaluador,
}

var kindByPhase = map[Phase]Kind{
	PhaseTryingAdmin:       KindAdmin,
	PhaseTryingResponsable: KindResponsable,
	PhaseTryingEvaluador:   KindEvaluador,
}

// FallbackState is an immutable value of the fallback cycle.
// Transitions happen only through Next.
type FallbackState struct {
	Phase Phase
	// Exhausted is set when the cycle failed because every kind was rejected.
	Exhausted bool
	attempted []Kind
	resolved  Kind
}

// StartFallback returns the initial state, trying hint first.
// An invalid hint starts the cycle at ADMIN.
func StartFallback(hint Kind) FallbackState {
	if !hint.Valid() {
		hint = KindAdmin
	}
	return FallbackState{Phase: phaseByKind[hint]}
}

// Current returns the kind under trial, or false in a terminal state.
func (s FallbackState) Current() (Kind, bool) {
	k, ok := kindByPhase[s.Phase]
	return k, ok
}

// Terminal reports whether the cycle has finished.
func (s FallbackState) Terminal() bool {
	return s.Phase == PhaseResolved || s.Phase == PhaseFailed
}

// Attempted reports whether k has already been tried.
func (s FallbackState) Attempted(k Kind) bool {
	for _, a := range s.attempted {
		if a == k {
			return true
		}
	}
	return false
}

// Attempts returns the kinds tried so far, in order.
func (s FallbackState) Attempts() []Kind {
	return append([]Kind(nil), s.attempted...)
}

// Resolved returns the winning kind once the cycle is RESOLVED.
func (s FallbackState) Resolved() (Kind, bool) {
	return s.resolved, s.Phase == PhaseResolved
}

func (s FallbackState) String() string {
	parts := make([]string, 0, len(s.attempted))
	for _, k := range s.attempted {
		parts = append(parts, string(k))
	}
	return string(s.Phase) + "[" + strings.Join(parts, ",") + "]"
}

// Next is the pure transition function of the fallback cycle.
// Terminal states are absorbing.
func Next(s FallbackState, o Outcome) FallbackState {
	current, ok := s.Current()
	if !ok {
		return s
	}

	next := FallbackState{
		Phase:     s.Phase,
		attempted: append(append([]Kind(nil), s.attempted...), current),
	}

	switch o {
	case OutcomeResolved:
		next.Phase = PhaseResolved
		next.resolved = current
	case OutcomeRejected:
		if k, found := nextUntried(current, next); found {
			next.Phase = phaseByKind[k]
		} else {
			next.Phase = PhaseFailed
			next.Exhausted = true
		}
	default:
		next.Phase = PhaseFailed
	}
	return next
}

// nextUntried walks the fixed cycle ADMIN → RESPONSABLE → EVALUADOR → ADMIN
// starting after from and returns the first kind not yet attempted.
func nextUntried(from Kind, s FallbackState) (Kind, bool) {
	cycle := Kinds()
	start := 0
	for i, k := range cycle {
		if k == from {
			start = i
			break
		}
	}
	for step := 1; step < len(cycle); step++ {
		k := cycle[(start+step)%len(cycle)]
		if !s.Attempted(k) {
			return k, true
		}
	}
	return "", false
}
