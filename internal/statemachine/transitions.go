// Package statemachine implements the phase transition table, the timing
// bookkeeping that rides along every transition, and the two higher-level
// operations (phase completion, blocking) that compose transitions with
// orchestration-level side effects.
package statemachine

import "github.com/joshuabates/tina-daemon/internal/models"

// validTransitions is the exhaustive transition table. A phase status not
// present as a key has no valid outgoing transitions.
var validTransitions = map[models.PhaseStatus][]models.PhaseStatus{
	models.PhaseStatusPlanning: {models.PhaseStatusPlanned, models.PhaseStatusBlocked},
	models.PhaseStatusPlanned:  {models.PhaseStatusExecuting, models.PhaseStatusBlocked},
	models.PhaseStatusExecuting: {models.PhaseStatusReviewing, models.PhaseStatusBlocked},
	models.PhaseStatusReviewing: {models.PhaseStatusComplete, models.PhaseStatusBlocked},
	models.PhaseStatusComplete:  {},
	models.PhaseStatusBlocked: {
		models.PhaseStatusPlanning,
		models.PhaseStatusPlanned,
		models.PhaseStatusExecuting,
		models.PhaseStatusReviewing,
	},
}

// ValidTransition reports whether from -> to is an allowed transition.
func ValidTransition(from, to models.PhaseStatus) bool {
	for _, candidate := range validTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns an *models.InvalidTransitionError when from -> to
// is rejected, nil otherwise. Per spec invariant 1, a caller that receives a
// non-nil error must leave the phase unchanged.
func ValidateTransition(from, to models.PhaseStatus) error {
	if ValidTransition(from, to) {
		return nil
	}
	return &models.InvalidTransitionError{From: from, To: to}
}
