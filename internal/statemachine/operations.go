package statemachine

import (
	"fmt"
	"time"

	"github.com/joshuabates/tina-daemon/internal/models"
)

// Transition validates and applies from -> to on phase, recording the
// timing side effects spec.md §4.B assigns to entering each status. On
// rejection, phase is left completely unchanged.
func Transition(phase *models.Phase, to models.PhaseStatus, now time.Time, planPath string) error {
	if err := ValidateTransition(phase.Status, to); err != nil {
		return err
	}

	switch to {
	case models.PhaseStatusPlanning:
		t := now
		phase.PlanningStartedAt = &t
	case models.PhaseStatusPlanned:
		if phase.PlanningStartedAt != nil {
			setIfUnset(&phase.Breakdown.PlanningMins, minutesSince(*phase.PlanningStartedAt, now))
		}
		if planPath != "" {
			phase.PlanPath = planPath
		}
	case models.PhaseStatusExecuting:
		t := now
		phase.ExecutionStartedAt = &t
	case models.PhaseStatusReviewing:
		if phase.ExecutionStartedAt != nil {
			setIfUnset(&phase.Breakdown.ExecutionMins, minutesSince(*phase.ExecutionStartedAt, now))
		}
		t := now
		phase.ReviewStartedAt = &t
	}

	phase.Status = to
	return nil
}

// PhaseComplete is the phase-completion operation: it requires the phase be
// in Reviewing, finalizes its timing and git range, and advances the owning
// orchestration when the completed phase is an integer phase.
func PhaseComplete(o *models.Orchestration, phaseNumber string, now time.Time, gitRange string) error {
	phase, ok := o.Phases[phaseNumber]
	if !ok {
		return fmt.Errorf("phase %s not found in orchestration %s", phaseNumber, o.Feature)
	}
	if err := ValidateTransition(phase.Status, models.PhaseStatusComplete); err != nil {
		return err
	}
	if gitRange == "" {
		return fmt.Errorf("phase %s: git_range is required to complete a phase", phaseNumber)
	}

	if phase.ReviewStartedAt != nil {
		setIfUnset(&phase.Breakdown.ReviewMins, minutesSince(*phase.ReviewStartedAt, now))
	}
	if phase.PlanningStartedAt != nil {
		duration := minutesSince(*phase.PlanningStartedAt, now)
		phase.DurationMins = &duration
	}
	t := now
	phase.CompletedAt = &t
	phase.GitRange = gitRange
	phase.Status = models.PhaseStatusComplete

	isInteger, n, err := ParsePhaseNumber(phaseNumber, o.TotalPhases)
	if err != nil {
		return err
	}
	if isInteger {
		if n == o.TotalPhases {
			o.Status = models.OrchestrationStatusComplete
			o.CompletedAt = &t
		} else {
			o.CurrentPhase = n + 1
			o.Status = models.OrchestrationStatusPlanning
		}
	}
	// Remediation (decimal) phases never advance current_phase or status.

	return nil
}

// Blocked sets phase.Status = Blocked and the owning orchestration's status
// to blocked, without altering any timing field. It does not validate
// against the transition table the way Transition does: any in-flight
// status may be interrupted by a block.
func Blocked(o *models.Orchestration, phaseNumber string, reason string, now time.Time) error {
	phase, ok := o.Phases[phaseNumber]
	if !ok {
		return fmt.Errorf("phase %s not found in orchestration %s", phaseNumber, o.Feature)
	}
	phase.Status = models.PhaseStatusBlocked
	phase.BlockedReason = reason
	o.Status = models.OrchestrationStatusBlocked
	return nil
}
