// Package dispatcher consumes the inbound action subscription, claims each
// action exactly-once, translates its payload into a fixed argv, runs the
// session CLI as a subprocess, and completes the action — spec §4.H.
package dispatcher

import (
	"fmt"

	"github.com/joshuabates/tina-daemon/internal/models"
)

// BuildArgv translates an action type and payload into the session CLI's
// argv tail, per the table in spec §4.H. feature is required for every
// action type; phase is required except for resume.
func BuildArgv(actionType models.ActionType, payload models.InboundActionPayload) ([]string, error) {
	if payload.Feature == "" {
		return nil, fmt.Errorf("missing feature in action payload")
	}

	switch actionType {
	case models.ActionApprovePlan:
		if payload.Phase == "" {
			return nil, fmt.Errorf("missing phase in action payload")
		}
		return []string{"orchestrate", "advance", payload.Feature, payload.Phase, "review_pass"}, nil

	case models.ActionRejectPlan:
		if payload.Phase == "" {
			return nil, fmt.Errorf("missing phase in action payload")
		}
		argv := []string{"orchestrate", "advance", payload.Feature, payload.Phase, "review_gaps"}
		if text := issuesText(payload); text != "" {
			argv = append(argv, "--issues", text)
		}
		return argv, nil

	case models.ActionPause:
		if payload.Phase == "" {
			return nil, fmt.Errorf("missing phase in action payload")
		}
		return []string{"orchestrate", "advance", payload.Feature, payload.Phase, "error", "--issues", "paused by operator"}, nil

	case models.ActionResume:
		return []string{"orchestrate", "next", payload.Feature}, nil

	case models.ActionRetry:
		if payload.Phase == "" {
			return nil, fmt.Errorf("missing phase in action payload")
		}
		return []string{"orchestrate", "advance", payload.Feature, payload.Phase, "retry"}, nil

	default:
		return nil, fmt.Errorf("unknown action type %q", actionType)
	}
}

// issuesText picks feedback if present, else issues, else empty (meaning:
// omit the --issues flag entirely).
func issuesText(payload models.InboundActionPayload) string {
	if payload.Feedback != "" {
		return payload.Feedback
	}
	return payload.Issues
}
