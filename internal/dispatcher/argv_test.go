package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuabates/tina-daemon/internal/models"
)

func TestBuildArgvApprovePlan(t *testing.T) {
	argv, err := BuildArgv(models.ActionApprovePlan, models.InboundActionPayload{Feature: "auth", Phase: "1"})
	require.NoError(t, err)
	require.Equal(t, []string{"orchestrate", "advance", "auth", "1", "review_pass"}, argv)
}

func TestBuildArgvRejectPlanWithFeedback(t *testing.T) {
	argv, err := BuildArgv(models.ActionRejectPlan, models.InboundActionPayload{
		Feature: "auth", Phase: "2", Feedback: "needs error handling",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"orchestrate", "advance", "auth", "2", "review_gaps", "--issues", "needs error handling"}, argv)
}

func TestBuildArgvRejectPlanWithoutFeedback(t *testing.T) {
	argv, err := BuildArgv(models.ActionRejectPlan, models.InboundActionPayload{Feature: "auth", Phase: "2"})
	require.NoError(t, err)
	require.Equal(t, []string{"orchestrate", "advance", "auth", "2", "review_gaps"}, argv)
}

func TestBuildArgvRejectPlanUsesIssuesField(t *testing.T) {
	argv, err := BuildArgv(models.ActionRejectPlan, models.InboundActionPayload{
		Feature: "auth", Phase: "2", Issues: "lint failures",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"orchestrate", "advance", "auth", "2", "review_gaps", "--issues", "lint failures"}, argv)
}

func TestBuildArgvPause(t *testing.T) {
	argv, err := BuildArgv(models.ActionPause, models.InboundActionPayload{Feature: "auth", Phase: "3"})
	require.NoError(t, err)
	require.Equal(t, []string{"orchestrate", "advance", "auth", "3", "error", "--issues", "paused by operator"}, argv)
}

func TestBuildArgvResumeNoPhase(t *testing.T) {
	argv, err := BuildArgv(models.ActionResume, models.InboundActionPayload{Feature: "auth"})
	require.NoError(t, err)
	require.Equal(t, []string{"orchestrate", "next", "auth"}, argv)
}

func TestBuildArgvRetry(t *testing.T) {
	argv, err := BuildArgv(models.ActionRetry, models.InboundActionPayload{Feature: "auth", Phase: "1"})
	require.NoError(t, err)
	require.Equal(t, []string{"orchestrate", "advance", "auth", "1", "retry"}, argv)
}

func TestBuildArgvUnknownActionType(t *testing.T) {
	_, err := BuildArgv(models.ActionType("bogus"), models.InboundActionPayload{Feature: "auth"})
	require.Error(t, err)
}

func TestBuildArgvMissingFeature(t *testing.T) {
	_, err := BuildArgv(models.ActionApprovePlan, models.InboundActionPayload{Phase: "1"})
	require.Error(t, err)
}

func TestBuildArgvApprovePlanMissingPhase(t *testing.T) {
	_, err := BuildArgv(models.ActionApprovePlan, models.InboundActionPayload{Feature: "auth"})
	require.Error(t, err)
}
