package remoteclient

import (
	"context"
	"net/http"

	"github.com/joshuabates/tina-daemon/internal/models"
)

// RegisterNode registers name/os/tokenHash with the remote store and
// returns the assigned node id. The auth token itself is never sent, only
// its hash — see internal/heartbeat.
func (c *Client) RegisterNode(ctx context.Context, name, os, tokenHash string) (string, error) {
	req := struct {
		Name        string `json:"name"`
		OS          string `json:"os"`
		HashedToken string `json:"hashed_token"`
	}{Name: name, OS: os, HashedToken: tokenHash}

	var resp struct {
		NodeID string `json:"node_id"`
	}
	if err := c.doJSON(ctx, "register_node", http.MethodPost, "/nodes/register", req, &resp); err != nil {
		return "", err
	}
	return resp.NodeID, nil
}

// Heartbeat emits a single keepalive for nodeID.
func (c *Client) Heartbeat(ctx context.Context, nodeID string) error {
	req := struct {
		NodeID string `json:"node_id"`
	}{NodeID: nodeID}
	return c.doJSON(ctx, "heartbeat", http.MethodPost, "/nodes/heartbeat", req, nil)
}

// UpsertOrchestrationArgs is the natural-keyed upsert payload for an
// orchestration header.
type UpsertOrchestrationArgs struct {
	NodeID  string `json:"node_id"`
	Feature string `json:"feature"`
	*models.Orchestration
}

// UpsertOrchestration idempotently upserts an orchestration header, keyed
// by (node_id, feature_name).
func (c *Client) UpsertOrchestration(ctx context.Context, args UpsertOrchestrationArgs) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, "upsert_orchestration", http.MethodPost, "/orchestrations/upsert", args, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// UpsertPhaseArgs is the natural-keyed upsert payload for a single phase.
type UpsertPhaseArgs struct {
	OrchestrationID string `json:"orchestration_id"`
	*models.Phase
}

// UpsertPhase idempotently upserts one phase, keyed by
// (orchestration_id, phase_number).
func (c *Client) UpsertPhase(ctx context.Context, args UpsertPhaseArgs) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, "upsert_phase", http.MethodPost, "/phases/upsert", args, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// UpsertTaskEventArgs is the natural-keyed upsert payload for a task
// snapshot, keyed by (orchestration_id, task_id).
type UpsertTaskEventArgs struct {
	OrchestrationID string `json:"orchestration_id"`
	*models.TaskEvent
}

// UpsertTaskEvent idempotently upserts the latest snapshot for a task.
func (c *Client) UpsertTaskEvent(ctx context.Context, args UpsertTaskEventArgs) error {
	return c.doJSON(ctx, "upsert_task_event", http.MethodPost, "/tasks/upsert", args, nil)
}

// UpsertTeamArgs is the upsert payload for a team registration.
type UpsertTeamArgs struct {
	Name          string `json:"name"`
	LeadSessionID string `json:"lead_session_id"`
}

// UpsertTeam idempotently upserts a team registration, keyed by name.
func (c *Client) UpsertTeam(ctx context.Context, args UpsertTeamArgs) error {
	return c.doJSON(ctx, "upsert_team", http.MethodPost, "/teams/upsert", args, nil)
}

// UpsertTeamMemberArgs is the upsert payload for a team member.
type UpsertTeamMemberArgs struct {
	TeamName string `json:"team_name"`
	*models.TeamMember
}

// UpsertTeamMember idempotently upserts one team member.
func (c *Client) UpsertTeamMember(ctx context.Context, args UpsertTeamMemberArgs) error {
	return c.doJSON(ctx, "upsert_team_member", http.MethodPost, "/team-members/upsert", args, nil)
}

// UpsertTerminalSessionArgs is the upsert payload for a terminal session,
// keyed by session_name.
type UpsertTerminalSessionArgs struct {
	*models.ActiveTerminalSession
}

// UpsertTerminalSession idempotently upserts one terminal session record.
func (c *Client) UpsertTerminalSession(ctx context.Context, args UpsertTerminalSessionArgs) error {
	return c.doJSON(ctx, "upsert_terminal_session", http.MethodPost, "/terminal-sessions/upsert", args, nil)
}

// ListActiveTerminalSessions returns every terminal session the remote
// store currently believes is active.
func (c *Client) ListActiveTerminalSessions(ctx context.Context) ([]models.ActiveTerminalSession, error) {
	var resp struct {
		Sessions []models.ActiveTerminalSession `json:"sessions"`
	}
	if err := c.doJSON(ctx, "list_active_terminal_sessions", http.MethodGet, "/terminal-sessions/active", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// ListTeamMembersWithPanes returns every team member that has a recorded
// tmux pane id.
func (c *Client) ListTeamMembersWithPanes(ctx context.Context) ([]models.TeamMemberWithPane, error) {
	var resp struct {
		Members []models.TeamMemberWithPane `json:"members"`
	}
	if err := c.doJSON(ctx, "list_team_members_with_panes", http.MethodGet, "/team-members/with-panes", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Members, nil
}

// MarkTerminalEnded records that sessionName's pane is no longer alive as
// of endedAtMs (unix milliseconds).
func (c *Client) MarkTerminalEnded(ctx context.Context, sessionName string, endedAtMs int64) error {
	req := struct {
		SessionName string `json:"session_name"`
		EndedAtMs   int64  `json:"ended_at_ms"`
	}{SessionName: sessionName, EndedAtMs: endedAtMs}
	return c.doJSON(ctx, "mark_terminal_ended", http.MethodPost, "/terminal-sessions/mark-ended", req, nil)
}

// ClaimResult is the outcome of a claim_action call.
type ClaimResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

// ClaimAction attempts to claim actionID for this node. Exactly one
// concurrent claimant across all nodes receives Success=true.
func (c *Client) ClaimAction(ctx context.Context, actionID string) (ClaimResult, error) {
	req := struct {
		ActionID string `json:"action_id"`
	}{ActionID: actionID}
	var result ClaimResult
	if err := c.doJSON(ctx, "claim_action", http.MethodPost, "/actions/claim", req, &result); err != nil {
		return ClaimResult{}, err
	}
	return result, nil
}

// CompleteAction reports the outcome of executing actionID.
func (c *Client) CompleteAction(ctx context.Context, actionID, resultMessage string, success bool) error {
	req := struct {
		ActionID      string `json:"action_id"`
		ResultMessage string `json:"result_message"`
		Success       bool   `json:"success"`
	}{ActionID: actionID, ResultMessage: resultMessage, Success: success}
	return c.doJSON(ctx, "complete_action", http.MethodPost, "/actions/complete", req, nil)
}
