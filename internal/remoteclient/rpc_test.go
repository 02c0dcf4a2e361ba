package remoteclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuabates/tina-daemon/internal/models"
)

func jsonServer(t *testing.T, wantPath, wantMethod string, respond func(body []byte) (int, string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, wantPath, r.URL.Path)
		require.Equal(t, wantMethod, r.Method)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		status, payload := respond(body)
		w.WriteHeader(status)
		w.Write([]byte(payload))
	}))
}

func TestRegisterNodeReturnsAssignedID(t *testing.T) {
	srv := jsonServer(t, "/nodes/register", http.MethodPost, func(body []byte) (int, string) {
		var req struct {
			Name        string `json:"name"`
			OS          string `json:"os"`
			HashedToken string `json:"hashed_token"`
		}
		require.NoError(t, json.Unmarshal(body, &req))
		require.Equal(t, "laptop", req.Name)
		require.Equal(t, "linux", req.OS)
		return http.StatusOK, `{"node_id":"node-7"}`
	})
	defer srv.Close()

	c := New(srv.URL, "token")
	nodeID, err := c.RegisterNode(context.Background(), "laptop", "linux", "hash")
	require.NoError(t, err)
	require.Equal(t, "node-7", nodeID)
}

func TestHeartbeatSendsNodeID(t *testing.T) {
	srv := jsonServer(t, "/nodes/heartbeat", http.MethodPost, func(body []byte) (int, string) {
		var req struct {
			NodeID string `json:"node_id"`
		}
		require.NoError(t, json.Unmarshal(body, &req))
		require.Equal(t, "node-7", req.NodeID)
		return http.StatusOK, ""
	})
	defer srv.Close()

	c := New(srv.URL, "token")
	require.NoError(t, c.Heartbeat(context.Background(), "node-7"))
}

func TestUpsertOrchestrationReturnsID(t *testing.T) {
	srv := jsonServer(t, "/orchestrations/upsert", http.MethodPost, func(body []byte) (int, string) {
		var req UpsertOrchestrationArgs
		require.NoError(t, json.Unmarshal(body, &req))
		require.Equal(t, "node-7", req.NodeID)
		require.Equal(t, "auth-rework", req.Feature)
		return http.StatusOK, `{"id":"orch-1"}`
	})
	defer srv.Close()

	c := New(srv.URL, "token")
	id, err := c.UpsertOrchestration(context.Background(), UpsertOrchestrationArgs{
		NodeID:        "node-7",
		Feature:       "auth-rework",
		Orchestration: &models.Orchestration{Feature: "auth-rework", TotalPhases: 5, CurrentPhase: 1},
	})
	require.NoError(t, err)
	require.Equal(t, "orch-1", id)
}

func TestClaimActionReturnsResult(t *testing.T) {
	srv := jsonServer(t, "/actions/claim", http.MethodPost, func(body []byte) (int, string) {
		var req struct {
			ActionID string `json:"action_id"`
		}
		require.NoError(t, json.Unmarshal(body, &req))
		require.Equal(t, "action-9", req.ActionID)
		return http.StatusOK, `{"success":true}`
	})
	defer srv.Close()

	c := New(srv.URL, "token")
	result, err := c.ClaimAction(context.Background(), "action-9")
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Empty(t, result.Reason)
}

func TestClaimActionLostRaceReportsReason(t *testing.T) {
	srv := jsonServer(t, "/actions/claim", http.MethodPost, func(body []byte) (int, string) {
		return http.StatusOK, `{"success":false,"reason":"already claimed"}`
	})
	defer srv.Close()

	c := New(srv.URL, "token")
	result, err := c.ClaimAction(context.Background(), "action-9")
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, "already claimed", result.Reason)
}

func TestCompleteActionSendsOutcome(t *testing.T) {
	srv := jsonServer(t, "/actions/complete", http.MethodPost, func(body []byte) (int, string) {
		var req struct {
			ActionID      string `json:"action_id"`
			ResultMessage string `json:"result_message"`
			Success       bool   `json:"success"`
		}
		require.NoError(t, json.Unmarshal(body, &req))
		require.Equal(t, "action-9", req.ActionID)
		require.True(t, req.Success)
		return http.StatusOK, ""
	})
	defer srv.Close()

	c := New(srv.URL, "token")
	require.NoError(t, c.CompleteAction(context.Background(), "action-9", "ok", true))
}

func TestListActiveTerminalSessionsParsesList(t *testing.T) {
	srv := jsonServer(t, "/terminal-sessions/active", http.MethodGet, func(body []byte) (int, string) {
		return http.StatusOK, `{"sessions":[{"session_name":"auth-alpha","pane_id":"%1"}]}`
	})
	defer srv.Close()

	c := New(srv.URL, "token")
	sessions, err := c.ListActiveTerminalSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, "auth-alpha", sessions[0].SessionName)
}

func TestUpsertTeamMemberSendsTeamNameAndMember(t *testing.T) {
	srv := jsonServer(t, "/team-members/upsert", http.MethodPost, func(body []byte) (int, string) {
		var req UpsertTeamMemberArgs
		require.NoError(t, json.Unmarshal(body, &req))
		require.Equal(t, "auth", req.TeamName)
		require.Equal(t, "agent-1", req.AgentID)
		return http.StatusOK, ""
	})
	defer srv.Close()

	c := New(srv.URL, "token")
	err := c.UpsertTeamMember(context.Background(), UpsertTeamMemberArgs{
		TeamName:   "auth",
		TeamMember: &models.TeamMember{AgentID: "agent-1"},
	})
	require.NoError(t, err)
}
