package panereconciler

import (
	"context"
	"log/slog"
	"time"

	"github.com/joshuabates/tina-daemon/internal/models"
)

// remoteStore is the subset of internal/remoteclient.Client this package
// needs, declared locally so tests can substitute a fake (accept
// interfaces, return structs).
type remoteStore interface {
	ListActiveTerminalSessions(ctx context.Context) ([]models.ActiveTerminalSession, error)
	ListTeamMembersWithPanes(ctx context.Context) ([]models.TeamMemberWithPane, error)
	MarkTerminalEnded(ctx context.Context, sessionName string, endedAtMs int64) error
}

// Result is the per-run reconciliation outcome, returned and logged.
type Result struct {
	SessionsEnded        int
	MembersWithDeadPanes int
}

// SessionsToEnd returns every remote active session whose pane is not in
// the alive set.
func SessionsToEnd(sessions []models.ActiveTerminalSession, alive map[string]struct{}) []models.ActiveTerminalSession {
	var dead []models.ActiveTerminalSession
	for _, s := range sessions {
		if _, ok := alive[s.PaneID]; !ok {
			dead = append(dead, s)
		}
	}
	return dead
}

// MembersWithDeadPanes returns every remote team member whose pane is not
// in the alive set. These are purely informational: callers log, never
// mutate.
func MembersWithDeadPanes(members []models.TeamMemberWithPane, alive map[string]struct{}) []models.TeamMemberWithPane {
	var dead []models.TeamMemberWithPane
	for _, m := range members {
		if _, ok := alive[m.PaneID]; !ok {
			dead = append(dead, m)
		}
	}
	return dead
}

// Reconcile runs one full pane-liveness sweep: query the multiplexer, diff
// against remote active sessions and members, end stale sessions, and log
// stale member references without modifying them.
func Reconcile(ctx context.Context, remote remoteStore, logger *slog.Logger) (Result, error) {
	panes, err := ListTmuxPanesBlocking(ctx)
	if err != nil {
		if lqe, ok := err.(*models.LivenessQueryError); ok && lqe.Kind == models.LivenessQueryNotInstalled {
			return Result{}, err
		}
		// Any other failure shape also aborts the sweep; only the
		// not-running stderr-marker case is folded into an empty alive set
		// by ListTmuxPanesBlocking itself (returned as nil, nil).
		return Result{}, err
	}
	alive := AlivePaneIDs(panes)

	sessions, err := remote.ListActiveTerminalSessions(ctx)
	if err != nil {
		return Result{}, err
	}
	dead := SessionsToEnd(sessions, alive)
	now := time.Now().UnixMilli()
	for _, s := range dead {
		if err := remote.MarkTerminalEnded(ctx, s.SessionName, now); err != nil {
			logger.Warn("mark terminal ended failed", slog.String("session", s.SessionName), slog.Any("error", err))
			continue
		}
		logger.Info("terminal session ended", slog.String("session", s.SessionName), slog.String("pane_id", s.PaneID))
	}

	members, err := remote.ListTeamMembersWithPanes(ctx)
	if err != nil {
		return Result{}, err
	}
	staleMembers := MembersWithDeadPanes(members, alive)
	for _, m := range staleMembers {
		logger.Info("team member has a dead pane",
			slog.String("team", m.TeamName), slog.String("agent_id", m.AgentID), slog.String("pane_id", m.PaneID))
	}

	result := Result{SessionsEnded: len(dead), MembersWithDeadPanes: len(staleMembers)}
	logger.Info("pane reconciliation complete",
		slog.Int("sessions_ended", result.SessionsEnded),
		slog.Int("members_with_dead_panes", result.MembersWithDeadPanes))
	return result, nil
}
