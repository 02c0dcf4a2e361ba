// Package sync drives the three incremental-sync operations spec §4.D
// names (Teams, Tasks, SupervisorState{feature}), each suppressing
// redundant remote upserts via the sync cache. The initial full sync at
// daemon start runs all three against every discovered entity.
package sync

import (
	"context"
	"log/slog"

	"github.com/joshuabates/tina-daemon/internal/localdb"
	"github.com/joshuabates/tina-daemon/internal/localfs"
	"github.com/joshuabates/tina-daemon/internal/models"
	"github.com/joshuabates/tina-daemon/internal/remoteclient"
	"github.com/joshuabates/tina-daemon/internal/synccache"
)

// Syncer composes the local filesystem, the sync cache, and the remote
// client into the three sync operations.
type Syncer struct {
	Remote *remoteclient.Client
	Cache  *synccache.Cache
	Logger *slog.Logger

	// Audit is optional; when set, every upsert attempt is mirrored to the
	// local audit cache on a best-effort basis.
	Audit *localdb.Audit

	NodeID      string
	TeamsDir    string
	TasksDir    string
	SessionsDir string
}

// SyncAll runs the synthetic "initial full sync" version of all three
// operations: every team, every task session directory, and every
// feature's supervisor state discoverable via the session lookup index.
func (s *Syncer) SyncAll(ctx context.Context) error {
	if err := s.SyncTeams(ctx); err != nil {
		return err
	}

	sessionDirs, err := localfs.ListTaskSessionDirs(s.TasksDir)
	if err != nil {
		return err
	}
	for _, dir := range sessionDirs {
		if err := s.SyncTasksForSession(ctx, dir); err != nil {
			s.Logger.Warn("sync tasks failed", slog.String("session", dir), slog.Any("error", err))
		}
	}

	lookups, err := localfs.ListSessionLookups(s.SessionsDir)
	if err != nil {
		return err
	}
	for _, lr := range lookups {
		if lr.Err != nil {
			s.Logger.Warn("parse session lookup failed", slog.String("path", lr.Path), slog.Any("error", lr.Err))
			continue
		}
		path := localfs.SupervisorStatePath(lr.Lookup.Cwd)
		if err := s.SyncSupervisorState(ctx, lr.Lookup.Feature, path); err != nil {
			s.Logger.Warn("sync supervisor state failed", slog.String("feature", lr.Lookup.Feature), slog.Any("error", err))
		}
	}

	return nil
}

// SyncTeams enumerates teams; for each, upserts the team registration and
// every member whose fingerprint changed.
func (s *Syncer) SyncTeams(ctx context.Context) error {
	results, err := localfs.ListTeams(s.TeamsDir)
	if err != nil {
		return err
	}

	liveKeys := make([]string, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			s.Logger.Warn("parse team config failed", slog.String("path", r.Path), slog.Any("error", r.Err))
			continue
		}
		team := r.Team
		teamKey := "team:" + team.Name
		liveKeys = append(liveKeys, teamKey)

		if fp, err := synccache.Fingerprint(team); err == nil && s.Cache.Changed(teamKey, fp) {
			upsertErr := s.Remote.UpsertTeam(ctx, remoteclient.UpsertTeamArgs{
				Name: team.Name, LeadSessionID: team.LeadSessionID,
			})
			if upsertErr != nil {
				s.Logger.Warn("upsert team registration failed", slog.String("team", team.Name), slog.Any("error", upsertErr))
			} else {
				s.Cache.Confirm(teamKey, fp)
			}
			s.logAudit(ctx, "upsert_team", teamKey, upsertErr)
		}

		for _, member := range team.Members {
			memberKey := "team_member:" + team.Name + ":" + member.AgentID
			liveKeys = append(liveKeys, memberKey)
			fp, err := synccache.Fingerprint(member)
			if err != nil || !s.Cache.Changed(memberKey, fp) {
				continue
			}
			m := member
			upsertErr := s.Remote.UpsertTeamMember(ctx, remoteclient.UpsertTeamMemberArgs{TeamName: team.Name, TeamMember: &m})
			if upsertErr != nil {
				s.Logger.Warn("upsert team member failed", slog.String("agent_id", member.AgentID), slog.Any("error", upsertErr))
			} else {
				s.Cache.Confirm(memberKey, fp)
			}
			s.logAudit(ctx, "upsert_team_member", memberKey, upsertErr)
		}
	}

	s.Cache.ClearSiblings("team:", liveKeys)
	s.Cache.ClearSiblings("team_member:", liveKeys)
	return nil
}

// SyncTasksForSession loads every task in a lead-session directory and
// upserts task events whose (status, subject, owner, blocked_by, metadata)
// fingerprint differs from the cache.
func (s *Syncer) SyncTasksForSession(ctx context.Context, leadSessionID string) error {
	results, err := localfs.ListTasks(s.TasksDir, leadSessionID)
	if err != nil {
		return err
	}

	liveKeys := make([]string, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			s.Logger.Warn("parse task failed", slog.String("path", r.Path), slog.Any("error", r.Err))
			continue
		}
		task := r.Task
		key := "task:" + leadSessionID + ":" + task.TaskID
		liveKeys = append(liveKeys, key)

		fp, err := synccache.Fingerprint(task)
		if err != nil || !s.Cache.Changed(key, fp) {
			continue
		}
		t := *task
		upsertErr := s.Remote.UpsertTaskEvent(ctx, remoteclient.UpsertTaskEventArgs{OrchestrationID: leadSessionID, TaskEvent: &t})
		if upsertErr != nil {
			s.Logger.Warn("upsert task event failed", slog.String("task_id", task.TaskID), slog.Any("error", upsertErr))
		} else {
			s.Cache.Confirm(key, fp)
		}
		s.logAudit(ctx, "upsert_task_event", key, upsertErr)
	}

	s.Cache.ClearSiblings("task:"+leadSessionID+":", liveKeys)
	return nil
}

// SyncSupervisorState loads a feature's supervisor-state.json and upserts
// the orchestration header plus every phase whose fingerprint changed.
func (s *Syncer) SyncSupervisorState(ctx context.Context, feature, path string) error {
	o, err := localfs.ReadSupervisorState(path)
	if err != nil {
		return &models.ParseError{Path: path, Err: err}
	}
	o.NodeID = s.NodeID
	o.Feature = feature

	headerKey := "orchestration:" + s.NodeID + ":" + feature
	if fp, err := synccache.Fingerprint(headerForFingerprint(o)); err == nil && s.Cache.Changed(headerKey, fp) {
		_, upsertErr := s.Remote.UpsertOrchestration(ctx, remoteclient.UpsertOrchestrationArgs{
			NodeID: s.NodeID, Feature: feature, Orchestration: o,
		})
		if upsertErr != nil {
			s.Logger.Warn("upsert orchestration header failed", slog.String("feature", feature), slog.Any("error", upsertErr))
		} else {
			s.Cache.Confirm(headerKey, fp)
		}
		s.logAudit(ctx, "upsert_orchestration", headerKey, upsertErr)
	}

	liveKeys := make([]string, 0, len(o.Phases))
	for number, phase := range o.Phases {
		key := "phase:" + s.NodeID + ":" + feature + ":" + number
		liveKeys = append(liveKeys, key)

		fp, err := synccache.Fingerprint(phase)
		if err != nil || !s.Cache.Changed(key, fp) {
			continue
		}
		p := *phase
		upsertErr := s.Remote.UpsertPhase(ctx, remoteclient.UpsertPhaseArgs{
			OrchestrationID: s.NodeID + ":" + feature, Phase: &p,
		})
		if upsertErr != nil {
			s.Logger.Warn("upsert phase failed", slog.String("feature", feature), slog.String("phase", number), slog.Any("error", upsertErr))
		} else {
			s.Cache.Confirm(key, fp)
		}
		s.logAudit(ctx, "upsert_phase", key, upsertErr)
	}
	s.Cache.ClearSiblings("phase:"+s.NodeID+":"+feature+":", liveKeys)

	return nil
}

func (s *Syncer) logAudit(ctx context.Context, operation, entityKey string, upsertErr error) {
	if s.Audit == nil {
		return
	}
	s.Audit.LogSync(ctx, operation, entityKey, upsertErr == nil, upsertErr)
}

// headerForFingerprint strips the (large, independently-fingerprinted)
// phase map so the orchestration header's fingerprint only reflects header
// fields, not phase churn.
func headerForFingerprint(o *models.Orchestration) any {
	clone := *o
	clone.Phases = nil
	return clone
}
