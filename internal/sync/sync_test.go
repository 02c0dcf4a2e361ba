package sync

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshuabates/tina-daemon/internal/localfs"
	"github.com/joshuabates/tina-daemon/internal/models"
	"github.com/joshuabates/tina-daemon/internal/remoteclient"
	"github.com/joshuabates/tina-daemon/internal/synccache"
)

// recordingServer counts requests per path so tests can assert on upsert
// and suppression behavior without a real control-plane.
type recordingServer struct {
	mu    sync.Mutex
	calls map[string]int
	srv   *httptest.Server
}

func newRecordingServer(t *testing.T) *recordingServer {
	t.Helper()
	rs := &recordingServer{calls: make(map[string]int)}
	rs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.mu.Lock()
		rs.calls[r.URL.Path]++
		rs.mu.Unlock()
		w.Write([]byte(`{"id":"generated"}`))
	}))
	t.Cleanup(rs.srv.Close)
	return rs
}

func (rs *recordingServer) count(path string) int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.calls[path]
}

func newTestSyncer(t *testing.T, rs *recordingServer) *Syncer {
	t.Helper()
	return &Syncer{
		Remote: remoteclient.New(rs.srv.URL, "token"),
		Cache:  synccache.New(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		NodeID: "node-1",
	}
}

func writeTeamConfig(t *testing.T, teamsDir, name string, team models.Team) {
	t.Helper()
	dir := filepath.Join(teamsDir, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	data, err := json.Marshal(struct {
		Name          string              `json:"name"`
		LeadSessionID string              `json:"lead_session_id"`
		Members       []models.TeamMember `json:"members"`
	}{Name: team.Name, LeadSessionID: team.LeadSessionID, Members: team.Members})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), data, 0644))
}

func TestSyncTeamsUpsertsNewTeamAndMembers(t *testing.T) {
	teamsDir := t.TempDir()
	writeTeamConfig(t, teamsDir, "auth", models.Team{
		Name:          "auth",
		LeadSessionID: "lead-1",
		Members:       []models.TeamMember{{AgentID: "agent-1", Name: "reviewer"}},
	})

	rs := newRecordingServer(t)
	s := newTestSyncer(t, rs)
	s.TeamsDir = teamsDir

	require.NoError(t, s.SyncTeams(context.Background()))
	require.Equal(t, 1, rs.count("/teams/upsert"))
	require.Equal(t, 1, rs.count("/team-members/upsert"))
}

func TestSyncTeamsSuppressesUnchangedOnSecondPass(t *testing.T) {
	teamsDir := t.TempDir()
	writeTeamConfig(t, teamsDir, "auth", models.Team{
		Name:          "auth",
		LeadSessionID: "lead-1",
		Members:       []models.TeamMember{{AgentID: "agent-1"}},
	})

	rs := newRecordingServer(t)
	s := newTestSyncer(t, rs)
	s.TeamsDir = teamsDir

	require.NoError(t, s.SyncTeams(context.Background()))
	require.NoError(t, s.SyncTeams(context.Background()))
	require.Equal(t, 1, rs.count("/teams/upsert"))
	require.Equal(t, 1, rs.count("/team-members/upsert"))
}

// failingThenOKServer rejects every request to a failPath until failCount
// reaches zero, then returns success for that path and all others.
type failingThenOKServer struct {
	mu        sync.Mutex
	failPath  string
	failCount int
	calls     map[string]int
	srv       *httptest.Server
}

func newFailingThenOKServer(t *testing.T, failPath string, failCount int) *failingThenOKServer {
	t.Helper()
	fs := &failingThenOKServer{failPath: failPath, failCount: failCount, calls: make(map[string]int)}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.calls[r.URL.Path]++
		shouldFail := r.URL.Path == fs.failPath && fs.failCount > 0
		if shouldFail {
			fs.failCount--
		}
		fs.mu.Unlock()
		if shouldFail {
			// 4xx is a permanent application error (no internal retry),
			// unlike 5xx which the client retries with backoff on its own.
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"id":"generated"}`))
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *failingThenOKServer) count(path string) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.calls[path]
}

func TestSyncTeamsRetriesUpsertAfterTransientFailure(t *testing.T) {
	teamsDir := t.TempDir()
	writeTeamConfig(t, teamsDir, "auth", models.Team{Name: "auth", LeadSessionID: "lead-1"})

	fs := newFailingThenOKServer(t, "/teams/upsert", 1)
	s := &Syncer{
		Remote: remoteclient.New(fs.srv.URL, "token"),
		Cache:  synccache.New(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		NodeID: "node-1",
	}
	s.TeamsDir = teamsDir

	require.NoError(t, s.SyncTeams(context.Background()))
	require.Equal(t, 1, fs.count("/teams/upsert"), "first attempt fails remotely")

	require.NoError(t, s.SyncTeams(context.Background()))
	require.Equal(t, 2, fs.count("/teams/upsert"), "unconfirmed fingerprint must be retried, not suppressed")

	require.NoError(t, s.SyncTeams(context.Background()))
	require.Equal(t, 2, fs.count("/teams/upsert"), "confirmed fingerprint is suppressed once the upsert succeeds")
}

func TestSyncTeamsClearsSiblingsForRemovedTeam(t *testing.T) {
	teamsDir := t.TempDir()
	writeTeamConfig(t, teamsDir, "auth", models.Team{Name: "auth", LeadSessionID: "lead-1"})

	rs := newRecordingServer(t)
	s := newTestSyncer(t, rs)
	s.TeamsDir = teamsDir
	require.NoError(t, s.SyncTeams(context.Background()))
	require.Equal(t, 1, s.Cache.Len())

	require.NoError(t, os.RemoveAll(filepath.Join(teamsDir, "auth")))
	require.NoError(t, s.SyncTeams(context.Background()))
	require.Equal(t, 0, s.Cache.Len())
}

func writeTaskFile(t *testing.T, tasksDir, session, id, status string) {
	t.Helper()
	dir := filepath.Join(tasksDir, session)
	require.NoError(t, os.MkdirAll(dir, 0755))
	data, err := json.Marshal(map[string]any{"id": id, "subject": "do the thing", "status": status})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".json"), data, 0644))
}

func TestSyncTasksForSessionUpsertsChangedTasks(t *testing.T) {
	tasksDir := t.TempDir()
	writeTaskFile(t, tasksDir, "lead-1", "1", "pending")

	rs := newRecordingServer(t)
	s := newTestSyncer(t, rs)
	s.TasksDir = tasksDir

	require.NoError(t, s.SyncTasksForSession(context.Background(), "lead-1"))
	require.Equal(t, 1, rs.count("/tasks/upsert"))

	require.NoError(t, s.SyncTasksForSession(context.Background(), "lead-1"))
	require.Equal(t, 1, rs.count("/tasks/upsert"), "unchanged task must not be re-upserted")

	writeTaskFile(t, tasksDir, "lead-1", "1", "completed")
	require.NoError(t, s.SyncTasksForSession(context.Background(), "lead-1"))
	require.Equal(t, 2, rs.count("/tasks/upsert"), "status change must trigger a re-upsert")
}

func writeSupervisorState(t *testing.T, path, feature string, currentPhase int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	o := &models.Orchestration{
		Feature:      feature,
		TotalPhases:  3,
		CurrentPhase: currentPhase,
		Status:       models.OrchestrationStatusExecuting,
		StartedAt:    time.Now().Truncate(time.Second),
		Phases: map[string]*models.Phase{
			"1": {PhaseNumber: "1", Status: models.PhaseStatusComplete},
		},
	}
	require.NoError(t, localfs.WriteSupervisorStateAtomic(path, o))
}

func TestSyncSupervisorStateUpsertsHeaderAndPhases(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "supervisor-state.json")
	writeSupervisorState(t, path, "auth-rework", 2)

	rs := newRecordingServer(t)
	s := newTestSyncer(t, rs)

	require.NoError(t, s.SyncSupervisorState(context.Background(), "auth-rework", path))
	require.Equal(t, 1, rs.count("/orchestrations/upsert"))
	require.Equal(t, 1, rs.count("/phases/upsert"))
}

func TestSyncSupervisorStateSuppressesUnchangedPhase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "supervisor-state.json")
	writeSupervisorState(t, path, "auth-rework", 2)

	rs := newRecordingServer(t)
	s := newTestSyncer(t, rs)

	require.NoError(t, s.SyncSupervisorState(context.Background(), "auth-rework", path))
	require.NoError(t, s.SyncSupervisorState(context.Background(), "auth-rework", path))
	require.Equal(t, 1, rs.count("/phases/upsert"))
}

func TestSyncSupervisorStateMalformedFileReturnsParseError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "supervisor-state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not valid`), 0644))

	rs := newRecordingServer(t)
	s := newTestSyncer(t, rs)

	err := s.SyncSupervisorState(context.Background(), "auth-rework", path)
	require.Error(t, err)

	var parseErr *models.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestSyncAllRunsTeamsTasksAndSupervisorState(t *testing.T) {
	base := t.TempDir()
	teamsDir := filepath.Join(base, "teams")
	tasksDir := filepath.Join(base, "tasks")
	sessionsDir := filepath.Join(base, "tina-sessions")
	worktree := filepath.Join(base, "worktree")

	writeTeamConfig(t, teamsDir, "auth", models.Team{Name: "auth", LeadSessionID: "lead-1"})
	writeTaskFile(t, tasksDir, "lead-1", "1", "pending")
	writeSupervisorState(t, localfs.SupervisorStatePath(worktree), "auth-rework", 1)

	require.NoError(t, os.MkdirAll(sessionsDir, 0755))
	lookupData, err := json.Marshal(map[string]any{"feature": "auth-rework", "cwd": worktree})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(sessionsDir, "auth-rework.json"), lookupData, 0644))

	rs := newRecordingServer(t)
	s := newTestSyncer(t, rs)
	s.TeamsDir = teamsDir
	s.TasksDir = tasksDir
	s.SessionsDir = sessionsDir

	require.NoError(t, s.SyncAll(context.Background()))
	require.Equal(t, 1, rs.count("/teams/upsert"))
	require.Equal(t, 1, rs.count("/tasks/upsert"))
	require.Equal(t, 1, rs.count("/orchestrations/upsert"))
	require.Equal(t, 1, rs.count("/phases/upsert"))
}
