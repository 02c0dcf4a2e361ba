package watchpipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitForEvent(t *testing.T, w *Watcher, want Kind) Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-w.Events():
			require.True(t, ok, "events channel closed before expected event arrived")
			if ev.Kind == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for a %s event", want)
		}
	}
}

func TestNewWatchesExistingTeamsAndTasksDirs(t *testing.T) {
	teamsDir := filepath.Join(t.TempDir(), "teams")
	tasksDir := filepath.Join(t.TempDir(), "tasks")
	require.NoError(t, os.MkdirAll(teamsDir, 0755))
	require.NoError(t, os.MkdirAll(tasksDir, 0755))

	w, err := New(teamsDir, tasksDir)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(teamsDir, "auth.json"), []byte("{}"), 0644))
	ev := waitForEvent(t, w, KindTeams)
	require.Equal(t, KindTeams, ev.Kind)
}

func TestNewToleratesMissingDirectories(t *testing.T) {
	base := t.TempDir()
	w, err := New(filepath.Join(base, "no-teams"), filepath.Join(base, "no-tasks"))
	require.NoError(t, err)
	defer w.Close()
}

func TestWatchSupervisorStateClassifiesByFeature(t *testing.T) {
	base := t.TempDir()
	w, err := New(filepath.Join(base, "teams"), filepath.Join(base, "tasks"))
	require.NoError(t, err)
	defer w.Close()

	statePath := filepath.Join(base, "supervisor-state.json")
	require.NoError(t, os.WriteFile(statePath, []byte("{}"), 0644))
	require.NoError(t, w.WatchSupervisorState(statePath, "auth-rework"))

	require.NoError(t, os.WriteFile(statePath, []byte(`{"version":2}`), 0644))
	ev := waitForEvent(t, w, KindSupervisorState)
	require.Equal(t, "auth-rework", ev.Feature)
}

func TestTasksDirCreateTriggersNewWatchOnSubdirectory(t *testing.T) {
	tasksDir := filepath.Join(t.TempDir(), "tasks")
	require.NoError(t, os.MkdirAll(tasksDir, 0755))
	w, err := New(filepath.Join(t.TempDir(), "teams"), tasksDir)
	require.NoError(t, err)
	defer w.Close()

	sessionDir := filepath.Join(tasksDir, "session-1")
	require.NoError(t, os.Mkdir(sessionDir, 0755))
	waitForEvent(t, w, KindTasks)

	require.NoError(t, os.WriteFile(filepath.Join(sessionDir, "task-1.json"), []byte("{}"), 0644))
	waitForEvent(t, w, KindTasks)
}

func TestCloseStopsEventDelivery(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "teams"), filepath.Join(t.TempDir(), "tasks"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	select {
	case _, ok := <-w.Events():
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel was not closed after Close")
	}
}
