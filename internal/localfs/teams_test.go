package localfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func TestReadTeamParsesConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeFile(t, path, `{
		"name": "auth-orchestration",
		"lead_session_id": "sess-1",
		"members": [{"agent_id": "a1", "name": "planner", "agent_type": "planner", "model": "opus", "cwd": "/work/auth"}]
	}`)

	team, err := ReadTeam(path)
	require.NoError(t, err)
	require.Equal(t, "auth-orchestration", team.Name)
	require.Equal(t, "sess-1", team.LeadSessionID)
	require.Len(t, team.Members, 1)
	require.True(t, team.IsOrchestratorTeam())
}

func TestReadTeamIgnoresUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeFile(t, path, `{"name": "auth", "lead_session_id": "s1", "members": [], "future_field": 42}`)

	team, err := ReadTeam(path)
	require.NoError(t, err)
	require.Equal(t, "auth", team.Name)
}

func TestReadTeamMalformedJSONReturnsParseError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeFile(t, path, `{not valid json`)

	_, err := ReadTeam(path)
	require.Error(t, err)
}

func TestListTeamsMissingDirectoryIsEmptyNotError(t *testing.T) {
	results, err := ListTeams(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestListTeamsSkipsMalformedAndContinues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "good-team", "config.json"), `{"name": "good-team", "lead_session_id": "s1", "members": []}`)
	writeFile(t, filepath.Join(dir, "bad-team", "config.json"), `not json`)

	results, err := ListTeams(dir)
	require.NoError(t, err)
	require.Len(t, results, 2)

	var goodFound, badFound bool
	for _, r := range results {
		if r.Err != nil {
			badFound = true
			continue
		}
		if r.Team.Name == "good-team" {
			goodFound = true
		}
	}
	require.True(t, goodFound)
	require.True(t, badFound)
}
