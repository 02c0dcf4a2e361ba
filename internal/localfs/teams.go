// Package localfs parses the three on-disk entity trees the daemon mirrors:
// team configs, task files, and per-feature supervisor-state files, plus the
// session-lookup reverse index. All parsing is lenient: unknown JSON fields
// are ignored (encoding/json's default behavior), a malformed file is logged
// and skipped rather than aborting the scan, and a missing directory is
// treated as the empty set.
package localfs

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/joshuabates/tina-daemon/internal/models"
)

// teamFile is the on-disk shape of <home>/.claude/teams/<name>/config.json.
type teamFile struct {
	Name          string              `json:"name"`
	LeadSessionID string              `json:"lead_session_id"`
	Members       []models.TeamMember `json:"members"`
}

// ReadTeam parses a single team config.json.
func ReadTeam(path string) (*models.Team, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tf teamFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, &models.ParseError{Path: path, Err: err}
	}
	return &models.Team{
		Name:          tf.Name,
		LeadSessionID: tf.LeadSessionID,
		Members:       tf.Members,
	}, nil
}

// TeamScanResult pairs a parsed team with the path it came from, or carries
// the read/parse error for that path, so the caller can log-and-skip without
// aborting the rest of the scan.
type TeamScanResult struct {
	Path string
	Team *models.Team
	Err  error
}

// ListTeams enumerates <teamsDir>/<name>/config.json for every team
// subdirectory. A missing teamsDir yields an empty, non-error result.
func ListTeams(teamsDir string) ([]TeamScanResult, error) {
	entries, err := os.ReadDir(teamsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var results []TeamScanResult
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(teamsDir, entry.Name(), "config.json")
		team, err := ReadTeam(path)
		results = append(results, TeamScanResult{Path: path, Team: team, Err: err})
	}
	return results, nil
}
