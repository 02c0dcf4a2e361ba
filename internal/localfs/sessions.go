package localfs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joshuabates/tina-daemon/internal/models"
)

// SessionLookup is the on-disk shape of <home>/.claude/tina-sessions/<feature>.json,
// a reverse index from feature name to the worktree that owns its
// supervisor-state file.
type SessionLookup struct {
	Feature   string    `json:"feature"`
	Cwd       string    `json:"cwd"`
	CreatedAt time.Time `json:"created_at"`
}

// ReadSessionLookup parses a single session lookup file.
func ReadSessionLookup(path string) (*SessionLookup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sl SessionLookup
	if err := json.Unmarshal(data, &sl); err != nil {
		return nil, &models.ParseError{Path: path, Err: err}
	}
	return &sl, nil
}

// SessionLookupScanResult pairs a parsed session lookup (or parse error)
// with its path.
type SessionLookupScanResult struct {
	Path   string
	Lookup *SessionLookup
	Err    error
}

// ListSessionLookups enumerates every <sessionsDir>/<feature>.json file. The
// watch pipeline uses this on a periodic tick to discover new per-feature
// supervisor-state files to watch. A missing directory yields an empty,
// non-error result.
func ListSessionLookups(sessionsDir string) ([]SessionLookupScanResult, error) {
	entries, err := os.ReadDir(sessionsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var results []SessionLookupScanResult
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(sessionsDir, entry.Name())
		lookup, err := ReadSessionLookup(path)
		results = append(results, SessionLookupScanResult{Path: path, Lookup: lookup, Err: err})
	}
	return results, nil
}

// SupervisorStatePath returns the supervisor-state.json path for a worktree.
func SupervisorStatePath(worktreePath string) string {
	return filepath.Join(worktreePath, ".claude", "tina", "supervisor-state.json")
}
