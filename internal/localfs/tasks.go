package localfs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joshuabates/tina-daemon/internal/models"
)

// taskFile is the on-disk shape of <home>/.claude/tasks/<session>/<id>.json.
type taskFile struct {
	ID          string         `json:"id"`
	Subject     string         `json:"subject"`
	Description string         `json:"description"`
	ActiveForm  string         `json:"activeForm,omitempty"`
	Status      string         `json:"status"`
	Owner       string         `json:"owner,omitempty"`
	Blocks      []string       `json:"blocks,omitempty"`
	BlockedBy   []string       `json:"blockedBy,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ReadTask parses a single task <id>.json file.
func ReadTask(path string) (*models.TaskEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tf taskFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, &models.ParseError{Path: path, Err: err}
	}
	return &models.TaskEvent{
		TaskID:      tf.ID,
		Subject:     tf.Subject,
		Description: tf.Description,
		Status:      models.TaskEventStatus(tf.Status),
		Owner:       tf.Owner,
		BlockedBy:   tf.BlockedBy,
		Metadata:    tf.Metadata,
	}, nil
}

// TaskScanResult pairs a parsed task event (or a parse error) with its path.
type TaskScanResult struct {
	Path string
	Task *models.TaskEvent
	Err  error
}

// ListTasks enumerates <tasksDir>/<leadSessionID>/*.json, sorted numerically
// on each task's parsed id when it is a non-negative integer, lexicographically
// otherwise. A missing session directory yields an empty, non-error result.
// Files that fail to parse keep their filename stem as the sort key, since no
// id field could be read from them.
func ListTasks(tasksDir, leadSessionID string) ([]TaskScanResult, error) {
	dir := filepath.Join(tasksDir, leadSessionID)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	type candidate struct {
		key    string
		result TaskScanResult
	}
	var candidates []candidate
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		task, err := ReadTask(path)
		key := strings.TrimSuffix(entry.Name(), ".json")
		if task != nil && task.TaskID != "" {
			key = task.TaskID
		}
		candidates = append(candidates, candidate{key: key, result: TaskScanResult{Path: path, Task: task, Err: err}})
	}

	sort.Slice(candidates, func(i, j int) bool {
		ni, iok := parseNonNegativeInt(candidates[i].key)
		nj, jok := parseNonNegativeInt(candidates[j].key)
		if iok && jok {
			return ni < nj
		}
		if iok != jok {
			// Numeric ids sort before non-numeric ones; this only matters
			// when the two kinds are mixed within one session directory.
			return iok
		}
		return candidates[i].key < candidates[j].key
	})

	results := make([]TaskScanResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, c.result)
	}
	return results, nil
}

// ListTaskSessionDirs returns the lead-session-id subdirectories directly
// under tasksDir. A missing tasksDir yields an empty, non-error result.
func ListTaskSessionDirs(tasksDir string) ([]string, error) {
	entries, err := os.ReadDir(tasksDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	return dirs, nil
}

func parseNonNegativeInt(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
