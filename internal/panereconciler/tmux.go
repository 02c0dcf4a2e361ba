// Package panereconciler sweeps the terminal multiplexer for dead panes and
// reconciles them against the remote store's active terminal sessions and
// team members with panes, per spec §4.F.
package panereconciler

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/joshuabates/tina-daemon/internal/models"
)

// TmuxPane is one row of `tmux list-panes -a -F "#{pane_id} #{pane_dead}"`.
type TmuxPane struct {
	PaneID string
	Dead   bool
}

// knownNotRunningMarkers are tmux's stderr strings when no server/session
// exists. A query failing with one of these is not an error: the alive set
// is simply empty.
var knownNotRunningMarkers = []string{
	"no server running",
	"no current session",
	"error connecting",
}

// ParseTmuxPanes parses list-panes output into TmuxPane rows. A line
// missing the dead flag defaults to alive (dead=false) rather than being
// dropped.
func ParseTmuxPanes(output string) []TmuxPane {
	var panes []TmuxPane
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		pane := TmuxPane{PaneID: fields[0]}
		if len(fields) > 1 {
			if dead, err := strconv.Atoi(fields[1]); err == nil {
				pane.Dead = dead != 0
			}
		}
		panes = append(panes, pane)
	}
	return panes
}

// AlivePaneIDs returns the set of pane ids that are not dead.
func AlivePaneIDs(panes []TmuxPane) map[string]struct{} {
	alive := make(map[string]struct{}, len(panes))
	for _, p := range panes {
		if !p.Dead {
			alive[p.PaneID] = struct{}{}
		}
	}
	return alive
}

// ListTmuxPanesBlocking runs the multiplexer's list-panes query. A missing
// binary is a fatal *models.LivenessQueryError; a not-running multiplexer
// (recognized by stderr marker) yields an empty, non-error pane list.
func ListTmuxPanesBlocking(ctx context.Context) ([]TmuxPane, error) {
	if _, err := exec.LookPath("tmux"); err != nil {
		return nil, &models.LivenessQueryError{Kind: models.LivenessQueryNotInstalled, Err: err}
	}

	cmd := exec.CommandContext(ctx, "tmux", "list-panes", "-a", "-F", "#{pane_id} #{pane_dead}")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrText := strings.ToLower(stderr.String())
		for _, marker := range knownNotRunningMarkers {
			if strings.Contains(stderrText, marker) {
				return nil, nil
			}
		}
		return nil, &models.LivenessQueryError{Kind: models.LivenessQueryFailed, Err: err}
	}

	return ParseTmuxPanes(stdout.String()), nil
}
