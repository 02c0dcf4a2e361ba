package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joshuabates/tina-daemon/internal/localdb"
	"github.com/joshuabates/tina-daemon/internal/models"
	"github.com/joshuabates/tina-daemon/internal/remoteclient"
)

// actionStore is the subset of internal/remoteclient.Client this package
// needs.
type actionStore interface {
	ClaimAction(ctx context.Context, actionID string) (remoteclient.ClaimResult, error)
	CompleteAction(ctx context.Context, actionID, resultMessage string, success bool) error
}

// Dispatcher owns the session-CLI runner and drives the
// claim/translate/execute/complete pipeline for each inbound action.
type Dispatcher struct {
	Remote actionStore
	Runner *Runner
	Logger *slog.Logger

	// Audit is optional; when set, every dispatch outcome is mirrored to
	// the local audit cache on a best-effort basis.
	Audit *localdb.Audit
}

// ProcessBatch claims, executes, and completes every action in batch
// concurrently. A claim loss or execution failure for one action never
// aborts the others (spec §4.H).
func (d *Dispatcher) ProcessBatch(ctx context.Context, batch []models.InboundAction) {
	g, gctx := errgroup.WithContext(ctx)
	for _, action := range batch {
		action := action
		g.Go(func() error {
			d.processOne(gctx, action)
			return nil
		})
	}
	_ = g.Wait() // processOne never returns an error; g.Wait only joins goroutines.
}

func (d *Dispatcher) processOne(ctx context.Context, action models.InboundAction) {
	started := time.Now()

	result, err := d.Remote.ClaimAction(ctx, action.ID)
	if err != nil {
		d.Logger.Warn("claim action failed", slog.String("action_id", action.ID), slog.Any("error", err))
		return
	}
	if !result.Success {
		d.Logger.Info("action already claimed", slog.String("action_id", action.ID), slog.String("reason", result.Reason))
		return
	}

	var payload models.InboundActionPayload
	if err := json.Unmarshal([]byte(action.Payload), &payload); err != nil {
		msg := fmt.Sprintf("error: malformed payload: %s", err)
		d.complete(ctx, action.ID, msg, false)
		d.logAudit(ctx, action, nil, false, -1, false, msg, started)
		return
	}

	argv, err := BuildArgv(action.ActionType, payload)
	if err != nil {
		msg := fmt.Sprintf("error: %s", err)
		d.complete(ctx, action.ID, msg, false)
		d.logAudit(ctx, action, nil, false, -1, false, msg, started)
		return
	}

	stdout, runErr := d.Runner.Run(ctx, argv)
	if runErr != nil {
		msg := fmt.Sprintf("error: %s", summarize(runErr))
		d.complete(ctx, action.ID, msg, false)
		exitCode, timedOut := -1, false
		if se, ok := runErr.(*models.SubprocessError); ok {
			exitCode, timedOut = se.ExitCode, se.TimedOut
		}
		d.logAudit(ctx, action, argv, false, exitCode, timedOut, msg, started)
		return
	}
	d.complete(ctx, action.ID, stdout, true)
	d.logAudit(ctx, action, argv, true, 0, false, stdout, started)
}

func (d *Dispatcher) logAudit(ctx context.Context, action models.InboundAction, argv []string, success bool, exitCode int, timedOut bool, result string, started time.Time) {
	if d.Audit == nil {
		return
	}
	d.Audit.LogAction(ctx, action.ID, string(action.ActionType), argv, success, exitCode, timedOut, result, time.Since(started))
}

func (d *Dispatcher) complete(ctx context.Context, actionID, resultMessage string, success bool) {
	if err := d.Remote.CompleteAction(ctx, actionID, resultMessage, success); err != nil {
		d.Logger.Warn("complete action failed", slog.String("action_id", actionID), slog.Any("error", err))
	}
}

func summarize(err error) string {
	if se, ok := err.(*models.SubprocessError); ok {
		if se.TimedOut {
			return "timed out"
		}
		return se.Stderr
	}
	return err.Error()
}
