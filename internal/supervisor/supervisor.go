// Package supervisor composes the remote client, state machine,
// filesystem watchers, sync cache, pane reconciler, heartbeat, and action
// dispatcher into the daemon's single cooperative event loop.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	stdsync "sync"
	"time"

	"github.com/joshuabates/tina-daemon/internal/app"
	"github.com/joshuabates/tina-daemon/internal/dispatcher"
	"github.com/joshuabates/tina-daemon/internal/heartbeat"
	"github.com/joshuabates/tina-daemon/internal/localdb"
	"github.com/joshuabates/tina-daemon/internal/localfs"
	"github.com/joshuabates/tina-daemon/internal/panereconciler"
	"github.com/joshuabates/tina-daemon/internal/remoteclient"
	"github.com/joshuabates/tina-daemon/internal/sync"
	"github.com/joshuabates/tina-daemon/internal/synccache"
	"github.com/joshuabates/tina-daemon/internal/watchpipeline"
)

// RefreshInterval is the periodic tick driving pane reconciliation and
// watcher expansion, alongside event-driven incremental sync.
const RefreshInterval = 15 * time.Second

// SessionCLI is the binary invoked by the dispatcher to carry out claimed
// actions (spec §4.H's fixed argv contract).
const SessionCLI = "tina-session"

// Supervisor owns every long-lived component and the goroutines that drive
// them, per spec §2's control flow and §4.I.
type Supervisor struct {
	Config *app.Config
	Logger *slog.Logger

	remote     *remoteclient.Client
	cache      *synccache.Cache
	syncer     *sync.Syncer
	watcher    *watchpipeline.Watcher
	dispatcher *dispatcher.Dispatcher
	audit      *localdb.Audit
	auditDB    interface{ Close() error }

	nodeID string

	// featureStatePaths tracks every supervisor-state.json path discovered
	// so far, keyed by feature. Only the event loop goroutine touches this
	// map, so it needs no lock.
	featureStatePaths map[string]string
}

// New resolves every local directory this daemon watches/scans and wires
// the components together. It makes no network call; the only goroutine it
// starts is the filesystem watcher's event bridge. Call Run for the rest.
func New(cfg *app.Config, logger *slog.Logger) (*Supervisor, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	teamsDir := filepath.Join(home, ".claude", "teams")
	tasksDir := filepath.Join(home, ".claude", "tasks")
	sessionsDir := filepath.Join(home, ".claude", "tina-sessions")

	remote := remoteclient.New(cfg.ConvexURL, cfg.AuthToken)
	cache := synccache.New()

	var audit *localdb.Audit
	var auditDB interface{ Close() error }
	if dataDir, derr := app.DataDir(); derr == nil {
		db, openErr := localdb.Open(filepath.Join(dataDir, "daemon-audit.db"))
		if openErr != nil {
			logger.Warn("audit cache unavailable, continuing without it", slog.Any("error", openErr))
		} else {
			audit = localdb.NewAudit(db, logger)
			auditDB = db
		}
	}

	watcher, err := watchpipeline.New(teamsDir, tasksDir)
	if err != nil {
		return nil, fmt.Errorf("start filesystem watcher: %w", err)
	}

	syncer := &sync.Syncer{
		Remote:      remote,
		Cache:       cache,
		Logger:      logger,
		Audit:       audit,
		TeamsDir:    teamsDir,
		TasksDir:    tasksDir,
		SessionsDir: sessionsDir,
	}

	disp := &dispatcher.Dispatcher{
		Remote: remote,
		Runner: &dispatcher.Runner{Command: SessionCLI},
		Logger: logger,
		Audit:  audit,
	}

	return &Supervisor{
		Config:            cfg,
		Logger:            logger,
		remote:            remote,
		cache:             cache,
		syncer:            syncer,
		watcher:           watcher,
		dispatcher:        disp,
		audit:             audit,
		auditDB:           auditDB,
		featureStatePaths: make(map[string]string),
	}, nil
}

// Run registers the node, starts the heartbeat, performs the initial full
// sync, subscribes to inbound actions, and then blocks in the select loop
// until ctx is canceled.
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.close()

	// Action batches run off the event loop; Run waits for them before
	// closing shared resources.
	var inflight stdsync.WaitGroup
	defer inflight.Wait()

	nodeID, err := heartbeat.Register(ctx, s.remote, s.Config.NodeName, runtime.GOOS, s.Config.AuthToken)
	if err != nil {
		return fmt.Errorf("register node: %w", err)
	}
	s.nodeID = nodeID
	s.syncer.NodeID = nodeID
	s.Logger.Info("node registered", slog.String("node_id", nodeID), slog.String("node_name", s.Config.NodeName))

	go heartbeat.Run(ctx, s.remote, nodeID, s.Logger)

	if err := s.syncer.SyncAll(ctx); err != nil {
		s.Logger.Warn("initial full sync failed", slog.Any("error", err))
	}
	s.discoverSupervisorStates(ctx)

	actions, actionErrs, err := s.remote.SubscribePendingActions(ctx, nodeID)
	if err != nil {
		return fmt.Errorf("subscribe to pending actions: %w", err)
	}

	ticker := time.NewTicker(RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("shutdown requested")
			return nil

		case ev, ok := <-s.watcher.Events():
			if !ok {
				s.Logger.Warn("watch pipeline closed; shutting down")
				return nil
			}
			s.handleWatchEvent(ctx, ev)

		case werr, ok := <-s.watcher.Errors():
			if ok {
				s.Logger.Warn("watch pipeline error", slog.Any("error", werr))
			}

		case batch, ok := <-actions:
			if !ok {
				s.Logger.Warn("action subscription stream ended; inbound actions will no longer be processed")
				actions = nil
				continue
			}
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				s.dispatcher.ProcessBatch(ctx, batch)
			}()

		case suberr, ok := <-actionErrs:
			if ok {
				s.Logger.Warn("action subscription error", slog.Any("error", suberr))
			}

		case <-ticker.C:
			s.onRefreshTick(ctx)
		}
	}
}

func (s *Supervisor) handleWatchEvent(ctx context.Context, ev watchpipeline.Event) {
	var err error
	switch ev.Kind {
	case watchpipeline.KindTeams:
		err = s.syncer.SyncTeams(ctx)

	case watchpipeline.KindTasks:
		err = s.syncAllTaskSessions(ctx)

	case watchpipeline.KindSupervisorState:
		path, ok := s.featureStatePaths[ev.Feature]
		if !ok {
			return
		}
		err = s.syncer.SyncSupervisorState(ctx, ev.Feature, path)
	}
	if err != nil {
		s.Logger.Warn("incremental sync failed", slog.String("kind", string(ev.Kind)), slog.String("feature", ev.Feature), slog.Any("error", err))
	}
}

func (s *Supervisor) syncAllTaskSessions(ctx context.Context) error {
	sessionDirs, err := localfs.ListTaskSessionDirs(s.syncer.TasksDir)
	if err != nil {
		return err
	}
	for _, dir := range sessionDirs {
		if err := s.syncer.SyncTasksForSession(ctx, dir); err != nil {
			s.Logger.Warn("sync tasks failed", slog.String("session", dir), slog.Any("error", err))
		}
	}
	return nil
}

// discoverSupervisorStates scans the session-lookup directory for features
// not yet being watched, registers a dedicated fsnotify watch for each, and
// syncs it once immediately so the remote mirror isn't stale until the next
// file change.
func (s *Supervisor) discoverSupervisorStates(ctx context.Context) {
	lookups, err := localfs.ListSessionLookups(s.syncer.SessionsDir)
	if err != nil {
		s.Logger.Warn("list session lookups failed", slog.Any("error", err))
		return
	}
	for _, lr := range lookups {
		if lr.Err != nil {
			s.Logger.Warn("parse session lookup failed", slog.String("path", lr.Path), slog.Any("error", lr.Err))
			continue
		}
		feature := lr.Lookup.Feature
		if _, known := s.featureStatePaths[feature]; known {
			continue
		}
		path := localfs.SupervisorStatePath(lr.Lookup.Cwd)
		if err := s.watcher.WatchSupervisorState(path, feature); err != nil {
			s.Logger.Warn("watch supervisor state failed", slog.String("feature", feature), slog.Any("error", err))
			continue
		}
		s.featureStatePaths[feature] = path
		if err := s.syncer.SyncSupervisorState(ctx, feature, path); err != nil {
			s.Logger.Warn("sync supervisor state failed", slog.String("feature", feature), slog.Any("error", err))
		}
	}
}

func (s *Supervisor) onRefreshTick(ctx context.Context) {
	s.discoverSupervisorStates(ctx)

	result, err := panereconciler.Reconcile(ctx, s.remote, s.Logger)
	if err != nil {
		s.Logger.Warn("pane reconciliation failed", slog.Any("error", err))
		return
	}
	if result.SessionsEnded > 0 || result.MembersWithDeadPanes > 0 {
		s.Logger.Info("pane reconciliation complete",
			slog.Int("sessions_ended", result.SessionsEnded),
			slog.Int("members_with_dead_panes", result.MembersWithDeadPanes))
	}
}

func (s *Supervisor) close() {
	if err := s.watcher.Close(); err != nil {
		s.Logger.Warn("close watcher failed", slog.Any("error", err))
	}
	if s.auditDB != nil {
		if err := s.auditDB.Close(); err != nil {
			s.Logger.Warn("close audit db failed", slog.Any("error", err))
		}
	}
}
