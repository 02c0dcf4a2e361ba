// Package watchpipeline bridges raw filesystem events (teams directory,
// tasks directory, and dynamically discovered per-feature supervisor-state
// files) into classified Event values on a bounded channel, matching
// spec §4.D.
package watchpipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Kind is the classified variant of a watch event.
type Kind string

// The three classified variants spec §4.D names. Anything else is dropped.
const (
	KindTeams            Kind = "teams"
	KindTasks            Kind = "tasks"
	KindSupervisorState  Kind = "supervisor_state"
)

// Event is a classified, minimal-identity watch event: Teams and Tasks
// carry no further identity (a full resync re-reads the tree fresh);
// SupervisorState carries the feature name so only that orchestration is
// resynced.
type Event struct {
	Kind    Kind
	Feature string
}

// channelCapacity is the bounded-channel capacity spec §4.D and §5
// mandate: a burst of edits beyond this is dropped at the sender, not
// queued, because downstream handlers re-read fresh state on the next
// event or periodic tick.
const channelCapacity = 256

// Watcher owns the underlying fsnotify.Watcher and the bridge goroutine
// that classifies and forwards events onto a bounded channel.
type Watcher struct {
	fsw      *fsnotify.Watcher
	teamsDir string
	tasksDir string

	mu                 sync.Mutex
	stateFeatureByPath map[string]string

	events chan Event
	errs   chan error
	done   chan struct{}
}

// New creates a Watcher recursively watching teamsDir and tasksDir. Neither
// directory is required to exist (mirroring spec §4.C's
// missing-directory-as-empty-set policy for the pipeline's own inputs); a
// directory missing at this point is skipped, and this Watcher does not add
// it if it is created later.
func New(teamsDir, tasksDir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fsw:                fsw,
		teamsDir:           teamsDir,
		tasksDir:           tasksDir,
		stateFeatureByPath: make(map[string]string),
		events:             make(chan Event, channelCapacity),
		errs:               make(chan error, 1),
		done:               make(chan struct{}),
	}

	if err := addRecursive(fsw, teamsDir); err != nil && !os.IsNotExist(err) {
		fsw.Close()
		return nil, fmt.Errorf("watch teams dir: %w", err)
	}
	if err := addRecursive(fsw, tasksDir); err != nil && !os.IsNotExist(err) {
		fsw.Close()
		return nil, fmt.Errorf("watch tasks dir: %w", err)
	}

	go w.run()
	return w, nil
}

// WatchSupervisorState adds a non-recursive watch on a single
// supervisor-state.json path, associating it with feature for
// classification. Safe to call repeatedly for the same path.
func (w *Watcher) WatchSupervisorState(path, feature string) error {
	w.mu.Lock()
	w.stateFeatureByPath[path] = feature
	w.mu.Unlock()

	if err := w.fsw.Add(path); err != nil {
		return fmt.Errorf("watch supervisor state %s: %w", path, err)
	}
	return nil
}

// Events returns the channel of classified events. The channel is closed
// when the underlying fsnotify event channel closes; the supervisor
// treats that as a terminal condition per spec §4.D.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of fsnotify-internal errors (distinct from a
// closed channel, which signals termination).
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) run() {
	defer close(w.events)

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleRaw(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleRaw(ev fsnotify.Event) {
	// A newly created directory under a recursively-watched root needs its
	// own watch so descendants are seen too.
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = addRecursive(w.fsw, ev.Name)
		}
	}

	classified, ok := w.classify(ev.Name)
	if !ok {
		return
	}

	select {
	case w.events <- classified:
	default:
		// Channel full: drop at the sender per spec §5 backpressure policy.
	}
}

func (w *Watcher) classify(path string) (Event, bool) {
	switch {
	case w.teamsDir != "" && hasPathPrefix(path, w.teamsDir):
		return Event{Kind: KindTeams}, true
	case w.tasksDir != "" && hasPathPrefix(path, w.tasksDir):
		return Event{Kind: KindTasks}, true
	}

	w.mu.Lock()
	feature, ok := w.stateFeatureByPath[path]
	w.mu.Unlock()
	if ok {
		return Event{Kind: KindSupervisorState, Feature: feature}, true
	}

	return Event{}, false
}

// hasPathPrefix reports whether path is dir itself or lies under it.
func hasPathPrefix(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if addErr := fsw.Add(path); addErr != nil {
				return addErr
			}
		}
		return nil
	})
}
