package statemachine

import (
	"log/slog"

	"github.com/joshuabates/tina-daemon/internal/localfs"
	"github.com/joshuabates/tina-daemon/internal/models"
)

// Mutation applies fn to o and, only when fn succeeds, persists o back to
// path atomically; when fn fails, nothing is written and fn's error is
// returned. Mirror emission is the caller's responsibility (statemachine has
// no remote client dependency).
func Mutation(path string, o *models.Orchestration, fn func(*models.Orchestration) error) error {
	if err := fn(o); err != nil {
		return err
	}
	if err := localfs.WriteSupervisorStateAtomic(path, o); err != nil {
		// Supervisor-state is the local source of truth, so a failed local
		// write is returned as an error; a failure to reach the remote
		// store afterward is not (that's handled by the caller).
		return err
	}
	return nil
}

// LogMirrorFailure is a small helper so every call site logs remote mirror
// failures the same way: non-fatal, supervisor-state remains authoritative.
func LogMirrorFailure(logger *slog.Logger, feature string, err error) {
	logger.Warn("remote mirror failed, local state is authoritative",
		slog.String("feature", feature),
		slog.Any("error", err),
	)
}
