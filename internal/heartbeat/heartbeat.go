// Package heartbeat hashes the auth token, registers the node, and runs the
// periodic keepalive loop, per spec §4.G.
package heartbeat

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

// Interval is the fixed heartbeat period spec §4.G specifies.
const Interval = 30 * time.Second

// HashAuthToken returns the lowercase hex-encoded SHA-256 of token. The
// auth token itself is never transmitted to the remote store; only this
// hash is. Deterministic: identical inputs always produce identical
// 64-character hex strings (spec §8 invariant 4).
func HashAuthToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// registrar is the subset of internal/remoteclient.Client needed here.
type registrar interface {
	RegisterNode(ctx context.Context, name, os, tokenHash string) (string, error)
	Heartbeat(ctx context.Context, nodeID string) error
}

// Register hashes token and registers name/os with the remote store,
// returning the assigned node id.
func Register(ctx context.Context, remote registrar, name, os, token string) (string, error) {
	return remote.RegisterNode(ctx, name, os, HashAuthToken(token))
}

// Run emits a heartbeat for nodeID every Interval until ctx is canceled.
// Heartbeat failures are logged and retried on the next tick, never fatal.
func Run(ctx context.Context, remote registrar, nodeID string, logger *slog.Logger) {
	ticker := time.NewTicker(Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := remote.Heartbeat(ctx, nodeID); err != nil {
				logger.Warn("heartbeat failed, will retry next tick", slog.Any("error", err))
			}
		}
	}
}
