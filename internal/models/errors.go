package models

import "fmt"

// RecoverableError is implemented by every error kind the daemon surfaces to
// an operator (via logs or the optional audit cache) so it carries a stable
// code and a remediation hint, not just a message.
type RecoverableError interface {
	error
	ErrorCode() string
	Context() map[string]string
	SuggestedAction() string
}

// ConfigError reports a missing or invalid required configuration key.
type ConfigError struct {
	Key     string
	Problem string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Problem)
}

func (e *ConfigError) ErrorCode() string { return "config_invalid" }

func (e *ConfigError) Context() map[string]string {
	return map[string]string{"key": e.Key}
}

func (e *ConfigError) SuggestedAction() string {
	return fmt.Sprintf("set %s in config.toml or the matching TINA_ environment variable", e.Key)
}

// TransportError wraps any failure to reach the remote control plane.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("remote transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) ErrorCode() string { return "remote_transport" }

func (e *TransportError) Context() map[string]string {
	return map[string]string{"operation": e.Op}
}

func (e *TransportError) SuggestedAction() string {
	return "check connectivity to the configured convex_url; this operation will be retried"
}

// ParseError reports malformed JSON/TOML in an on-disk entity.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) ErrorCode() string { return "parse_error" }

func (e *ParseError) Context() map[string]string {
	return map[string]string{"path": e.Path}
}

func (e *ParseError) SuggestedAction() string {
	return "fix or remove the malformed file; it was skipped for this scan"
}

// InvalidTransitionError reports a rejected state-machine step. State is
// left unchanged by the caller.
type InvalidTransitionError struct {
	From PhaseStatus
	To   PhaseStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.To)
}

func (e *InvalidTransitionError) ErrorCode() string { return "invalid_transition" }

func (e *InvalidTransitionError) Context() map[string]string {
	return map[string]string{"from": string(e.From), "to": string(e.To)}
}

func (e *InvalidTransitionError) SuggestedAction() string {
	return "no state change was made; choose a status reachable from the current phase status"
}

// ClaimLostError reports that another node won the race to claim an action.
// Not a failure: the dispatcher logs at info and moves on.
type ClaimLostError struct {
	ActionID string
	Reason   string
}

func (e *ClaimLostError) Error() string {
	return fmt.Sprintf("action %s already claimed: %s", e.ActionID, e.Reason)
}

func (e *ClaimLostError) ErrorCode() string { return "claim_lost" }

func (e *ClaimLostError) Context() map[string]string {
	return map[string]string{"action_id": e.ActionID, "reason": e.Reason}
}

func (e *ClaimLostError) SuggestedAction() string {
	return "no action needed; another node is handling this action"
}

// SubprocessError reports a non-zero exit from the session CLI, or a timeout.
type SubprocessError struct {
	Argv     []string
	ExitCode int
	Stderr   string
	TimedOut bool
}

func (e *SubprocessError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("subprocess %v timed out", e.Argv)
	}
	return fmt.Sprintf("subprocess %v exited %d: %s", e.Argv, e.ExitCode, e.Stderr)
}

func (e *SubprocessError) ErrorCode() string {
	if e.TimedOut {
		return "subprocess_timeout"
	}
	return "subprocess_failed"
}

func (e *SubprocessError) Context() map[string]string {
	return map[string]string{"stderr": e.Stderr}
}

func (e *SubprocessError) SuggestedAction() string {
	if e.TimedOut {
		return "the session CLI did not complete within the configured timeout; inspect the worktree for a hung process"
	}
	return "inspect stderr and the session CLI's own logs; issue a fresh action once resolved"
}

// LivenessQueryErrorKind distinguishes the two failure shapes of a pane
// liveness query.
type LivenessQueryErrorKind string

const (
	// LivenessQueryNotInstalled means the multiplexer binary is missing.
	LivenessQueryNotInstalled LivenessQueryErrorKind = "not_installed"
	// LivenessQueryNotRunning means the multiplexer is installed but has no
	// active server/session; callers should treat the alive set as empty,
	// not as an error.
	LivenessQueryNotRunning LivenessQueryErrorKind = "not_running"
	// LivenessQueryFailed means the query failed for a reason other than
	// "not installed" or a recognized "not running" stderr marker.
	LivenessQueryFailed LivenessQueryErrorKind = "query_failed"
)

// LivenessQueryError reports a fatal pane-liveness query failure: the
// multiplexer binary is missing (LivenessQueryNotInstalled) or the query
// failed without a recognized "not running" marker (LivenessQueryFailed).
// "Not running" is not modeled as an error — callers get an empty alive set
// instead.
type LivenessQueryError struct {
	Kind LivenessQueryErrorKind
	Err  error
}

func (e *LivenessQueryError) Error() string {
	return fmt.Sprintf("pane liveness query: %s: %v", e.Kind, e.Err)
}

func (e *LivenessQueryError) Unwrap() error { return e.Err }

func (e *LivenessQueryError) ErrorCode() string { return "liveness_query_" + string(e.Kind) }

func (e *LivenessQueryError) Context() map[string]string {
	return map[string]string{"kind": string(e.Kind)}
}

func (e *LivenessQueryError) SuggestedAction() string {
	return "install the terminal multiplexer binary and ensure it is on PATH"
}
