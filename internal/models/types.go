// Package models holds the domain entities mirrored between on-disk state
// and the remote control-plane document store.
package models

import "time"

// PhaseStatus is the state of a single phase within an orchestration.
type PhaseStatus string

// Phase status constants. See the transition table owned by statemachine.
const (
	PhaseStatusPlanning  PhaseStatus = "planning"
	PhaseStatusPlanned   PhaseStatus = "planned"
	PhaseStatusExecuting PhaseStatus = "executing"
	PhaseStatusReviewing PhaseStatus = "reviewing"
	PhaseStatusComplete  PhaseStatus = "complete"
	PhaseStatusBlocked   PhaseStatus = "blocked"
)

// IsTerminal returns true once a phase can never transition again.
func (s PhaseStatus) IsTerminal() bool {
	return s == PhaseStatusComplete
}

// OrchestrationStatus mirrors the orchestration header's status field.
type OrchestrationStatus string

// Orchestration status constants.
const (
	OrchestrationStatusPlanning  OrchestrationStatus = "planning"
	OrchestrationStatusExecuting OrchestrationStatus = "executing"
	OrchestrationStatusReviewing OrchestrationStatus = "reviewing"
	OrchestrationStatusComplete  OrchestrationStatus = "complete"
	OrchestrationStatusBlocked   OrchestrationStatus = "blocked"
)

// TaskEventStatus is the status field of a task event snapshot.
type TaskEventStatus string

// Task event status constants.
const (
	TaskEventStatusPending    TaskEventStatus = "pending"
	TaskEventStatusInProgress TaskEventStatus = "in_progress"
	TaskEventStatusCompleted  TaskEventStatus = "completed"
)

// ActionType is the tagged variant of an inbound operator action.
type ActionType string

// Action type constants — the exhaustive set the dispatcher recognizes.
const (
	ActionApprovePlan ActionType = "approve_plan"
	ActionRejectPlan  ActionType = "reject_plan"
	ActionPause       ActionType = "pause"
	ActionResume      ActionType = "resume"
	ActionRetry       ActionType = "retry"
)

// ActionStatus is the lifecycle state of an inbound action in the remote store.
type ActionStatus string

// Action status constants.
const (
	ActionStatusPending   ActionStatus = "pending"
	ActionStatusClaimed   ActionStatus = "claimed"
	ActionStatusCompleted ActionStatus = "completed"
	ActionStatusFailed    ActionStatus = "failed"
)

// Node represents a registered workstation.
type Node struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	OS            string `json:"os"`
	HashedToken   string `json:"hashed_token"`
	RegisteredAt  time.Time `json:"registered_at"`
}

// TimingBreakdown holds the three timing buckets for a phase.
//
// Once a bucket is set it is monotonic: later upserts must not overwrite it
// (COALESCE semantics — see statemachine).
type TimingBreakdown struct {
	PlanningMins   *float64 `json:"planning_mins,omitempty"`
	ExecutionMins  *float64 `json:"execution_mins,omitempty"`
	ReviewMins     *float64 `json:"review_mins,omitempty"`
}

// Phase is one step of an orchestration, keyed by (orchestration, phase number).
//
// PhaseNumber is a dotted-decimal string: integer phases are 1..=TotalPhases;
// strings containing a dot are dynamically created remediation phases and
// bypass bounds checking (see statemachine.ParsePhaseNumber).
type Phase struct {
	PhaseNumber         string          `json:"phase_number"`
	Status              PhaseStatus     `json:"status"`
	PlanPath            string          `json:"plan_path,omitempty"`
	GitRange            string          `json:"git_range,omitempty"`
	PlanningStartedAt   *time.Time      `json:"planning_started_at,omitempty"`
	ExecutionStartedAt  *time.Time      `json:"execution_started_at,omitempty"`
	ReviewStartedAt     *time.Time      `json:"review_started_at,omitempty"`
	CompletedAt         *time.Time      `json:"completed_at,omitempty"`
	BlockedReason       string          `json:"blocked_reason,omitempty"`
	DurationMins        *float64        `json:"duration_mins,omitempty"`
	Breakdown           TimingBreakdown `json:"breakdown"`
}

// IsIntegerPhase reports whether PhaseNumber is a whole-number phase
// identifier, as opposed to a dotted-decimal remediation phase.
func (p *Phase) IsIntegerPhase() bool {
	for _, r := range p.PhaseNumber {
		if r < '0' || r > '9' {
			return false
		}
	}
	return p.PhaseNumber != ""
}

// Orchestration is a feature under development, owned on disk by the
// session CLI and mirrored by the daemon.
type Orchestration struct {
	Version               int                 `json:"version"`
	NodeID                string              `json:"node_id"`
	Feature               string              `json:"feature"`
	DesignDoc             string              `json:"design_doc,omitempty"`
	WorktreePath          string              `json:"worktree_path"`
	Branch                string              `json:"branch"`
	TotalPhases           int                 `json:"total_phases"`
	CurrentPhase          int                 `json:"current_phase"`
	Status                OrchestrationStatus `json:"status"`
	StartedAt             time.Time           `json:"started_at"`
	CompletedAt           *time.Time          `json:"completed_at,omitempty"`
	TotalElapsedMins      *float64            `json:"total_elapsed_mins,omitempty"`
	Phases                map[string]*Phase   `json:"phases"`
}

// TeamMember is an agent within a team.
type TeamMember struct {
	AgentID       string    `json:"agent_id"`
	Name          string    `json:"name"`
	AgentType     string    `json:"agent_type"`
	Model         string    `json:"model"`
	JoinedAt      time.Time `json:"joined_at"`
	TmuxPaneID    string    `json:"tmux_pane_id,omitempty"`
	Cwd           string    `json:"cwd"`
	Subscriptions []string  `json:"subscriptions,omitempty"`
}

// Team is a group of agents sharing a working directory.
type Team struct {
	Name           string       `json:"name"`
	LeadSessionID  string       `json:"lead_session_id"`
	Members        []TeamMember `json:"members"`
}

// IsOrchestratorTeam reports whether this team coordinates an orchestration
// rather than executing a single phase.
func (t *Team) IsOrchestratorTeam() bool {
	const suffix = "-orchestration"
	return len(t.Name) > len(suffix) && t.Name[len(t.Name)-len(suffix):] == suffix
}

// TaskEvent is the latest-known snapshot of a task, addressed by
// (orchestration, task id); the daemon only ever sees the latest event.
type TaskEvent struct {
	TaskID      string          `json:"task_id"`
	Subject     string          `json:"subject"`
	Description string          `json:"description,omitempty"`
	Status      TaskEventStatus `json:"status"`
	Owner       string          `json:"owner,omitempty"`
	BlockedBy   []string        `json:"blocked_by,omitempty"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
}

// ActiveTerminalSession is a row in the remote store referencing a tmux pane.
type ActiveTerminalSession struct {
	SessionName string `json:"session_name"`
	PaneID      string `json:"pane_id"`
}

// TeamMemberWithPane pairs a team member with its tmux pane, as returned by
// the remote store for pane reconciliation.
type TeamMemberWithPane struct {
	TeamName string `json:"team_name"`
	AgentID  string `json:"agent_id"`
	PaneID   string `json:"pane_id"`
}

// InboundActionPayload is the opaque per-action-type payload.
type InboundActionPayload struct {
	Feature  string `json:"feature,omitempty"`
	Phase    string `json:"phase,omitempty"`
	Feedback string `json:"feedback,omitempty"`
	Issues   string `json:"issues,omitempty"`
}

// InboundAction is a work item issued by an operator via the remote store.
// Payload arrives as a JSON-encoded string, not a nested object — the
// remote store treats it as opaque and the dispatcher is responsible for
// decoding it into InboundActionPayload before use.
type InboundAction struct {
	ID              string       `json:"id"`
	NodeID          string       `json:"node_id"`
	OrchestrationID string       `json:"orchestration_id"`
	ActionType      ActionType   `json:"action_type"`
	Payload         string       `json:"payload"`
	Status          ActionStatus `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
}
