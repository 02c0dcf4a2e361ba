package localfs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/joshuabates/tina-daemon/internal/models"
)

// phaseFile is the on-disk shape of one entry in supervisor-state.json's
// "phases" map.
type phaseFile struct {
	Status             models.PhaseStatus `json:"status"`
	PlanPath           string             `json:"plan_path,omitempty"`
	GitRange           string             `json:"git_range,omitempty"`
	PlanningStartedAt  *time.Time         `json:"planning_started_at,omitempty"`
	ExecutionStartedAt *time.Time         `json:"execution_started_at,omitempty"`
	ReviewStartedAt    *time.Time         `json:"review_started_at,omitempty"`
	CompletedAt        *time.Time         `json:"completed_at,omitempty"`
	BlockedReason      string             `json:"blocked_reason,omitempty"`
	DurationMins       *float64           `json:"duration_mins,omitempty"`
	Breakdown          struct {
		PlanningMins  *float64 `json:"planning_mins,omitempty"`
		ExecutionMins *float64 `json:"execution_mins,omitempty"`
		ReviewMins    *float64 `json:"review_mins,omitempty"`
	} `json:"breakdown"`
}

// supervisorStateFile is the on-disk shape of <worktree>/.claude/tina/supervisor-state.json.
type supervisorStateFile struct {
	Version               int                  `json:"version"`
	Feature               string               `json:"feature"`
	DesignDoc             string               `json:"design_doc,omitempty"`
	WorktreePath          string               `json:"worktree_path"`
	Branch                string               `json:"branch"`
	TotalPhases           int                  `json:"total_phases"`
	CurrentPhase          int                  `json:"current_phase"`
	Status                models.OrchestrationStatus `json:"status"`
	OrchestrationStartedAt time.Time           `json:"orchestration_started_at"`
	CompletedAt           *time.Time           `json:"completed_at,omitempty"`
	Phases                map[string]phaseFile `json:"phases"`
	Timing                struct {
		TotalElapsedMins *float64 `json:"total_elapsed_mins,omitempty"`
	} `json:"timing"`
}

func fileToPhase(number string, pf phaseFile) *models.Phase {
	return &models.Phase{
		PhaseNumber:        number,
		Status:             pf.Status,
		PlanPath:           pf.PlanPath,
		GitRange:           pf.GitRange,
		PlanningStartedAt:  pf.PlanningStartedAt,
		ExecutionStartedAt: pf.ExecutionStartedAt,
		ReviewStartedAt:    pf.ReviewStartedAt,
		CompletedAt:        pf.CompletedAt,
		BlockedReason:      pf.BlockedReason,
		DurationMins:       pf.DurationMins,
		Breakdown: models.TimingBreakdown{
			PlanningMins:  pf.Breakdown.PlanningMins,
			ExecutionMins: pf.Breakdown.ExecutionMins,
			ReviewMins:    pf.Breakdown.ReviewMins,
		},
	}
}

func phaseToFile(p *models.Phase) phaseFile {
	pf := phaseFile{
		Status:             p.Status,
		PlanPath:           p.PlanPath,
		GitRange:           p.GitRange,
		PlanningStartedAt:  p.PlanningStartedAt,
		ExecutionStartedAt: p.ExecutionStartedAt,
		ReviewStartedAt:    p.ReviewStartedAt,
		CompletedAt:        p.CompletedAt,
		BlockedReason:      p.BlockedReason,
		DurationMins:       p.DurationMins,
	}
	pf.Breakdown.PlanningMins = p.Breakdown.PlanningMins
	pf.Breakdown.ExecutionMins = p.Breakdown.ExecutionMins
	pf.Breakdown.ReviewMins = p.Breakdown.ReviewMins
	return pf
}

// ReadSupervisorState parses a supervisor-state.json into its in-memory
// Orchestration representation.
func ReadSupervisorState(path string) (*models.Orchestration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sf supervisorStateFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, &models.ParseError{Path: path, Err: err}
	}

	o := &models.Orchestration{
		Version:          sf.Version,
		Feature:          sf.Feature,
		DesignDoc:        sf.DesignDoc,
		WorktreePath:     sf.WorktreePath,
		Branch:           sf.Branch,
		TotalPhases:      sf.TotalPhases,
		CurrentPhase:     sf.CurrentPhase,
		Status:           sf.Status,
		StartedAt:        sf.OrchestrationStartedAt,
		CompletedAt:      sf.CompletedAt,
		TotalElapsedMins: sf.Timing.TotalElapsedMins,
		Phases:           make(map[string]*models.Phase, len(sf.Phases)),
	}
	for number, pf := range sf.Phases {
		o.Phases[number] = fileToPhase(number, pf)
	}
	return o, nil
}

// WriteSupervisorStateAtomic serializes o and writes it to path using the
// write-temp-then-rename discipline, so a reader never observes a partial
// file.
func WriteSupervisorStateAtomic(path string, o *models.Orchestration) error {
	sf := supervisorStateFile{
		Version:                o.Version,
		Feature:                o.Feature,
		DesignDoc:              o.DesignDoc,
		WorktreePath:           o.WorktreePath,
		Branch:                 o.Branch,
		TotalPhases:            o.TotalPhases,
		CurrentPhase:           o.CurrentPhase,
		Status:                 o.Status,
		OrchestrationStartedAt: o.StartedAt,
		CompletedAt:            o.CompletedAt,
		Phases:                 make(map[string]phaseFile, len(o.Phases)),
	}
	sf.Timing.TotalElapsedMins = o.TotalElapsedMins
	for number, p := range o.Phases {
		sf.Phases[number] = phaseToFile(p)
	}

	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".supervisor-state-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
