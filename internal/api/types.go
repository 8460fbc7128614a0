package api

import (
	"time"

	"greenlight/internal/pipeline"
	"greenlight/internal/project"
	"greenlight/internal/services"
)

// ProjectSummary is the transport representation of a project in listings.
type ProjectSummary struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Logline   string    `json:"logline,omitempty"`
	Stages    string    `json:"stages"`
	Complete  bool      `json:"complete"`
	ReadOnly  bool      `json:"readOnly,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RunOutcome reports where a pipeline run ended up. Transient marks failures
// that are worth resuming without changing anything first.
type RunOutcome struct {
	ProjectID int64              `json:"projectId"`
	Status    pipeline.RunStatus `json:"status"`
	Error     string             `json:"error,omitempty"`
	Hint      string             `json:"hint,omitempty"`
	Transient bool               `json:"transient,omitempty"`
}

// FromProject builds a summary DTO from a project.
func FromProject(p *project.Project) ProjectSummary {
	summary := ProjectSummary{
		ID:        p.ID,
		Name:      p.Name,
		Stages:    stageProgress(p),
		Complete:  p.Complete(),
		ReadOnly:  p.ReadOnly,
		UpdatedAt: p.UpdatedAt,
	}
	if p.Stage1 != nil {
		summary.Logline = p.Stage1.Logline
	}
	return summary
}

func stageProgress(p *project.Project) string {
	done := 0
	if p.Stage1 != nil {
		done++
	}
	if p.Stage2 != nil {
		done++
	}
	if p.Stage3 != nil {
		done++
	}
	switch done {
	case 0:
		return "0/3"
	case 1:
		return "1/3"
	case 2:
		return "2/3"
	default:
		return "3/3"
	}
}

func outcomeFor(id int64, status pipeline.RunStatus, runErr error) RunOutcome {
	outcome := RunOutcome{ProjectID: id, Status: status}
	if runErr != nil {
		outcome.Error = runErr.Error()
		outcome.Hint = services.UserHint(runErr)
		outcome.Transient = services.IsTransient(runErr)
	}
	return outcome
}
