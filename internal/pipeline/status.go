package pipeline

// RunStatus is the ephemeral pipeline state. It is never persisted; after a
// restart the status is re-derived from the project's stage results.
type RunStatus string

const (
	StatusIdle                RunStatus = "idle"
	StatusRunningStage1       RunStatus = "running_stage_1"
	StatusRunningStage2       RunStatus = "running_stage_2"
	StatusRunningStage2Visual RunStatus = "running_stage_2_visuals"
	StatusRunningStage3       RunStatus = "running_stage_3"
	StatusPaused              RunStatus = "paused"
	StatusComplete            RunStatus = "complete"
	StatusError               RunStatus = "error"
)

// Running reports whether a stage call may currently be in flight.
func (s RunStatus) Running() bool {
	switch s {
	case StatusRunningStage1, StatusRunningStage2, StatusRunningStage2Visual, StatusRunningStage3:
		return true
	}
	return false
}

func (s RunStatus) String() string {
	return string(s)
}
