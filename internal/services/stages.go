package services

// Stage names the pipeline phase an error or log line belongs to.
type Stage string

const (
	StageAnalyze   Stage = "analyze"
	StagePitch     Stage = "pitch"
	StageVisuals   Stage = "visuals"
	StageBreakdown Stage = "breakdown"
)
