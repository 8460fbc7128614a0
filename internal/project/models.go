package project

import (
	"encoding/json"
	"strings"
	"time"
)

// Stage1Result is the narrative deconstruction produced by the first
// pipeline stage.
type Stage1Result struct {
	Logline    string      `json:"logline"`
	Synopsis   string      `json:"synopsis"`
	Genre      string      `json:"genre"`
	Tone       string      `json:"tone"`
	Themes     []string    `json:"themes,omitempty"`
	Characters []Character `json:"characters,omitempty"`
	ActBreaks  []ActBreak  `json:"act_breaks,omitempty"`
}

// Character is a named role identified during narrative deconstruction.
type Character struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Arc         string `json:"arc,omitempty"`
}

// ActBreak marks a structural boundary in the narrative.
type ActBreak struct {
	Act     int    `json:"act"`
	Summary string `json:"summary"`
}

// Stage2Result is the pitch deck produced by the second stage. The imagery
// fields start empty and are patched in field by field when the optional
// visuals step runs.
type Stage2Result struct {
	Title             string             `json:"title"`
	Tagline           string             `json:"tagline"`
	PitchSummary      string             `json:"pitch_summary"`
	TargetAudience    string             `json:"target_audience,omitempty"`
	ComparableTitles  []ComparableTitle  `json:"comparable_titles,omitempty"`
	CharacterProfiles []CharacterProfile `json:"character_profiles,omitempty"`
	PosterBase64      string             `json:"poster_base64,omitempty"`
	ConceptArtBase64  string             `json:"concept_art_base64,omitempty"`
	StyleImagesBase64 []string           `json:"style_images_base64,omitempty"`
}

// ComparableTitle is a "comps" entry in the pitch deck.
type ComparableTitle struct {
	Title       string `json:"title"`
	Reason      string `json:"reason"`
	ArtBase64   string `json:"art_base64,omitempty"`
	ReleaseYear int    `json:"release_year,omitempty"`
}

// CharacterProfile is a pitch-deck character entry, optionally carrying a
// generated portrait.
type CharacterProfile struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Casting     string `json:"casting,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

// Stage3Result is the production and scheduling breakdown.
type Stage3Result struct {
	ShootDayEstimate int              `json:"shoot_day_estimate"`
	BudgetBand       string           `json:"budget_band"`
	Locations        []LocationNeed   `json:"locations,omitempty"`
	Departments      []DepartmentNote `json:"departments,omitempty"`
	ScheduleNotes    string           `json:"schedule_notes,omitempty"`
}

// LocationNeed describes a location the production requires.
type LocationNeed struct {
	Name       string `json:"name"`
	Interior   bool   `json:"interior"`
	SceneCount int    `json:"scene_count"`
}

// DepartmentNote is a per-department production note.
type DepartmentNote struct {
	Department string `json:"department"`
	Note       string `json:"note"`
}

// FullScene is one parsed scene from the source script, produced alongside
// the stage-3 breakdown.
type FullScene struct {
	Number     int      `json:"number"`
	Heading    string   `json:"heading"`
	Body       string   `json:"body"`
	Characters []string `json:"characters,omitempty"`
}

// VisualOptions records which optional stage-2 visual assets were requested.
// Persisted on the project so a resumed run after a process restart keeps the
// original choice.
type VisualOptions struct {
	Poster     bool `json:"poster"`
	ConceptArt bool `json:"concept_art"`
	Portraits  bool `json:"portraits"`
}

// Any reports whether at least one visual asset was requested.
func (v *VisualOptions) Any() bool {
	return v != nil && (v.Poster || v.ConceptArt || v.Portraits)
}

// ToolState holds the tool-owned sub-states (shot ideas, image studio, AI
// prompter, saved shot lists, character DNA). The pipeline persists these
// opaquely and never reads or mutates them.
type ToolState struct {
	ShotIdeas      json.RawMessage `json:"shot_ideas,omitempty"`
	ImageStudio    json.RawMessage `json:"image_studio,omitempty"`
	AIPrompter     json.RawMessage `json:"ai_prompter,omitempty"`
	SavedShotLists json.RawMessage `json:"saved_shot_lists,omitempty"`
	CharacterDNA   json.RawMessage `json:"character_dna,omitempty"`
}

// Project is the unit of persistence and the orchestrator's working state.
// ID is zero until the first successful save and never changes afterward.
// A stage-result pointer being non-nil is the sole signal that the stage is
// done; resume skips any stage whose result is already populated.
type Project struct {
	ID            int64          `json:"id,omitempty"`
	Name          string         `json:"name"`
	Script        string         `json:"script"`
	Stage1        *Stage1Result  `json:"stage1_result,omitempty"`
	Stage2        *Stage2Result  `json:"stage2_result,omitempty"`
	Stage3        *Stage3Result  `json:"stage3_result,omitempty"`
	FullScenes    []FullScene    `json:"full_scenes,omitempty"`
	VisualOptions *VisualOptions `json:"visual_options,omitempty"`
	Tools         ToolState      `json:"tools,omitempty"`
	ReadOnly      bool           `json:"read_only,omitempty"`
	MirrorPath    string         `json:"mirror_path,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// New builds an unsaved project seeded with source text.
func New(name, script string) *Project {
	now := time.Now().UTC()
	return &Project{
		Name:      strings.TrimSpace(name),
		Script:    script,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Saved reports whether the project has been persisted at least once.
func (p *Project) Saved() bool {
	return p != nil && p.ID != 0
}

// Complete reports whether every pipeline stage has produced a result.
func (p *Project) Complete() bool {
	return p != nil && p.Stage1 != nil && p.Stage2 != nil && p.Stage3 != nil
}

// Clone returns a deep copy suitable for handing to observers while the
// orchestrator keeps mutating the original.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		cp := *p
		return &cp
	}
	var cp Project
	if err := json.Unmarshal(raw, &cp); err != nil {
		fallback := *p
		return &fallback
	}
	return &cp
}

// StripImagery removes embedded base64 imagery in place. Used by the lite
// share-code path so codes stay small.
func (p *Project) StripImagery() {
	if p == nil || p.Stage2 == nil {
		return
	}
	p.Stage2.PosterBase64 = ""
	p.Stage2.ConceptArtBase64 = ""
	p.Stage2.StyleImagesBase64 = nil
	for i := range p.Stage2.CharacterProfiles {
		p.Stage2.CharacterProfiles[i].ImageBase64 = ""
	}
	for i := range p.Stage2.ComparableTitles {
		p.Stage2.ComparableTitles[i].ArtBase64 = ""
	}
}
