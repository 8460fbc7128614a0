package gemini

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"greenlight/internal/project"
	"greenlight/internal/services"
)

// RunStage1 deconstructs the source text into logline, synopsis, genre, tone,
// themes, characters, and act breaks.
func (c *Client) RunStage1(ctx context.Context, sourceText string) (*project.Stage1Result, error) {
	const op = "stage1"
	payload, err := c.completeJSON(ctx, op, stage1SystemPrompt, sourceText)
	if err != nil {
		return nil, err
	}
	var result project.Stage1Result
	if err := DecodeModelJSON(payload, &result); err != nil {
		return nil, services.Wrap(services.ErrTransient, string(services.StageAnalyze), op, "decode stage1 result", err)
	}
	if strings.TrimSpace(result.Logline) == "" {
		return nil, services.Wrap(services.ErrEmptyResponse, string(services.StageAnalyze), op, "model returned no logline", nil)
	}
	return &result, nil
}

// RunStage2 builds the pitch deck on top of the stage-1 narrative summary.
func (c *Client) RunStage2(ctx context.Context, sourceText, logline, synopsis string) (*project.Stage2Result, error) {
	const op = "stage2"
	userPrompt := fmt.Sprintf("Logline: %s\n\nSynopsis: %s\n\nSource material:\n%s", logline, synopsis, sourceText)
	payload, err := c.completeJSON(ctx, op, stage2SystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}
	var result project.Stage2Result
	if err := DecodeModelJSON(payload, &result); err != nil {
		return nil, services.Wrap(services.ErrTransient, string(services.StagePitch), op, "decode stage2 result", err)
	}
	if strings.TrimSpace(result.Title) == "" {
		return nil, services.Wrap(services.ErrEmptyResponse, string(services.StagePitch), op, "model returned no title", nil)
	}
	return &result, nil
}

// RunStage2Visuals generates the requested visual assets for an existing pitch
// deck. Image calls run sequentially with a throttle delay between them; a
// single failed asset is skipped rather than aborting the rest, so the bundle
// may come back partially filled. The input deck is never mutated.
func (c *Client) RunStage2Visuals(ctx context.Context, deck *project.Stage2Result, opts project.VisualOptions) (project.VisualBundle, error) {
	var bundle project.VisualBundle
	if deck == nil {
		return bundle, services.Wrap(services.ErrValidation, string(services.StageVisuals), "visuals", "pitch deck required", nil)
	}
	if !opts.Any() {
		return bundle, nil
	}

	styleCues := comparableStyleCues(deck.ComparableTitles)
	first := true
	throttle := func() error {
		if first {
			first = false
			return nil
		}
		return c.sleep(ctx, c.portraitDelay)
	}

	if opts.Poster {
		if err := throttle(); err != nil {
			return bundle, err
		}
		prompt := fmt.Sprintf(posterPromptTemplate, deck.Title, deck.Tagline, styleCues)
		data, err := c.generateImage(ctx, "visuals.poster", prompt)
		if err != nil {
			if ctxDone(err) {
				return bundle, err
			}
		} else {
			bundle.PosterBase64 = data
		}
	}

	if opts.ConceptArt {
		if err := throttle(); err != nil {
			return bundle, err
		}
		prompt := fmt.Sprintf(conceptArtPromptTemplate, deck.Title, deck.PitchSummary)
		data, err := c.generateImage(ctx, "visuals.concept_art", prompt)
		if err != nil {
			if ctxDone(err) {
				return bundle, err
			}
		} else {
			bundle.ConceptArtBase64 = data
		}
	}

	if opts.Portraits {
		for _, profile := range deck.CharacterProfiles {
			name := strings.TrimSpace(profile.Name)
			if name == "" || profile.ImageBase64 != "" {
				continue
			}
			if err := throttle(); err != nil {
				return bundle, err
			}
			prompt := fmt.Sprintf(portraitPromptTemplate, name, profile.Description)
			data, err := c.generateImage(ctx, "visuals.portrait", prompt)
			if err != nil {
				if ctxDone(err) {
					return bundle, err
				}
				continue
			}
			bundle.Portraits = append(bundle.Portraits, project.CharacterPortrait{
				Name:        name,
				ImageBase64: data,
			})
		}
	}

	return bundle, nil
}

// RunStage3 produces the production and scheduling breakdown.
func (c *Client) RunStage3(ctx context.Context, sourceText string) (*project.Stage3Result, error) {
	const op = "stage3"
	payload, err := c.completeJSON(ctx, op, stage3SystemPrompt, sourceText)
	if err != nil {
		return nil, err
	}
	var result project.Stage3Result
	if err := DecodeModelJSON(payload, &result); err != nil {
		return nil, services.Wrap(services.ErrTransient, string(services.StageBreakdown), op, "decode stage3 result", err)
	}
	if strings.TrimSpace(result.BudgetBand) == "" {
		return nil, services.Wrap(services.ErrEmptyResponse, string(services.StageBreakdown), op, "model returned no budget band", nil)
	}
	return &result, nil
}

// ExtractScenes splits the source screenplay into numbered scenes.
func (c *Client) ExtractScenes(ctx context.Context, sourceText string) ([]project.FullScene, error) {
	const op = "scenes"
	payload, err := c.completeJSON(ctx, op, sceneExtractionSystemPrompt, sourceText)
	if err != nil {
		return nil, err
	}
	var result struct {
		Scenes []project.FullScene `json:"scenes"`
	}
	if err := DecodeModelJSON(payload, &result); err != nil {
		return nil, services.Wrap(services.ErrTransient, string(services.StageBreakdown), op, "decode scenes", err)
	}
	if len(result.Scenes) == 0 {
		return nil, services.Wrap(services.ErrEmptyResponse, string(services.StageBreakdown), op, "model returned no scenes", nil)
	}
	for i := range result.Scenes {
		if result.Scenes[i].Number == 0 {
			result.Scenes[i].Number = i + 1
		}
	}
	return result.Scenes, nil
}

func comparableStyleCues(comps []project.ComparableTitle) string {
	titles := make([]string, 0, len(comps))
	for _, comp := range comps {
		if title := strings.TrimSpace(comp.Title); title != "" {
			titles = append(titles, title)
		}
	}
	if len(titles) == 0 {
		return "contemporary theatrical release"
	}
	sort.Strings(titles)
	if len(titles) > 3 {
		titles = titles[:3]
	}
	return "in the visual register of " + strings.Join(titles, ", ")
}

func ctxDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
