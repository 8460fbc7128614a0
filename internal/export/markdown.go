package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"greenlight/internal/project"
	"greenlight/internal/services"
)

// RenderMarkdown produces a pitch document from whatever stages have
// completed. Missing stages are simply omitted, so a paused project still
// renders its finished portion. Embedded imagery is referenced by presence,
// never inlined.
func RenderMarkdown(p *project.Project) string {
	if p == nil {
		return ""
	}
	// Casers carry internal state, so build one per call.
	titleCaser := cases.Title(language.English)
	var b strings.Builder

	title := strings.TrimSpace(p.Name)
	if p.Stage2 != nil && strings.TrimSpace(p.Stage2.Title) != "" {
		title = p.Stage2.Title
	}
	if title == "" {
		title = "Untitled Project"
	}
	fmt.Fprintf(&b, "# %s\n", title)
	if p.Stage2 != nil && p.Stage2.Tagline != "" {
		fmt.Fprintf(&b, "\n*%s*\n", p.Stage2.Tagline)
	}

	if s1 := p.Stage1; s1 != nil {
		b.WriteString("\n## Story\n\n")
		if s1.Logline != "" {
			fmt.Fprintf(&b, "**Logline.** %s\n\n", s1.Logline)
		}
		if s1.Synopsis != "" {
			fmt.Fprintf(&b, "%s\n\n", s1.Synopsis)
		}
		meta := make([]string, 0, 3)
		if s1.Genre != "" {
			meta = append(meta, titleCaser.String(s1.Genre))
		}
		if s1.Tone != "" {
			meta = append(meta, titleCaser.String(s1.Tone))
		}
		if len(s1.Themes) > 0 {
			meta = append(meta, strings.Join(s1.Themes, ", "))
		}
		if len(meta) > 0 {
			fmt.Fprintf(&b, "_%s_\n", strings.Join(meta, " / "))
		}
		if len(s1.Characters) > 0 {
			b.WriteString("\n### Characters\n\n")
			for _, c := range s1.Characters {
				fmt.Fprintf(&b, "- **%s**: %s\n", c.Name, c.Description)
			}
		}
		if len(s1.ActBreaks) > 0 {
			b.WriteString("\n### Structure\n\n")
			for _, act := range s1.ActBreaks {
				fmt.Fprintf(&b, "%d. %s\n", act.Act, act.Summary)
			}
		}
	}

	if s2 := p.Stage2; s2 != nil {
		b.WriteString("\n## Pitch\n\n")
		if s2.PitchSummary != "" {
			fmt.Fprintf(&b, "%s\n", s2.PitchSummary)
		}
		if s2.TargetAudience != "" {
			fmt.Fprintf(&b, "\n**Audience.** %s\n", s2.TargetAudience)
		}
		if len(s2.ComparableTitles) > 0 {
			b.WriteString("\n### Comparable Titles\n\n")
			for _, comp := range s2.ComparableTitles {
				line := fmt.Sprintf("- **%s**", comp.Title)
				if comp.ReleaseYear > 0 {
					line += fmt.Sprintf(" (%d)", comp.ReleaseYear)
				}
				if comp.Reason != "" {
					line += " - " + comp.Reason
				}
				b.WriteString(line + "\n")
			}
		}
		if len(s2.CharacterProfiles) > 0 {
			b.WriteString("\n### Casting\n\n")
			for _, profile := range s2.CharacterProfiles {
				line := fmt.Sprintf("- **%s**: %s", profile.Name, profile.Description)
				if profile.Casting != "" {
					line += fmt.Sprintf(" (suggested: %s)", profile.Casting)
				}
				if profile.ImageBase64 != "" {
					line += " [portrait attached]"
				}
				b.WriteString(line + "\n")
			}
		}
	}

	if s3 := p.Stage3; s3 != nil {
		b.WriteString("\n## Production\n\n")
		fmt.Fprintf(&b, "Estimated shoot days: %d. Budget band: %s.\n", s3.ShootDayEstimate, titleCaser.String(s3.BudgetBand))
		if len(s3.Locations) > 0 {
			b.WriteString("\n### Locations\n\n")
			for _, loc := range s3.Locations {
				kind := "EXT"
				if loc.Interior {
					kind = "INT"
				}
				fmt.Fprintf(&b, "- %s (%s, %d scenes)\n", loc.Name, kind, loc.SceneCount)
			}
		}
		if len(s3.Departments) > 0 {
			b.WriteString("\n### Departments\n\n")
			for _, dept := range s3.Departments {
				fmt.Fprintf(&b, "- **%s**: %s\n", titleCaser.String(dept.Department), dept.Note)
			}
		}
		if s3.ScheduleNotes != "" {
			fmt.Fprintf(&b, "\n%s\n", s3.ScheduleNotes)
		}
	}

	if len(p.FullScenes) > 0 {
		fmt.Fprintf(&b, "\n## Scenes (%d)\n\n", len(p.FullScenes))
		for _, scene := range p.FullScenes {
			fmt.Fprintf(&b, "%d. %s\n", scene.Number, scene.Heading)
		}
	}

	return b.String()
}

// WriteMarkdown renders the pitch document and writes it to path.
func WriteMarkdown(path string, p *project.Project) error {
	doc := RenderMarkdown(p)
	if err := writeText(path, doc); err != nil {
		return err
	}
	return nil
}

func writeText(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return services.Wrap(services.ErrPersistence, "", "export", fmt.Sprintf("create directory for %s", path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return services.Wrap(services.ErrPersistence, "", "export", fmt.Sprintf("write %s", path), err)
	}
	return nil
}
