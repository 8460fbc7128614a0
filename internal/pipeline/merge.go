package pipeline

import (
	"strings"

	"greenlight/internal/project"
)

// MergeVisuals patches a visual asset bundle onto an existing pitch deck and
// returns the patched copy. The merge is field level: an image field is
// overwritten only when the bundle carries a non-empty value for it, portraits
// patch only the character profiles they name, and array fields are replaced
// only when the bundle's array is non-empty. The input deck is not mutated.
func MergeVisuals(deck *project.Stage2Result, bundle project.VisualBundle) *project.Stage2Result {
	if deck == nil {
		return nil
	}
	merged := *deck
	merged.ComparableTitles = append([]project.ComparableTitle(nil), deck.ComparableTitles...)
	merged.CharacterProfiles = append([]project.CharacterProfile(nil), deck.CharacterProfiles...)
	merged.StyleImagesBase64 = append([]string(nil), deck.StyleImagesBase64...)

	if bundle.PosterBase64 != "" {
		merged.PosterBase64 = bundle.PosterBase64
	}
	if bundle.ConceptArtBase64 != "" {
		merged.ConceptArtBase64 = bundle.ConceptArtBase64
	}
	if len(bundle.StyleImagesBase64) > 0 {
		merged.StyleImagesBase64 = append([]string(nil), bundle.StyleImagesBase64...)
	}

	for _, portrait := range bundle.Portraits {
		if portrait.ImageBase64 == "" {
			continue
		}
		for i := range merged.CharacterProfiles {
			if nameKey(merged.CharacterProfiles[i].Name) == nameKey(portrait.Name) {
				merged.CharacterProfiles[i].ImageBase64 = portrait.ImageBase64
			}
		}
	}

	for _, art := range bundle.ComparableArt {
		if art.ArtBase64 == "" {
			continue
		}
		for i := range merged.ComparableTitles {
			if nameKey(merged.ComparableTitles[i].Title) == nameKey(art.Title) {
				merged.ComparableTitles[i].ArtBase64 = art.ArtBase64
			}
		}
	}

	return &merged
}

// remainingVisuals narrows the requested visual options to the assets still
// missing from the deck. Absence of an asset means "not yet produced", not
// failure, so a resumed run re-attempts only what is missing.
func remainingVisuals(deck *project.Stage2Result, opts *project.VisualOptions) project.VisualOptions {
	var remaining project.VisualOptions
	if deck == nil || !opts.Any() {
		return remaining
	}
	remaining.Poster = opts.Poster && deck.PosterBase64 == ""
	remaining.ConceptArt = opts.ConceptArt && deck.ConceptArtBase64 == ""
	if opts.Portraits {
		for _, profile := range deck.CharacterProfiles {
			if strings.TrimSpace(profile.Name) != "" && profile.ImageBase64 == "" {
				remaining.Portraits = true
				break
			}
		}
	}
	return remaining
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
