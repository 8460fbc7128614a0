package project

// VisualBundle is the partial result of the optional stage-2 visuals step.
// Every field is independently present or absent; an empty field means the
// asset was not requested or its generation failed, never that an existing
// value should be cleared.
type VisualBundle struct {
	PosterBase64      string
	ConceptArtBase64  string
	Portraits         []CharacterPortrait
	ComparableArt     []ComparableArt
	StyleImagesBase64 []string
}

// CharacterPortrait pairs a generated portrait with the character it belongs
// to. Merging matches profiles by name.
type CharacterPortrait struct {
	Name        string
	ImageBase64 string
}

// ComparableArt pairs generated key art with a comparable title.
type ComparableArt struct {
	Title     string
	ArtBase64 string
}

// Empty reports whether the bundle carries no assets at all.
func (b VisualBundle) Empty() bool {
	return b.PosterBase64 == "" &&
		b.ConceptArtBase64 == "" &&
		len(b.Portraits) == 0 &&
		len(b.ComparableArt) == 0 &&
		len(b.StyleImagesBase64) == 0
}
