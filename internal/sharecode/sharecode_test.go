package sharecode_test

import (
	"errors"
	"strings"
	"testing"

	"greenlight/internal/project"
	"greenlight/internal/services"
	"greenlight/internal/sharecode"
)

func sampleProject() *project.Project {
	p := project.New("Vault Line", "INT. VAULT - NIGHT\nA thief hesitates.")
	p.ID = 42
	p.Stage1 = &project.Stage1Result{Logline: "a heist goes sideways", Synopsis: "s", Genre: "thriller", Tone: "tense"}
	p.Stage2 = &project.Stage2Result{
		Title:        "Vault Line",
		Tagline:      "Every lock has a story.",
		PosterBase64: strings.Repeat("poster", 200),
		CharacterProfiles: []project.CharacterProfile{
			{Name: "Mara", Description: "safecracker", ImageBase64: strings.Repeat("img", 100)},
		},
	}
	p.Stage3 = &project.Stage3Result{ShootDayEstimate: 18, BudgetBand: "mid"}
	p.FullScenes = []project.FullScene{{Number: 1, Heading: "INT. VAULT - NIGHT", Body: "A thief hesitates."}}
	return p
}

func TestRoundTrip(t *testing.T) {
	original := sampleProject()
	code, err := sharecode.Encode(original, false)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.HasPrefix(code, sharecode.Prefix) {
		t.Fatalf("code missing prefix: %.20s", code)
	}

	decoded, err := sharecode.Decode(code)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.ID != 0 {
		t.Fatalf("decoded project must carry no store id, got %d", decoded.ID)
	}
	if decoded.Name != original.Name || decoded.Script != original.Script {
		t.Fatal("name and script must round-trip")
	}
	if decoded.Stage1.Logline != original.Stage1.Logline {
		t.Fatal("stage results must round-trip")
	}
	if decoded.Stage2.PosterBase64 != original.Stage2.PosterBase64 {
		t.Fatal("full codes keep imagery")
	}
	if len(decoded.FullScenes) != 1 || decoded.FullScenes[0].Heading != "INT. VAULT - NIGHT" {
		t.Fatal("scenes must round-trip")
	}
}

func TestLiteStripsImageryAndShrinksCode(t *testing.T) {
	p := sampleProject()
	full, err := sharecode.Encode(p, false)
	if err != nil {
		t.Fatalf("Encode full: %v", err)
	}
	lite, err := sharecode.Encode(p, true)
	if err != nil {
		t.Fatalf("Encode lite: %v", err)
	}
	if len(lite) >= len(full) {
		t.Fatalf("lite code (%d) should be smaller than full (%d)", len(lite), len(full))
	}
	if p.Stage2.PosterBase64 == "" {
		t.Fatal("encoding must not mutate the caller's project")
	}

	decoded, err := sharecode.Decode(lite)
	if err != nil {
		t.Fatalf("Decode lite: %v", err)
	}
	if decoded.Stage2.PosterBase64 != "" {
		t.Fatal("lite code must carry no poster")
	}
	if decoded.Stage2.CharacterProfiles[0].ImageBase64 != "" {
		t.Fatal("lite code must carry no portraits")
	}
	if decoded.Stage2.Tagline != "Every lock has a story." {
		t.Fatal("lite code keeps non-image content")
	}
}

func TestDecodeRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		code string
	}{
		{"empty", ""},
		{"wrong prefix", "NOPE:abcdef"},
		{"prefix only", "GLP1:"},
		{"bad base64", "GLP1:!!!!"},
		{"not zstd", "GLP1:aGVsbG8"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := sharecode.Decode(tc.code); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
