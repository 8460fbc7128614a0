// Package sharecode turns a project into a compact, copy-pasteable code and
// back. Codes are zstd-compressed JSON in URL-safe base64 behind a versioned
// prefix. The lite variant strips embedded imagery first so codes stay small
// enough for chat and email.
package sharecode

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/klauspost/compress/zstd"

	"greenlight/internal/project"
	"greenlight/internal/services"
)

// Prefix identifies version 1 of the share-code format.
const Prefix = "GLP1:"

// decodeMemoryLimit bounds decompression so a hostile code cannot balloon.
const decodeMemoryLimit = 256 << 20

var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		panic(err)
	}
	decoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(decodeMemoryLimit))
	if err != nil {
		panic(err)
	}
}

// Encode serializes a project into a share code. When lite is set, embedded
// imagery is stripped from a copy first; the caller's project is untouched.
func Encode(p *project.Project, lite bool) (string, error) {
	if p == nil {
		return "", services.Wrap(services.ErrValidation, "", "sharecode", "no project", nil)
	}
	snapshot := p.Clone()
	snapshot.ID = 0
	if lite {
		snapshot.StripImagery()
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "", "sharecode", "encode project", err)
	}
	compressed := encoder.EncodeAll(raw, nil)
	return Prefix + base64.RawURLEncoding.EncodeToString(compressed), nil
}

// Decode parses a share code back into a project. The result carries no store
// id; saving it creates a fresh project.
func Decode(code string) (*project.Project, error) {
	code = strings.TrimSpace(code)
	body, ok := strings.CutPrefix(code, Prefix)
	if !ok || body == "" {
		return nil, services.Wrap(services.ErrValidation, "", "sharecode", "not a share code", nil)
	}
	compressed, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "sharecode", "malformed share code", err)
	}
	raw, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "sharecode", "corrupt share code", err)
	}
	var p project.Project
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "sharecode", "unreadable share code", err)
	}
	p.ID = 0
	return &p, nil
}
