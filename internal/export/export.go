// Package export writes projects to files and reads them back. JSON exports
// round-trip the full project document; the Markdown renderer produces a
// readable pitch document for sharing outside the tool.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"greenlight/internal/project"
	"greenlight/internal/services"
)

// WriteJSON exports the full project document to path, creating parent
// directories as needed.
func WriteJSON(path string, p *project.Project) error {
	if p == nil {
		return services.Wrap(services.ErrValidation, "", "export", "no project", nil)
	}
	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrValidation, "", "export", "encode project", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return services.Wrap(services.ErrPersistence, "", "export", fmt.Sprintf("create directory for %s", path), err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return services.Wrap(services.ErrPersistence, "", "export", fmt.Sprintf("write %s", path), err)
	}
	return nil
}

// ReadJSON imports a previously exported project document. The result carries
// no store id, so saving it creates a fresh project.
func ReadJSON(path string) (*project.Project, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "", "import", fmt.Sprintf("read %s", path), err)
	}
	var p project.Project
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "import", fmt.Sprintf("parse %s", path), err)
	}
	if strings.TrimSpace(p.Script) == "" {
		return nil, services.Wrap(services.ErrValidation, "", "import", "document has no source text", nil)
	}
	p.ID = 0
	return &p, nil
}
