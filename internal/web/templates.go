package web

import (
	"embed"
	"fmt"
	"html/template"
)

// Page templates are baked into the binary; the deployment ships a
// single executable plus the static tree.
//
//go:embed templates
var templateFS embed.FS

func parseTemplates() (*template.Template, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("web: parsing templates: %w", err)
	}
	return tmpl, nil
}
