package app

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer produces rendered page bytes for a named view. The route table
// treats it as an opaque collaborator so tests can substitute their own.
type Renderer interface {
	Render(name string, data any) ([]byte, error)
}

// TemplateRenderer renders the embedded HTML templates.
type TemplateRenderer struct {
	templates *template.Template
}

// NewTemplateRenderer parses the embedded templates.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &TemplateRenderer{templates: t}, nil
}

// Render executes the named template with the given data.
func (tr *TemplateRenderer) Render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tr.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("failed to render %q: %w", name, err)
	}
	return buf.Bytes(), nil
}
