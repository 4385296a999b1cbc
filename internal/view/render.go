package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer executes the embedded dashboard templates.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// RenderPage writes the full dashboard document.
func (r *Renderer) RenderPage(w io.Writer, d Dashboard) error {
	return r.execute(w, "page", d)
}

// RenderRooms writes only the room grid.
func (r *Renderer) RenderRooms(w io.Writer, d Dashboard) error {
	return r.execute(w, "rooms", d)
}

// RoomsHTML renders the room grid into a string for live pushes.
func (r *Renderer) RoomsHTML(d Dashboard) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderRooms(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *Renderer) execute(w io.Writer, name string, d Dashboard) error {
	// render into a buffer so a template error never leaves half a page
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, d); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
