// Package web holds the single-page chat UI served at "/".
package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded page templates. It panics on a malformed
// template, which can only happen at build time.
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}
