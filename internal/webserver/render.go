package webserver

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lachlan2k/malaria-dash/internal/api"
	"github.com/lachlan2k/malaria-dash/internal/session"
	"github.com/yuin/goldmark"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutTemplate = "templates/layout.html"

// page is what every template renders from.
type page struct {
	Title  string
	Active string
	User   *session.Identity
	Error  string
	Notice string
	Data   interface{}
}

// renderer keeps one template set per page, each parsed together with the
// shared layout.
type renderer struct {
	pages map[string]*template.Template
}

func newRenderer(markdown goldmark.Markdown) (*renderer, error) {
	funcs := template.FuncMap{
		"markdown": func(source string) template.HTML {
			var buf bytes.Buffer
			if err := markdown.Convert([]byte(source), &buf); err != nil {
				return template.HTML(template.HTMLEscapeString(source))
			}
			return template.HTML(buf.String()) // nolint: gosec
		},
		"percent": func(f float64) string {
			return fmt.Sprintf("%.1f%%", f*100)
		},
		"datetime": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Local().Format("2006-01-02 15:04")
		},
		"resultClass": func(r api.ScreeningResult) string {
			return "result-" + strings.ToLower(r.String())
		},
	}

	pagePaths, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	pages := map[string]*template.Template{}
	for _, pagePath := range pagePaths {
		if pagePath == layoutTemplate {
			continue
		}
		tmpl, err := template.New(path.Base(layoutTemplate)).
			Funcs(funcs).
			ParseFS(templateFS, layoutTemplate, pagePath)
		if err != nil {
			return nil, fmt.Errorf("couldn't parse %s: %w", pagePath, err)
		}
		pages[strings.TrimSuffix(path.Base(pagePath), ".html")] = tmpl
	}

	return &renderer{pages: pages}, nil
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("no such template %q", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}
