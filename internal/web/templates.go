package web

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/justestif/go-spotify-custom-player/internal/session"
	"github.com/justestif/go-spotify-custom-player/internal/view"
)

// Templates manages HTML template rendering.
type Templates struct {
	templates map[string]*template.Template
	partials  map[string]*template.Template
	funcs     template.FuncMap
}

// NewTemplates creates a new template manager by loading templates from the given filesystem.
func NewTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{
		templates: make(map[string]*template.Template),
		partials:  make(map[string]*template.Template),
		funcs:     defaultFuncs(),
	}

	if err := t.load(templatesFS); err != nil {
		return nil, err
	}

	return t, nil
}

// Render renders a page template with the given data.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	tmpl, ok := t.templates[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}

	// Execute the "base" template which includes the page content
	return tmpl.ExecuteTemplate(w, "base", data)
}

// RenderPartial renders a partial template (without base layout) with the given data.
func (t *Templates) RenderPartial(w io.Writer, partial string, data any) error {
	tmpl, ok := t.partials[partial]
	if !ok {
		return fmt.Errorf("partial %q not found", partial)
	}
	return tmpl.Execute(w, data)
}

// load parses all templates from the filesystem.
func (t *Templates) load(templatesFS fs.FS) error {
	// Load base layout
	layoutPattern := "layouts/*.html"
	layouts, err := fs.Glob(templatesFS, layoutPattern)
	if err != nil {
		return fmt.Errorf("finding layouts: %w", err)
	}

	// Load partials
	partialPattern := "partials/*.html"
	partials, err := fs.Glob(templatesFS, partialPattern)
	if err != nil {
		return fmt.Errorf("finding partials: %w", err)
	}

	// Load each page template with layouts and partials
	pagePattern := "pages/*.html"
	pages, err := fs.Glob(templatesFS, pagePattern)
	if err != nil {
		return fmt.Errorf("finding pages: %w", err)
	}

	for _, page := range pages {
		// Create a new template for each page
		name := filepath.Base(page)
		name = name[:len(name)-len(".html")] // Remove .html extension

		// Layouts go first so a page's define overrides the layout's block defaults.
		files := make([]string, 0, len(layouts)+len(partials)+1)
		files = append(files, layouts...)
		files = append(files, page)
		files = append(files, partials...)

		tmpl, err := template.New(name).Funcs(t.funcs).ParseFS(templatesFS, files...)
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}

		t.templates[name] = tmpl
	}

	// Load partials as standalone templates for polled fragments
	for _, partial := range partials {
		name := filepath.Base(partial)
		name = name[:len(name)-len(".html")] // Remove .html extension

		tmpl, err := template.New(name).Funcs(t.funcs).ParseFS(templatesFS, partial)
		if err != nil {
			return fmt.Errorf("parsing partial %s: %w", name, err)
		}
		t.partials[name] = tmpl
	}

	return nil
}

// defaultFuncs returns the default template functions.
func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		// pageTitle suffixes a page title with the application name.
		"pageTitle": func(title string) string {
			if title == "" {
				return appName
			}
			return title + " | " + appName
		},

		// year returns the current year for the footer.
		"year": func() int {
			return time.Now().Year()
		},

		// isLarge reports whether the layout is the large player.
		"isLarge": func(size session.Size) bool {
			return size == session.SizeLarge
		},
	}
}

const appName = "Custom Player"

// PageData contains common data passed to all page templates.
type PageData struct {
	Title         string
	Authenticated bool
	Flash         *FlashMessage
	CurrentPath   string
}

// FlashMessage represents a temporary notification message.
type FlashMessage struct {
	Type    string // "success", "error", "warning", "info"
	Message string
}

// HomePageData contains data for the home page template.
type HomePageData struct {
	PageData
	Name string
}

// SignInPageData contains data for the sign-in page template.
type SignInPageData struct {
	PageData
	AuthURL string
}

// UploadPageData contains data for the upload form template.
type UploadPageData struct {
	PageData
	URL  string
	Size session.Size
}

// PlayerPageData contains data for the custom player templates.
type PlayerPageData struct {
	PageData
	Player view.Data
}

// ErrorPageData contains data for the error page template.
type ErrorPageData struct {
	PageData
	Message string
}
