package web

import (
	"bytes"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/justestif/go-spotify-custom-player/internal/view"
	assets "github.com/justestif/go-spotify-custom-player/web"
)

func loadTemplates(t *testing.T) *Templates {
	t.Helper()
	sub, err := fs.Sub(assets.TemplatesFS, "templates")
	if err != nil {
		t.Fatalf("fs.Sub() error = %v", err)
	}
	tmpl, err := NewTemplates(sub)
	if err != nil {
		t.Fatalf("NewTemplates() error = %v", err)
	}
	return tmpl
}

func TestTemplates_AllPagesLoad(t *testing.T) {
	tmpl := loadTemplates(t)

	for _, page := range []string{"home", "signin", "upload", "error", string(view.CustomSmall), string(view.CustomLarge)} {
		if _, ok := tmpl.templates[page]; !ok {
			t.Errorf("page %q not loaded", page)
		}
	}
	if _, ok := tmpl.partials["track"]; !ok {
		t.Error("partial \"track\" not loaded")
	}
}

func TestTemplates_RenderUnknown(t *testing.T) {
	tmpl := loadTemplates(t)

	if err := tmpl.Render(&bytes.Buffer{}, "missing", nil); err == nil {
		t.Error("Render() of unknown page should fail")
	}
	if err := tmpl.RenderPartial(&bytes.Buffer{}, "missing", nil); err == nil {
		t.Error("RenderPartial() of unknown partial should fail")
	}
}

func TestTemplates_PageOverridesLayoutBlock(t *testing.T) {
	tmpl := loadTemplates(t)

	var buf bytes.Buffer
	err := tmpl.Render(&buf, string(view.CustomLarge), PlayerPageData{
		PageData: PageData{Title: "Now playing", Authenticated: true},
		Player:   view.Data{TrackName: "Song", AlbumImage: DefaultArt},
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `class="player player-large"`) {
		t.Errorf("body class not overridden:\n%s", out)
	}
	if !strings.Contains(out, "<title>Now playing | Custom Player</title>") {
		t.Errorf("title not rendered:\n%s", out)
	}
}

func TestTemplates_BadTemplate(t *testing.T) {
	fsys := fstest.MapFS{
		"layouts/base.html": {Data: []byte(`{{define "base"}}{{template "content" .}}{{end}}`)},
		"pages/broken.html": {Data: []byte(`{{define "content"}}{{.Missing`)},
	}
	if _, err := NewTemplates(fsys); err == nil {
		t.Error("NewTemplates() should fail on a malformed page")
	}
}
