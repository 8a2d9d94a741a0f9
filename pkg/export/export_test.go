package export

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopkg.d7z.net/class-pages/pkg/core"
)

const nav = `<nav><a href="{{ link "/" }}">home</a><a href="{{ link "/contact" }}">contact</a>` +
	`<a href="{{ link "/assignments/a1" }}#top">a1</a><link href="{{ asset "app.css" }}"></nav>`

func testSite(t *testing.T, extra map[string]string) *core.Site {
	t.Helper()
	fsys := fstest.MapFS{
		"pages/HomePage.tmpl":       {Data: []byte(nav + `<p>home {{ .Path }}</p>`)},
		"pages/assignments/A1.tmpl": {Data: []byte(nav + `<p>a1</p>`)},
		"pages/Contact.html":        {Data: []byte(`<p>contact</p><a href="https://example.com">ext</a>`)},
		"static/app.css":            {Data: []byte(strings.Repeat("body{margin:0}", 20))},
		"static/.DS_Store":          {Data: []byte("junk")},
	}
	for name, data := range extra {
		fsys[name] = &fstest.MapFile{Data: []byte(data)}
	}
	site, err := core.NewSite(fsys, core.SiteConfig{Title: "Class"}, core.MustRouteTable(
		core.RouteEntry{Path: "/", Page: "HomePage"},
		core.RouteEntry{Path: "/assignments/a1", Page: "assignments/A1"},
		core.RouteEntry{Path: "/contact", Page: "Contact"},
		core.RouteEntry{Path: core.Wildcard, Page: "HomePage"},
	))
	require.NoError(t, err)
	return site
}

func buildConfig(t *testing.T, mode string) *core.BuildConfig {
	cfg := core.LoadBuildConfig(func(string) string { return mode })
	cfg.OutputDir = filepath.Join(t.TempDir(), "docs")
	return cfg
}

func readFile(t *testing.T, dir, name string) string {
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func TestExportLayout(t *testing.T) {
	site := testSite(t, nil)
	cfg := buildConfig(t, "production")
	report, err := Export(context.Background(), site, cfg)
	require.NoError(t, err)
	assert.Empty(t, report.Unmatched)
	assert.Equal(t, []string{
		".nojekyll",
		"404.html",
		"app.css",
		"assignments/a1.html",
		"contact.html",
		"index.html",
	}, report.Files)

	index := readFile(t, cfg.OutputDir, "index.html")
	assert.Contains(t, index, `href="/2025_VIS_CLASS/contact"`)
	assert.Contains(t, index, `href="/2025_VIS_CLASS/app.css"`)
	assert.Contains(t, index, "<p>home /</p>")
	assert.Contains(t, readFile(t, cfg.OutputDir, "404.html"), "<p>home </p>")
	assert.Equal(t, "<p>contact</p><a href=\"https://example.com\">ext</a>", readFile(t, cfg.OutputDir, "contact.html"))
	_, err = os.Stat(filepath.Join(cfg.OutputDir, ".DS_Store"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExportDevelopmentLinks(t *testing.T) {
	site := testSite(t, nil)
	cfg := buildConfig(t, "development")
	_, err := Export(context.Background(), site, cfg)
	require.NoError(t, err)
	assert.Contains(t, readFile(t, cfg.OutputDir, "assignments/a1.html"), `href="/contact"`)
}

func TestExportStrictLinks(t *testing.T) {
	site := testSite(t, map[string]string{
		"pages/Contact.html": `<a href="/missing">broken</a><img src="/logo.png">`,
	})
	cfg := buildConfig(t, "development")
	report, err := Export(context.Background(), site, cfg)
	require.ErrorIs(t, err, ErrUnmatchedLinks)
	require.NotNil(t, report)
	assert.Equal(t, []UnmatchedLink{
		{Page: "contact.html", Link: "/missing"},
		{Page: "contact.html", Link: "/logo.png"},
	}, report.Unmatched)

	cfg = buildConfig(t, "development")
	cfg.Strict = false
	report, err = Export(context.Background(), site, cfg)
	require.NoError(t, err)
	assert.Len(t, report.Unmatched, 2)
}

func TestExportFallbackFromAssets(t *testing.T) {
	site := testSite(t, map[string]string{
		"static/404.html": "static not found",
	})
	cfg := buildConfig(t, "development")
	_, err := Export(context.Background(), site, cfg)
	require.NoError(t, err)
	assert.Equal(t, "static not found", readFile(t, cfg.OutputDir, "404.html"))
}

func TestExportClearsPreviousOutput(t *testing.T) {
	site := testSite(t, nil)
	cfg := buildConfig(t, "development")
	stale := filepath.Join(cfg.OutputDir, "old", "removed.html")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0o644))

	report, err := Export(context.Background(), site, cfg)
	require.NoError(t, err)
	_, err = os.Stat(stale)
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(filepath.Join(cfg.OutputDir, "old"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NotContains(t, report.Files, "old/removed.html")
}

func TestExportRefusesUnsafeOutput(t *testing.T) {
	site := testSite(t, nil)
	for _, dir := range []string{".", "/", "./", ".."} {
		cfg := buildConfig(t, "development")
		cfg.OutputDir = dir
		_, err := Export(context.Background(), site, cfg)
		assert.Error(t, err, dir)
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	cfg := buildConfig(t, "development")
	cfg.OutputDir = wd
	_, err = Export(context.Background(), site, cfg)
	assert.Error(t, err)
	_, err = os.Stat(filepath.Join(wd, "export_test.go"))
	assert.NoError(t, err)
}

func TestExportPrecompress(t *testing.T) {
	site := testSite(t, nil)
	cfg := buildConfig(t, "development")
	cfg.Precompress = true
	report, err := Export(context.Background(), site, cfg)
	require.NoError(t, err)
	assert.Contains(t, report.Files, "index.html.gz")
	assert.Contains(t, report.Files, "app.css.gz")
	assert.NotContains(t, report.Files, ".nojekyll.gz")

	f, err := os.Open(filepath.Join(cfg.OutputDir, "app.css.gz"))
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, readFile(t, cfg.OutputDir, "app.css"), string(data))
}

func TestExportMissingPage(t *testing.T) {
	site := testSite(t, nil)
	fsys := fstest.MapFS{
		"pages/HomePage.tmpl": {Data: []byte("home")},
	}
	broken, err := core.NewSite(fsys, core.SiteConfig{}, site.Routes)
	require.NoError(t, err)
	_, err = Export(context.Background(), broken, buildConfig(t, "development"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtractLinks(t *testing.T) {
	links, err := ExtractLinks(strings.NewReader(`
<a href="/contact?x=1#y">c</a>
<a href="//cdn.example.com/x.js">cdn</a>
<a href="relative">r</a>
<img src=" /img.png ">
<form action="/submit"></form>
<br>
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"/contact", "/img.png", "/submit"}, links)
}

func TestOutputFile(t *testing.T) {
	assert.Equal(t, "index.html", OutputFile("/"))
	assert.Equal(t, "contact.html", OutputFile("/contact"))
	assert.Equal(t, "assignments/a1.html", OutputFile("/assignments/a1"))
}
