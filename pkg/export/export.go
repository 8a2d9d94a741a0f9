package export

import (
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gopkg.d7z.net/class-pages/pkg/core"
	"gopkg.d7z.net/class-pages/pkg/renders"
	"gopkg.d7z.net/class-pages/pkg/utils"
)

var ErrUnmatchedLinks = errors.New("unmatched internal links")

// compressible 预压缩的文件类型
var compressible = map[string]bool{
	".html": true,
	".css":  true,
	".js":   true,
	".mjs":  true,
	".svg":  true,
	".json": true,
	".txt":  true,
	".xml":  true,
}

type UnmatchedLink struct {
	Page string `json:"page"`
	Link string `json:"link"`
}

type Report struct {
	OutputDir string          `json:"output"`
	Files     []string        `json:"files"`
	Unmatched []UnmatchedLink `json:"unmatched,omitempty"`
}

type exporter struct {
	site   *core.Site
	build  *core.BuildConfig
	report *Report
	assets map[string]bool
}

// OutputFile maps a literal route onto the file GitHub Pages serves for it.
func OutputFile(route string) string {
	if route == "/" {
		return "index.html"
	}
	return strings.TrimPrefix(route, "/") + ".html"
}

// Export renders every literal route, the fallback document and the static assets into build.OutputDir.
func Export(ctx context.Context, site *core.Site, build *core.BuildConfig) (*Report, error) {
	if err := build.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid build config")
	}
	e := &exporter{
		site:   site,
		build:  build,
		report: &Report{OutputDir: build.OutputDir, Files: make([]string, 0)},
		assets: make(map[string]bool),
	}
	if err := clearOutput(build.OutputDir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(build.OutputDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create output dir %s", build.OutputDir)
	}
	if err := e.copyAssets(ctx); err != nil {
		return nil, err
	}
	for _, entry := range site.Routes.Literals() {
		if err := e.renderRoute(ctx, entry.Path, entry.Page, OutputFile(entry.Path)); err != nil {
			return nil, err
		}
	}
	if e.assets[build.Fallback] {
		zap.L().Info("fallback document provided by static assets", zap.String("file", build.Fallback))
	} else if err := e.renderFallback(ctx); err != nil {
		return nil, err
	}
	if err := e.write(".nojekyll", nil); err != nil {
		return nil, err
	}
	sort.Strings(e.report.Files)
	if len(e.report.Unmatched) > 0 && build.Strict {
		return e.report, errors.Wrapf(ErrUnmatchedLinks, "%d link(s), first: %s -> %s",
			len(e.report.Unmatched), e.report.Unmatched[0].Page, e.report.Unmatched[0].Link)
	}
	return e.report, nil
}

// clearOutput removes a previous export so deleted routes and assets are not deployed again.
func clearOutput(dir string) error {
	cleaned := filepath.Clean(dir)
	abs, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.Wrapf(err, "resolve output dir %s", dir)
	}
	wd, _ := os.Getwd()
	// the working directory or one of its parents
	containsWd := wd != "" && strings.HasPrefix(wd+string(filepath.Separator), abs+string(filepath.Separator))
	if dir == "" || cleaned == "." || cleaned == "/" || abs == filepath.Dir(abs) || containsWd {
		return errors.Errorf("refusing to clear output dir %q", dir)
	}
	if err = os.RemoveAll(abs); err != nil {
		return errors.Wrapf(err, "clear output dir %s", dir)
	}
	return nil
}

func (e *exporter) copyAssets(ctx context.Context) error {
	files, err := e.site.Assets.Walk(".")
	if err != nil {
		return errors.Wrap(err, "list static assets")
	}
	for _, name := range files {
		if e.site.IsIgnore(name) {
			continue
		}
		data, err := e.site.Assets.Read(ctx, name)
		if err != nil {
			return errors.Wrapf(err, "read asset %s", name)
		}
		if err = e.write(name, data); err != nil {
			return err
		}
		e.assets[name] = true
	}
	return nil
}

func (e *exporter) renderRoute(ctx context.Context, route string, page core.PageID, file string) error {
	zap.L().Debug("render route", zap.String("route", route), zap.String("page", page.String()), zap.String("file", file))
	body, err := renders.RenderPage(ctx, e.site, e.build, page, route)
	if err != nil {
		return errors.Wrapf(err, "render %s", route)
	}
	return e.writePage(file, body)
}

func (e *exporter) renderFallback(ctx context.Context) error {
	zap.L().Debug("render fallback", zap.String("file", e.build.Fallback))
	body, err := renders.RenderFallback(ctx, e.site, e.build)
	if err != nil {
		return errors.Wrapf(err, "render %s", e.build.Fallback)
	}
	return e.writePage(e.build.Fallback, body)
}

func (e *exporter) writePage(file string, body []byte) error {
	links, err := ExtractLinks(bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "parse links of %s", file)
	}
	for _, link := range utils.ClearDuplicates(links) {
		if !e.matches(link) {
			e.report.Unmatched = append(e.report.Unmatched, UnmatchedLink{Page: file, Link: link})
			zap.L().Warn("unmatched internal link", zap.String("page", file), zap.String("link", link))
		}
	}
	return e.write(file, body)
}

// matches reports whether a root-relative link points at something the export produces.
func (e *exporter) matches(link string) bool {
	stripped, ok := e.build.StripBase(link)
	if !ok {
		return false
	}
	normalized := core.NormalizePath(stripped)
	if e.site.Routes.Has(normalized) {
		return true
	}
	name := strings.TrimPrefix(normalized, "/")
	if e.assets[name] || name == e.build.Fallback {
		return true
	}
	// /contact.html style links
	return path.Ext(name) == ".html" && e.site.Routes.Has("/"+strings.TrimSuffix(name, ".html"))
}

func (e *exporter) write(name string, data []byte) error {
	target := filepath.Join(e.build.OutputDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", target)
	}
	e.report.Files = append(e.report.Files, name)
	if e.build.Precompress && compressible[path.Ext(name)] {
		if err := writeGzip(target+".gz", data); err != nil {
			return err
		}
		e.report.Files = append(e.report.Files, name+".gz")
	}
	return nil
}

func writeGzip(target string, data []byte) error {
	f, err := os.Create(target)
	if err != nil {
		return err
	}
	defer f.Close()
	zw, err := gzip.NewWriterLevel(f, gzip.BestCompression)
	if err != nil {
		return err
	}
	if _, err = io.Copy(zw, bytes.NewReader(data)); err != nil {
		_ = zw.Close()
		return err
	}
	if err = zw.Close(); err != nil {
		return errors.Wrapf(err, "compress %s", target)
	}
	return f.Close()
}
