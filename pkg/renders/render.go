package renders

import (
	"context"
	"path"
	"sync"

	"github.com/pkg/errors"

	"gopkg.d7z.net/class-pages/pkg/core"
)

var (
	renders = make(map[string]Render)
	lock    = &sync.RWMutex{}

	extensions = map[string]string{
		".html": "html",
		".tmpl": "gotemplate",
	}
)

// PageData is handed to every page template.
type PageData struct {
	Title string
	Base  string
	Mode  core.Mode
	// Path is the requested path without the base prefix, empty for the fallback document.
	Path   string
	Page   core.PageID
	Routes []core.RouteEntry
	// Fallback is true when Path only matched the wildcard entry, or for the fallback document.
	Fallback bool
}

type Render interface {
	Render(ctx context.Context, build *core.BuildConfig, input string, data *PageData) ([]byte, error)
}

func RegisterRender(fType string, r Render) {
	lock.Lock()
	defer lock.Unlock()
	if renders[fType] != nil {
		panic("duplicate render type: " + fType)
	}
	renders[fType] = r
}

func GetRender(key string) Render {
	lock.RLock()
	defer lock.RUnlock()
	return renders[key]
}

func RenderType(file string) string {
	return extensions[path.Ext(file)]
}

// RenderPage locates the page source and renders it with the render registered for its extension.
func RenderPage(ctx context.Context, site *core.Site, build *core.BuildConfig, page core.PageID, reqPath string) ([]byte, error) {
	_, literal := site.Routes.Lookup(reqPath)
	return render(ctx, site, build, &PageData{
		Path:     reqPath,
		Page:     page,
		Fallback: !literal,
	})
}

// RenderFallback renders the wildcard page as the hosting layer's not-found document.
// Path stays empty since the file answers for every unknown URL.
func RenderFallback(ctx context.Context, site *core.Site, build *core.BuildConfig) ([]byte, error) {
	return render(ctx, site, build, &PageData{
		Page:     site.Routes.Wildcard().Page,
		Fallback: true,
	})
}

func render(ctx context.Context, site *core.Site, build *core.BuildConfig, data *PageData) ([]byte, error) {
	file, err := site.Pages.Locate(ctx, data.Page)
	if err != nil {
		return nil, err
	}
	r := GetRender(RenderType(file))
	if r == nil {
		return nil, errors.Errorf("no render for %s", file)
	}
	source, err := site.Pages.ReadString(ctx, file)
	if err != nil {
		return nil, err
	}
	data.Title = site.Config.Title
	data.Base = build.Base
	data.Mode = build.Mode
	data.Routes = site.Routes.Literals()
	out, err := r.Render(ctx, build, source, data)
	if err != nil {
		return nil, errors.Wrapf(err, "render page %s", data.Page)
	}
	return out, nil
}

type htmlRender struct{}

func init() {
	RegisterRender("html", htmlRender{})
}

func (htmlRender) Render(_ context.Context, _ *core.BuildConfig, input string, _ *PageData) ([]byte, error) {
	return []byte(input), nil
}
