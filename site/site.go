// Package site bundles the class website: its route table, pages and static assets.
package site

import (
	"embed"
	"io/fs"
	"os"

	"gopkg.d7z.net/class-pages/pkg/core"
)

const Title = "2025 Visualization Class"

const (
	HomePage    core.PageID = "HomePage"
	A1Page      core.PageID = "assignments/A1"
	ContactPage core.PageID = "Contact"
)

//go:embed content
var content embed.FS

var Routes = core.MustRouteTable(
	core.RouteEntry{Path: "/", Page: HomePage},
	core.RouteEntry{Path: "/assignments/a1", Page: A1Page},
	core.RouteEntry{Path: "/contact", Page: ContactPage},
	core.RouteEntry{Path: core.Wildcard, Page: HomePage},
)

func Content() fs.FS {
	sub, err := fs.Sub(content, "content")
	if err != nil {
		panic(err)
	}
	return sub
}

func Load() (*core.Site, error) {
	return core.NewSite(Content(), core.SiteConfig{Title: Title}, Routes)
}

// Open loads the site from dir, or the bundled class site when dir is empty.
func Open(dir string) (*core.Site, error) {
	if dir == "" {
		return Load()
	}
	return core.LoadSite(os.DirFS(dir))
}
