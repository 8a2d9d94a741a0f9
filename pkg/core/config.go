package core

import (
	"context"
	"io/fs"
	"strings"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	SiteConfigFile = "site.yaml"
	PagesDir       = "pages"
	AssetsDir      = "static"
)

// SiteConfig site.yaml 配置
type SiteConfig struct {
	Title  string       `yaml:"title"`  // 站点标题
	Routes []RouteEntry `yaml:"routes"` // 路由表

	Ignore string `yaml:"ignore"` // 跳过展示的内容
}

func (p *SiteConfig) Ignores() []string {
	i := []string{".*", ".*/**", "**/.*", "**/.*/**", SiteConfigFile}
	if p.Ignore == "" {
		return i
	}
	for _, line := range strings.Split(p.Ignore, "\n") {
		for _, item := range strings.Split(line, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			i = append(i, item)
		}
	}
	return i
}

type Site struct {
	Config SiteConfig
	Routes *RouteTable
	Pages  *PageVFS
	Assets *PageVFS

	ignores []glob.Glob
}

func ParseSiteConfig(data []byte) (*SiteConfig, error) {
	cfg := new(SiteConfig)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse "+SiteConfigFile+" failed")
	}
	return cfg, nil
}

func LoadSite(fsys fs.FS) (*Site, error) {
	data, err := fs.ReadFile(fsys, SiteConfigFile)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", SiteConfigFile)
	}
	cfg, err := ParseSiteConfig(data)
	if err != nil {
		return nil, err
	}
	table, err := NewRouteTable(cfg.Routes...)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid routes in %s", SiteConfigFile)
	}
	return NewSite(fsys, *cfg, table)
}

// NewSite binds an already built route table to the pages and assets found in fsys.
func NewSite(fsys fs.FS, cfg SiteConfig, table *RouteTable) (*Site, error) {
	pages, err := fs.Sub(fsys, PagesDir)
	if err != nil {
		return nil, err
	}
	assets, err := fs.Sub(fsys, AssetsDir)
	if err != nil {
		return nil, err
	}
	site := &Site{
		Config: cfg,
		Routes: table,
		Pages:  NewPageVFS(pages),
		Assets: NewPageVFS(assets),
	}
	for _, item := range cfg.Ignores() {
		g, err := glob.Compile(item, '/')
		if err != nil {
			return nil, errors.Wrapf(err, "invalid ignore glob pattern: %s", item)
		}
		site.ignores = append(site.ignores, g)
	}
	ctx := context.Background()
	for _, entry := range table.Entries() {
		if _, err := site.Pages.Locate(ctx, entry.Page); err != nil {
			zap.L().Warn("route points to a missing page",
				zap.String("path", entry.Path), zap.String("page", entry.Page.String()))
		}
	}
	return site, nil
}

// IsIgnore matches a request path (with or without leading slash) against the ignore list.
func (s *Site) IsIgnore(path string) bool {
	path = strings.TrimPrefix(path, "/")
	for _, g := range s.ignores {
		if g.Match(path) {
			return true
		}
	}
	return false
}
