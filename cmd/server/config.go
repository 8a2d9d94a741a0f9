package main

import (
	_ "embed"
	"net/http"
	"os"
	"text/template"
	"time"

	"github.com/alecthomas/units"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gopkg.d7z.net/class-pages/pkg"
	"gopkg.d7z.net/class-pages/pkg/core"
	"gopkg.d7z.net/class-pages/pkg/middleware/cache"
	"gopkg.d7z.net/class-pages/pkg/utils"
	"gopkg.in/yaml.v3"
)

//go:embed errors.html.tmpl
var defaultErrPage string

type Config struct {
	Bind string `yaml:"bind"` // HTTP 绑定
	Site string `yaml:"site"` // 站点目录，为空时使用内置站点
	Mode string `yaml:"mode"` // 覆盖 SITE_ENV / NODE_ENV

	Cache ConfigCache `yaml:"cache"` // 缓存配置
	Event ConfigEvent `yaml:"event"` // 事件传递
	Page  ConfigPage  `yaml:"page"`  // 页面配置

	Filters map[string]map[string]any `yaml:"filters"` // 过滤器配置

	pageErrNotFound, pageErrUnknown *template.Template
}

type ConfigPage struct {
	ErrNotFoundPage string `yaml:"404"`
	ErrUnknownPage  string `yaml:"500"`
}

type ConfigCache struct {
	Enable   bool             `yaml:"enable"` // 是否缓存渲染结果
	URL      string           `yaml:"url"`    // 缓存地址 (memory://, redis://)，为空时使用进程内 LRU
	TTL      time.Duration    `yaml:"ttl"`    // 缓存时间，仅对 url 生效
	FileSize units.Base2Bytes `yaml:"size"`   // 单个页面最大大小
	MaxSize  units.Base2Bytes `yaml:"max"`    // 缓存总大小，仅对进程内 LRU 生效
}

type ConfigEvent struct {
	URL   string `yaml:"url"`   // 事件地址，默认 memory://
	Watch bool   `yaml:"watch"` // 监听站点目录并广播变更
}

// BuildConfig applies the mode override on top of the environment.
func (c *Config) BuildConfig() *core.BuildConfig {
	if c.Mode == "" {
		return core.BuildConfigFromEnv()
	}
	return core.LoadBuildConfig(func(key string) string {
		if key == core.ModeEnv || key == core.ModeOverrideEnv {
			return c.Mode
		}
		return os.Getenv(key)
	})
}

// OpenCache returns nil when page caching is disabled.
func (c *Config) OpenCache() (cache.Cache, error) {
	if !c.Cache.Enable {
		return nil, nil
	}
	if c.Cache.URL == "" {
		return cache.NewCacheMemory(int(c.Cache.FileSize), int(c.Cache.MaxSize)), nil
	}
	remote, err := cache.NewCacheFromURL(c.Cache.URL, int(c.Cache.FileSize), c.Cache.TTL)
	if err != nil {
		return nil, err
	}
	return remote, nil
}

func (c *Config) ServerOptions(pageCache cache.Cache) []pkg.ServerOption {
	opts := []pkg.ServerOption{
		pkg.WithErrorHandler(c.ErrorHandler),
		pkg.WithFilterConfig(c.Filters),
	}
	if pageCache != nil {
		opts = append(opts, pkg.WithCache(pageCache))
	}
	return opts
}

func (c *Config) ErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	tmpl := c.pageErrUnknown
	if errors.Is(err, os.ErrNotExist) {
		code = http.StatusNotFound
		tmpl = c.pageErrNotFound
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err = tmpl.Execute(w, utils.NewTemplateInject(r, map[string]any{
		"UUID":  r.Header.Get(pkg.SessionHeader),
		"Error": err,
		"Path":  r.URL.Path,
		"Code":  code,
	})); err != nil {
		zap.L().Error("failed to render error page", zap.Error(err))
	}
}

func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var c Config
	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(&c)
	if err != nil {
		return nil, err
	}
	if err = c.normalize(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) normalize() error {
	if c.Bind == "" {
		c.Bind = ":8080"
	}
	if c.Site != "" {
		stat, err := os.Stat(c.Site)
		if err != nil {
			return errors.Wrap(err, "site dir not exists")
		}
		if !stat.IsDir() {
			return errors.New("site dir is not a directory")
		}
	}
	if c.Cache.FileSize == 0 {
		c.Cache.FileSize = units.MiB
	}
	if c.Cache.MaxSize == 0 {
		c.Cache.MaxSize = 64 * units.MiB
	}
	if c.Cache.MaxSize < c.Cache.FileSize {
		return errors.New("cache max size must be greater than or equal to file max size")
	}
	if c.Cache.TTL < 0 {
		return errors.New("cache ttl must not be negative")
	}
	if c.Event.URL == "" {
		c.Event.URL = "memory://"
	}
	if c.Event.Watch && c.Site == "" {
		return errors.New("event.watch needs a site directory")
	}
	if c.Filters == nil {
		c.Filters = make(map[string]map[string]any)
	}
	defaultErr := utils.MustTemplate(defaultErrPage)
	c.pageErrUnknown = defaultErr
	c.pageErrNotFound = defaultErr
	if c.Page.ErrUnknownPage != "" {
		data, err := os.ReadFile(c.Page.ErrUnknownPage)
		if err != nil {
			return errors.Wrapf(err, "failed to read file %s", c.Page.ErrUnknownPage)
		}
		c.pageErrUnknown = utils.MustTemplate(string(data))
	}
	if c.Page.ErrNotFoundPage != "" {
		data, err := os.ReadFile(c.Page.ErrNotFoundPage)
		if err != nil {
			return errors.Wrapf(err, "failed to read file %s", c.Page.ErrNotFoundPage)
		}
		c.pageErrNotFound = utils.MustTemplate(string(data))
	}
	return nil
}
