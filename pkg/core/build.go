package core

import (
	"os"
	"path"
	"strings"

	"github.com/pkg/errors"
)

type Mode string

const (
	ModeProduction  Mode = "production"
	ModeDevelopment Mode = "development"
)

const (
	// ModeEnv 构建模式的环境变量，与前端工具链一致
	ModeEnv = "NODE_ENV"
	// ModeOverrideEnv 非空时优先于 ModeEnv
	ModeOverrideEnv = "SITE_ENV"
	// ProductionBase GitHub Pages 仓库子路径
	ProductionBase = "/2025_VIS_CLASS"

	DefaultOutputDir = "docs"
	DefaultFallback  = "404.html"
)

// ParseMode only accepts the exact production token; everything else is development.
func ParseMode(raw string) Mode {
	if raw == string(ModeProduction) {
		return ModeProduction
	}
	return ModeDevelopment
}

type BuildConfig struct {
	Mode      Mode   `yaml:"mode" json:"mode"`
	OutputDir string `yaml:"output" json:"output"`     // 输出目录
	Fallback  string `yaml:"fallback" json:"fallback"` // 未匹配路径使用的页面
	Base      string `yaml:"base" json:"base"`         // 链接前缀

	Precompress bool `yaml:"precompress" json:"precompress"` // 是否生成 .gz 文件
	Strict      bool `yaml:"strict" json:"strict"`           // 未匹配的站内链接视为错误
}

func LoadBuildConfig(getenv func(string) string) *BuildConfig {
	mode := ModeDevelopment
	if getenv != nil {
		raw := getenv(ModeOverrideEnv)
		if raw == "" {
			raw = getenv(ModeEnv)
		}
		mode = ParseMode(raw)
	}
	base := ""
	if mode == ModeProduction {
		base = ProductionBase
	}
	return &BuildConfig{
		Mode:        mode,
		OutputDir:   DefaultOutputDir,
		Fallback:    DefaultFallback,
		Base:        base,
		Precompress: false,
		Strict:      true,
	}
}

func BuildConfigFromEnv() *BuildConfig {
	return LoadBuildConfig(os.Getenv)
}

func (b *BuildConfig) IsProduction() bool {
	return b.Mode == ModeProduction
}

func (b *BuildConfig) Validate() error {
	if b.OutputDir == "" {
		return errors.New("output directory is required")
	}
	if b.Fallback == "" {
		return errors.New("fallback document is required")
	}
	if strings.Contains(b.Fallback, "/") || path.Ext(b.Fallback) != ".html" {
		return errors.Errorf("fallback must be a bare .html file name: %s", b.Fallback)
	}
	if b.Base != "" {
		if !strings.HasPrefix(b.Base, "/") {
			return errors.Errorf("base must start with '/': %s", b.Base)
		}
		if strings.HasSuffix(b.Base, "/") {
			return errors.Errorf("base must not end with '/': %s", b.Base)
		}
	}
	return nil
}

// Link prefixes a root-relative path with the base path.
func (b *BuildConfig) Link(p string) string {
	if !strings.HasPrefix(p, "/") {
		return p
	}
	if b.Base == "" {
		return p
	}
	if p == "/" {
		return b.Base + "/"
	}
	return b.Base + p
}

// StripBase removes the base path; false means p lives outside of it.
func (b *BuildConfig) StripBase(p string) (string, bool) {
	if b.Base == "" {
		return p, true
	}
	if p == b.Base {
		return "/", true
	}
	if rest, ok := strings.CutPrefix(p, b.Base+"/"); ok {
		return "/" + rest, true
	}
	return p, false
}
