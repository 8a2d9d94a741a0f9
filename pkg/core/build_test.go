package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestLoadBuildConfigProduction(t *testing.T) {
	cfg := LoadBuildConfig(envOf(map[string]string{ModeEnv: "production"}))
	assert.Equal(t, ModeProduction, cfg.Mode)
	assert.Equal(t, ProductionBase, cfg.Base)
	assert.Equal(t, "docs", cfg.OutputDir)
	assert.Equal(t, "404.html", cfg.Fallback)
	assert.False(t, cfg.Precompress)
	assert.True(t, cfg.Strict)
	require.NoError(t, cfg.Validate())
}

func TestLoadBuildConfigDevelopment(t *testing.T) {
	for _, mode := range []string{"development", "", "Production", " production", "prod", "test"} {
		cfg := LoadBuildConfig(envOf(map[string]string{ModeEnv: mode}))
		assert.Equal(t, ModeDevelopment, cfg.Mode, mode)
		assert.Equal(t, "", cfg.Base, mode)
		assert.Equal(t, "docs", cfg.OutputDir)
		assert.Equal(t, "404.html", cfg.Fallback)
		require.NoError(t, cfg.Validate())
	}
	assert.Equal(t, "", LoadBuildConfig(nil).Base)
}

func TestBuildConfigFromEnv(t *testing.T) {
	t.Setenv(ModeOverrideEnv, "")
	t.Setenv("NODE_ENV", "production")
	cfg := BuildConfigFromEnv()
	assert.Equal(t, ModeProduction, cfg.Mode)
	assert.Equal(t, ProductionBase, cfg.Base)
	t.Setenv("NODE_ENV", "development")
	assert.Equal(t, "", BuildConfigFromEnv().Base)
}

func TestBuildConfigOverrideEnv(t *testing.T) {
	t.Setenv("NODE_ENV", "development")
	t.Setenv("SITE_ENV", "production")
	assert.Equal(t, ProductionBase, BuildConfigFromEnv().Base)

	t.Setenv("NODE_ENV", "production")
	t.Setenv("SITE_ENV", "development")
	assert.Equal(t, "", BuildConfigFromEnv().Base)

	t.Setenv("SITE_ENV", "")
	assert.Equal(t, ProductionBase, BuildConfigFromEnv().Base)
}

func TestBuildConfigValidate(t *testing.T) {
	valid := func() *BuildConfig {
		return LoadBuildConfig(envOf(map[string]string{ModeEnv: "production"}))
	}
	cfg := valid()
	cfg.OutputDir = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Fallback = "errors/404.html"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Fallback = "404.txt"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Base = "2025_VIS_CLASS"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Base = "/2025_VIS_CLASS/"
	assert.Error(t, cfg.Validate())
}

func TestBuildConfigLinks(t *testing.T) {
	prod := LoadBuildConfig(envOf(map[string]string{ModeEnv: "production"}))
	assert.Equal(t, "/2025_VIS_CLASS/", prod.Link("/"))
	assert.Equal(t, "/2025_VIS_CLASS/contact", prod.Link("/contact"))
	assert.Equal(t, "https://example.com", prod.Link("https://example.com"))

	stripped, ok := prod.StripBase("/2025_VIS_CLASS/contact")
	assert.True(t, ok)
	assert.Equal(t, "/contact", stripped)
	stripped, ok = prod.StripBase("/2025_VIS_CLASS")
	assert.True(t, ok)
	assert.Equal(t, "/", stripped)
	_, ok = prod.StripBase("/2025_VIS_CLASSES/contact")
	assert.False(t, ok)
	_, ok = prod.StripBase("/contact")
	assert.False(t, ok)

	dev := LoadBuildConfig(nil)
	assert.Equal(t, "/contact", dev.Link("/contact"))
	stripped, ok = dev.StripBase("/contact")
	assert.True(t, ok)
	assert.Equal(t, "/contact", stripped)
}
