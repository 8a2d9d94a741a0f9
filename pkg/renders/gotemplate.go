package renders

import (
	"bytes"
	"context"
	"html/template"
	"strings"

	sprig "github.com/go-task/slim-sprig/v3"

	"gopkg.d7z.net/class-pages/pkg/core"
)

type GoTemplate struct{}

func init() {
	RegisterRender("gotemplate", &GoTemplate{})
}

func PageFuncs(build *core.BuildConfig, data *PageData) template.FuncMap {
	funcs := template.FuncMap(sprig.FuncMap())
	funcs["link"] = build.Link
	funcs["asset"] = func(p string) string {
		return build.Link("/" + strings.TrimPrefix(p, "/"))
	}
	funcs["active"] = func(p string) bool {
		return data.Path == p
	}
	return funcs
}

func (g GoTemplate) Render(_ context.Context, build *core.BuildConfig, input string, data *PageData) ([]byte, error) {
	parse, err := template.New(data.Page.String()).Funcs(PageFuncs(build, data)).Parse(input)
	if err != nil {
		return nil, err
	}
	out := &bytes.Buffer{}
	if err = parse.Execute(out, data); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
