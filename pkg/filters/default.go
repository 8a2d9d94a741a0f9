package filters

import (
	"net/http"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gopkg.d7z.net/class-pages/pkg/core"
	"gopkg.d7z.net/class-pages/pkg/renders"
	"gopkg.d7z.net/class-pages/pkg/utils"
)

// FilterInstDefaultNotFound answers os.ErrNotExist from the rest of the chain with the
// fallback document: a static file of that name when the site ships one, the wildcard page otherwise.
func FilterInstDefaultNotFound(_ core.Params) (core.FilterInstance, error) {
	return func(config core.Params) (core.FilterCall, error) {
		var param struct {
			Path string `json:"path"`
		}
		if err := config.Unmarshal(&param); err != nil {
			return nil, err
		}
		if param.Path == "" {
			param.Path = core.DefaultFallback
		}
		return func(ctx core.FilterContext, writer http.ResponseWriter, request *http.Request, next core.NextCall) error {
			wrapped := utils.NewStatusWriter(writer)
			err := next(ctx, wrapped, request)
			if err == nil || !errors.Is(err, os.ErrNotExist) || wrapped.Written() {
				return err
			}
			body, fbErr := ctx.Assets.Read(ctx, param.Path)
			if fbErr != nil {
				body, fbErr = renders.RenderPage(ctx, ctx.Site, ctx.Build, ctx.Routes.Wildcard().Page, ctx.Path)
			}
			if fbErr != nil {
				zap.L().Debug("fallback document unavailable", zap.Error(fbErr))
				return err
			}
			if ctx.Inject != "" {
				body = utils.InjectBeforeBody(body, ctx.Inject)
			}
			writer.Header().Set("Content-Type", "text/html; charset=utf-8")
			writer.WriteHeader(http.StatusNotFound)
			_, _ = writer.Write(body)
			return nil
		}, nil
	}, nil
}
