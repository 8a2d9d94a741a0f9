package filters

import (
	"net/http"

	"go.uber.org/zap"

	"gopkg.d7z.net/class-pages/pkg/core"
)

func FilterInstBlock(_ core.Params) (core.FilterInstance, error) {
	return func(config core.Params) (core.FilterCall, error) {
		var param struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		if err := config.Unmarshal(&param); nil != err {
			return nil, err
		}
		if param.Code == 0 {
			param.Code = http.StatusForbidden
		}
		if param.Message == "" {
			param.Message = http.StatusText(param.Code)
		}
		return func(ctx core.FilterContext, writer http.ResponseWriter, request *http.Request, next core.NextCall) error {
			if !ctx.IsIgnore(ctx.Path) {
				return next(ctx, writer, request)
			}
			zap.L().Debug("blocked", zap.String("path", ctx.Path))
			writer.WriteHeader(param.Code)
			_, _ = writer.Write([]byte(param.Message))
			return nil
		}, nil
	}, nil
}
