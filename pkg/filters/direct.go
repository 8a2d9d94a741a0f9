package filters

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gopkg.d7z.net/class-pages/pkg/core"
)

// FilterInstDirect serves files below the site's static directory.
func FilterInstDirect(_ core.Params) (core.FilterInstance, error) {
	return func(config core.Params) (core.FilterCall, error) {
		var param struct {
			Prefix string `json:"prefix"`
		}
		if err := config.Unmarshal(&param); err != nil {
			return nil, err
		}
		param.Prefix = strings.Trim(param.Prefix, "/")
		return func(ctx core.FilterContext, writer http.ResponseWriter, request *http.Request, next core.NextCall) error {
			name := strings.TrimPrefix(ctx.Path, "/")
			if name == "" {
				return next(ctx, writer, request)
			}
			if param.Prefix != "" {
				name = param.Prefix + "/" + name
			}
			file, err := ctx.Assets.Open(ctx, name)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrInvalid) {
					return next(ctx, writer, request)
				}
				return err
			}
			defer file.Close()
			zap.L().Debug("direct fetch", zap.String("path", name))
			stat, err := file.Stat()
			if err != nil {
				return err
			}
			if ctype := mime.TypeByExtension(path.Ext(name)); ctype != "" {
				writer.Header().Set("Content-Type", ctype)
			}
			if seeker, ok := file.(io.ReadSeeker); ok {
				http.ServeContent(writer, request, stat.Name(), stat.ModTime(), seeker)
				return nil
			}
			data, err := io.ReadAll(file)
			if err != nil {
				return err
			}
			http.ServeContent(writer, request, stat.Name(), stat.ModTime(), bytes.NewReader(data))
			return nil
		}, nil
	}, nil
}
