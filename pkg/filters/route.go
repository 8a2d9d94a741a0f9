package filters

import (
	"bytes"
	"net/http"
	"time"

	"go.uber.org/zap"

	"gopkg.d7z.net/class-pages/pkg/core"
	"gopkg.d7z.net/class-pages/pkg/renders"
	"gopkg.d7z.net/class-pages/pkg/utils"
)

// FilterInstRoute resolves the request path through the route table and renders the page.
// Wildcard hits answer 200 like a client side router would.
func FilterInstRoute(global core.Params) (core.FilterInstance, error) {
	var globalParam struct {
		NoCache bool `json:"no_cache"`
	}
	if err := global.Unmarshal(&globalParam); err != nil {
		return nil, err
	}
	locker := utils.NewLocker()
	return func(config core.Params) (core.FilterCall, error) {
		param := globalParam
		if err := config.Unmarshal(&param); err != nil {
			return nil, err
		}
		return func(ctx core.FilterContext, writer http.ResponseWriter, request *http.Request, next core.NextCall) error {
			page, literal := ctx.Routes.Lookup(ctx.Path)
			if !literal {
				zap.L().Debug("fallback to wildcard route", zap.String("path", ctx.Path), zap.String("page", page.String()))
			}
			// wildcard renders depend on the requested path, keep them out of the cache
			useCache := ctx.Cache != nil && literal && !param.NoCache
			key := "page" + ctx.Path
			if useCache {
				if served, err := serveCached(ctx, writer, request, key); served || err != nil {
					return err
				}
				unlock := locker.Lock(key)
				defer unlock()
				// another request may have rendered the page while we waited
				if served, err := serveCached(ctx, writer, request, key); served || err != nil {
					return err
				}
			}
			body, err := renders.RenderPage(ctx, ctx.Site, ctx.Build, page, ctx.Path)
			if err != nil {
				return err
			}
			if useCache {
				if err = ctx.Cache.Put(key, bytes.NewReader(body)); err != nil {
					zap.L().Warn("缓存归档失败", zap.Error(err), zap.Int("Size", len(body)))
				}
			}
			writer.Header().Add("X-Cache", "MISS")
			writePage(ctx, writer, request, body, time.Now())
			return nil
		}, nil
	}, nil
}

func serveCached(ctx core.FilterContext, writer http.ResponseWriter, request *http.Request, key string) (bool, error) {
	content, err := ctx.Cache.Get(key)
	if err != nil || content == nil {
		return false, nil
	}
	defer content.Close()
	body, err := content.ReadToString()
	if err != nil {
		return false, err
	}
	writer.Header().Add("X-Cache", "HIT")
	writePage(ctx, writer, request, []byte(body), content.LastModified)
	return true, nil
}

func writePage(ctx core.FilterContext, writer http.ResponseWriter, request *http.Request, body []byte, modTime time.Time) {
	if ctx.Inject != "" {
		body = utils.InjectBeforeBody(body, ctx.Inject)
	}
	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(writer, request, "index.html", modTime, bytes.NewReader(body))
}
