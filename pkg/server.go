package pkg

import (
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gopkg.d7z.net/class-pages/pkg/core"
	"gopkg.d7z.net/class-pages/pkg/filters"
	"gopkg.d7z.net/class-pages/pkg/middleware/cache"
	"gopkg.d7z.net/class-pages/pkg/utils"
)

const SessionHeader = "Session-ID"

type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type serverConfig struct {
	cache        cache.Cache
	errorHandler ErrorHandler
	filterConfig map[string]map[string]any
	filterStack  []core.Filter
	inject       string
	extra        map[string]http.Handler
}

type ServerOption func(*serverConfig)

func WithCache(c cache.Cache) ServerOption {
	return func(cfg *serverConfig) {
		cfg.cache = c
	}
}

func WithErrorHandler(handler ErrorHandler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.errorHandler = handler
	}
}

func WithFilterConfig(config map[string]map[string]any) ServerOption {
	return func(cfg *serverConfig) {
		cfg.filterConfig = config
	}
}

func WithFilterStack(stack []core.Filter) ServerOption {
	return func(cfg *serverConfig) {
		cfg.filterStack = stack
	}
}

// WithInject appends snippet to every rendered page.
func WithInject(snippet string) ServerOption {
	return func(cfg *serverConfig) {
		cfg.inject = snippet
	}
}

// WithHandler mounts handler at an exact path ahead of the site, e.g. the reload endpoint.
func WithHandler(path string, handler http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.extra[path] = handler
	}
}

func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	if errors.Is(err, os.ErrNotExist) {
		http.Error(w, "page not found.", http.StatusNotFound)
	} else if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type Server struct {
	site   *core.Site
	build  *core.BuildConfig
	chain  *core.FilterChain
	config *serverConfig
}

func NewPageServer(site *core.Site, build *core.BuildConfig, opts ...ServerOption) (*Server, error) {
	if err := build.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid build config")
	}
	cfg := &serverConfig{
		errorHandler: DefaultErrorHandler,
		filterConfig: map[string]map[string]any{},
		extra:        map[string]http.Handler{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.filterStack == nil {
		cfg.filterStack = core.DefaultFilterStack(build.Fallback)
	}
	instances, err := filters.DefaultFilters(cfg.filterConfig)
	if err != nil {
		return nil, err
	}
	chain, err := core.NewFilterChain(instances, cfg.filterStack)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("page server ready",
		zap.String("base", build.Base), zap.String("mode", string(build.Mode)), zap.Int("filters", chain.Len()))
	return &Server{
		site:   site,
		build:  build,
		chain:  chain,
		config: cfg,
	}, nil
}

func (s *Server) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	session := request.Header.Get(SessionHeader)
	if session == "" {
		session = uuid.NewString()
		request.Header.Set(SessionHeader, session)
	}
	writer.Header().Set(SessionHeader, session)
	if handler, ok := s.config.extra[request.URL.Path]; ok {
		handler.ServeHTTP(writer, request)
		return
	}
	wrapped := utils.NewStatusWriter(writer)
	if err := s.Serve(wrapped, request); err != nil {
		zap.L().Debug("failed to serve", zap.String("path", request.URL.Path), zap.String("session", session), zap.Error(err))
		if wrapped.Written() {
			// headers are gone already, nothing sensible left to send
			zap.L().Warn("error after response started", zap.Int("status", wrapped.Status()), zap.Error(err))
			return
		}
		s.config.errorHandler(writer, request, err)
	}
}

func (s *Server) Serve(writer http.ResponseWriter, request *http.Request) error {
	if request.Method != http.MethodGet && request.Method != http.MethodHead {
		writer.Header().Set("Allow", "GET, HEAD")
		http.Error(writer, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return nil
	}
	if s.build.Base != "" && request.URL.Path == "/" {
		http.Redirect(writer, request, s.build.Link("/"), http.StatusFound)
		return nil
	}
	stripped, ok := s.build.StripBase(request.URL.Path)
	if !ok {
		return errors.Wrap(os.ErrNotExist, request.URL.Path)
	}
	return s.chain.Call(core.FilterContext{
		Context: request.Context(),
		Site:    s.site,
		Build:   s.build,
		Path:    core.NormalizePath(stripped),
		Session: request.Header.Get(SessionHeader),
		Cache:   s.config.cache,
		Inject:  s.config.inject,
	}, writer, request)
}

func (s *Server) Site() *core.Site {
	return s.site
}

func (s *Server) Close() error {
	if s.config.cache != nil {
		return s.config.cache.Close()
	}
	return nil
}

// Purge drops every cached page, used after the site sources changed.
func (s *Server) Purge() error {
	if s.config.cache != nil {
		return s.config.cache.Delete("")
	}
	return nil
}
