package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gopkg.d7z.net/class-pages/pkg/middleware/cache"
)

type FilterContext struct {
	context.Context
	*Site
	Build *BuildConfig

	// Path is normalized and has the base path removed.
	Path    string
	Session string

	Cache cache.Cache
	// Inject is appended to every rendered page, empty outside of the dev server.
	Inject string
}

type Params map[string]any

func (f Params) String() string {
	marshal, _ := json.Marshal(f)
	return strings.ReplaceAll(string(marshal), "\"", "'")
}

func (f Params) Unmarshal(target any) error {
	marshal, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return json.Unmarshal(marshal, target)
}

type Filter struct {
	Path   string `json:"path" yaml:"path"`
	Type   string `json:"type" yaml:"type"`
	Params Params `json:"params" yaml:"params"`
}

// DefaultFilterStack is evaluated top-down; the first entry wraps every following one.
func DefaultFilterStack(fallback string) []Filter {
	return []Filter{
		{Path: "**", Type: "404", Params: Params{"path": fallback}},
		{Path: "**", Type: "block", Params: Params{}},
		{Path: "**", Type: "direct", Params: Params{}},
		{Path: "**", Type: "route", Params: Params{}},
	}
}

type NextCall func(
	ctx FilterContext,
	writer http.ResponseWriter,
	request *http.Request,
) error

var NotFountNextCall NextCall = func(ctx FilterContext, writer http.ResponseWriter, request *http.Request) error {
	return os.ErrNotExist
}

type FilterCall func(
	ctx FilterContext,
	writer http.ResponseWriter,
	request *http.Request,
	next NextCall,
) error

type (
	GlobalFilter   func(config Params) (FilterInstance, error)
	FilterInstance func(route Params) (FilterCall, error)
)

func NextCallWrapper(call FilterCall, parentCall NextCall, stack Filter) NextCall {
	return func(ctx FilterContext, writer http.ResponseWriter, request *http.Request) error {
		zap.L().Debug(fmt.Sprintf("call filter(%s) before", stack.Type), zap.String("path", ctx.Path))
		err := call(ctx, writer, request, parentCall)
		zap.L().Debug(fmt.Sprintf("call filter(%s) after", stack.Type), zap.String("path", ctx.Path), zap.Error(err))
		return err
	}
}

type compiledFilter struct {
	Filter
	matcher glob.Glob
	call    FilterCall
}

// FilterChain is compiled once and shared by every request.
type FilterChain struct {
	filters []compiledFilter
}

func NewFilterChain(instances map[string]FilterInstance, stack []Filter) (*FilterChain, error) {
	chain := &FilterChain{}
	for _, item := range stack {
		instance, ok := instances[item.Type]
		if !ok {
			zap.L().Debug("filter disabled or unknown, skip", zap.String("type", item.Type))
			continue
		}
		matcher, err := glob.Compile(strings.TrimPrefix(item.Path, "/"), '/')
		if err != nil {
			return nil, errors.Wrapf(err, "invalid filter glob pattern: %s", item.Path)
		}
		params := item.Params
		if params == nil {
			params = Params{}
		}
		call, err := instance(params)
		if err != nil {
			return nil, errors.Wrapf(err, "init filter %s", item.Type)
		}
		chain.filters = append(chain.filters, compiledFilter{Filter: item, matcher: matcher, call: call})
	}
	return chain, nil
}

func (c *FilterChain) Len() int {
	return len(c.filters)
}

func (c *FilterChain) Call(ctx FilterContext, writer http.ResponseWriter, request *http.Request) error {
	next := NotFountNextCall
	relative := strings.TrimPrefix(ctx.Path, "/")
	for i := len(c.filters) - 1; i >= 0; i-- {
		item := c.filters[i]
		if relative != "" && !item.matcher.Match(relative) {
			continue
		}
		next = NextCallWrapper(item.call, next, item.Filter)
	}
	return next(ctx, writer, request)
}
