package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.d7z.net/middleware/subscribe"

	"gopkg.d7z.net/class-pages/pkg"
	"gopkg.d7z.net/class-pages/pkg/core"
	"gopkg.d7z.net/class-pages/pkg/middleware/cache"
	"gopkg.d7z.net/class-pages/pkg/reload"
	"gopkg.d7z.net/class-pages/site"
)

var (
	path = ""
	port = ":8080"
)

func init() {
	atom := zap.NewAtomicLevel()
	atom.SetLevel(zap.DebugLevel)
	cfg := zap.NewProductionConfig()
	cfg.Level = atom
	logger, _ := cfg.Build()
	zap.ReplaceGlobals(logger)
	flag.StringVar(&path, "site", path, "site directory, empty for the bundled site (no live reload)")
	flag.StringVar(&port, "port", port, "port")
	flag.Parse()
}

func main() {
	build := core.LoadBuildConfig(func(string) string { return string(core.ModeDevelopment) })
	fmt.Printf("请访问 http://localhost%s/ ,本地路径: %s\n", port, path)
	if path != "" {
		if stat, err := os.Stat(path); err != nil || !stat.IsDir() {
			zap.L().Fatal("path is not a directory", zap.String("path", path))
		}
	}
	pages, err := site.Open(path)
	if err != nil {
		zap.L().Fatal("failed to load site", zap.Error(err))
	}
	hub := reload.NewHub()
	defer hub.Close()

	server, err := pkg.NewPageServer(pages, build,
		pkg.WithCache(cache.NewCacheMemory(1024*1024, 16*1024*1024)),
		pkg.WithInject(reload.Script),
		pkg.WithHandler(reload.Endpoint, hub),
	)
	if err != nil {
		zap.L().Fatal("failed to init page", zap.Error(err))
	}
	defer server.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := subscribe.NewMemorySubscriber()
	if err = reload.Listen(ctx, events, func() {
		if err := server.Purge(); err != nil {
			zap.L().Warn("failed to purge page cache", zap.Error(err))
		}
	}, hub.Broadcast); err != nil {
		zap.L().Fatal("failed to listen for site changes", zap.Error(err))
	}

	if path != "" {
		watcher, err := reload.NewWatcher(path, reload.Notify(ctx, events))
		if err != nil {
			zap.L().Fatal("failed to init watcher", zap.Error(err))
		}
		if err = watcher.Start(ctx); err != nil {
			zap.L().Fatal("failed to watch site", zap.Error(err))
		}
		defer watcher.Stop()
	}

	svc := http.Server{Addr: port, Handler: server}
	go func() {
		<-ctx.Done()
		_ = svc.Close()
	}()
	if err = svc.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zap.L().Error("failed to start server", zap.Error(err))
	}
}
