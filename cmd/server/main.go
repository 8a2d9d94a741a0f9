package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.d7z.net/middleware/subscribe"

	"gopkg.d7z.net/class-pages/pkg"
	"gopkg.d7z.net/class-pages/pkg/reload"
	"gopkg.d7z.net/class-pages/site"
)

var (
	configPath = "config.yaml"
	debug      = false
)

func init() {
	flag.StringVar(&configPath, "conf", configPath, "config file path")
	flag.BoolVar(&debug, "debug", debug, "debug mode")
}

func main() {
	flag.Parse()
	call := logInject()
	defer call()
	config, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("fail to load config file: %v", err)
	}
	build := config.BuildConfig()
	pages, err := site.Open(config.Site)
	if err != nil {
		log.Fatalln(err)
	}
	pageCache, err := config.OpenCache()
	if err != nil {
		log.Fatalln(err)
	}
	pageServer, err := pkg.NewPageServer(pages, build, config.ServerOptions(pageCache)...)
	if err != nil {
		log.Fatalln(err)
	}
	defer pageServer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	event, err := subscribe.NewSubscriberFromURL(config.Event.URL)
	if err != nil {
		log.Fatalln(err)
	}
	defer event.Close()
	// every instance sharing the event backend drops its rendered pages on change
	if err = reload.Listen(ctx, event, func() {
		if err := pageServer.Purge(); err != nil {
			zap.L().Warn("failed to purge page cache", zap.Error(err))
		}
	}); err != nil {
		log.Fatalln(err)
	}
	if config.Event.Watch {
		watcher, err := reload.NewWatcher(config.Site, reload.Notify(ctx, event))
		if err != nil {
			log.Fatalln(err)
		}
		if err = watcher.Start(ctx); err != nil {
			log.Fatalln(err)
		}
		defer watcher.Stop()
	}

	svc := http.Server{Addr: config.Bind, Handler: pageServer}
	go func() {
		<-ctx.Done()
		zap.L().Debug("shutdown gracefully")
		_ = svc.Close()
	}()
	zap.L().Info("serving site", zap.String("bind", config.Bind), zap.String("mode", string(build.Mode)), zap.String("base", build.Base))
	if err = svc.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zap.L().Error("failed to start server", zap.Error(err))
	}
}

func logInject() func() {
	atom := zap.NewAtomicLevel()
	if debug {
		atom.SetLevel(zap.DebugLevel)
	} else {
		atom.SetLevel(zap.InfoLevel)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = atom

	logger, _ := cfg.Build()
	zap.ReplaceGlobals(logger)
	zap.L().Debug("debug enabled")
	return func() {
		if err := logger.Sync(); err != nil {
			fmt.Println(err)
		}
	}
}
