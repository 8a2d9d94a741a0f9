package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"gopkg.d7z.net/class-pages/pkg/core"
	"gopkg.d7z.net/class-pages/pkg/export"
	"gopkg.d7z.net/class-pages/site"
)

var (
	siteDir = ""
	outDir  = ""
	debug   = false
)

func init() {
	flag.StringVar(&siteDir, "site", siteDir, "site directory, empty for the bundled site")
	flag.StringVar(&outDir, "out", outDir, "output directory (default \""+core.DefaultOutputDir+"\")")
	flag.BoolVar(&debug, "debug", debug, "debug mode")
	flag.Parse()
}

func main() {
	call := logInject()
	defer call()
	build := core.BuildConfigFromEnv()
	if outDir != "" {
		build.OutputDir = outDir
	}
	pages, err := site.Open(siteDir)
	if err != nil {
		zap.L().Fatal("failed to load site", zap.Error(err))
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zap.L().Info("exporting site",
		zap.String("mode", string(build.Mode)), zap.String("base", build.Base), zap.String("output", build.OutputDir))
	report, err := export.Export(ctx, pages, build)
	if err != nil {
		zap.L().Fatal("export failed", zap.Error(err))
	}
	for _, file := range report.Files {
		fmt.Println(file)
	}
	zap.L().Info("export finished", zap.Int("files", len(report.Files)), zap.Int("unmatched", len(report.Unmatched)))
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
	return func() {
		_ = logger.Sync()
	}
}
