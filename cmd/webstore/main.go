package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/elbrussoft/webstore/config"
	"github.com/elbrussoft/webstore/internal/adminapi"
	"github.com/elbrussoft/webstore/internal/app"
	"github.com/elbrussoft/webstore/internal/storeapi"
	"github.com/elbrussoft/webstore/internal/webserver"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BuildVersion is stamped by the release pipeline via ldflags.
var BuildVersion = "dev"

var (
	h        bool
	x        bool
	initdb   bool
	conffile string
)

func init() {
	flag.StringVar(&conffile, "c", "/etc/webstore.yml", "config file")
	flag.BoolVar(&h, "h", false, "print help")
	flag.BoolVar(&x, "x", false, "print version")
	flag.BoolVar(&initdb, "initdb", false, "drop and recreate the database schema, then exit")
}

func main() {
	flag.Parse()
	if h {
		flag.Usage()
		return
	}
	if x {
		fmt.Println(BuildVersion)
		return
	}

	cfg := config.LoadConfig(conffile)

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if initdb {
		application.InitDb()
		return
	}

	adminapi.InitRouter()
	storeapi.InitRouter()
	ws := webserver.Init(application)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application.StartBackgroundJobs(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return webserver.Listen()
	})
	g.Go(func() error {
		<-gctx.Done()
		return ws.Shutdown()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zap.L().Error("server exited", zap.Error(err))
		os.Exit(1)
	}
	zap.L().Info("server stopped")
}
