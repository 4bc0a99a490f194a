package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/avogel/chase-bridge/internal/bridge"
	"github.com/avogel/chase-bridge/internal/config"
	"github.com/avogel/chase-bridge/internal/httpapi"
	"github.com/avogel/chase-bridge/internal/pictures"
)

// drainTimeout caps how long shutdown waits for sessions to say goodbye.
const drainTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// sessions must outlive the signal so they can deliver BecomeShutDown;
	// this context only ends once the bridge has drained
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := bridge.NewRegistry(ctx)

	bridgeLn, err := net.Listen("tcp", cfg.BridgeAddr)
	if err != nil {
		logger.Fatal("bridge listener", zap.Error(err))
	}
	pictureLn, err := net.Listen("tcp", cfg.PictureAddr)
	if err != nil {
		logger.Fatal("picture listener", zap.Error(err))
	}

	bridgeSrv := &bridge.Server{
		EngineAddr: cfg.EngineAddr,
		Registry:   reg,
		Log:        logger.Named("bridge"),
	}
	pictureSrv := &pictures.Server{
		EngineAddr: cfg.EngineAddr,
		Log:        logger.Named("pictures"),
	}
	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.SetupRoutes(reg),
	}

	logger.Info("listening",
		zap.String("bridge", cfg.BridgeAddr),
		zap.String("pictures", cfg.PictureAddr),
		zap.String("http", cfg.HTTPAddr),
		zap.String("engine", cfg.EngineAddr))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bridgeSrv.Serve(ctx, bridgeLn) })
	g.Go(func() error { return pictureSrv.Serve(ctx, pictureLn) })
	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-sigCtx.Done():
		case <-ctx.Done():
			return nil
		}
		logger.Info("shutting down")
		bridgeLn.Close()
		pictureLn.Close()

		// every session gets a BecomeShutDown before its socket closes
		drained := make(chan struct{})
		reg.Inbox() <- bridge.ShutdownAll{Done: drained}
		select {
		case <-drained:
		case <-time.After(drainTimeout):
			logger.Warn("sessions still open past the drain timeout")
		}
		return httpSrv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("bridge exited", zap.Error(err))
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}
