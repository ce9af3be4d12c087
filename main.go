package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/ai-disease/internal/config"
	"github.com/example/ai-disease/internal/handlers"
	"github.com/example/ai-disease/internal/logging"
	"github.com/example/ai-disease/internal/presenter"
	"github.com/example/ai-disease/internal/preview"
	"github.com/example/ai-disease/internal/restclient"
	"github.com/example/ai-disease/internal/usecase"
)

func main() {
	configPath := flag.String("config", getEnv("CONFIG_PATH", ""), "path to an optional YAML config file")
	echo := flag.Bool("echo", false, "mirror status and result updates to stdout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	previews, err := preview.NewManager(cfg.Preview.Dir, cfg.Preview.MaxEdge, logger)
	if err != nil {
		logger.Fatal("failed to prepare preview directory", zap.Error(err))
	}
	defer previews.Close() //nolint:errcheck

	var out io.Writer
	if *echo {
		out = os.Stdout
	}
	screen := presenter.NewScreen(previews, out)

	client := restclient.New(restclient.Options{
		HealthTimeout:  cfg.HealthTimeout,
		RequestTimeout: cfg.RequestTimeout,
	}, logger)

	session := usecase.NewSession(cfg.APIBaseURL)
	monitor := usecase.NewReadinessMonitor(session, client, screen, logger)
	controller := usecase.NewPredictionController(client, screen, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go monitor.Run(ctx)

	r := gin.Default()
	r.MaxMultipartMemory = cfg.MaxUploadBytes

	handlers.RegisterRoutes(r, handlers.NewConsole(session, controller, screen, previews, logger, cfg.MaxUploadBytes))

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	logger.Info("disease console listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("api_base_url", cfg.APIBaseURL),
	)
	if err := serveHTTPServer(server, cfg.ShutdownTimeout, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var (
		sigCh       <-chan os.Signal
		stopSignals func()
	)

	if signalCh != nil {
		sigCh = signalCh
		stopSignals = func() {}
	} else {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		sigCh = ch
		stopSignals = func() {
			signal.Stop(ch)
		}
	}
	defer stopSignals()

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
