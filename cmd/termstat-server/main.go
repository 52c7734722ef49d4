// Command termstat-server runs the TF-IDF analysis service: it accepts text
// uploads, scores them in the background, and serves paginated results.
package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/netutil"

	"github.com/cognicore/termstat/internal/web"
	"github.com/cognicore/termstat/pkg/termstat/config"
	"github.com/cognicore/termstat/pkg/termstat/driver"
	"github.com/cognicore/termstat/pkg/termstat/ingest"
	"github.com/cognicore/termstat/pkg/termstat/score"
	"github.com/cognicore/termstat/pkg/termstat/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	jsonLogs := flag.Bool("json-logs", false, "emit logs as JSON")
	flag.Parse()

	logger := logrus.New()
	if *jsonLogs {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.WithError(err).Fatal("failed to load config")
		}
		cfg = loaded
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := sqlite.Open(ctx, cfg.Storage.DatabasePath)
	if err != nil {
		logger.WithError(err).Fatal("failed to open store")
	}
	defer st.Close()

	stopwords := append(ingest.DefaultStopwords(), cfg.Scoring.ExtraStopwords...)
	scorer := score.New(score.Options{
		Tokenizer:     ingest.NewTokenizer(stopwords),
		MinTermLength: cfg.Scoring.MinTermLength,
		MaxResults:    cfg.Scoring.MaxResults,
	})

	drv, err := driver.New(driver.Options{
		Store:      st,
		Scorer:     scorer,
		StagingDir: cfg.Storage.StagingDir,
		Limits: driver.Limits{
			MaxFileBytes:  cfg.Limits.MaxFileBytes,
			MaxTotalBytes: cfg.Limits.MaxTotalBytes,
			Extensions:    cfg.Limits.Extensions,
		},
		Encodings:         cfg.Scoring.Encodings,
		MaxConcurrentRuns: cfg.Limits.MaxConcurrentRuns,
		Logger:            logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to init driver")
	}

	srv := web.NewServer(drv, st, cfg.Server.PageSize, logger)

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		logger.WithError(err).Fatal("failed to listen")
	}
	if cfg.Server.MaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.Server.MaxConns)
	}

	httpServer := &http.Server{Handler: srv.Handler()}
	go func() {
		logger.WithField("addr", cfg.Server.Addr).Info("server listening")
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("server exited")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("forced shutdown")
	}

	// In-flight analyses run to completion; tasks have no cancellation path.
	drv.Wait()
}
