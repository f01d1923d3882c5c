package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"smarttrack/internal/admin"
	"smarttrack/internal/attendance"
	"smarttrack/internal/audit"
	"smarttrack/internal/auth"
	"smarttrack/internal/cloudinary"
	"smarttrack/internal/config"
	"smarttrack/internal/handler"
	"smarttrack/internal/logger"
	"smarttrack/internal/metrics"
	"smarttrack/internal/qrtoken"
	"smarttrack/internal/queue"
	"smarttrack/internal/store"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)

	// Set Gin mode based on environment
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.App, log *slog.Logger) error {
	st, closer, err := store.Open(ctx, cfg.StoreBackend, cfg.StoreDSN(), cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer closer.Close()
	log.Info("store opened", "backend", cfg.StoreBackend)

	var redisClient *store.Redis
	if cfg.QueueBackend == "redis" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
	}
	var q queue.Queue
	if redisClient != nil {
		q, err = queue.Open(cfg.QueueBackend, redisClient.Client)
	} else {
		q, err = queue.Open(cfg.QueueBackend, nil)
	}
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	qrOpts := qrtoken.DefaultOptions()
	if cfg.QRSize > 0 {
		qrOpts.Size = cfg.QRSize
	}
	opts := []attendance.Option{
		attendance.WithLogger(log),
		attendance.WithMetrics(m),
		attendance.WithPublisher(q),
		attendance.WithLocation(cfg.Location()),
		attendance.WithDurationRange(cfg.MinSessionMins, cfg.MaxSessionMins),
		attendance.WithQROptions(qrOpts),
	}

	// Cloudinary client (nil when not configured)
	var qrHost handler.QRHost
	if cfg.CloudinaryEnabled() {
		c := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		c.BaseURL = cfg.CloudinaryBaseURL
		qrHost = c
		log.Info("cloudinary configured", "cloud", cfg.CloudinaryCloudName)
	} else {
		log.Info("cloudinary not configured, QR images are served by the API only")
	}

	checks := map[string]func(context.Context) bool{
		"store": func(ctx context.Context) bool {
			_, err := st.Periods(ctx)
			return err == nil
		},
	}
	if redisClient != nil {
		checks["queue"] = redisClient.Healthy
	}

	h := handler.New(handler.Config{
		SigningKey:      cfg.JWTSigningKey,
		Issuer:          cfg.JWTIssuer,
		AccessTTL:       cfg.AccessTTL,
		RefreshTTL:      cfg.RefreshTTL,
		RateLimitPerMin: cfg.RateLimitPerMin,
		LoginPerMin:     cfg.LoginPerMin,
		ScansPerMin:     cfg.ScansPerMin,
		CORSOrigins:     strings.Split(cfg.CORSOrigins, ","),
	}, handler.Deps{
		Store:    st,
		Issuer:   attendance.NewIssuer(st, opts...),
		Verifier: attendance.NewVerifier(st, opts...),
		Reporter: attendance.NewReporter(st, opts...),
		Guard: auth.NewGuard(st, auth.AdminCredentials{Username: cfg.AdminUsername, Password: cfg.AdminPassword},
			auth.WithLogger(log), auth.WithMetrics(m)),
		Registry: admin.NewRegistry(st, log, m),
		QRHost:   qrHost,
		Metrics:  m,
		Checks:   checks,
		Gatherer: reg,
		Logger:   log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // countdown streams are long-lived
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.QueueBackend != "redis" {
		// Nothing else can reach an in-process queue, so drain it here.
		g.Go(func() error { return audit.New(q, log).Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		// Give outstanding requests 10 seconds to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info("server exited")
	return err
}
