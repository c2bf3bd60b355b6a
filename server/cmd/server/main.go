package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"

	"github.com/stigkj/tlb/server/internal/api"
	"github.com/stigkj/tlb/server/internal/auth"
	"github.com/stigkj/tlb/server/internal/config"
	"github.com/stigkj/tlb/server/internal/entry"
	"github.com/stigkj/tlb/server/internal/metrics"
	"github.com/stigkj/tlb/server/internal/probe"
	"github.com/stigkj/tlb/server/internal/repo"
	"github.com/stigkj/tlb/server/internal/store"
	"github.com/stigkj/tlb/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	envFile := flag.String("env-file", ".env", "optional dotenv file loaded before the config; missing files are ignored")
	withReflection := flag.Bool("grpc-reflection", false, "register the gRPC reflection service")
	flag.Parse()

	// A missing .env is normal outside development.
	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err == nil {
		err = config.ApplyEnv(cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level := new(slog.LevelVar)
	level.Set(cfg.Server.SlogLevel())
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("tlb-server starting",
		"config", *configPath,
		"grpc_port", cfg.Server.GRPCPort,
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"store_driver", cfg.Server.Store.Driver,
		"flush_interval", cfg.Server.Flush.Interval,
		"version_life_days", cfg.Server.Retention.VersionLifeDays,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := store.Open(ctx, cfg.Server.Store)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Server.Store.Driver, "err", err)
		os.Exit(1)
	}

	m := metrics.New()
	reg := repo.NewRegistry(st, entry.Constructors(), repo.WithMetrics(m))

	// The final flush fires on drained, after the HTTP and gRPC servers have
	// finished their in-flight requests.
	drainCtx, drained := context.WithCancel(context.Background())
	defer drained()
	waitFlush := reg.RegisterShutdownFlush(drainCtx)

	sched := repo.NewScheduler(reg, scheduleFrom(cfg), m)
	go sched.Run(ctx)

	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			sched.Update(scheduleFrom(next))
			level.Set(next.Server.SlogLevel())
		})
		if err != nil {
			slog.Warn("config watch disabled", "path", *configPath, "err", err)
		}
	}()

	authCfg := cfg.Server.Auth
	header, key := authCfg.EffectiveHeader(), authCfg.Key()
	if authCfg.Mode == auth.ModeAPIKey && key == "" {
		slog.Warn("auth mode is apikey but no key is set; mutating endpoints are open", "key_env", authCfg.KeyEnv)
	}

	// gRPC server: health probe only, authenticated except for the health service.
	health := probe.New()
	grpcSrv := grpc.NewServer(
		grpc.UnaryInterceptor(auth.APIKeyInterceptor(authCfg.Mode, header, key, "/grpc.health.v1.Health/")),
		grpc.StreamInterceptor(auth.APIKeyStreamInterceptor(authCfg.Mode, header, key, "/grpc.health.v1.Health/")),
	)
	health.Register(grpcSrv, *withReflection)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		slog.Error("failed to listen on gRPC port", "port", cfg.Server.GRPCPort, "err", err)
		os.Exit(1)
	}
	go func() {
		slog.Info("gRPC health listening", "port", cfg.Server.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			slog.Error("gRPC server stopped", "err", err)
		}
	}()

	// WebSocket hub: registry stats every stats.interval.
	hub := ws.New(reg, cfg.Server.Store.Driver, cfg.Server.Stats.Interval)
	go hub.Run(ctx)

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", api.New(reg, api.Config{
		StoreDriver:     cfg.Server.Store.Driver,
		VersionLifeDays: func() int { return sched.Current().VersionLifeDays },
		Protect:         auth.APIKeyMiddleware(authCfg.Mode, header, key),
	}))
	httpMux.Handle("/metrics", m.Handler())
	httpMux.Handle("/ws/stats", hub)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("tlb-server shutting down")
	health.Shutdown()

	stopServers(httpSrv, grpcSrv, 30*time.Second, func() {
		drained()
		waitFlush()
	})
	if err := st.Close(); err != nil {
		slog.Error("failed to close store", "err", err)
	}
	slog.Info("tlb-server stopped")
}

// stopServers drains httpSrv and grpcSrv, then runs finalFlush. Records made by
// requests still in flight when shutdown starts are therefore persisted.
func stopServers(httpSrv *http.Server, grpcSrv *grpc.Server, timeout time.Duration, finalFlush func()) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Warn("HTTP server did not drain", "err", err)
	}
	grpcSrv.GracefulStop()
	finalFlush()
}

// scheduleFrom maps the flush and retention settings onto a repo.Schedule.
func scheduleFrom(cfg *config.Config) repo.Schedule {
	return repo.Schedule{
		FlushInterval:   cfg.Server.Flush.Interval,
		PruneInterval:   cfg.Server.Retention.PruneInterval,
		VersionLifeDays: cfg.Server.Retention.VersionLifeDays,
	}
}
