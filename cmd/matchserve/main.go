// matchserve 是在线打分服务进程：加载训练工件，通过 HTTP 提供
// 单条/批量打分、模型信息、健康检查与工件热加载接口。
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utesolo/matchkit/config"
	"github.com/utesolo/matchkit/scoring"
	"github.com/utesolo/matchkit/store"
)

func main() {
	// .env 不存在不是错误
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "", "YAML 配置文件路径")
		addr       = flag.String("addr", "", "HTTP 监听地址（覆盖配置文件）")
		modelPath  = flag.String("model", "", "model.json 路径（覆盖配置文件）")
		scalerPath = flag.String("scaler", "", "scaler.json 路径（覆盖配置文件）")
		metaPath   = flag.String("meta", "", "meta.json 路径（覆盖配置文件）")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Error("load config failed", "path", *configPath, "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Serve.Addr = *addr
	}
	if *modelPath != "" {
		cfg.Serve.ModelPath = *modelPath
	}
	if *scalerPath != "" {
		cfg.Serve.ScalerPath = *scalerPath
	}
	if *metaPath != "" {
		cfg.Serve.MetaPath = *metaPath
	}

	svc := scoring.NewService(logger)
	if cfg.Serve.ModelPath != "" {
		if err := svc.Reload(cfg.Serve.ModelPath, cfg.Serve.ScalerPath, cfg.Serve.MetaPath); err != nil {
			// 工件加载失败不阻止启动：服务以未初始化状态等待热加载
			logger.Warn("initial artifact load failed, serving uninitialized", "err", err)
		}
	}

	var cache *store.ScoreCache
	if cfg.Serve.Redis.Addr != "" {
		c, err := store.NewScoreCache(cfg.Serve.Redis.Addr, cfg.Serve.Redis.DB, cfg.Serve.Redis.CacheTTL)
		if err != nil {
			logger.Warn("redis unavailable, score cache disabled", "addr", cfg.Serve.Redis.Addr, "err", err)
		} else {
			cache = c
			defer cache.Close()
		}
	}

	metrics := NewMetrics()
	handler := NewHandler(svc, cache, logger, metrics)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	handler.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.Serve.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("matchserve listening", "addr", cfg.Serve.Addr, "model_loaded", svc.Ready())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
		os.Exit(1)
	}
	logger.Info("matchserve stopped")
}
