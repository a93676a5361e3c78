// YiPai 医院排班优化引擎
// 主程序入口

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yipai/yipai/internal/config"
	"github.com/yipai/yipai/internal/database"
	"github.com/yipai/yipai/internal/handler"
	"github.com/yipai/yipai/internal/metrics"
	"github.com/yipai/yipai/internal/middleware"
	"github.com/yipai/yipai/internal/repository"
	"github.com/yipai/yipai/pkg/engine"
	"github.com/yipai/yipai/pkg/logger"
	"github.com/yipai/yipai/pkg/model"
	"github.com/yipai/yipai/pkg/overwork"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:   "yipai",
		Short: "YiPai 医院排班优化引擎",
	}

	root.AddCommand(serveCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// versionCmd 版本信息命令
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "打印版本信息",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("YiPai 医院排班优化引擎 v%s\n", Version)
			fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
		},
	}
}

// serveCmd 启动HTTP服务命令
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动HTTP服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	logger.Init(cfg.Log)
	logger.Info().
		Str("version", Version).
		Str("env", cfg.App.Env).
		Msg("YiPai 医院排班优化引擎启动中")

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("数据库初始化失败: %w", err)
	}
	defer db.Close()

	// 仓储
	employeeRepo := repository.NewEmployeeRepository(db)
	shiftRepo := repository.NewShiftRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	overworkRepo := repository.NewOverworkRepository(db)

	// 领域服务
	eng := engine.New(cfg.Engine.ToEngineConfig(), employeeRepo, shiftRepo, locationRepo, overworkRepo)
	overworkService := overwork.NewService(overworkRepo, employeeRepo, overwork.NewLogNotifier())

	// 处理器
	optimizeHandler := handler.NewOptimizeHandler(eng, cfg.Engine.BatchTimeout)
	overworkHandler := handler.NewOverworkHandler(overworkService)
	workloadHandler := handler.NewWorkloadHandler(&cfg.Workload, employeeRepo, shiftRepo, locationRepo)

	mux := http.NewServeMux()

	// 系统端点
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Health(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded","service":"yipai"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"yipai"}`))
	})
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	// 批次优化
	mux.HandleFunc("POST /api/v1/schedule/optimize", optimizeHandler.Optimize)

	// 负载与公平性
	mux.HandleFunc("GET /api/v1/workload/alerts", workloadHandler.Alerts)
	mux.HandleFunc("GET /api/v1/workload/fairness", workloadHandler.Fairness)

	// 加班豁免工作流（审批动作要求主管或行政角色）
	reviewerOnly := middleware.RequireRole(model.RoleSupervisor, model.RoleAdmin)
	mux.HandleFunc("POST /api/v1/overwork", overworkHandler.Create)
	mux.HandleFunc("GET /api/v1/overwork/pending", overworkHandler.ListPending)
	mux.HandleFunc("GET /api/v1/overwork/{id}", overworkHandler.Get)
	mux.Handle("POST /api/v1/overwork/{id}/approve", reviewerOnly(http.HandlerFunc(overworkHandler.Approve)))
	mux.Handle("POST /api/v1/overwork/{id}/reject", reviewerOnly(http.HandlerFunc(overworkHandler.Reject)))

	// 监控端点
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	// 中间件顺序：requestID -> identity -> recovery -> logging -> handler
	chained := middleware.RequestIDMiddleware(
		middleware.IdentityMiddleware(
			middleware.RecoveryMiddleware(
				middleware.LoggingMiddleware(mux))))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      chained,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("服务器关闭失败: %w", err)
	}

	logger.Info().Msg("服务器已关闭")
	return nil
}
