package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"LIBRA-backend/internal/catalog"
	"LIBRA-backend/internal/jobs"
	"LIBRA-backend/internal/loans"
	"LIBRA-backend/internal/notifications"
	"LIBRA-backend/internal/platform/auth"
	"LIBRA-backend/internal/platform/config"
	"LIBRA-backend/internal/platform/db"
	"LIBRA-backend/internal/platform/logging"
)

func main() {
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		panic(err)
	}

	log, err := logging.New(cfg.Server.Mode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("starting", zap.String("mode", cfg.Server.Mode), zap.String("version", cfg.Version))

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	defer conn.Close()
	log.Info("connected to db", zap.String("dbname", cfg.DB.DBName))

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if cfg.Server.Mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// services
	catalogSvc := catalog.NewService(conn)
	mailer := notifications.NewSMTPMailer(cfg.Mail, log)
	notifSvc := notifications.NewService(conn, mailer, log, cfg.Outbox)
	loanSvc := loans.NewService(conn, catalog.NewStore(conn), notifSvc, log, cfg.Loans, cfg.Jobs.ReminderWindow())

	// /api/v1
	api := r.Group("/api/v1")
	auth.RegisterRoutes(api.Group("/auth"), auth.NewService(conn, []byte(cfg.Auth.JWTSecret)))
	catalog.RegisterRoutes(api, catalogSvc)
	loans.RegisterRoutes(api, loanSvc)
	notifications.RegisterRoutes(api, notifSvc)

	// ジョブの手動トリガは要認証（外部cron想定）
	admin := api.Group("", auth.RequireAuth([]byte(cfg.Auth.JWTSecret)))
	jobs.RegisterRoutes(admin, loanSvc, notifSvc)

	// periodic jobs
	jobCtx, stopJobs := context.WithCancel(context.Background())
	runner := jobs.NewRunner(loanSvc, notifSvc, cfg.Jobs, log)
	runner.Start(jobCtx)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	go func() {
		log.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down...")

	stopJobs()
	runner.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("shutdown failed", zap.Error(err))
	}
}
