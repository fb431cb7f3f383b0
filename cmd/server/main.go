package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/app"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/config"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/lib/logger"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/service"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()

	userRepo := storage.NewUserRepository(application.DB)
	productRepo := storage.NewProductRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)

	router := app.NewRouter(log, app.RouterConfig{
		JWTSecret:      cfg.JWT.Secret,
		AllowedOrigins: cfg.HTTPServer.CORSAllowedOrigins,
	}, app.Services{
		Auth: service.NewAuthService(log, userRepo, cfg.TokenTTL(), cfg.JWT.Secret),
		Products: service.NewProductService(log, productRepo, service.PageLimits{
			Default: cfg.Catalog.DefaultPageSize,
			Max:     cfg.Catalog.MaxPageSize,
		}),
		Orders: service.NewOrderService(log, productRepo, orderRepo),
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
