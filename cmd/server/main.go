package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"foodpay/internal/api"
	"foodpay/internal/config"
	"foodpay/internal/database"
	"foodpay/internal/infrastructure/gateway"
	"foodpay/internal/notify"
	"foodpay/internal/repo"
	"foodpay/internal/service"
	"foodpay/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	dbService := database.New()
	defer dbService.Close()
	db := dbService.DB()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	orderRepo := repo.NewOrderRepo(db)
	auditRepo := repo.NewAuditRepo(db)
	paymentGateway := gateway.New(cfg.Gateway)
	notifier := notify.NewRedis(cfg.RedisAddr, cfg.RedisPass)
	payments := service.NewPaymentService(db, orderRepo, auditRepo, paymentGateway, notifier, cfg.Gateway)

	reconciler := worker.NewReconciliationWorker(db, orderRepo, auditRepo, paymentGateway, cfg.ReconcileInterval, cfg.StuckAfter)
	go reconciler.Run(ctx)

	handler := api.NewPaymentHandler(payments)
	router := api.NewRouter(handler, cfg.JWTSecret, dbService)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("payment service listening on :%s (gateway mode: %s)", cfg.Port, cfg.Gateway.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
