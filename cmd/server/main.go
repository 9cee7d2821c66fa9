package main

import (
	"context"
	"net/http"
	"time"

	"vitrin-be/internal/catalog"
	"vitrin-be/internal/checkout"
	"vitrin-be/internal/config"
	"vitrin-be/internal/db"
	"vitrin-be/internal/gateway"
	"vitrin-be/internal/httpapi"
	"vitrin-be/internal/logger"
	"vitrin-be/internal/middleware"
	"vitrin-be/internal/order"
	"vitrin-be/internal/pricing"
	"vitrin-be/internal/reservation"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := db.InitDB(cfg)
	defer database.Close()

	catalogRepo := catalog.NewRepository(database)
	validator := pricing.NewValidator(catalogRepo)

	orderRepo := order.NewRepository(database)
	reservationStore := reservation.NewPostgresStore(database)

	gw := gateway.NewZarinpalGateway(gateway.Options{
		MerchantID:  cfg.MerchantID,
		BaseURL:     cfg.GatewayBaseURL,
		CallbackURL: cfg.CallbackBaseURL + "/api/payment/callback",
	})

	checkoutSvc := checkout.NewService(validator, reservationStore, orderRepo, gw, checkout.Config{
		MinorUnitFactor: cfg.MinorUnitFactor,
		ReservationTTL:  cfg.ReservationTTL,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reservation.NewSweeper(reservationStore, 5*time.Minute).Run(ctx)

	paymentHandler := httpapi.NewHandler(checkoutSvc, cfg.PaymentSuccessURL, cfg.PaymentFailureURL)
	orderHandler := httpapi.NewOrderHandler(order.NewService(orderRepo))
	handler := setupRouter(paymentHandler, orderHandler, []byte(cfg.JWTSecret))

	logger.L().Info("payment server listening", zap.String("port", cfg.AppPort))
	if err := http.ListenAndServe(":"+cfg.AppPort, handler); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

func setupRouter(paymentHandler *httpapi.Handler, orderHandler *httpapi.OrderHandler, jwtSecret []byte) http.Handler {
	mux := http.NewServeMux()
	paymentHandler.Register(mux)
	orderHandler.Register(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	var handler http.Handler = mux
	handler = middleware.RateLimit(handler)
	handler = middleware.Auth(jwtSecret)(handler)
	handler = logger.LoggingMiddleware(handler)
	handler = logger.RequestIDMiddleware(handler)
	return handler
}
