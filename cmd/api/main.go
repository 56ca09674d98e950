package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "mecanica_marketplace/docs"
	"mecanica_marketplace/internal/adapter/http/handlers"
	"mecanica_marketplace/internal/adapter/http/routes"
	"mecanica_marketplace/internal/infrastructure/bootstrap"
	"mecanica_marketplace/internal/infrastructure/config"
	"mecanica_marketplace/internal/infrastructure/scheduler"

	_ "github.com/joho/godotenv/autoload"
)

// @title           Mechanic Marketplace API
// @version         1.0
// @description     Job lifecycle for the mechanic marketplace: bids, scheduling, change orders with escrow and the expiration sweep.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080

// @BasePath  /v1

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to startup the application: %v", err)
	}
	defer app.Close()

	sweeps, err := scheduler.NewSweepScheduler(app.Engine, cfg.SweepSchedule)
	if err != nil {
		log.Fatalf("Failed to startup the application: %v", err)
	}
	sweeps.Start()

	router := routes.NewRouter(routes.Handlers{
		Jobs:         handlers.NewJobHandler(app.Engine),
		Bids:         handlers.NewBidHandler(app.Engine),
		ChangeOrders: handlers.NewChangeOrderHandler(app.Engine),
		Sweeps:       handlers.NewSweepHandler(app.Engine),
	})
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		log.Printf("[api] listening port=%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to startup the application: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[api] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[api] http shutdown failed err=%v", err)
	}
	sweeps.Stop(shutdownCtx)
}
