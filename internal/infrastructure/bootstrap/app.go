// Package bootstrap assembles the lifecycle Engine and its collaborators from
// a config.Config. Both entrypoints (API server and sweeper CLI) use it.
package bootstrap

import (
	"context"
	"fmt"
	"log"

	"mecanica_marketplace/internal/adapter/persistence/memory"
	"mecanica_marketplace/internal/adapter/persistence/repository"
	"mecanica_marketplace/internal/infrastructure/config"
	"mecanica_marketplace/internal/infrastructure/database"
	"mecanica_marketplace/internal/infrastructure/idgen"
	"mecanica_marketplace/internal/infrastructure/locking"
	"mecanica_marketplace/internal/infrastructure/messaging"
	"mecanica_marketplace/internal/infrastructure/notifications"
	"mecanica_marketplace/internal/infrastructure/payments"
	"mecanica_marketplace/internal/usecase"
	"mecanica_marketplace/internal/usecase/interfaces"
)

type App struct {
	Config     config.Config
	Engine     *usecase.Engine
	Dispatcher *notifications.Dispatcher

	closers []func()
}

// Build connects the configured backends and returns a ready Engine. The
// notification dispatcher is already started; call Close to drain it.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg}
	deps := usecase.Dependencies{IDs: idgen.New()}

	if err := app.wireStore(ctx, &deps); err != nil {
		app.Close()
		return nil, err
	}

	downstream, err := app.wireRedis(ctx, &deps)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Dispatcher = notifications.NewDispatcher(downstream, cfg.NotifyWorkers, cfg.NotifyQueueSize)
	app.Dispatcher.Start()
	app.closers = append(app.closers, app.Dispatcher.Shutdown)
	deps.Notifier = app.Dispatcher

	mpGateway, err := payments.NewMercadoPagoGateway(cfg.MercadoPagoAccessToken, cfg.PaymentGatewayMock)
	if err != nil {
		log.Printf("Mercado Pago gateway not configured: %v", err)
	} else {
		deps.Payments = mpGateway
	}

	app.Engine = usecase.NewEngine(deps, cfg.Lifecycle)
	log.Printf("[bootstrap] engine ready store=%s redis=%t payments=%t", cfg.StoreBackend, cfg.Redis.Enabled(), deps.Payments != nil)
	return app, nil
}

func (a *App) wireStore(ctx context.Context, deps *usecase.Dependencies) error {
	switch a.Config.StoreBackend {
	case config.StoreBackendMemory:
		store := memory.New()
		deps.Jobs = store.Jobs()
		deps.Bids = store.Bids()
		deps.ChangeOrders = store.ChangeOrders()
		deps.Escrow = store.EscrowPayments()
		return nil
	case config.StoreBackendDynamoDB:
		ddb, err := database.ConnectDynamoDB(ctx)
		if err != nil {
			return err
		}
		if a.Config.EnsureTables {
			if err := repository.EnsureTables(ctx, ddb); err != nil {
				return fmt.Errorf("ensure tables: %w", err)
			}
		}
		deps.Jobs = repository.NewJobDynamoRepository(ddb)
		deps.Bids = repository.NewBidDynamoRepository(ddb)
		deps.ChangeOrders = repository.NewChangeOrderDynamoRepository(ddb)
		deps.Escrow = repository.NewEscrowPaymentDynamoRepository(ddb)
		return nil
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", a.Config.StoreBackend)
	}
}

// wireRedis sets the locker, event publisher and conversation registry. With
// no Redis configured everything stays in-process.
func (a *App) wireRedis(ctx context.Context, deps *usecase.Dependencies) (interfaces.INotificationGateway, error) {
	if !a.Config.Redis.Enabled() {
		deps.Locker = locking.NewKeyedMutex()
		deps.Events = notifications.LogGateway{}
		deps.Conversations = messaging.NoopConversations{}
		return notifications.LogGateway{}, nil
	}

	client, err := database.ConnectRedis(ctx, a.Config.Redis)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() {
		if err := client.Close(); err != nil {
			log.Printf("[redis][client] close failed err=%v", err)
		}
	})

	gateway := notifications.NewRedisGateway(client)
	deps.Locker = locking.NewRedisLocker(client, locking.WithLockTTL(a.Config.Redis.LockTTL))
	deps.Events = gateway
	deps.Conversations = messaging.NewRedisConversations(client)
	return gateway, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
