package bootstrap

import (
	"context"
	"testing"

	"mecanica_marketplace/internal/infrastructure/config"
	"mecanica_marketplace/internal/usecase"
)

func memoryConfig() config.Config {
	return config.Config{
		StoreBackend:       config.StoreBackendMemory,
		Lifecycle:          usecase.DefaultConfig(),
		NotifyWorkers:      1,
		NotifyQueueSize:    8,
		PaymentGatewayMock: true,
	}
}

func TestBuild_MemoryBackend(t *testing.T) {
	app, err := Build(context.Background(), memoryConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer app.Close()

	ctx := context.Background()
	job, err := app.Engine.CreateJob(ctx, usecase.CreateJobCommand{CustomerID: "cust-1", Title: "Brake check", EstimatedCost: 90})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	got, err := app.Engine.GetJob(ctx, job.ID)
	if err != nil || got.ID != job.ID {
		t.Fatalf("expected to read back %s, got %+v err=%v", job.ID, got, err)
	}
}

func TestBuild_UnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreBackend = "sqlite"
	if _, err := Build(context.Background(), cfg); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}
