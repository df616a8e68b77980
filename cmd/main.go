package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/davidbz/chatrelay/internal/config"
	"github.com/davidbz/chatrelay/internal/domain"
	"github.com/davidbz/chatrelay/internal/httpserver"
	"github.com/davidbz/chatrelay/internal/httpserver/middleware"
	"github.com/davidbz/chatrelay/internal/ledger"
	"github.com/davidbz/chatrelay/internal/observability"
	"github.com/davidbz/chatrelay/internal/provider/echo"
	"github.com/davidbz/chatrelay/internal/provider/openai"
	"github.com/davidbz/chatrelay/internal/provider/registry"
)

// ErrProviderNotConfigured indicates that a provider is not configured and should be skipped.
var ErrProviderNotConfigured = errors.New("provider not configured")

func main() {
	container := buildContainer()

	if err := container.Invoke(run); err != nil {
		log.Fatalf("Failed to run application: %v", err)
	}
}

// run serves until SIGINT/SIGTERM and then drains in-flight requests.
func run(
	logger *zap.Logger,
	server *httpserver.Server,
	serverCfg *config.ServerConfig,
	store domain.LedgerStore,
) error {
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start()
	}()

	var err error
	select {
	case err = <-serveErr:
	case <-ctx.Done():
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(serverCfg.ShutdownTimeout)*time.Second)
		defer cancel()

		err = server.Shutdown(shutdownCtx)
	}

	if closer, ok := store.(io.Closer); ok {
		if closeErr := closer.Close(); closeErr != nil {
			logger.Error("failed to close ledger store", zap.Error(closeErr))
		}
	}

	return err
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Invoke(func(*zap.Logger) {}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	if err := container.Provide(func(logger *zap.Logger) domain.EventPublisher {
		return observability.NewEventBus(logger)
	}); err != nil {
		log.Fatalf("Failed to provide event bus: %v", err)
	}

	// Usage ledger
	if err := container.Provide(ledger.NewStore); err != nil {
		log.Fatalf("Failed to provide ledger store: %v", err)
	}
	if err := container.Provide(func(store domain.LedgerStore, cfg *config.LedgerConfig) (*domain.Ledger, error) {
		return domain.NewLedger(store, cfg.MaxTokenLimit)
	}); err != nil {
		log.Fatalf("Failed to provide ledger: %v", err)
	}
	if err := container.Provide(func(cfg *config.ChatConfig) (domain.CostModel, error) {
		return domain.NewCostModel(cfg.CostModel)
	}); err != nil {
		log.Fatalf("Failed to provide cost model: %v", err)
	}

	// Provider Registry
	if err := container.Provide(func() domain.ProviderRegistry {
		return registry.NewRegistry()
	}); err != nil {
		log.Fatalf("Failed to provide registry: %v", err)
	}

	// OpenAI Provider
	if err := container.Provide(func(cfg *openai.Config, chat *config.ChatConfig) (*openai.Provider, error) {
		if cfg.APIKey == "" {
			return nil, ErrProviderNotConfigured
		}

		// The configured model may be newer than the built-in list.
		return openai.NewProvider(*cfg, chat.Model)
	}); err != nil {
		log.Fatalf("Failed to provide OpenAI provider: %v", err)
	}

	// Echo is always available for local development.
	if err := container.Invoke(func(reg domain.ProviderRegistry) error {
		return reg.Register(context.Background(), echo.NewProvider())
	}); err != nil {
		log.Fatalf("Failed to register echo provider: %v", err)
	}

	// Register providers with registry (invoked for side effects)
	if err := container.Invoke(func(
		reg domain.ProviderRegistry,
		openaiProvider *openai.Provider,
	) error {
		if err := reg.Register(context.Background(), openaiProvider); err != nil {
			return fmt.Errorf("failed to register OpenAI provider: %w", err)
		}
		return nil
	}); err != nil {
		// Ignore ErrProviderNotConfigured as it's expected for optional providers
		if !errors.Is(err, ErrProviderNotConfigured) {
			log.Fatalf("Failed to register providers: %v", err)
		}
		observability.FromContext(context.Background()).Warn("OpenAI provider not configured, only the echo model is served")
	}

	// Domain Services
	if err := container.Provide(func(reg domain.ProviderRegistry, cfg *config.ChatConfig) *domain.CompletionClient {
		return domain.NewCompletionClient(reg, cfg.Model, cfg.ContextMaxTurns)
	}); err != nil {
		log.Fatalf("Failed to provide completion client: %v", err)
	}
	if err := container.Provide(domain.NewChatService); err != nil {
		log.Fatalf("Failed to provide chat service: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(httpserver.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(httpserver.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}
