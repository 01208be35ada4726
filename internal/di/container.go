// Package di provides dependency injection configuration for cratekeeper.
package di

import (
	"github.com/samber/do/v2"

	"github.com/cratekeeper/cratekeeper/internal/config"
	"github.com/cratekeeper/cratekeeper/internal/di/providers"
	"github.com/cratekeeper/cratekeeper/internal/logger"
	"github.com/cratekeeper/cratekeeper/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideRules)

	// Persistence
	do.Provide(injector, providers.ProvideStore)

	// Business services
	do.Provide(injector, providers.ProvideTagService)

	// Workers
	do.Provide(injector, providers.ProvideRulesWatcher)

	return injector
}

// Bootstrap triggers lazy initialization of the core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.RulesHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*service.TagService](injector)
	_ = do.MustInvoke[*providers.RulesWatcherHandle](injector)
	return nil
}
