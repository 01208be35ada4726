package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/cratekeeper/cratekeeper/internal/config"
	"github.com/cratekeeper/cratekeeper/internal/logger"
	"github.com/cratekeeper/cratekeeper/internal/service"
)

// ProvideTagService provides the tag maintenance service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	rules := do.MustInvoke[*RulesHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	return service.New(context.Background(), storeHandle.Store, rules.Rules, log)
}

// RulesWatcherHandle owns the hot-reload watcher goroutine.
type RulesWatcherHandle struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *RulesWatcherHandle) Shutdown() error {
	if h.cancel != nil {
		h.cancel()
	}
	return nil
}

// ProvideRulesWatcher starts the rules file watcher when hot reload is
// enabled. Each settled change reloads the tables into the service.
func ProvideRulesWatcher(i do.Injector) (*RulesWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if !cfg.Rules.Watch || cfg.Rules.Path == "" {
		return &RulesWatcherHandle{}, nil
	}

	log := do.MustInvoke[*logger.Logger](i)
	svc := do.MustInvoke[*service.TagService](i)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := config.WatchRules(ctx, cfg.Rules.Path, log, svc.ReloadRules); err != nil {
			log.WithError(err).Warn("rules watcher stopped")
		}
	}()

	log.Info("rules hot reload enabled", "path", cfg.Rules.Path)
	return &RulesWatcherHandle{cancel: cancel}, nil
}
