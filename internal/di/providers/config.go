// Package providers contains dependency injection providers for cratekeeper.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/cratekeeper/cratekeeper/internal/config"
	"github.com/cratekeeper/cratekeeper/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.Load("")
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Format:      cfg.Logger.Format,
		Environment: cfg.App.Environment,
	})

	log.Debug("configuration loaded",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"database_path", cfg.Database.Path,
		"rules_path", cfg.Rules.Path,
	)

	return log, nil
}

// RulesHandle wraps the loaded rule tables so the container has a single
// instance to hand out.
type RulesHandle struct {
	*config.Rules
}

// ProvideRules loads the rule tables: built-in defaults overlaid with the
// configured YAML file, when one is set.
func ProvideRules(i do.Injector) (*RulesHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	rules, err := config.LoadRules(cfg.Rules.Path)
	if err != nil {
		return nil, err
	}
	if cfg.Rules.Path != "" {
		log.Info("rule tables loaded", "path", cfg.Rules.Path)
	}
	return &RulesHandle{Rules: rules}, nil
}
