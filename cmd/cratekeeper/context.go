package main

import (
	"github.com/samber/do/v2"

	"github.com/cratekeeper/cratekeeper/internal/di"
	"github.com/cratekeeper/cratekeeper/internal/service"
)

// commandContext lazily builds the DI container so commands that never
// touch the store (help, completion) never open the database.
type commandContext struct {
	injector *do.RootScope
}

func (c *commandContext) service() (*service.TagService, error) {
	if c.injector == nil {
		c.injector = di.NewContainer()
	}
	return do.Invoke[*service.TagService](c.injector)
}

// withService runs fn against the tag service and tears the container
// down afterwards.
func (c *commandContext) withService(fn func(*service.TagService) error) error {
	svc, err := c.service()
	if err != nil {
		return err
	}
	defer c.shutdown()
	return fn(svc)
}

func (c *commandContext) shutdown() {
	if c.injector != nil {
		_ = c.injector.Shutdown()
		c.injector = nil
	}
}
