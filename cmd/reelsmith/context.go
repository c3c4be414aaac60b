package main

import (
	"reelsmith/internal/client"
	"reelsmith/internal/config"
)

// commandContext lazily resolves configuration and the daemon client so
// commands share one setup path.
type commandContext struct {
	configFlag *string

	cfg *config.Config
	api *client.Client
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	path := ""
	if c.configFlag != nil {
		path = *c.configFlag
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

func (c *commandContext) ensureClient() (*client.Client, error) {
	if c.api != nil {
		return c.api, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.api = client.New(cfg.APIBind)
	return c.api, nil
}
