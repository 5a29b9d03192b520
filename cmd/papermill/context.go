package main

import (
	"strings"
	"sync"

	"papermill/internal/apiclient"
	"papermill/internal/config"
)

type commandContext struct {
	serverFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(serverFlag, configFlag *string) *commandContext {
	return &commandContext{
		serverFlag: serverFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// baseURL resolves the daemon address: explicit --server flag first, then
// the configured bind address.
func (c *commandContext) baseURL() string {
	if c.serverFlag != nil && strings.TrimSpace(*c.serverFlag) != "" {
		return strings.TrimRight(strings.TrimSpace(*c.serverFlag), "/")
	}
	if cfg := c.configValue(); cfg != nil && strings.TrimSpace(cfg.Paths.APIBind) != "" {
		return "http://" + cfg.Paths.APIBind
	}
	return "http://127.0.0.1:7311"
}

func (c *commandContext) client() *apiclient.Client {
	token := ""
	if cfg := c.configValue(); cfg != nil {
		token = cfg.Paths.APIToken
	}
	// No client-side timeout: synchronous conversions legitimately run for
	// the full converter deadline.
	return apiclient.New(c.baseURL(), token, 0)
}
