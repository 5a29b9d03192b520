package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateConverter(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateConverter() error {
	if strings.TrimSpace(c.Converter.Binary) == "" {
		return errors.New("converter.binary must be set")
	}
	if strings.TrimSpace(c.Converter.OutputFormat) == "" {
		return errors.New("converter.output_format must be set")
	}
	if c.Converter.MaxDeadlineSeconds < c.Converter.DeadlineSeconds {
		return fmt.Errorf("converter.max_deadline_seconds (%d) must be >= converter.deadline_seconds (%d)",
			c.Converter.MaxDeadlineSeconds, c.Converter.DeadlineSeconds)
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.CooldownSeconds > 60 {
		return errors.New("queue.cooldown_seconds must be at most 60")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
}
