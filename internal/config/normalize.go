package config

import "strings"

// normalize expands path fields and fills empty values with defaults so the
// rest of the codebase never re-checks them.
func (c *Config) normalize() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(valueOr(c.Paths.StagingDir, defaultStagingDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(valueOr(c.Paths.LogDir, defaultLogDir)); err != nil {
		return err
	}
	if c.Cache.Path, err = expandPath(valueOr(c.Cache.Path, defaultCachePath)); err != nil {
		return err
	}

	c.Paths.APIBind = valueOr(c.Paths.APIBind, defaultAPIBind)
	c.Converter.Binary = valueOr(c.Converter.Binary, defaultConverterBinary)
	c.Converter.OutputFormat = strings.TrimPrefix(strings.ToLower(valueOr(c.Converter.OutputFormat, defaultOutputFormat)), ".")
	c.Logging.Format = valueOr(c.Logging.Format, defaultLogFormat)
	c.Logging.Level = valueOr(c.Logging.Level, defaultLogLevel)

	if c.Converter.DeadlineSeconds <= 0 {
		c.Converter.DeadlineSeconds = defaultDeadlineSeconds
	}
	if c.Converter.MaxDeadlineSeconds <= 0 {
		c.Converter.MaxDeadlineSeconds = defaultMaxDeadlineSeconds
	}
	if c.Queue.CooldownSeconds < 0 {
		c.Queue.CooldownSeconds = defaultCooldownSeconds
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = defaultFetchTimeoutSeconds
	}
	if c.Fetch.MaxInputMiB <= 0 {
		c.Fetch.MaxInputMiB = defaultMaxInputMiB
	}
	if c.Callbacks.RequestTimeoutSeconds <= 0 {
		c.Callbacks.RequestTimeoutSeconds = defaultCallbackTimeoutSeconds
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	if c.Staging.StaleAgeHours <= 0 {
		c.Staging.StaleAgeHours = defaultStagingStaleAgeHours
	}
	if c.Staging.MinFreeMiB < 0 {
		c.Staging.MinFreeMiB = defaultStagingMinFreeMiB
	}
	return nil
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
