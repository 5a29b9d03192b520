package config

const (
	defaultStagingDir              = "~/.local/share/papermill/staging"
	defaultLogDir                  = "~/.local/share/papermill/logs"
	defaultAPIBind                 = "127.0.0.1:7311"
	defaultConverterBinary         = "soffice"
	defaultOutputFormat            = "pdf"
	defaultDeadlineSeconds         = 60
	defaultMaxDeadlineSeconds      = 300
	defaultCooldownSeconds         = 1
	defaultFetchTimeoutSeconds     = 30
	defaultMaxInputMiB             = 50
	defaultCachePath               = "~/.local/share/papermill/cache/artifacts.db"
	defaultCallbackTimeoutSeconds  = 10
	defaultNotifyRequestTimeout    = 10
	defaultStagingStaleAgeHours    = 24
	defaultStagingMinFreeMiB       = 256
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Converter: Converter{
			Binary:             defaultConverterBinary,
			OutputFormat:       defaultOutputFormat,
			DeadlineSeconds:    defaultDeadlineSeconds,
			MaxDeadlineSeconds: defaultMaxDeadlineSeconds,
		},
		Queue: Queue{
			CooldownSeconds: defaultCooldownSeconds,
		},
		Fetch: Fetch{
			TimeoutSeconds: defaultFetchTimeoutSeconds,
			MaxInputMiB:    defaultMaxInputMiB,
		},
		Cache: Cache{
			Path: defaultCachePath,
		},
		Callbacks: Callbacks{
			RequestTimeoutSeconds: defaultCallbackTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Staging: Staging{
			StaleAgeHours: defaultStagingStaleAgeHours,
			MinFreeMiB:    defaultStagingMinFreeMiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
