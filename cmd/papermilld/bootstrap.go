package main

import (
	"context"
	"log/slog"
	"time"

	"papermill/internal/artifactcache"
	"papermill/internal/config"
	"papermill/internal/convert"
	"papermill/internal/fetch"
	"papermill/internal/notify"
	"papermill/internal/process"
	"papermill/internal/services/libreoffice"
)

// buildService assembles the conversion pipeline from configuration.
func buildService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*convert.Service, *artifactcache.Store, notify.Service, error) {
	var cache *artifactcache.Store
	if cfg.Cache.Enabled {
		opened, err := artifactcache.Open(cfg.Cache.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		cache = opened
	}

	converter := libreoffice.NewCLI(
		libreoffice.WithBinary(cfg.Converter.Binary),
		libreoffice.WithOutputFormat(cfg.Converter.OutputFormat),
		libreoffice.WithRunner(process.NewSupervisor(logger)),
		libreoffice.WithLogger(logger),
	)

	fetcher := fetch.NewClient(
		time.Duration(cfg.Fetch.TimeoutSeconds)*time.Second,
		int64(cfg.Fetch.MaxInputMiB)<<20,
	)

	webhook := notify.NewWebhook(
		time.Duration(cfg.Callbacks.RequestTimeoutSeconds)*time.Second,
		cfg.Callbacks.Secret,
		logger,
	)
	events := notify.NewService(cfg)

	svc := convert.NewService(ctx, cfg, convert.Deps{
		Fetcher:   fetcher,
		Converter: converter,
		Cache:     cache,
		Webhook:   webhook,
		Events:    events,
		Logger:    logger,
	})

	return svc, cache, events, nil
}
