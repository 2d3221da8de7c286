package services

import (
	"context"

	"github.com/EO-DataHub/eodhp-directory-services/internal/appconfig"
	"github.com/EO-DataHub/eodhp-directory-services/internal/directory"
	"github.com/EO-DataHub/eodhp-directory-services/internal/events"
	"github.com/EO-DataHub/eodhp-directory-services/internal/metrics"
	"github.com/rs/zerolog"
)

// Service contains all shared dependencies for handlers.
type Service struct {
	Config  *appconfig.Config
	Store   directory.Store
	Events  events.Notifier
	Metrics *metrics.Metrics
}

// observe records the outcome of a store operation when metrics are enabled.
func (svc *Service) observe(operation string, err error) {
	if svc.Metrics != nil {
		svc.Metrics.ObserveOperation(operation, err)
	}
}

// publish sends event after a committed mutation. The change is already
// durable, so a failure is logged and the request still succeeds.
func (svc *Service) publish(ctx context.Context, event events.DirectoryEvent) {
	if svc.Events == nil {
		return
	}

	if err := svc.Events.Notify(ctx, event); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Str("event_type", event.Type).
			Str("subject", event.Subject).
			Msg("Failed to publish directory event")
		return
	}

	zerolog.Ctx(ctx).Debug().Str("event_type", event.Type).Str("subject", event.Subject).Msg("Directory event published")
}
