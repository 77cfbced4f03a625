package bot

import (
	"context"
	"errors"

	"scalper/internal/model"
)

// EventSink receives the loop's events. Implementations must not block
// for long; failures are logged by the bot and otherwise ignored.
type EventSink interface {
	PublishSignal(ctx context.Context, sig model.Signal) error
	PublishTrade(ctx context.Context, o *model.OrderResult) error
	PublishCycle(ctx context.Context, r model.CycleReport) error
}

// Sinks fans events out to several sinks. A nil or empty Sinks is a no-op.
type Sinks []EventSink

func (s Sinks) PublishSignal(ctx context.Context, sig model.Signal) error {
	var errs []error
	for _, sink := range s {
		if err := sink.PublishSignal(ctx, sig); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s Sinks) PublishTrade(ctx context.Context, o *model.OrderResult) error {
	var errs []error
	for _, sink := range s {
		if err := sink.PublishTrade(ctx, o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s Sinks) PublishCycle(ctx context.Context, r model.CycleReport) error {
	var errs []error
	for _, sink := range s {
		if err := sink.PublishCycle(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
