package events

import (
	"context"
	"errors"
	"fmt"

	"b2c-hub/internal/domain"
	"b2c-hub/metrics"
)

// Sink is a named event destination.
type Sink struct {
	Name string
	domain.EventSink
}

// Fanout publishes every result to each sink in order. A failing sink does
// not stop delivery to the others. Implements domain.EventSink.
type Fanout struct {
	sinks []Sink
}

// NewFanout creates a fanout over sinks.
func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

// Publish delivers result to every sink and joins their errors.
func (f *Fanout) Publish(ctx context.Context, result domain.OperationResult) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, result); err != nil {
			metrics.RecordDeliveryError(sink.Name)
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name, err))
		}
	}
	return errors.Join(errs...)
}
