package broadcast

import (
	"context"
	"errors"

	"github.com/wardwatch/platform/pkg/common/kafka"
	"github.com/wardwatch/platform/pkg/common/logger"
	"github.com/wardwatch/platform/pkg/common/models"
)

// KafkaBroadcaster bridges events onto the monitoring topic for consumers
// outside this process (audit trail, paging integrations).
type KafkaBroadcaster struct {
	producer *kafka.Producer
	source   string
}

func NewKafkaBroadcaster(producer *kafka.Producer, source string) *KafkaBroadcaster {
	return &KafkaBroadcaster{producer: producer, source: source}
}

func (b *KafkaBroadcaster) Broadcast(ctx context.Context, event models.Event) error {
	if event.Source == "" {
		event.Source = b.source
	}
	return b.producer.PublishEvent(ctx, event)
}

// Multi fans one event out to several sinks. Every sink is attempted; sink
// failures are logged and joined into the returned error.
type Multi []Broadcaster

func (m Multi) Broadcast(ctx context.Context, event models.Event) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Broadcast(ctx, event); err != nil {
			logger.Log.WithError(err).WithField("event_type", event.Type).Warn("broadcast sink failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
