// Package queue hands scrape work to the asynchronous job queue and hosts
// the worker that consumes it. Dispatch is at-least-once; per-tracker
// failures stay isolated inside their own message.
package queue

import (
	"context"
	"fmt"

	"rocket-tracker/internal/constants"
	"rocket-tracker/internal/metrics"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// JobQueue is the contract the batch processor enqueues through.
type JobQueue interface {
	Enqueue(ctx context.Context, trackerID string) error
	EnqueueBatch(ctx context.Context, trackerIDs []string) error
}

type scrapeJob struct {
	TrackerID string `json:"tracker_id"`
}

// NewPubSub builds the in-process message bus backing the queue. Swapping
// in a broker-backed pub/sub is a wiring change only; the rest of the
// pipeline talks to JobQueue and the router.
func NewPubSub(logger zerolog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, newWatermillLogger(logger))
}

type WatermillQueue struct {
	publisher message.Publisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func NewWatermillQueue(pubsub *gochannel.GoChannel, m *metrics.Metrics, logger zerolog.Logger) *WatermillQueue {
	return &WatermillQueue{publisher: pubsub, metrics: m, logger: logger}
}

func (q *WatermillQueue) Enqueue(ctx context.Context, trackerID string) error {
	return q.EnqueueBatch(ctx, []string{trackerID})
}

func (q *WatermillQueue) EnqueueBatch(ctx context.Context, trackerIDs []string) error {
	if len(trackerIDs) == 0 {
		return nil
	}

	messages := make([]*message.Message, 0, len(trackerIDs))
	for _, trackerID := range trackerIDs {
		payload, err := json.Marshal(scrapeJob{TrackerID: trackerID})
		if err != nil {
			return fmt.Errorf("failed to encode scrape job: %w", err)
		}
		msg := message.NewMessage(watermill.NewUUID(), payload)
		msg.SetContext(ctx)
		messages = append(messages, msg)
	}

	if err := q.publisher.Publish(constants.ScrapeTopic, messages...); err != nil {
		return fmt.Errorf("failed to publish scrape jobs: %w", err)
	}

	q.metrics.JobsEnqueued.Add(float64(len(trackerIDs)))
	q.logger.Info().Int("job_count", len(trackerIDs)).Msg("scrape jobs enqueued")
	return nil
}

// watermillLogger bridges watermill's logging onto zerolog.
type watermillLogger struct {
	logger zerolog.Logger
}

func newWatermillLogger(logger zerolog.Logger) watermill.LoggerAdapter {
	return watermillLogger{logger: logger}
}

func (l watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.logger.Error().Err(err).Fields(map[string]any(fields)).Msg(msg)
}

func (l watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.logger.Debug().Fields(map[string]any(fields)).Msg(msg)
}

func (l watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.logger.Debug().Fields(map[string]any(fields)).Msg(msg)
}

func (l watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.logger.Trace().Fields(map[string]any(fields)).Msg(msg)
}

func (l watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return watermillLogger{logger: l.logger.With().Fields(map[string]any(fields)).Logger()}
}
