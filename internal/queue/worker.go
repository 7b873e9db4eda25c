package queue

import (
	"context"

	"rocket-tracker/internal/constants"
	"rocket-tracker/internal/domain"
	"rocket-tracker/internal/metrics"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

type TrackerStore interface {
	Get(ctx context.Context, id string) (*domain.Tracker, error)
	MarkInProgress(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, succeeded bool) error
}

type SeasonStore interface {
	BulkUpsert(ctx context.Context, trackerID string, records []domain.SeasonRecord) error
}

type Scraper interface {
	ScrapeAllSeasons(ctx context.Context, url string) ([]domain.SeasonRecord, error)
}

// Worker consumes scrape jobs: it walks every season of the tracker's
// profile and persists the result, recording the outcome on the tracker.
type Worker struct {
	trackers TrackerStore
	seasons  SeasonStore
	scraper  Scraper
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewWorker(trackers TrackerStore, seasons SeasonStore, scraper Scraper, m *metrics.Metrics, logger zerolog.Logger) *Worker {
	return &Worker{trackers: trackers, seasons: seasons, scraper: scraper, metrics: m, logger: logger}
}

// Handle processes one queued scrape job. It always acks: job outcomes are
// recorded on the tracker row, and a failed tracker is requeued by the next
// batch run rather than spun on by the bus.
func (w *Worker) Handle(msg *message.Message) error {
	var job scrapeJob
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		w.logger.Error().Err(err).Str("message_id", msg.UUID).Msg("dropping undecodable scrape job")
		return nil
	}

	w.process(msg.Context(), job.TrackerID)
	return nil
}

func (w *Worker) process(ctx context.Context, trackerID string) {
	tracker, err := w.trackers.Get(ctx, trackerID)
	if err != nil {
		w.logger.Error().Err(err).Str("tracker_id", trackerID).Msg("failed to load tracker for scrape job")
		return
	}
	if tracker.IsDeleted || !tracker.IsActive {
		w.logger.Info().Str("tracker_id", trackerID).Msg("skipping inactive tracker")
		return
	}

	if err := w.trackers.MarkInProgress(ctx, trackerID); err != nil {
		w.logger.Error().Err(err).Str("tracker_id", trackerID).Msg("failed to mark tracker in progress")
		return
	}

	records, err := w.scraper.ScrapeAllSeasons(ctx, tracker.URL)
	if err != nil {
		w.finish(ctx, trackerID, false)
		w.logger.Error().Err(err).Str("tracker_id", trackerID).Msg("scrape failed")
		return
	}

	if err := w.seasons.BulkUpsert(ctx, trackerID, records); err != nil {
		w.finish(ctx, trackerID, false)
		w.logger.Error().Err(err).Str("tracker_id", trackerID).Msg("failed to persist season records")
		return
	}

	w.finish(ctx, trackerID, true)
	w.logger.Info().
		Str("tracker_id", trackerID).
		Int("season_count", len(records)).
		Msg("tracker scraped")
}

func (w *Worker) finish(ctx context.Context, trackerID string, succeeded bool) {
	outcome := metrics.OutcomeFailed
	if succeeded {
		outcome = metrics.OutcomeSucceeded
	}
	w.metrics.ScrapeOutcomes.WithLabelValues(outcome).Inc()

	if err := w.trackers.MarkCompleted(ctx, trackerID, succeeded); err != nil {
		w.logger.Error().Err(err).Str("tracker_id", trackerID).Msg("failed to record scrape outcome")
	}
}

// NewRouter wires the worker onto the scrape topic.
func NewRouter(pubsub *gochannel.GoChannel, worker *Worker, logger zerolog.Logger) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, newWatermillLogger(logger))
	if err != nil {
		return nil, err
	}

	router.AddMiddleware(middleware.Recoverer)
	router.AddNoPublisherHandler("tracker_scrape", constants.ScrapeTopic, pubsub, worker.Handle)
	return router, nil
}
