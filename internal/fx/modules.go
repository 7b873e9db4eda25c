package fx

import (
	"database/sql"

	"rocket-tracker/internal/api"
	"rocket-tracker/internal/batch"
	"rocket-tracker/internal/config"
	"rocket-tracker/internal/database"
	"rocket-tracker/internal/guard"
	"rocket-tracker/internal/logger"
	"rocket-tracker/internal/metrics"
	"rocket-tracker/internal/queue"
	"rocket-tracker/internal/ratelimit"
	"rocket-tracker/internal/repository"
	"rocket-tracker/internal/scraper"
	"rocket-tracker/internal/server"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideScraper(client *api.SolverClient, m *metrics.Metrics, log zerolog.Logger) *scraper.Service {
	return scraper.NewService(client, m, log)
}

func ProvideGuard(
	trackers *repository.TrackerRepository,
	memberships *repository.MembershipRepository,
	settings *repository.GuildSettingsRepository,
	log zerolog.Logger,
) *guard.Guard {
	return guard.New(trackers, memberships, settings, log)
}

func ProvideProcessor(
	trackers *repository.TrackerRepository,
	g *guard.Guard,
	jobs *queue.WatermillQueue,
	log zerolog.Logger,
) *batch.Processor {
	return batch.NewProcessor(trackers, g, jobs, log)
}

func ProvideWorker(
	trackers *repository.TrackerRepository,
	seasons *repository.SeasonRepository,
	svc *scraper.Service,
	m *metrics.Metrics,
	log zerolog.Logger,
) *queue.Worker {
	return queue.NewWorker(trackers, seasons, svc, m, log)
}

func ProvideServer(
	trackers *repository.TrackerRepository,
	seasons *repository.SeasonRepository,
	processor *batch.Processor,
	db *sql.DB,
	log zerolog.Logger,
) *server.Server {
	return server.New(trackers, seasons, processor, db, log)
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	metrics.Module,
	ratelimit.Module,
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewTrackerRepository),
	fx.Provide(repository.NewSeasonRepository),
	fx.Provide(repository.NewMembershipRepository),
	fx.Provide(repository.NewGuildSettingsRepository),
	// solver client and pipeline
	fx.Provide(api.NewSolverClient),
	fx.Provide(ProvideScraper),
	fx.Provide(ProvideGuard),
	// queue
	fx.Provide(queue.NewPubSub),
	fx.Provide(queue.NewWatermillQueue),
	fx.Provide(ProvideWorker),
	fx.Provide(queue.NewRouter),
	// batch + server
	fx.Provide(ProvideProcessor),
	fx.Provide(ProvideServer),
)
