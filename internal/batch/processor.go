// Package batch turns the backlog of pending trackers into queued scrape
// jobs.
package batch

import (
	"context"
	"fmt"

	"rocket-tracker/internal/queue"

	"github.com/rs/zerolog"
)

type PendingLister interface {
	ListPendingIDs(ctx context.Context) ([]string, error)
	ListPendingIDsForGuild(ctx context.Context, guildID string) ([]string, error)
}

type TrackerFilter interface {
	FilterProcessableTrackers(ctx context.Context, trackerIDs []string) []string
}

// Result reports what a batch run dispatched.
type Result struct {
	ProcessedCount int      `json:"processedCount"`
	TrackerIDs     []string `json:"trackerIds"`
}

type Processor struct {
	trackers PendingLister
	guard    TrackerFilter
	jobs     queue.JobQueue
	logger   zerolog.Logger
}

func NewProcessor(trackers PendingLister, guard TrackerFilter, jobs queue.JobQueue, logger zerolog.Logger) *Processor {
	return &Processor{trackers: trackers, guard: guard, jobs: jobs, logger: logger}
}

// ProcessPendingTrackers selects every pending tracker, drops the ones whose
// owners opted out of automation, and enqueues the rest. An empty backlog is
// a successful run with a zero count.
func (p *Processor) ProcessPendingTrackers(ctx context.Context) (*Result, error) {
	pending, err := p.trackers.ListPendingIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending trackers: %w", err)
	}

	eligible := p.guard.FilterProcessableTrackers(ctx, pending)
	return p.dispatch(ctx, eligible, len(pending))
}

// ProcessPendingTrackersForGuild is the manual administrative path. It is
// scoped to one community and skips the eligibility guard: an operator
// asking for their own community's trackers is consent enough.
func (p *Processor) ProcessPendingTrackersForGuild(ctx context.Context, guildID string) (*Result, error) {
	pending, err := p.trackers.ListPendingIDsForGuild(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending trackers for guild %s: %w", guildID, err)
	}

	return p.dispatch(ctx, pending, len(pending))
}

func (p *Processor) dispatch(ctx context.Context, trackerIDs []string, selected int) (*Result, error) {
	if len(trackerIDs) == 0 {
		p.logger.Info().Int("selected", selected).Msg("no eligible trackers to process")
		return &Result{ProcessedCount: 0, TrackerIDs: []string{}}, nil
	}

	if err := p.jobs.EnqueueBatch(ctx, trackerIDs); err != nil {
		return nil, fmt.Errorf("failed to enqueue scrape jobs: %w", err)
	}

	p.logger.Info().
		Int("selected", selected).
		Int("enqueued", len(trackerIDs)).
		Msg("batch processing dispatched")

	return &Result{ProcessedCount: len(trackerIDs), TrackerIDs: trackerIDs}, nil
}
