// Package guard decides which trackers may enter automated batch scraping.
// Eligibility is a union across the owner's communities, and every
// resolution failure fails OPEN: the product favors keeping automation
// alive over strictly enforcing opt-outs. That is a reviewed decision, not
// an oversight; do not flip it to fail-closed without a product sign-off.
package guard

import (
	"context"

	"rocket-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type TrackerResolver interface {
	GetOwners(ctx context.Context, ids []string) (map[string]string, error)
}

type MembershipLister interface {
	ListActiveMemberships(ctx context.Context, userID string) ([]domain.GuildMembership, error)
}

type SettingsGetter interface {
	Get(ctx context.Context, guildID string) (*domain.GuildSettings, error)
}

type Guard struct {
	trackers    TrackerResolver
	memberships MembershipLister
	settings    SettingsGetter
	logger      zerolog.Logger
}

func New(trackers TrackerResolver, memberships MembershipLister, settings SettingsGetter, logger zerolog.Logger) *Guard {
	return &Guard{trackers: trackers, memberships: memberships, settings: settings, logger: logger}
}

// CanProcessTracker reports whether the tracker may be scheduled
// automatically.
func (g *Guard) CanProcessTracker(ctx context.Context, trackerID string) bool {
	owners, err := g.trackers.GetOwners(ctx, []string{trackerID})
	if err != nil {
		g.logger.Warn().Err(err).Str("tracker_id", trackerID).Msg("tracker resolution failed, allowing processing")
		return true
	}
	userID, ok := owners[trackerID]
	if !ok {
		g.logger.Warn().Str("tracker_id", trackerID).Msg("tracker not found, allowing processing")
		return true
	}
	return g.CanProcessTrackerForUser(ctx, userID)
}

// CanProcessTrackerForUser applies the community-union rule directly from a
// user id. A user with no communities is unrestricted. Otherwise the user
// is eligible when ANY community has processing enabled.
func (g *Guard) CanProcessTrackerForUser(ctx context.Context, userID string) bool {
	memberships, err := g.memberships.ListActiveMemberships(ctx, userID)
	if err != nil {
		g.logger.Warn().Err(err).Str("user_id", userID).Msg("membership lookup failed, allowing processing")
		return true
	}
	if len(memberships) == 0 {
		return true
	}

	for _, membership := range memberships {
		settings, err := g.settings.Get(ctx, membership.GuildID)
		if err != nil {
			g.logger.Warn().
				Err(err).
				Str("user_id", userID).
				Str("guild_id", membership.GuildID).
				Msg("settings lookup failed, allowing processing")
			return true
		}
		if settings.ProcessingEnabled {
			return true
		}
	}

	g.logger.Debug().Str("user_id", userID).Msg("every community opted out of automated processing")
	return false
}

// FilterProcessableTrackers is the batched form. Trackers are grouped by
// owning user so each user's communities and settings resolve once. A
// batch-level resolution failure returns the input unfiltered.
func (g *Guard) FilterProcessableTrackers(ctx context.Context, trackerIDs []string) []string {
	if len(trackerIDs) == 0 {
		return trackerIDs
	}

	owners, err := g.trackers.GetOwners(ctx, trackerIDs)
	if err != nil {
		g.logger.Warn().Err(err).Int("tracker_count", len(trackerIDs)).Msg("batch owner resolution failed, allowing all")
		return trackerIDs
	}

	decisions := make(map[string]bool)
	eligible := make([]string, 0, len(trackerIDs))
	for _, trackerID := range trackerIDs {
		userID, ok := owners[trackerID]
		if !ok {
			// Unresolvable tracker: fail open like the single-id path.
			eligible = append(eligible, trackerID)
			continue
		}

		allowed, decided := decisions[userID]
		if !decided {
			allowed = g.CanProcessTrackerForUser(ctx, userID)
			decisions[userID] = allowed
		}
		if allowed {
			eligible = append(eligible, trackerID)
		}
	}

	return eligible
}
