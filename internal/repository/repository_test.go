package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"rocket-tracker/internal/config"
	"rocket-tracker/internal/database"
	"rocket-tracker/internal/domain"
	"rocket-tracker/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.Config{DBPath: filepath.Join(t.TempDir(), "test.db")}
	db, err := database.New(cfg, logger.New())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTracker(userID string) *domain.Tracker {
	return &domain.Tracker{
		URL:      "https://example.com/profile/steam/RocketPlayer",
		Game:     "rocket-league",
		Platform: "steam",
		UserID:   userID,
		IsActive: true,
	}
}

func intPtr(n int) *int { return &n }

func TestTrackerRepository_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewTrackerRepository(db, logger.New())
	ctx := context.Background()

	tracker := newTracker("user-1")
	require.NoError(t, repo.Create(ctx, tracker))
	require.NotEmpty(t, tracker.ID)

	got, err := repo.Get(ctx, tracker.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScrapingStatusPending, got.ScrapingStatus)
	assert.Equal(t, 0, got.ScrapingAttempts)
	assert.Nil(t, got.LastScrapedAt)

	require.NoError(t, repo.MarkInProgress(ctx, tracker.ID))
	require.NoError(t, repo.MarkInProgress(ctx, tracker.ID))
	got, err = repo.Get(ctx, tracker.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ScrapingAttempts)
	assert.Equal(t, domain.ScrapingStatusInProgress, got.ScrapingStatus)

	require.NoError(t, repo.MarkCompleted(ctx, tracker.ID, true))
	got, err = repo.Get(ctx, tracker.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScrapingStatusSucceeded, got.ScrapingStatus)
	require.NotNil(t, got.LastScrapedAt)
	assert.WithinDuration(t, time.Now(), *got.LastScrapedAt, 5*time.Second)
}

func TestTrackerRepository_PendingSelectionExcludesDeleted(t *testing.T) {
	db := newTestDB(t)
	repo := NewTrackerRepository(db, logger.New())
	ctx := context.Background()

	pending := newTracker("user-1")
	require.NoError(t, repo.Create(ctx, pending))

	deleted := newTracker("user-2")
	require.NoError(t, repo.Create(ctx, deleted))
	require.NoError(t, repo.SoftDelete(ctx, deleted.ID))

	done := newTracker("user-3")
	require.NoError(t, repo.Create(ctx, done))
	require.NoError(t, repo.MarkInProgress(ctx, done.ID))
	require.NoError(t, repo.MarkCompleted(ctx, done.ID, true))

	ids, err := repo.ListPendingIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{pending.ID}, ids)
}

func TestTrackerRepository_GetOwners(t *testing.T) {
	db := newTestDB(t)
	repo := NewTrackerRepository(db, logger.New())
	ctx := context.Background()

	first := newTracker("user-1")
	second := newTracker("user-1")
	third := newTracker("user-2")
	for _, tracker := range []*domain.Tracker{first, second, third} {
		require.NoError(t, repo.Create(ctx, tracker))
	}

	owners, err := repo.GetOwners(ctx, []string{first.ID, second.ID, third.ID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		first.ID:  "user-1",
		second.ID: "user-1",
		third.ID:  "user-2",
	}, owners)
}

func TestTrackerRepository_PendingSelectionForGuild(t *testing.T) {
	db := newTestDB(t)
	trackers := NewTrackerRepository(db, logger.New())
	memberships := NewMembershipRepository(db, logger.New())
	ctx := context.Background()

	member := newTracker("user-1")
	require.NoError(t, trackers.Create(ctx, member))
	outsider := newTracker("user-2")
	require.NoError(t, trackers.Create(ctx, outsider))
	banned := newTracker("user-3")
	require.NoError(t, trackers.Create(ctx, banned))

	require.NoError(t, memberships.Create(ctx, &domain.GuildMembership{GuildID: "guild-1", UserID: "user-1"}))
	require.NoError(t, memberships.Create(ctx, &domain.GuildMembership{GuildID: "guild-1", UserID: "user-3", IsBanned: true}))

	ids, err := trackers.ListPendingIDsForGuild(ctx, "guild-1")
	require.NoError(t, err)
	assert.Equal(t, []string{member.ID}, ids)
}

func TestSeasonRepository_UpsertPreservesStoredFields(t *testing.T) {
	db := newTestDB(t)
	trackers := NewTrackerRepository(db, logger.New())
	seasons := NewSeasonRepository(db, logger.New())
	ctx := context.Background()

	tracker := newTracker("user-1")
	require.NoError(t, trackers.Create(ctx, tracker))

	rank := "Supersonic Legend"
	first := domain.SeasonRecord{
		SeasonNumber: 34,
		SeasonName:   "Season 14",
		Playlist1v1: &domain.PlaylistData{
			Rank:   &rank,
			Rating: intPtr(1721),
		},
		ScrapedAt: time.Now(),
	}
	require.NoError(t, seasons.Upsert(ctx, tracker.ID, &first))

	// A later scrape of the same season without a rating must not null out
	// the stored one.
	second := domain.SeasonRecord{
		SeasonNumber: 34,
		SeasonName:   "Season 14",
		Playlist1v1: &domain.PlaylistData{
			MatchesPlayed: intPtr(80),
		},
		ScrapedAt: time.Now(),
	}
	require.NoError(t, seasons.Upsert(ctx, tracker.ID, &second))

	records, err := seasons.ListByTracker(ctx, tracker.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)

	playlist := records[0].Playlist1v1
	require.NotNil(t, playlist)
	assert.Equal(t, "Supersonic Legend", *playlist.Rank)
	assert.Equal(t, 1721, *playlist.Rating)
	assert.Equal(t, 80, *playlist.MatchesPlayed)
}

func TestSeasonRepository_BulkUpsertSortedReadback(t *testing.T) {
	db := newTestDB(t)
	trackers := NewTrackerRepository(db, logger.New())
	seasons := NewSeasonRepository(db, logger.New())
	ctx := context.Background()

	tracker := newTracker("user-1")
	require.NoError(t, trackers.Create(ctx, tracker))

	records := []domain.SeasonRecord{
		{SeasonNumber: 32, SeasonName: "Season 12", ScrapedAt: time.Now()},
		{SeasonNumber: 34, SeasonName: "Season 14", ScrapedAt: time.Now()},
		{SeasonNumber: 33, SeasonName: "Season 13", ScrapedAt: time.Now()},
	}
	require.NoError(t, seasons.BulkUpsert(ctx, tracker.ID, records))

	got, err := seasons.ListByTracker(ctx, tracker.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 34, got[0].SeasonNumber)
	assert.Equal(t, 33, got[1].SeasonNumber)
	assert.Equal(t, 32, got[2].SeasonNumber)
	// Absent modes read back as nil, not zero-valued records.
	assert.Nil(t, got[0].Playlist1v1)
}

func TestMembershipRepository_ExcludesInactive(t *testing.T) {
	db := newTestDB(t)
	repo := NewMembershipRepository(db, logger.New())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.GuildMembership{GuildID: "guild-1", UserID: "user-1"}))
	require.NoError(t, repo.Create(ctx, &domain.GuildMembership{GuildID: "guild-2", UserID: "user-1", IsDeleted: true}))
	require.NoError(t, repo.Create(ctx, &domain.GuildMembership{GuildID: "guild-3", UserID: "user-1", IsBanned: true}))

	memberships, err := repo.ListActiveMemberships(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, memberships, 1)
	assert.Equal(t, "guild-1", memberships[0].GuildID)
}

func TestGuildSettingsRepository_DefaultsToEnabled(t *testing.T) {
	db := newTestDB(t)
	repo := NewGuildSettingsRepository(db, logger.New())
	ctx := context.Background()

	settings, err := repo.Get(ctx, "guild-without-row")
	require.NoError(t, err)
	assert.True(t, settings.ProcessingEnabled)

	require.NoError(t, repo.Set(ctx, &domain.GuildSettings{GuildID: "guild-1", ProcessingEnabled: false}))
	settings, err = repo.Get(ctx, "guild-1")
	require.NoError(t, err)
	assert.False(t, settings.ProcessingEnabled)
}
