package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"rocket-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type TrackerRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewTrackerRepository(db *sql.DB, logger zerolog.Logger) *TrackerRepository {
	return &TrackerRepository{db: db, logger: logger}
}

const trackerColumns = `id, url, game, platform, user_id, scraping_status, scraping_attempts,
	last_scraped_at, is_active, is_deleted, created_at, updated_at`

func (r *TrackerRepository) Create(ctx context.Context, tracker *domain.Tracker) error {
	if tracker.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		tracker.ID = id
	}
	now := time.Now()
	tracker.CreatedAt = now
	tracker.UpdatedAt = now
	if tracker.ScrapingStatus == "" {
		tracker.ScrapingStatus = domain.ScrapingStatusPending
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO trackers (`+trackerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tracker.ID, tracker.URL, tracker.Game, tracker.Platform, tracker.UserID,
		string(tracker.ScrapingStatus), tracker.ScrapingAttempts, tracker.LastScrapedAt,
		tracker.IsActive, tracker.IsDeleted, tracker.CreatedAt, tracker.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert tracker: %w", err)
	}

	r.logger.Debug().Str("tracker_id", tracker.ID).Str("user_id", tracker.UserID).Msg("tracker created")
	return nil
}

func (r *TrackerRepository) Get(ctx context.Context, id string) (*domain.Tracker, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+trackerColumns+`
		FROM trackers
		WHERE id = ?`, id)
	return scanTracker(row)
}

// GetOwners resolves tracker ids to owning user ids in one query. Trackers
// that do not exist are simply absent from the result map.
func (r *TrackerRepository) GetOwners(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id
		FROM trackers
		WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tracker owners: %w", err)
	}
	defer rows.Close()

	owners := make(map[string]string, len(ids))
	for rows.Next() {
		var trackerID, userID string
		if err := rows.Scan(&trackerID, &userID); err != nil {
			return nil, fmt.Errorf("failed to scan tracker owner: %w", err)
		}
		owners[trackerID] = userID
	}
	return owners, rows.Err()
}

// ListPendingIDs returns every active, non-deleted tracker awaiting a
// scrape. Soft-deleted trackers never show up in batch selection.
func (r *TrackerRepository) ListPendingIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id
		FROM trackers
		WHERE scraping_status = ? AND is_active = 1 AND is_deleted = 0
		ORDER BY created_at`, string(domain.ScrapingStatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending trackers: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// ListPendingIDsForGuild narrows pending selection to trackers owned by the
// guild's active members.
func (r *TrackerRepository) ListPendingIDsForGuild(ctx context.Context, guildID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id
		FROM trackers t
		JOIN guild_memberships m ON m.user_id = t.user_id
		WHERE m.guild_id = ? AND m.is_deleted = 0 AND m.is_banned = 0
		  AND t.scraping_status = ? AND t.is_active = 1 AND t.is_deleted = 0
		ORDER BY t.created_at`, guildID, string(domain.ScrapingStatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending trackers for guild: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// MarkInProgress flips the tracker into IN_PROGRESS and bumps the attempt
// counter. Attempts only ever increase.
func (r *TrackerRepository) MarkInProgress(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE trackers
		SET scraping_status = ?, scraping_attempts = scraping_attempts + 1, updated_at = ?
		WHERE id = ?`, string(domain.ScrapingStatusInProgress), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark tracker in progress: %w", err)
	}
	return nil
}

func (r *TrackerRepository) MarkCompleted(ctx context.Context, id string, succeeded bool) error {
	status := domain.ScrapingStatusFailed
	if succeeded {
		status = domain.ScrapingStatusSucceeded
	}

	now := time.Now()
	var err error
	if succeeded {
		_, err = r.db.ExecContext(ctx, `
			UPDATE trackers
			SET scraping_status = ?, last_scraped_at = ?, updated_at = ?
			WHERE id = ?`, string(status), now, now, id)
	} else {
		_, err = r.db.ExecContext(ctx, `
			UPDATE trackers
			SET scraping_status = ?, updated_at = ?
			WHERE id = ?`, string(status), now, id)
	}
	if err != nil {
		return fmt.Errorf("failed to mark tracker completed: %w", err)
	}

	r.logger.Debug().Str("tracker_id", id).Bool("succeeded", succeeded).Msg("tracker scrape completed")
	return nil
}

// MarkPending requeues a tracker for the next batch run.
func (r *TrackerRepository) MarkPending(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE trackers
		SET scraping_status = ?, updated_at = ?
		WHERE id = ?`, string(domain.ScrapingStatusPending), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark tracker pending: %w", err)
	}
	return nil
}

// SoftDelete hides the tracker from all selection without dropping its
// season history.
func (r *TrackerRepository) SoftDelete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE trackers
		SET is_deleted = 1, is_active = 0, updated_at = ?
		WHERE id = ?`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to soft delete tracker: %w", err)
	}
	return nil
}

func scanTracker(row *sql.Row) (*domain.Tracker, error) {
	var t domain.Tracker
	var status string
	var lastScrapedAt sql.NullTime

	err := row.Scan(
		&t.ID, &t.URL, &t.Game, &t.Platform, &t.UserID, &status, &t.ScrapingAttempts,
		&lastScrapedAt, &t.IsActive, &t.IsDeleted, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.ScrapingStatus = domain.ScrapingStatus(status)
	if lastScrapedAt.Valid {
		t.LastScrapedAt = &lastScrapedAt.Time
	}
	return &t, nil
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tracker id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
