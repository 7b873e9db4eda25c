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

// playlistSuffixes and playlistFields drive the season_records column
// layout: one group of seven columns per canonical mode.
var (
	playlistSuffixes = []string{"1v1", "2v2", "3v3", "4v4"}
	playlistFields   = []string{"rank", "rank_value", "division", "division_value", "rating", "matches_played", "win_streak"}
)

// SeasonRepository is the season store: idempotent upserts keyed on
// (tracker_id, season_number). An incoming null never clobbers a stored
// value; only fields the new scrape actually carries are applied.
type SeasonRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSeasonRepository(db *sql.DB, logger zerolog.Logger) *SeasonRepository {
	return &SeasonRepository{db: db, logger: logger}
}

var upsertSeasonQuery = buildUpsertSeasonQuery()

func buildUpsertSeasonQuery() string {
	columns := []string{"id", "tracker_id", "season_number", "season_name"}
	for _, suffix := range playlistSuffixes {
		for _, field := range playlistFields {
			columns = append(columns, field+"_"+suffix)
		}
	}
	columns = append(columns, "scraped_at", "created_at", "updated_at")

	var updates []string
	updates = append(updates, "season_name = excluded.season_name")
	for _, suffix := range playlistSuffixes {
		for _, field := range playlistFields {
			col := field + "_" + suffix
			updates = append(updates, fmt.Sprintf("%s = COALESCE(excluded.%s, season_records.%s)", col, col, col))
		}
	}
	updates = append(updates, "scraped_at = excluded.scraped_at", "updated_at = excluded.updated_at")

	return fmt.Sprintf(`
		INSERT INTO season_records (%s)
		VALUES (%s)
		ON CONFLICT (tracker_id, season_number) DO UPDATE SET
		%s`,
		strings.Join(columns, ", "),
		strings.Repeat("?, ", len(columns)-1)+"?",
		strings.Join(updates, ",\n\t\t"),
	)
}

func (r *SeasonRepository) Upsert(ctx context.Context, trackerID string, record *domain.SeasonRecord) error {
	return r.upsert(ctx, r.db, trackerID, record)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *SeasonRepository) upsert(ctx context.Context, ex execer, trackerID string, record *domain.SeasonRecord) error {
	id := record.ID
	if id == "" {
		var err error
		id, err = gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
	}

	now := time.Now()
	args := []any{id, trackerID, record.SeasonNumber, record.SeasonName}
	for _, playlist := range []*domain.PlaylistData{
		record.Playlist1v1, record.Playlist2v2, record.Playlist3v3, record.Playlist4v4,
	} {
		args = append(args, playlistParams(playlist)...)
	}
	args = append(args, record.ScrapedAt, now, now)

	if _, err := ex.ExecContext(ctx, upsertSeasonQuery, args...); err != nil {
		return fmt.Errorf("failed to upsert season record: %w", err)
	}
	return nil
}

// BulkUpsert writes a full crawl result in one transaction.
func (r *SeasonRepository) BulkUpsert(ctx context.Context, trackerID string, records []domain.SeasonRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range records {
		if err := r.upsert(ctx, tx, trackerID, &records[i]); err != nil {
			return fmt.Errorf("failed to upsert season %d: %w", records[i].SeasonNumber, err)
		}
	}

	r.logger.Debug().Str("tracker_id", trackerID).Int("season_count", len(records)).Msg("season records upserted")
	return tx.Commit()
}

func (r *SeasonRepository) ListByTracker(ctx context.Context, trackerID string) ([]domain.SeasonRecord, error) {
	columns := []string{"id", "season_number", "season_name"}
	for _, suffix := range playlistSuffixes {
		for _, field := range playlistFields {
			columns = append(columns, field+"_"+suffix)
		}
	}
	columns = append(columns, "scraped_at", "created_at", "updated_at")

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM season_records
		WHERE tracker_id = ?
		ORDER BY season_number DESC`, strings.Join(columns, ", ")), trackerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list season records: %w", err)
	}
	defer rows.Close()

	var records []domain.SeasonRecord
	for rows.Next() {
		record, err := scanSeasonRecord(rows, trackerID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan season record: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func playlistParams(p *domain.PlaylistData) []any {
	if p == nil {
		return []any{nil, nil, nil, nil, nil, nil, nil}
	}
	return []any{
		nullableStr(p.Rank), nullableInt(p.RankValue),
		nullableStr(p.Division), nullableInt(p.DivisionValue),
		nullableInt(p.Rating), nullableInt(p.MatchesPlayed), nullableInt(p.WinStreak),
	}
}

func nullableStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

type playlistRow struct {
	rank          sql.NullString
	rankValue     sql.NullInt64
	division      sql.NullString
	divisionValue sql.NullInt64
	rating        sql.NullInt64
	matchesPlayed sql.NullInt64
	winStreak     sql.NullInt64
}

func (p *playlistRow) dests() []any {
	return []any{&p.rank, &p.rankValue, &p.division, &p.divisionValue, &p.rating, &p.matchesPlayed, &p.winStreak}
}

// toPlaylistData reads a column group back into a PlaylistData. A group
// that is entirely null is read as an absent mode.
func (p *playlistRow) toPlaylistData() *domain.PlaylistData {
	if !p.rank.Valid && !p.rankValue.Valid && !p.division.Valid && !p.divisionValue.Valid &&
		!p.rating.Valid && !p.matchesPlayed.Valid && !p.winStreak.Valid {
		return nil
	}

	data := &domain.PlaylistData{}
	if p.rank.Valid {
		data.Rank = &p.rank.String
	}
	if p.rankValue.Valid {
		v := int(p.rankValue.Int64)
		data.RankValue = &v
	}
	if p.division.Valid {
		data.Division = &p.division.String
	}
	if p.divisionValue.Valid {
		v := int(p.divisionValue.Int64)
		data.DivisionValue = &v
	}
	if p.rating.Valid {
		v := int(p.rating.Int64)
		data.Rating = &v
	}
	if p.matchesPlayed.Valid {
		v := int(p.matchesPlayed.Int64)
		data.MatchesPlayed = &v
	}
	if p.winStreak.Valid {
		v := int(p.winStreak.Int64)
		data.WinStreak = &v
	}
	return data
}

func scanSeasonRecord(rows *sql.Rows, trackerID string) (*domain.SeasonRecord, error) {
	record := &domain.SeasonRecord{TrackerID: trackerID}
	var groups [4]playlistRow

	dests := []any{&record.ID, &record.SeasonNumber, &record.SeasonName}
	for i := range groups {
		dests = append(dests, groups[i].dests()...)
	}
	dests = append(dests, &record.ScrapedAt, &record.CreatedAt, &record.UpdatedAt)

	if err := rows.Scan(dests...); err != nil {
		return nil, err
	}

	record.Playlist1v1 = groups[0].toPlaylistData()
	record.Playlist2v2 = groups[1].toPlaylistData()
	record.Playlist3v3 = groups[2].toPlaylistData()
	record.Playlist4v4 = groups[3].toPlaylistData()
	return record, nil
}
