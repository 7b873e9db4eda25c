package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rocket-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type GuildSettingsRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewGuildSettingsRepository(db *sql.DB, logger zerolog.Logger) *GuildSettingsRepository {
	return &GuildSettingsRepository{db: db, logger: logger}
}

// Get returns the guild's settings. A guild that never touched its settings
// has no row; processing defaults to enabled in that case.
func (r *GuildSettingsRepository) Get(ctx context.Context, guildID string) (*domain.GuildSettings, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT guild_id, processing_enabled, updated_at
		FROM guild_settings
		WHERE guild_id = ?`, guildID)

	var settings domain.GuildSettings
	err := row.Scan(&settings.GuildID, &settings.ProcessingEnabled, &settings.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.GuildSettings{GuildID: guildID, ProcessingEnabled: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guild settings: %w", err)
	}
	return &settings, nil
}

func (r *GuildSettingsRepository) Set(ctx context.Context, settings *domain.GuildSettings) error {
	settings.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO guild_settings (guild_id, processing_enabled, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (guild_id) DO UPDATE SET
			processing_enabled = excluded.processing_enabled,
			updated_at = excluded.updated_at`,
		settings.GuildID, settings.ProcessingEnabled, settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to set guild settings: %w", err)
	}
	return nil
}
