package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rocket-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type MembershipRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMembershipRepository(db *sql.DB, logger zerolog.Logger) *MembershipRepository {
	return &MembershipRepository{db: db, logger: logger}
}

// ListActiveMemberships returns the communities a user belongs to, leaving
// out deleted and banned memberships.
func (r *MembershipRepository) ListActiveMemberships(ctx context.Context, userID string) ([]domain.GuildMembership, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, is_deleted, is_banned, created_at
		FROM guild_memberships
		WHERE user_id = ? AND is_deleted = 0 AND is_banned = 0
		ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var memberships []domain.GuildMembership
	for rows.Next() {
		var m domain.GuildMembership
		if err := rows.Scan(&m.ID, &m.GuildID, &m.UserID, &m.IsDeleted, &m.IsBanned, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

func (r *MembershipRepository) Create(ctx context.Context, membership *domain.GuildMembership) error {
	if membership.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		membership.ID = id
	}
	membership.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO guild_memberships (id, guild_id, user_id, is_deleted, is_banned, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		membership.ID, membership.GuildID, membership.UserID,
		membership.IsDeleted, membership.IsBanned, membership.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert membership: %w", err)
	}
	return nil
}
