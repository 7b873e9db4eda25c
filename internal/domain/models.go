package domain

import (
	"time"
)

type ScrapingStatus string

const (
	ScrapingStatusPending    ScrapingStatus = "PENDING"
	ScrapingStatusInProgress ScrapingStatus = "IN_PROGRESS"
	ScrapingStatusSucceeded  ScrapingStatus = "SUCCEEDED"
	ScrapingStatusFailed     ScrapingStatus = "FAILED"
)

// Tracker is one linked (game, platform, handle) profile owned by a user.
// Trackers are soft-deleted so their season history stays queryable.
type Tracker struct {
	ID               string
	URL              string
	Game             string
	Platform         string
	UserID           string
	ScrapingStatus   ScrapingStatus
	ScrapingAttempts int
	LastScrapedAt    *time.Time
	IsActive         bool
	IsDeleted        bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ScrapedProfile is the normalized shape of one profile fetch. It is
// transient: only the SeasonRecords derived from it are persisted.
type ScrapedProfile struct {
	PlatformSlug       string
	PlatformUserID     string
	PlatformUserHandle string
	UserID             int64
	IsPremium          bool
	LastUpdated        time.Time
	CurrentSeason      int
	Segments           []Segment
	AvailableSegments  []AvailableSegment
}

// Segment is one raw stat block from the source, tagged by playlist
// variant id and season.
type Segment struct {
	Type       string
	PlaylistID int // 0 when the source omitted attributes.playlistId
	Season     int
	Name       string
	Stats      SegmentStats
}

// SegmentStats carries the stat slots the parser cares about. Tier and
// Division are nil when the source omitted the sub-object entirely.
type SegmentStats struct {
	Tier          *TierInfo
	Division      *TierInfo
	Rating        StatValue
	MatchesPlayed StatValue
	WinStreak     StatValue
}

type TierInfo struct {
	Name  *string
	Value *int
}

// StatValue is one numeric stat slot. The source is only partially typed
// and occasionally emits garbage where a number belongs; Corrupt records
// that without losing the distinction from a legitimately null value.
type StatValue struct {
	Number  *float64
	Corrupt bool
}

// AvailableSegment describes one historical season the source exposes.
type AvailableSegment struct {
	Season int
	Name   string
}

// PlaylistData is the per-mode normalized stat record. Every field may be
// nil when the source segment lacked it.
type PlaylistData struct {
	Rank          *string
	RankValue     *int
	Division      *string
	DivisionValue *int
	Rating        *int
	MatchesPlayed *int
	WinStreak     *int
}

// SeasonRecord holds one tracker's normalized stats for one season.
// A playlist slot is nil when the season had no segment for that mode.
type SeasonRecord struct {
	ID           string
	TrackerID    string
	SeasonNumber int
	SeasonName   string
	Playlist1v1  *PlaylistData
	Playlist2v2  *PlaylistData
	Playlist3v3  *PlaylistData
	Playlist4v4  *PlaylistData
	ScrapedAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GuildMembership links a user to a community. Deleted and banned rows are
// excluded from all eligibility lookups.
type GuildMembership struct {
	ID        string
	GuildID   string
	UserID    string
	IsDeleted bool
	IsBanned  bool
	CreatedAt time.Time
}

// GuildSettings holds the per-community toggles the pipeline reads.
// ProcessingEnabled only governs automatic batch scheduling; manual
// guild-scoped runs ignore it.
type GuildSettings struct {
	GuildID           string
	ProcessingEnabled bool
	UpdatedAt         time.Time
}
