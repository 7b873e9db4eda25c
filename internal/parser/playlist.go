// Package parser turns raw profile segments into normalized per-season
// playlist records. It is pure: no I/O, no clock, no randomness.
package parser

import (
	"fmt"

	"rocket-tracker/internal/domain"
)

// segmentTypePlaylist and segmentTypeOverview are the segment type tags the
// source uses. Everything else (gamemode aggregates, events) is ignored.
const (
	segmentTypePlaylist = "playlist"
	segmentTypeOverview = "overview"
)

// playlistIDTable maps each canonical competitive mode to the playlist ids
// the source has used for it. The source switched numbering schemes at one
// point and old profiles still carry the alternative ids, so the primary id
// is tried first and the alternative second. Scheme changes are a data edit
// here, not a code edit.
var playlistIDTable = []struct {
	primary     int
	alternative int
}{
	{primary: 1, alternative: 10}, // 1v1
	{primary: 2, alternative: 11}, // 2v2
	{primary: 3, alternative: 13}, // 3v3
	{primary: 4, alternative: 30}, // 4v4
}

// BuildSeasonRecord maps the raw segments for one season into a SeasonRecord
// draft. The draft carries no tracker id or scrape timestamp; the caller
// owns those. Modes without a matching segment stay nil, which is distinct
// from a present segment whose fields are all null.
func BuildSeasonRecord(segments []domain.Segment, seasonNumber int, available []domain.AvailableSegment) *domain.SeasonRecord {
	seasonSegments := make([]domain.Segment, 0, len(segments))
	for _, seg := range segments {
		if seg.Season == seasonNumber {
			seasonSegments = append(seasonSegments, seg)
		}
	}

	record := &domain.SeasonRecord{
		SeasonNumber: seasonNumber,
		SeasonName:   resolveSeasonName(seasonSegments, seasonNumber, available),
	}

	slots := []**domain.PlaylistData{
		&record.Playlist1v1,
		&record.Playlist2v2,
		&record.Playlist3v3,
		&record.Playlist4v4,
	}
	for i, ids := range playlistIDTable {
		if seg := resolvePlaylistSegment(seasonSegments, ids.primary, ids.alternative); seg != nil {
			*slots[i] = buildPlaylistData(seg)
		}
	}

	return record
}

// resolvePlaylistSegment returns the first segment matching the primary id,
// falling back to the alternative id. First match wins within each scheme.
func resolvePlaylistSegment(segments []domain.Segment, primary, alternative int) *domain.Segment {
	for _, id := range []int{primary, alternative} {
		for i := range segments {
			if segments[i].Type == segmentTypePlaylist && segments[i].PlaylistID == id {
				return &segments[i]
			}
		}
	}
	return nil
}

// buildPlaylistData extracts the normalized fields from one segment. It
// returns nil only when the stat block is structurally malformed: every
// numeric slot present but corrupt. A block whose fields are simply null is
// a valid record of nulls.
func buildPlaylistData(seg *domain.Segment) *domain.PlaylistData {
	stats := seg.Stats
	if isMalformed(stats) {
		return nil
	}

	data := &domain.PlaylistData{
		Rating:        statToInt(stats.Rating),
		MatchesPlayed: statToInt(stats.MatchesPlayed),
		WinStreak:     statToInt(stats.WinStreak),
	}
	if stats.Tier != nil {
		data.Rank = stats.Tier.Name
		data.RankValue = stats.Tier.Value
	}
	if stats.Division != nil {
		data.Division = stats.Division.Name
		data.DivisionValue = stats.Division.Value
	}
	return data
}

func isMalformed(stats domain.SegmentStats) bool {
	return stats.Rating.Corrupt && stats.MatchesPlayed.Corrupt && stats.WinStreak.Corrupt
}

func statToInt(v domain.StatValue) *int {
	if v.Number == nil {
		return nil
	}
	n := int(*v.Number)
	return &n
}

// resolveSeasonName picks the season display name: the available-segment
// entry for this season, then the overview segment's name, then a literal
// fallback.
func resolveSeasonName(seasonSegments []domain.Segment, seasonNumber int, available []domain.AvailableSegment) string {
	for _, a := range available {
		if a.Season == seasonNumber && a.Name != "" {
			return a.Name
		}
	}
	for _, seg := range seasonSegments {
		if seg.Type == segmentTypeOverview && seg.Name != "" {
			return seg.Name
		}
	}
	return fmt.Sprintf("Season %d", seasonNumber)
}
