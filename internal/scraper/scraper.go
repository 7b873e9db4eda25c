// Package scraper walks a tracked profile's seasons through the solver and
// turns them into normalized season records.
package scraper

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"rocket-tracker/internal/domain"
	"rocket-tracker/internal/metrics"
	"rocket-tracker/internal/parser"

	"github.com/rs/zerolog"
)

// ProfileFetcher is the solver-side contract the orchestrator needs.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, url string) (*domain.ScrapedProfile, error)
}

type Service struct {
	fetcher ProfileFetcher
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewService(fetcher ProfileFetcher, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{fetcher: fetcher, metrics: m, logger: logger}
}

// ScrapeCurrentSeason fetches the profile and parses its reported current
// season into one record.
func (s *Service) ScrapeCurrentSeason(ctx context.Context, url string) (*domain.SeasonRecord, error) {
	profile, err := s.fetcher.FetchProfile(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	return s.buildRecord(profile, profile.CurrentSeason), nil
}

// ScrapeAllSeasons scrapes the current season plus every historical season
// the profile advertises. Seasons are fetched sequentially so the shared
// solver rate limit stays honest. A single season's failure only omits that
// season from the result; the crawl itself never aborts because of it.
// Results come back sorted descending by season number with the current
// season included exactly once.
func (s *Service) ScrapeAllSeasons(ctx context.Context, url string) ([]domain.SeasonRecord, error) {
	profile, err := s.fetcher.FetchProfile(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	current := profile.CurrentSeason
	records := []domain.SeasonRecord{*s.buildRecord(profile, current)}

	for _, season := range historicalSeasons(profile.AvailableSegments, current) {
		seasonURL := withSeasonParam(url, season)

		seasonProfile, err := s.fetcher.FetchProfile(ctx, seasonURL)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("url", url).
				Int("season", season).
				Msg("season scrape failed, omitting from results")
			continue
		}
		records = append(records, *s.buildRecord(seasonProfile, season))
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].SeasonNumber > records[j].SeasonNumber
	})

	s.logger.Info().
		Str("url", url).
		Int("current_season", current).
		Int("season_count", len(records)).
		Msg("profile crawl completed")

	return records, nil
}

func (s *Service) buildRecord(profile *domain.ScrapedProfile, season int) *domain.SeasonRecord {
	record := parser.BuildSeasonRecord(profile.Segments, season, profile.AvailableSegments)
	record.ScrapedAt = time.Now()
	s.metrics.SeasonsScraped.Inc()
	return record
}

// historicalSeasons collects the distinct advertised seasons other than the
// current one, preserving the order the source lists them in.
func historicalSeasons(available []domain.AvailableSegment, current int) []int {
	seen := map[int]bool{current: true}
	seasons := make([]int, 0, len(available))
	for _, seg := range available {
		if seg.Season == 0 || seen[seg.Season] {
			continue
		}
		seen[seg.Season] = true
		seasons = append(seasons, seg.Season)
	}
	return seasons
}

func withSeasonParam(url string, season int) string {
	separator := "?"
	if strings.Contains(url, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%sseason=%d", url, separator, season)
}
