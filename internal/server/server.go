// Package server exposes the operational HTTP surface: tracker
// registration, batch dispatch, and season read-back.
package server

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"rocket-tracker/internal/batch"
	"rocket-tracker/internal/domain"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type TrackerStore interface {
	Create(ctx context.Context, tracker *domain.Tracker) error
	Get(ctx context.Context, id string) (*domain.Tracker, error)
}

type SeasonLister interface {
	ListByTracker(ctx context.Context, trackerID string) ([]domain.SeasonRecord, error)
}

type BatchRunner interface {
	ProcessPendingTrackers(ctx context.Context) (*batch.Result, error)
	ProcessPendingTrackersForGuild(ctx context.Context, guildID string) (*batch.Result, error)
}

type Server struct {
	trackers  TrackerStore
	seasons   SeasonLister
	processor BatchRunner
	db        *sql.DB
	logger    zerolog.Logger
}

func New(trackers TrackerStore, seasons SeasonLister, processor BatchRunner, db *sql.DB, logger zerolog.Logger) *Server {
	return &Server{trackers: trackers, seasons: seasons, processor: processor, db: db, logger: logger}
}

// Register attaches every route to the mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/trackers", s.handleCreateTracker)
	mux.HandleFunc("POST /v1/process", s.handleProcess)
	mux.HandleFunc("POST /v1/guilds/{guildID}/process", s.handleProcessGuild)
	mux.HandleFunc("GET /v1/trackers/{trackerID}/seasons", s.handleListSeasons)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
}

type createTrackerRequest struct {
	URL      string `json:"url"`
	Game     string `json:"game"`
	Platform string `json:"platform"`
	UserID   string `json:"userId"`
}

type trackerResponse struct {
	ID             string     `json:"id"`
	URL            string     `json:"url"`
	Game           string     `json:"game"`
	Platform       string     `json:"platform"`
	UserID         string     `json:"userId"`
	ScrapingStatus string     `json:"scrapingStatus"`
	LastScrapedAt  *time.Time `json:"lastScrapedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func (s *Server) handleCreateTracker(w http.ResponseWriter, r *http.Request) {
	var req createTrackerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" || req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "url and userId are required")
		return
	}

	tracker := &domain.Tracker{
		URL:      req.URL,
		Game:     req.Game,
		Platform: req.Platform,
		UserID:   req.UserID,
		IsActive: true,
	}
	if err := s.trackers.Create(r.Context(), tracker); err != nil {
		s.logger.Error().Err(err).Str("user_id", req.UserID).Msg("failed to create tracker")
		s.writeError(w, http.StatusInternalServerError, "failed to create tracker")
		return
	}

	s.writeJSON(w, http.StatusCreated, toTrackerResponse(tracker))
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	result, err := s.processor.ProcessPendingTrackers(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("batch processing failed")
		s.writeError(w, http.StatusInternalServerError, "batch processing failed")
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleProcessGuild(w http.ResponseWriter, r *http.Request) {
	guildID := r.PathValue("guildID")

	result, err := s.processor.ProcessPendingTrackersForGuild(r.Context(), guildID)
	if err != nil {
		s.logger.Error().Err(err).Str("guild_id", guildID).Msg("guild batch processing failed")
		s.writeError(w, http.StatusInternalServerError, "batch processing failed")
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

type seasonsResponse struct {
	Tracker trackerResponse  `json:"tracker"`
	Seasons []seasonResponse `json:"seasons"`
}

type seasonResponse struct {
	SeasonNumber int              `json:"seasonNumber"`
	SeasonName   string           `json:"seasonName"`
	Playlist1v1  *playlistPayload `json:"playlist1v1,omitempty"`
	Playlist2v2  *playlistPayload `json:"playlist2v2,omitempty"`
	Playlist3v3  *playlistPayload `json:"playlist3v3,omitempty"`
	Playlist4v4  *playlistPayload `json:"playlist4v4,omitempty"`
	ScrapedAt    time.Time        `json:"scrapedAt"`
}

type playlistPayload struct {
	Rank          *string `json:"rank"`
	RankValue     *int    `json:"rankValue"`
	Division      *string `json:"division"`
	DivisionValue *int    `json:"divisionValue"`
	Rating        *int    `json:"rating"`
	MatchesPlayed *int    `json:"matchesPlayed"`
	WinStreak     *int    `json:"winStreak"`
}

func (s *Server) handleListSeasons(w http.ResponseWriter, r *http.Request) {
	trackerID := r.PathValue("trackerID")

	var (
		tracker *domain.Tracker
		seasons []domain.SeasonRecord
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		tracker, err = s.trackers.Get(ctx, trackerID)
		return err
	})
	g.Go(func() error {
		var err error
		seasons, err = s.seasons.ListByTracker(ctx, trackerID)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.writeError(w, http.StatusNotFound, "tracker not found")
			return
		}
		s.logger.Error().Err(err).Str("tracker_id", trackerID).Msg("failed to load seasons")
		s.writeError(w, http.StatusInternalServerError, "failed to load seasons")
		return
	}

	resp := seasonsResponse{
		Tracker: toTrackerResponse(tracker),
		Seasons: make([]seasonResponse, 0, len(seasons)),
	}
	for _, season := range seasons {
		resp.Seasons = append(resp.Seasons, seasonResponse{
			SeasonNumber: season.SeasonNumber,
			SeasonName:   season.SeasonName,
			Playlist1v1:  toPlaylistPayload(season.Playlist1v1),
			Playlist2v2:  toPlaylistPayload(season.Playlist2v2),
			Playlist3v3:  toPlaylistPayload(season.Playlist3v3),
			Playlist4v4:  toPlaylistPayload(season.Playlist4v4),
			ScrapedAt:    season.ScrapedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toTrackerResponse(t *domain.Tracker) trackerResponse {
	return trackerResponse{
		ID:             t.ID,
		URL:            t.URL,
		Game:           t.Game,
		Platform:       t.Platform,
		UserID:         t.UserID,
		ScrapingStatus: string(t.ScrapingStatus),
		LastScrapedAt:  t.LastScrapedAt,
		CreatedAt:      t.CreatedAt,
	}
}

func toPlaylistPayload(p *domain.PlaylistData) *playlistPayload {
	if p == nil {
		return nil
	}
	return &playlistPayload{
		Rank:          p.Rank,
		RankValue:     p.RankValue,
		Division:      p.Division,
		DivisionValue: p.DivisionValue,
		Rating:        p.Rating,
		MatchesPlayed: p.MatchesPlayed,
		WinStreak:     p.WinStreak,
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
