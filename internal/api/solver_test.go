package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"rocket-tracker/internal/config"
	"rocket-tracker/internal/logger"
	"rocket-tracker/internal/metrics"
	"rocket-tracker/internal/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profileFixture = `{
	"data": {
		"platformInfo": {
			"platformSlug": "steam",
			"platformUserIdentifier": "76561198000000000",
			"platformUserHandle": "RocketPlayer"
		},
		"userInfo": {"userId": 4215, "isPremium": true},
		"metadata": {
			"lastUpdated": {"value": "2026-08-29T18:04:05Z"},
			"currentSeason": 34
		},
		"segments": [
			{
				"type": "playlist",
				"attributes": {"playlistId": 1, "season": 34},
				"metadata": {"name": "Ranked Duel 1v1"},
				"stats": {
					"tier": {"value": 22, "metadata": {"name": "Supersonic Legend"}},
					"division": {"value": 0, "metadata": {"name": "Division I"}},
					"rating": {"value": 1721},
					"matchesPlayed": {"value": 62},
					"winStreak": {"value": 11}
				}
			}
		],
		"availableSegments": [
			{"attributes": {"season": 34}, "metadata": {"name": "Season 14"}},
			{"attributes": {"season": 33}, "metadata": {"name": "Season 13"}}
		]
	}
}`

func solvedPage(payload string) string {
	return "<html><head><title>profile</title></head><body><pre>" + payload + "</pre></body></html>"
}

func okEnvelope(t *testing.T, payload string) []byte {
	t.Helper()
	body, err := json.Marshal(solveEnvelope{
		Status:   "ok",
		Solution: &solveSolution{Status: 200, Response: solvedPage(payload)},
	})
	require.NoError(t, err)
	return body
}

func newTestClient(t *testing.T, endpoint string, attempts int) *SolverClient {
	t.Helper()
	cfg := &config.Config{
		SolverURL:         endpoint,
		SolverTimeout:     2 * time.Second,
		RequestsPerMinute: 600000,
		RetryAttempts:     attempts,
		RetryDelay:        10 * time.Millisecond,
	}
	client, err := NewSolverClient(cfg, ratelimit.New(cfg), metrics.New(), logger.New())
	require.NoError(t, err)
	return client
}

func TestNewSolverClient_MissingEndpoint(t *testing.T) {
	cfg := &config.Config{RequestsPerMinute: 60, RetryAttempts: 1}
	_, err := NewSolverClient(cfg, ratelimit.New(cfg), metrics.New(), logger.New())
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestFetchProfile_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req solveRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "request.get", req.Cmd)
		w.Write(okEnvelope(t, profileFixture))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 1)
	profile, err := client.FetchProfile(context.Background(), "https://example.com/profile/steam/RocketPlayer")
	require.NoError(t, err)

	assert.Equal(t, "steam", profile.PlatformSlug)
	assert.Equal(t, "RocketPlayer", profile.PlatformUserHandle)
	assert.Equal(t, int64(4215), profile.UserID)
	assert.True(t, profile.IsPremium)
	assert.Equal(t, 34, profile.CurrentSeason)
	assert.Equal(t, 2026, profile.LastUpdated.Year())

	require.Len(t, profile.Segments, 1)
	seg := profile.Segments[0]
	assert.Equal(t, 1, seg.PlaylistID)
	assert.Equal(t, 34, seg.Season)
	require.NotNil(t, seg.Stats.Tier)
	assert.Equal(t, "Supersonic Legend", *seg.Stats.Tier.Name)
	assert.Equal(t, 22, *seg.Stats.Tier.Value)
	require.NotNil(t, seg.Stats.Rating.Number)
	assert.Equal(t, float64(1721), *seg.Stats.Rating.Number)

	require.Len(t, profile.AvailableSegments, 2)
	assert.Equal(t, "Season 14", profile.AvailableSegments[0].Name)
}

func TestFetchProfile_MissingOptionalObjectsSynthesized(t *testing.T) {
	payload := `{"data": {"segments": [], "availableSegments": []}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(okEnvelope(t, payload))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 1)
	profile, err := client.FetchProfile(context.Background(), "https://example.com/profile")
	require.NoError(t, err)

	assert.Empty(t, profile.PlatformSlug)
	assert.Zero(t, profile.UserID)
	assert.False(t, profile.IsPremium)
	assert.Zero(t, profile.CurrentSeason)
	assert.Empty(t, profile.Segments)
}

func TestFetchProfile_MissingSegmentsNotRetried(t *testing.T) {
	var hits atomic.Int64
	payload := `{"data": {"availableSegments": []}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(okEnvelope(t, payload))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 3)
	_, err := client.FetchProfile(context.Background(), "https://example.com/profile")

	var malformed *MalformedError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "missing segments array", malformed.Reason)
	assert.Equal(t, int64(1), hits.Load())
	assert.NotErrorIs(t, err, ErrServiceUnavailable)
}

func TestFetchProfile_ChallengeFailureRetriedThenUnavailable(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		json.NewEncoder(w).Encode(solveEnvelope{Status: "error", Message: "challenge not solved"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 3)
	_, err := client.FetchProfile(context.Background(), "https://example.com/profile")

	require.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Equal(t, int64(3), hits.Load())
}

func TestFetchProfile_TransportFailureRetried(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 2)
	_, err := client.FetchProfile(context.Background(), "https://example.com/profile")

	require.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Equal(t, int64(2), hits.Load())
}

func TestFetchProfile_RecoversAfterTransientFailure(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write(okEnvelope(t, profileFixture))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 3)
	profile, err := client.FetchProfile(context.Background(), "https://example.com/profile")

	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())
	assert.Equal(t, "steam", profile.PlatformSlug)
}

func TestClassifyEnvelope_MalformedCases(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		reason string
	}{
		{"invalid envelope", "not json", "invalid envelope JSON"},
		{"missing solution", `{"status":"ok"}`, "missing solution object"},
		{
			"no pre wrapper",
			`{"status":"ok","solution":{"response":"<html><body>denied</body></html>"}}`,
			"missing <pre> payload wrapper",
		},
		{
			"garbage inside pre",
			`{"status":"ok","solution":{"response":"<html><body><pre>{oops</pre></body></html>"}}`,
			"invalid JSON inside <pre> wrapper",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := classifyEnvelope([]byte(tc.body))
			assert.Equal(t, outcomeMalformed, outcome.kind)
			assert.Equal(t, tc.reason, outcome.reason)
		})
	}
}

func TestCoerceNumber_LooseTyping(t *testing.T) {
	numeric := coerceNumber(float64(1721))
	require.NotNil(t, numeric.Number)
	assert.Equal(t, float64(1721), *numeric.Number)

	fromString := coerceNumber("62")
	require.NotNil(t, fromString.Number)
	assert.Equal(t, float64(62), *fromString.Number)

	assert.False(t, coerceNumber(nil).Corrupt)
	assert.Nil(t, coerceNumber(nil).Number)

	assert.True(t, coerceNumber("n/a").Corrupt)
	assert.True(t, coerceNumber(true).Corrupt)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&ChallengeError{Status: "error"}))
	assert.True(t, IsRetryable(&TransportError{Err: errors.New("timeout")}))
	assert.False(t, IsRetryable(&MalformedError{Reason: "missing segments array"}))
	assert.False(t, IsRetryable(ErrConfiguration))
}
