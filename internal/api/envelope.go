package api

import (
	"strconv"
	"strings"
	"time"

	"rocket-tracker/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/goccy/go-json"
)

type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeChallengeFailed
	outcomeMalformed
)

// solveOutcome is the classified solver response. Keeping it a tagged
// variant makes the retry/no-retry split explicit before any error is built.
type solveOutcome struct {
	kind    outcomeKind
	profile *domain.ScrapedProfile
	status  string
	message string
	reason  string
}

func challengeOutcome(status, message string) solveOutcome {
	return solveOutcome{kind: outcomeChallengeFailed, status: status, message: message}
}

func malformedOutcome(reason string) solveOutcome {
	return solveOutcome{kind: outcomeMalformed, reason: reason}
}

// solveEnvelope is the solver's response wrapper. On success the solution
// body is the origin page HTML with the API payload inside a <pre> tag.
type solveEnvelope struct {
	Status   string         `json:"status"`
	Message  string         `json:"message"`
	Solution *solveSolution `json:"solution"`
}

type solveSolution struct {
	URL      string `json:"url"`
	Status   int    `json:"status"`
	Response string `json:"response"`
}

type profileEnvelope struct {
	Data profilePayload `json:"data"`
}

type profilePayload struct {
	PlatformInfo      *platformInfoPayload     `json:"platformInfo"`
	UserInfo          *userInfoPayload         `json:"userInfo"`
	Metadata          *profileMetadataPayload  `json:"metadata"`
	Segments          []segmentPayload         `json:"segments"`
	AvailableSegments []availableSegmentPayload `json:"availableSegments"`
}

type platformInfoPayload struct {
	PlatformSlug           string `json:"platformSlug"`
	PlatformUserIdentifier string `json:"platformUserIdentifier"`
	PlatformUserHandle     string `json:"platformUserHandle"`
}

type userInfoPayload struct {
	UserID    int64 `json:"userId"`
	IsPremium bool  `json:"isPremium"`
}

type profileMetadataPayload struct {
	LastUpdated *struct {
		Value string `json:"value"`
	} `json:"lastUpdated"`
	CurrentSeason int `json:"currentSeason"`
}

type segmentPayload struct {
	Type       string `json:"type"`
	Attributes struct {
		PlaylistID *int `json:"playlistId"`
		Season     *int `json:"season"`
	} `json:"attributes"`
	Metadata struct {
		Name string `json:"name"`
	} `json:"metadata"`
	Stats map[string]statPayload `json:"stats"`
}

// statPayload tolerates the source's loose typing: value can be a number,
// a numeric string, null, or garbage.
type statPayload struct {
	Value    any `json:"value"`
	Metadata struct {
		Name *string `json:"name"`
	} `json:"metadata"`
}

type availableSegmentPayload struct {
	Attributes struct {
		Season *int `json:"season"`
	} `json:"attributes"`
	Metadata struct {
		Name string `json:"name"`
	} `json:"metadata"`
}

// classifyEnvelope turns a raw solver response body into a solveOutcome.
func classifyEnvelope(body []byte) solveOutcome {
	var env solveEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return malformedOutcome("invalid envelope JSON")
	}
	if env.Status != "ok" {
		return challengeOutcome(env.Status, env.Message)
	}
	if env.Solution == nil {
		return malformedOutcome("missing solution object")
	}

	payload, reason := extractPayload(env.Solution.Response)
	if reason != "" {
		return malformedOutcome(reason)
	}
	return solveOutcome{kind: outcomeSuccess, profile: toProfile(payload)}
}

// extractPayload pulls the <pre>-wrapped JSON payload out of the solved
// page and decodes it. Missing segments or availableSegments arrays are
// fatal; everything else optional is synthesized later.
func extractPayload(page string) (*profilePayload, string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, "unreadable solution document"
	}

	pre := doc.Find("pre").First()
	if pre.Length() == 0 {
		return nil, "missing <pre> payload wrapper"
	}

	var env profileEnvelope
	if err := json.Unmarshal([]byte(pre.Text()), &env); err != nil {
		return nil, "invalid JSON inside <pre> wrapper"
	}
	if env.Data.Segments == nil {
		return nil, "missing segments array"
	}
	if env.Data.AvailableSegments == nil {
		return nil, "missing availableSegments array"
	}
	return &env.Data, ""
}

// toProfile maps the wire payload onto the domain shape, synthesizing
// zero values for absent optional objects.
func toProfile(p *profilePayload) *domain.ScrapedProfile {
	profile := &domain.ScrapedProfile{
		Segments:          make([]domain.Segment, 0, len(p.Segments)),
		AvailableSegments: make([]domain.AvailableSegment, 0, len(p.AvailableSegments)),
	}

	if p.PlatformInfo != nil {
		profile.PlatformSlug = p.PlatformInfo.PlatformSlug
		profile.PlatformUserID = p.PlatformInfo.PlatformUserIdentifier
		profile.PlatformUserHandle = p.PlatformInfo.PlatformUserHandle
	}
	if p.UserInfo != nil {
		profile.UserID = p.UserInfo.UserID
		profile.IsPremium = p.UserInfo.IsPremium
	}
	if p.Metadata != nil {
		profile.CurrentSeason = p.Metadata.CurrentSeason
		if p.Metadata.LastUpdated != nil {
			if ts, err := time.Parse(time.RFC3339, p.Metadata.LastUpdated.Value); err == nil {
				profile.LastUpdated = ts
			}
		}
	}

	for _, seg := range p.Segments {
		profile.Segments = append(profile.Segments, toSegment(seg))
	}
	for _, seg := range p.AvailableSegments {
		available := domain.AvailableSegment{Name: seg.Metadata.Name}
		if seg.Attributes.Season != nil {
			available.Season = *seg.Attributes.Season
		}
		profile.AvailableSegments = append(profile.AvailableSegments, available)
	}

	return profile
}

func toSegment(p segmentPayload) domain.Segment {
	seg := domain.Segment{
		Type: p.Type,
		Name: p.Metadata.Name,
	}
	if p.Attributes.PlaylistID != nil {
		seg.PlaylistID = *p.Attributes.PlaylistID
	}
	if p.Attributes.Season != nil {
		seg.Season = *p.Attributes.Season
	}

	seg.Stats = domain.SegmentStats{
		Tier:          toTierInfo(p.Stats, "tier"),
		Division:      toTierInfo(p.Stats, "division"),
		Rating:        coerceStat(p.Stats, "rating"),
		MatchesPlayed: coerceStat(p.Stats, "matchesPlayed"),
		WinStreak:     coerceStat(p.Stats, "winStreak"),
	}
	return seg
}

// toTierInfo extracts a rank-like stat's display name and ordinal. A
// missing sub-object yields nil; a present one with null members yields
// nil members, which is not an error.
func toTierInfo(stats map[string]statPayload, key string) *domain.TierInfo {
	stat, ok := stats[key]
	if !ok {
		return nil
	}
	info := &domain.TierInfo{Name: stat.Metadata.Name}
	if value := coerceNumber(stat.Value); value.Number != nil {
		ordinal := int(*value.Number)
		info.Value = &ordinal
	}
	return info
}

func coerceStat(stats map[string]statPayload, key string) domain.StatValue {
	stat, ok := stats[key]
	if !ok {
		return domain.StatValue{}
	}
	return coerceNumber(stat.Value)
}

func coerceNumber(v any) domain.StatValue {
	switch value := v.(type) {
	case nil:
		return domain.StatValue{}
	case float64:
		return domain.StatValue{Number: &value}
	case string:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return domain.StatValue{Number: &f}
		}
		return domain.StatValue{Corrupt: true}
	default:
		return domain.StatValue{Corrupt: true}
	}
}
