// Package api talks to the anti-bot solver that fronts the profile site.
// The site sits behind a challenge layer, so every fetch is delegated to a
// solver instance that answers with the solved page embedded in a JSON
// envelope.
package api

import (
	"context"
	"fmt"
	"time"

	"rocket-tracker/internal/config"
	"rocket-tracker/internal/domain"
	"rocket-tracker/internal/metrics"
	"rocket-tracker/internal/ratelimit"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/valyala/fasthttp"
)

type solveRequest struct {
	Cmd        string `json:"cmd"`
	URL        string `json:"url"`
	MaxTimeout int    `json:"maxTimeout"`
}

type SolverClient struct {
	endpoint string
	timeout  time.Duration
	attempts int
	delay    time.Duration
	limiter  *ratelimit.Limiter
	metrics  *metrics.Metrics
	client   *fasthttp.Client
	logger   zerolog.Logger
}

func NewSolverClient(cfg *config.Config, limiter *ratelimit.Limiter, m *metrics.Metrics, logger zerolog.Logger) (*SolverClient, error) {
	if cfg.SolverURL == "" {
		return nil, ErrConfiguration
	}

	return &SolverClient{
		endpoint: cfg.SolverURL,
		timeout:  cfg.SolverTimeout,
		attempts: cfg.RetryAttempts,
		delay:    cfg.RetryDelay,
		limiter:  limiter,
		metrics:  m,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         cfg.SolverTimeout,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}, nil
}

// FetchProfile obtains one profile payload through the solver. Challenge
// and transport failures are retried with a constant delay up to the
// configured attempt budget, then surfaced as ErrServiceUnavailable.
// Malformed payloads fail immediately.
func (c *SolverClient) FetchProfile(ctx context.Context, url string) (*domain.ScrapedProfile, error) {
	var profile *domain.ScrapedProfile

	backoff := retry.WithMaxRetries(uint64(c.attempts-1), retry.NewConstant(c.delay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		p, err := c.fetchOnce(ctx, url)
		if err != nil {
			if IsRetryable(err) {
				c.metrics.SolverRetries.Inc()
				c.logger.Warn().Err(err).Str("url", url).Msg("solver request failed, will retry")
				return retry.RetryableError(err)
			}
			return err
		}
		profile = p
		return nil
	})
	if err != nil {
		if IsRetryable(err) {
			c.logger.Error().Err(err).Str("url", url).Int("attempts", c.attempts).Msg("solver retries exhausted")
			return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
		}
		c.logger.Error().Err(err).Str("url", url).Msg("solver request failed")
		return nil, err
	}

	return profile, nil
}

func (c *SolverClient) fetchOnce(ctx context.Context, url string) (*domain.ScrapedProfile, error) {
	// Every attempt takes a slot from the shared limiter, retries included.
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	c.metrics.SolverRequests.Inc()

	body, err := json.Marshal(solveRequest{
		Cmd:        "request.get",
		URL:        url,
		MaxTimeout: int(c.timeout.Milliseconds()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode solve request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &TransportError{Err: fmt.Errorf("solver returned status %d", resp.StatusCode())}
	}

	outcome := classifyEnvelope(resp.Body())
	switch outcome.kind {
	case outcomeSuccess:
		return outcome.profile, nil
	case outcomeChallengeFailed:
		return nil, &ChallengeError{Status: outcome.status, Message: outcome.message}
	default:
		return nil, &MalformedError{Reason: outcome.reason}
	}
}
