package util

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/semaphore"

	"github.com/syncwatch/syncwatch/metrics"
	"github.com/syncwatch/syncwatch/types"
)

// DefaultMaxRetries bounds the WithRetry variants of upstream collaborators.
const DefaultMaxRetries = 5

const (
	baseBackoffDelay  = 1 * time.Second
	maxBackoffDelay   = 30 * time.Second
	backoffMultiplier = 2.0
	jitterFactor      = 0.1
)

// Metric targets
const (
	TargetIndexer     = "indexer"
	TargetProgress    = "progress"
	TargetNetwork     = "network"
	TargetIPFS        = "ipfs"
	TargetQueryVolume = "query_volume"
)

// NewLimiter returns the semaphore shared by every Requester of a process.
func NewLimiter(maxConcurrentRequests int) *semaphore.Weighted {
	return semaphore.NewWeighted(int64(maxConcurrentRequests))
}

type RequesterConfig struct {
	// Target labels metrics, e.g. TargetIndexer.
	Target  string
	Timeout time.Duration
	// CoolingDuration and MaxRetries apply to the WithRetry variants only.
	CoolingDuration time.Duration
	MaxRetries      int
	Headers         map[string]string
}

// Requester issues bounded-time HTTP requests against one kind of upstream.
// It is safe for concurrent use.
type Requester struct {
	client  *fiber.Client
	limiter *semaphore.Weighted
	cfg     RequesterConfig
}

func NewRequester(client *fiber.Client, limiter *semaphore.Weighted, cfg RequesterConfig) *Requester {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	return &Requester{client: client, limiter: limiter, cfg: cfg}
}

func (r *Requester) Timeout() time.Duration {
	return r.cfg.Timeout
}

// Post makes exactly one attempt and returns the body of a 2xx response.
func (r *Requester) Post(ctx context.Context, rawUrl string, payload any) ([]byte, error) {
	return r.do(ctx, fiber.MethodPost, rawUrl, nil, payload)
}

// Get makes exactly one attempt and returns the body of a 2xx response.
func (r *Requester) Get(ctx context.Context, rawUrl string, params map[string]string) ([]byte, error) {
	return r.do(ctx, fiber.MethodGet, rawUrl, params, nil)
}

// PostWithRetry retries failed attempts up to MaxRetries times. 429s back
// off exponentially and 4xx responses are returned without retrying.
func (r *Requester) PostWithRetry(ctx context.Context, rawUrl string, payload any) ([]byte, error) {
	return r.withRetry(ctx, func() ([]byte, error) {
		return r.do(ctx, fiber.MethodPost, rawUrl, nil, payload)
	})
}

func (r *Requester) GetWithRetry(ctx context.Context, rawUrl string, params map[string]string) ([]byte, error) {
	return r.withRetry(ctx, func() ([]byte, error) {
		return r.do(ctx, fiber.MethodGet, rawUrl, params, nil)
	})
}

// withRetry also records whether the upstream answered in the end. An
// interrupted run says nothing about the upstream and is not recorded.
func (r *Requester) withRetry(ctx context.Context, attempt func() ([]byte, error)) ([]byte, error) {
	body, err := r.retry(ctx, attempt)
	if ctx.Err() == nil {
		metrics.SetUpstreamHealth(r.cfg.Target, err == nil)
	}
	return body, err
}

func (r *Requester) retry(ctx context.Context, attempt func() ([]byte, error)) ([]byte, error) {
	retryCount := 0
	rateLimitRetries := 0
	var lastErr error

	for retryCount < r.cfg.MaxRetries && rateLimitRetries < 2*r.cfg.MaxRetries {
		body, err := attempt()
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		delay := r.cfg.CoolingDuration
		if types.ErrorTypeOf(err) == types.ErrTypeRateLimit {
			// rate limits don't count against the regular retry limit
			rateLimitRetries++
			metrics.GetMetrics().ExternalAPI.RateLimitHitsTotal.WithLabelValues(r.cfg.Target).Inc()
			delay = calculateBackoffDelay(rateLimitRetries)
		} else {
			retryCount++
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}

func (r *Requester) do(ctx context.Context, method, rawUrl string, params map[string]string, payload any) (body []byte, err error) {
	if r.limiter == nil {
		return nil, types.NewLimiterNotInitializedError()
	}

	start := time.Now()
	apiMetrics := metrics.GetMetrics().ExternalAPI

	// Track concurrent requests
	apiMetrics.ConcurrentActive.Inc()
	defer func() {
		apiMetrics.ConcurrentActive.Dec()
		apiMetrics.Latency.WithLabelValues(r.cfg.Target).Observe(time.Since(start).Seconds())
	}()

	// Track semaphore wait time
	semaphoreStart := time.Now()
	if err := r.limiter.Acquire(ctx, 1); err != nil {
		return nil, types.NewNetworkError(rawUrl, fmt.Errorf("failed to acquire semaphore: %w", err))
	}
	defer r.limiter.Release(1)
	apiMetrics.SemaphoreWaitDuration.Observe(time.Since(semaphoreStart).Seconds())

	parsedUrl, err := url.Parse(rawUrl)
	if err != nil {
		return nil, types.NewInvalidValueError("url", rawUrl, err.Error())
	}
	if params != nil {
		query := parsedUrl.Query()
		for key, value := range params {
			query.Set(key, value)
		}
		parsedUrl.RawQuery = query.Encode()
	}

	var req *fiber.Agent
	if method == fiber.MethodPost {
		req = r.client.Post(parsedUrl.String())
		if payload != nil {
			req = req.JSON(payload)
		}
	} else {
		req = r.client.Get(parsedUrl.String())
	}

	for key, value := range r.cfg.Headers {
		req.Set(key, value)
	}

	code, body, errs := req.Timeout(r.cfg.Timeout).Bytes()
	if err := errors.Join(errs...); err != nil {
		apiMetrics.RequestsTotal.WithLabelValues(r.cfg.Target, "error").Inc()
		if errors.Is(err, fasthttp.ErrTimeout) {
			return nil, types.NewTimeoutError(fmt.Sprintf("%s %s", method, rawUrl))
		}
		return nil, types.NewNetworkError(rawUrl, err)
	}

	apiMetrics.RequestsTotal.WithLabelValues(r.cfg.Target, strconv.Itoa(code)).Inc()

	switch {
	case code >= 200 && code < 300:
		return body, nil
	case code == fiber.StatusTooManyRequests:
		return nil, types.NewRateLimitError(rawUrl)
	default:
		return nil, types.NewHTTPStatusError(rawUrl, code, body)
	}
}

func isRetryable(err error) bool {
	var se *types.StandardError
	if !errors.As(err, &se) {
		return true
	}
	switch se.Type {
	case types.ErrTypeTimeout, types.ErrTypeRateLimit:
		return true
	case types.ErrTypeNetwork:
		if code, ok := se.Details["status_code"].(int); ok {
			return code >= 500
		}
		return true
	default:
		return false
	}
}

// calculateBackoffDelay calculates exponential backoff delay with jitter
func calculateBackoffDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return baseBackoffDelay
	}

	baseSeconds := baseBackoffDelay.Seconds()
	maxSeconds := maxBackoffDelay.Seconds()

	delaySeconds := baseSeconds * math.Pow(backoffMultiplier, float64(attempt-1))
	if delaySeconds > maxSeconds {
		delaySeconds = maxSeconds
	}

	// +/- jitterFactor to avoid thundering herd
	delaySeconds += delaySeconds * jitterFactor * (2*rand.Float64() - 1)
	if delaySeconds < baseSeconds {
		delaySeconds = baseSeconds
	}

	return time.Duration(delaySeconds*1000+0.5) * time.Millisecond
}
