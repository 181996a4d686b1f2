// internal/infra/ai/resilient.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	domainAI "ai_post_scheduler/internal/domain/ai"
	"ai_post_scheduler/internal/infra/config"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

var (
	// ErrCircuitOpen is returned while the breaker rejects calls.
	ErrCircuitOpen = gobreaker.ErrOpenState
	ErrRateLimited = errors.New("AI rate limit exceeded")
)

// retryDelayCap bounds a single backoff sleep whatever the configuration says.
const retryDelayCap = 60 * time.Second

// BreakerStatus is a snapshot of the circuit breaker.
type BreakerStatus struct {
	Enabled          bool   `json:"enabled"`
	State            string `json:"state"`
	Failures         uint32 `json:"failures"`
	FailureThreshold int    `json:"failure_threshold"`
	TimeoutSeconds   int    `json:"timeout"`
}

// ResilientClient wraps an ai.Client with a rate limiter, a circuit breaker and retries.
// Each stage can be switched off through configuration.
type ResilientClient struct {
	next    domainAI.Client
	cfg     config.ResilienceConfig
	log     *logrus.Entry
	limiter *rate.Limiter

	mu      sync.RWMutex
	breaker *gobreaker.CircuitBreaker

	// OnStateChange is called after every breaker transition.
	OnStateChange func(from, to string)

	sleep func(ctx context.Context, d time.Duration) error
	rand  func() float64
}

func NewResilientClient(next domainAI.Client, cfg config.ResilienceConfig, log *logrus.Entry) *ResilientClient {
	c := &ResilientClient{
		next:  next,
		cfg:   cfg,
		log:   log,
		sleep: sleepContext,
		rand:  rand.Float64,
	}
	if cfg.RateLimit.Enabled && cfg.RateLimit.RequestsPerMinute > 0 {
		rpm := cfg.RateLimit.RequestsPerMinute
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)
	}
	c.breaker = c.newBreaker()
	return c
}

func (c *ResilientClient) newBreaker() *gobreaker.CircuitBreaker {
	threshold := uint32(c.cfg.CircuitBreaker.FailureThreshold)
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ai",
		MaxRequests: 1,
		Timeout:     c.cfg.CircuitBreaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    stateName(from),
				"to":      stateName(to),
			}).Warn("Circuit breaker state changed")
			if c.OnStateChange != nil {
				c.OnStateChange(stateName(from), stateName(to))
			}
		},
	})
}

// GenerateText implements ai.Client.
func (c *ResilientClient) GenerateText(ctx context.Context, prompt string, opts domainAI.Options) (string, error) {
	if c.limiter != nil && !c.limiter.Allow() {
		return "", ErrRateLimited
	}

	if !c.cfg.CircuitBreaker.Enabled {
		return c.withRetry(ctx, prompt, opts)
	}

	c.mu.RLock()
	breaker := c.breaker
	c.mu.RUnlock()

	out, err := breaker.Execute(func() (interface{}, error) {
		return c.withRetry(ctx, prompt, opts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: AI service temporarily unavailable", ErrCircuitOpen)
		}
		return "", err
	}
	return out.(string), nil
}

func (c *ResilientClient) withRetry(ctx context.Context, prompt string, opts domainAI.Options) (string, error) {
	attempts := 1
	if c.cfg.Retry.Enabled && c.cfg.Retry.MaxAttempts > 1 {
		attempts = c.cfg.Retry.MaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := c.next.GenerateText(ctx, prompt, opts)
		if err == nil {
			if attempt > 1 {
				c.log.WithField("attempt", attempt).Info("AI request succeeded after retry")
			}
			return text, nil
		}
		lastErr = err

		if attempt == attempts || !retryable(err) {
			break
		}

		delay := c.backoff(attempt)
		c.log.WithFields(logrus.Fields{
			"attempt":      attempt,
			"max_attempts": attempts,
			"delay":        delay.String(),
		}).WithError(err).Warn("AI request failed, retrying")

		if err := c.sleep(ctx, delay); err != nil {
			return "", fmt.Errorf("retry abandoned: %w", err)
		}
	}
	return "", lastErr
}

// backoff returns initial * 2^(attempt-1), capped, plus up to 25% jitter.
func (c *ResilientClient) backoff(attempt int) time.Duration {
	initial := c.cfg.Retry.InitialDelay
	if initial <= 0 {
		initial = time.Second
	}
	limit := c.cfg.Retry.MaxDelay
	if limit <= 0 || limit > retryDelayCap {
		limit = retryDelayCap
	}

	delay := time.Duration(float64(initial) * math.Pow(2, float64(attempt-1)))
	if delay > limit || delay <= 0 {
		delay = limit
	}
	jitter := time.Duration(float64(delay) * 0.25 * c.rand())
	return delay + jitter
}

// Status reports the breaker state.
func (c *ResilientClient) Status() BreakerStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	counts := c.breaker.Counts()
	return BreakerStatus{
		Enabled:          c.cfg.CircuitBreaker.Enabled,
		State:            stateName(c.breaker.State()),
		Failures:         counts.ConsecutiveFailures,
		FailureThreshold: c.cfg.CircuitBreaker.FailureThreshold,
		TimeoutSeconds:   int(c.cfg.CircuitBreaker.Timeout / time.Second),
	}
}

// Reset closes the breaker and clears its counters.
func (c *ResilientClient) Reset() {
	c.mu.Lock()
	c.breaker = c.newBreaker()
	c.mu.Unlock()
	c.log.Info("Circuit breaker reset")
}

func stateName(s gobreaker.State) string {
	switch s {
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
