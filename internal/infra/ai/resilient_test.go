package ai

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domainAI "ai_post_scheduler/internal/domain/ai"
	"ai_post_scheduler/internal/infra/config"
	"ai_post_scheduler/internal/infra/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type scriptedClient struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (s *scriptedClient) GenerateText(_ context.Context, prompt string, _ domainAI.Options) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return "echo: " + prompt, nil
}

func resilienceConfig() config.ResilienceConfig {
	return config.ResilienceConfig{
		Retry: config.RetryConfig{
			Enabled:      true,
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
		},
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 5,
			Timeout:          time.Minute,
		},
		RateLimit: config.RateLimitConfig{Enabled: false, RequestsPerMinute: 20},
	}
}

func newTestClient(next domainAI.Client, cfg config.ResilienceConfig) (*ResilientClient, *[]time.Duration) {
	c := NewResilientClient(next, cfg, logger.Discard())
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	c.rand = func() float64 { return 0 }
	return c, &slept
}

func TestResilientClientRetriesTransientErrors(t *testing.T) {
	next := &scriptedClient{errs: []error{errors.New("boom"), genai.APIError{Code: 503}}}
	c, slept := newTestClient(next, resilienceConfig())

	text, err := c.GenerateText(context.Background(), "hi", domainAI.Options{})

	require.NoError(t, err)
	assert.Equal(t, "echo: hi", text)
	assert.Equal(t, 3, next.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}

func TestResilientClientGivesUpAfterMaxAttempts(t *testing.T) {
	boom := errors.New("boom")
	next := &scriptedClient{errs: []error{boom, boom, boom, boom}}
	c, slept := newTestClient(next, resilienceConfig())

	_, err := c.GenerateText(context.Background(), "hi", domainAI.Options{})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, next.calls)
	assert.Len(t, *slept, 2)
}

func TestResilientClientDoesNotRetryPermanentErrors(t *testing.T) {
	data := []struct {
		name string
		err  error
	}{
		{"blocked", ErrBlocked},
		{"bad request", genai.APIError{Code: 400}},
		{"canceled", context.Canceled},
	}

	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			next := &scriptedClient{errs: []error{d.err}}
			c, slept := newTestClient(next, resilienceConfig())

			_, err := c.GenerateText(context.Background(), "hi", domainAI.Options{})

			assert.Error(t, err)
			assert.Equal(t, 1, next.calls)
			assert.Empty(t, *slept)
		})
	}
}

func TestResilientClientOpensCircuit(t *testing.T) {
	cfg := resilienceConfig()
	cfg.Retry.Enabled = false
	cfg.CircuitBreaker.FailureThreshold = 2
	boom := errors.New("boom")
	next := &scriptedClient{errs: []error{boom, boom}}
	c, _ := newTestClient(next, cfg)

	var transitions []string
	c.OnStateChange = func(from, to string) { transitions = append(transitions, from+"->"+to) }

	for i := 0; i < 2; i++ {
		_, err := c.GenerateText(context.Background(), "hi", domainAI.Options{})
		assert.ErrorIs(t, err, boom)
	}

	_, err := c.GenerateText(context.Background(), "hi", domainAI.Options{})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, next.calls)
	assert.Equal(t, "open", c.Status().State)
	assert.Equal(t, []string{"closed->open"}, transitions)

	c.Reset()
	assert.Equal(t, "closed", c.Status().State)
	text, err := c.GenerateText(context.Background(), "again", domainAI.Options{})
	require.NoError(t, err)
	assert.Equal(t, "echo: again", text)
}

func TestResilientClientRateLimit(t *testing.T) {
	cfg := resilienceConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2}
	next := &scriptedClient{}
	c, _ := newTestClient(next, cfg)

	for i := 0; i < 2; i++ {
		_, err := c.GenerateText(context.Background(), "hi", domainAI.Options{})
		require.NoError(t, err)
	}
	_, err := c.GenerateText(context.Background(), "hi", domainAI.Options{})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 2, next.calls)
}

func TestResilientClientStopsRetryingWhenContextEnds(t *testing.T) {
	next := &scriptedClient{errs: []error{errors.New("boom"), errors.New("boom")}}
	c, _ := newTestClient(next, resilienceConfig())
	c.sleep = sleepContext

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GenerateText(ctx, "hi", domainAI.Options{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, next.calls)
}

func TestBackoff(t *testing.T) {
	c, _ := newTestClient(&scriptedClient{}, resilienceConfig())

	assert.Equal(t, time.Second, c.backoff(1))
	assert.Equal(t, 4*time.Second, c.backoff(3))
	assert.Equal(t, 30*time.Second, c.backoff(10))
	assert.Equal(t, 30*time.Second, c.backoff(200))

	c.rand = func() float64 { return 1 }
	assert.Equal(t, 1250*time.Millisecond, c.backoff(1))

	c.cfg.Retry.MaxDelay = 10 * time.Minute
	c.rand = func() float64 { return 0 }
	assert.Equal(t, 60*time.Second, c.backoff(12))
}
