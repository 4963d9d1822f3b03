package rpc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/goran-ethernal/ChainReplay/internal/logger"
	"github.com/goran-ethernal/ChainReplay/pkg/config"
)

// Error classes used as the error_type metric label.
const (
	errClassNetwork   = "network"
	errClassTimeout   = "timeout"
	errClassRateLimit = "rate_limit"
	errClassServer    = "server"
	errClassTooMany   = "too_many_results"
	errClassOther     = "other"
)

var errorMarkers = []struct {
	class   string
	markers []string
}{
	{errClassTimeout, []string{"timeout", "deadline exceeded"}},
	{errClassRateLimit, []string{"429", "too many requests", "rate limit"}},
	{errClassServer, []string{
		"502", "503", "504", "bad gateway", "service unavailable", "gateway timeout",
	}},
	{errClassNetwork, []string{"connection pool", "no available connection", "connection refused", "eof"}},
}

// classifyError returns the error class of err and whether it is worth retrying.
func classifyError(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	if tooMany, _ := IsTooManyResultsError(err); tooMany {
		return errClassTooMany, false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return errClassTimeout, true
		}
		return errClassNetwork, true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return errClassNetwork, true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range errorMarkers {
		for _, marker := range m.markers {
			if strings.Contains(msg, marker) {
				return m.class, true
			}
		}
	}

	return errClassOther, false
}

// retryableError checks if an error should trigger a retry.
func retryableError(err error) bool {
	_, retry := classifyError(err)
	return retry
}

// calculateBackoff computes the wait before the given attempt, with ±25% jitter.
func calculateBackoff(attempt int, cfg *config.RetryConfig) time.Duration {
	if attempt <= 1 {
		return 0
	}

	backoff := float64(cfg.InitialBackoff.Duration) * math.Pow(cfg.BackoffMultiplier, float64(attempt-2))
	if backoff > float64(cfg.MaxBackoff.Duration) {
		backoff = float64(cfg.MaxBackoff.Duration)
	}

	jitterRange := backoff * 0.25 //nolint:mnd
	backoff += (rand.Float64() * 2 * jitterRange) - jitterRange //nolint:gosec
	if backoff < 0 {
		backoff = 0
	}

	return time.Duration(backoff)
}

// retryWithBackoff runs fn until it succeeds, returns a non-retryable error,
// exhausts cfg.MaxAttempts or ctx ends. A nil cfg runs fn once.
func retryWithBackoff(
	ctx context.Context,
	cfg *config.RetryConfig,
	log *logger.Logger,
	operation string,
	fn func() error,
) error {
	if cfg == nil {
		return fn()
	}

	var lastErr error
	startTime := time.Now()

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled before attempt %d: %w", attempt, err)
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryableError(err) {
			return fmt.Errorf("non-retryable error on attempt %d/%d: %w", attempt, cfg.MaxAttempts, err)
		}
		if attempt >= cfg.MaxAttempts {
			break
		}

		wait := calculateBackoff(attempt+1, cfg)
		if log != nil {
			log.Debugw("retrying rpc operation",
				"operation", operation,
				"attempt", attempt,
				"backoff", wait,
				"error", err,
			)
		}

		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("context cancelled during backoff (attempt %d/%d): %w",
					attempt, cfg.MaxAttempts, ctx.Err())
			}
		}

		rpcRetryInc(operation)
	}

	return fmt.Errorf("all %d attempts failed after %v (last error: %w)",
		cfg.MaxAttempts, time.Since(startTime), lastErr)
}
