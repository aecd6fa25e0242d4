package llmgateway

import (
	"context"
	"errors"
	"net"
	"net/url"
	"regexp"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig controls WithRetry's backoff behavior.
type RetryConfig struct {
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
}

// retryProvider wraps a Provider so transient failures (connection resets,
// timeouts, 429/5xx responses) are retried with exponential backoff instead
// of surfacing on the first flake.
type retryProvider struct {
	inner Provider
	cfg   RetryConfig
}

// WithRetry decorates p with retry/backoff per cfg. Mirrors the
// wrap-a-Provider retry-decorator shape used elsewhere in the pack, but
// classifies transient errors by type (context deadline, net.Error,
// url.Error) plus a narrow HTTP-status regex, rather than a broad
// keyword-in-error-text heuristic — a malformed-output error containing the
// word "timeout" in a quoted LLM reply should not be treated as transient.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 2 * time.Second
	}
	return &retryProvider{inner: p, cfg: cfg}
}

var statusCodePattern = regexp.MustCompile(`\bstatus (429|500|502|503|504)\b`)

// isTransient reports whether err is worth retrying: a context
// deadline/timeout, a network-level error, or an HTTP response whose status
// line indicates a transient failure.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return statusCodePattern.MatchString(err.Error())
}

func (r *retryProvider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.cfg.Timeout)
}

func (r *retryProvider) backoffFor(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.BaseDelay
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.cfg.MaxRetries)), ctx)
}

func (r *retryProvider) Chat(ctx context.Context, msgs []Message, tools []ToolSchema, model string) (Message, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var result Message
	op := func() error {
		var err error
		result, err = r.inner.Chat(ctx, msgs, tools, model)
		if err != nil && !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(op, r.backoffFor(ctx)); err != nil {
		return Message{}, unwrapPermanent(err)
	}
	return result, nil
}

// ChatStream is not retried once any content has started streaming — a
// retry would duplicate output the caller has already consumed. Failures
// before the first delta are retried like Chat.
func (r *retryProvider) ChatStream(ctx context.Context, msgs []Message, tools []ToolSchema, model string, h StreamHandler) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	op := func() error {
		started := &startTrackingHandler{inner: h}
		err := r.inner.ChatStream(ctx, msgs, tools, model, started)
		if err != nil && !started.started && isTransient(err) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	if err := backoff.Retry(op, r.backoffFor(ctx)); err != nil {
		return unwrapPermanent(err)
	}
	return nil
}

func unwrapPermanent(err error) error {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Unwrap()
	}
	return err
}

// startTrackingHandler records whether any output has reached the caller's
// StreamHandler, so ChatStream can tell a pre-stream transient failure
// (safe to retry) from a mid-stream one (not safe to retry).
type startTrackingHandler struct {
	inner   StreamHandler
	started bool
}

func (s *startTrackingHandler) OnDelta(content string) {
	s.started = true
	s.inner.OnDelta(content)
}

func (s *startTrackingHandler) OnToolCall(tc ToolCall) {
	s.started = true
	s.inner.OnToolCall(tc)
}

func (s *startTrackingHandler) OnImage(img GeneratedImage) {
	s.started = true
	s.inner.OnImage(img)
}

func (s *startTrackingHandler) OnThoughtSummary(summary string) {
	s.inner.OnThoughtSummary(summary)
}

var _ Provider = (*retryProvider)(nil)
