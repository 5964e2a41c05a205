// Package llmrouter provides a completion client with an ordered list of
// model candidates. Calls go to the primary model first; a candidate is
// skipped only when the failure indicates the model itself is unavailable.
package llmrouter

import (
	"context"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/chatagent/pkg/llms"
	"github.com/effective-security/chatagent/pkg/metricskey"
	"github.com/effective-security/xlog"
	openaisdk "github.com/openai/openai-go/v3"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/chatagent", "llmrouter")

// ErrCompletionUnavailable is returned when every candidate model failed.
var ErrCompletionUnavailable = errors.New("completion unavailable")

// FailureClass describes how a completion failure should be handled.
type FailureClass int

const (
	// FailureModelUnavailable means the model cannot serve this request and
	// the next candidate should be tried.
	FailureModelUnavailable FailureClass = iota
	// FailureTransient means the same model may succeed if retried.
	FailureTransient
	// FailureFatal means the request itself is broken and no candidate can help.
	FailureFatal
)

// Classifier maps a completion error to a FailureClass.
type Classifier func(err error) FailureClass

// DefaultClassifier classifies provider SDK errors by HTTP status.
// Unknown errors are treated as model unavailable so the fallback gets a chance.
func DefaultClassifier(err error) FailureClass {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return FailureFatal
	}
	var oaiErr *openaisdk.Error
	if errors.As(err, &oaiErr) {
		return classifyStatus(oaiErr.StatusCode)
	}
	var antErr *anthropicsdk.Error
	if errors.As(err, &antErr) {
		return classifyStatus(antErr.StatusCode)
	}
	return FailureModelUnavailable
}

func classifyStatus(status int) FailureClass {
	switch {
	case status == 429 || status >= 500:
		return FailureTransient
	case status == 404:
		return FailureModelUnavailable
	case status >= 400 && status < 500:
		return FailureFatal
	default:
		return FailureModelUnavailable
	}
}

// Router implements the llms.Model interface over an ordered list of candidates.
type Router struct {
	candidates []llms.Model
	retryCount int
	classifier Classifier
	interval   time.Duration
}

var _ llms.Model = (*Router)(nil)

type Option func(*Router)

// WithFallback appends fallback models, tried in order after the primary.
func WithFallback(models ...llms.Model) Option {
	return func(r *Router) {
		r.candidates = append(r.candidates, models...)
	}
}

// WithRetryCount sets how many times a transient failure is retried on the
// same model before advancing. Default is 0.
func WithRetryCount(count int) Option {
	return func(r *Router) {
		r.retryCount = count
	}
}

// WithClassifier overrides the failure classifier.
func WithClassifier(c Classifier) Option {
	return func(r *Router) {
		r.classifier = c
	}
}

// WithRetryInterval sets the initial backoff interval between retries.
func WithRetryInterval(d time.Duration) Option {
	return func(r *Router) {
		r.interval = d
	}
}

// New creates a Router with the given primary model.
func New(primary llms.Model, opts ...Option) *Router {
	r := &Router{
		candidates: []llms.Model{primary},
		classifier: DefaultClassifier,
		interval:   time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetName returns the primary model name.
func (r *Router) GetName() string {
	return r.candidates[0].GetName()
}

// GetProviderType returns the primary model provider.
func (r *Router) GetProviderType() llms.ProviderType {
	return r.candidates[0].GetProviderType()
}

// GenerateContent tries each candidate in order. Transient failures are
// retried on the same candidate up to the configured retry count; when the
// retry budget runs out the failure is final and the call aborts. Only a
// model-unavailable failure advances to the next candidate.
func (r *Router) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var lastErr error
	for idx, model := range r.candidates {
		if idx > 0 {
			metricskey.StatsLLMFallbacks.IncrCounter(1, model.GetName())
			logger.ContextKV(ctx, xlog.WARNING,
				"reason", "fallback",
				"model", model.GetName(),
				"err", lastErr.Error(),
			)
		}

		resp, err := r.generate(ctx, model, messages, options...)
		if err == nil {
			return resp, nil
		}
		if r.classifier(err) != FailureModelUnavailable {
			return nil, err
		}
		lastErr = err
	}
	return nil, errors.WithMessagef(ErrCompletionUnavailable, "all %d models failed: %s", len(r.candidates), lastErr.Error())
}

func (r *Router) generate(ctx context.Context, model llms.Model, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	started := time.Now()
	defer metricskey.PerfLLMCall.MeasureSince(started, model.GetName())

	var resp *llms.ContentResponse
	op := func() error {
		var err error
		resp, err = model.GenerateContent(ctx, messages, options...)
		if err == nil {
			return nil
		}
		if r.classifier(err) == FailureTransient {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, next time.Duration) {
		metricskey.StatsLLMRetries.IncrCounter(1, model.GetName())
		logger.ContextKV(ctx, xlog.WARNING,
			"reason", "retry",
			"model", model.GetName(),
			"next", next.String(),
			"err", err.Error(),
		)
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.interval
	bo := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(r.retryCount)), ctx)
	if err := backoff.RetryNotify(op, bo, notify); err != nil {
		return nil, err
	}
	return resp, nil
}
