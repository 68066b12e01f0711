package reasoning

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dmauro/triago/internal/reliability"
)

// RetryPolicy bounds the per-provider retry loop.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 8 * time.Second
	}
	return p
}

// Analyzer runs the reasoning step: prompt construction, the primary/fallback
// provider policy, and response parsing with a safe default.
type Analyzer struct {
	primary  Provider
	fallback Provider
	retry    RetryPolicy
	opts     GenerationOptions

	// OnParseFailure, when set, observes raw responses that failed to decode.
	OnParseFailure func(provider string, raw string)
}

func NewAnalyzer(primary, fallback Provider, retry RetryPolicy, opts GenerationOptions) *Analyzer {
	return &Analyzer{
		primary:  primary,
		fallback: fallback,
		retry:    retry.withDefaults(),
		opts:     opts,
	}
}

// Analyze produces a structured result for the request. It never surfaces
// provider or parse failures to the pipeline: an exhausted provider chain or
// unparseable response degrades to the safe default, with the underlying
// error returned alongside for logging and audit.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (Result, error) {
	prompt := BuildAnalysisPrompt(req)

	raw, provider, err := a.generate(ctx, prompt)
	if err != nil {
		return SafeDefaultResult(), err
	}

	res, ok := ParseResult(raw)
	if !ok {
		if a.OnParseFailure != nil {
			a.OnParseFailure(provider, raw)
		}
		log.Printf("reasoning: unparseable response from %s, using safe default", provider)
	}
	return res, nil
}

// generate attempts the primary provider with bounded retries and exponential
// backoff, then the fallback provider once. Cancellation stops the chain
// immediately.
func (a *Analyzer) generate(ctx context.Context, prompt string) (raw, provider string, err error) {
	if a.primary == nil {
		return "", "", errors.New("no reasoning provider configured")
	}

	var primaryErr error
	for attempt := 0; attempt < a.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := reliability.ExponentialBackoff(attempt-1, a.retry.BaseDelay, a.retry.MaxDelay)
			if err := reliability.Sleep(ctx, delay); err != nil {
				return "", "", err
			}
		}
		raw, primaryErr = a.primary.Generate(ctx, prompt, a.opts)
		if primaryErr == nil {
			return raw, a.primary.Name(), nil
		}
		if !isRetryable(primaryErr) {
			break
		}
		log.Printf("reasoning: %s attempt %d failed: %v", a.primary.Name(), attempt+1, primaryErr)
	}
	if errors.Is(primaryErr, context.Canceled) {
		return "", "", primaryErr
	}

	if a.fallback == nil {
		return "", "", fmt.Errorf("primary provider %s failed: %w", a.primary.Name(), primaryErr)
	}

	raw, fallbackErr := a.fallback.Generate(ctx, prompt, a.opts)
	if fallbackErr != nil {
		return "", "", fmt.Errorf("primary provider %s failed: %v; fallback provider %s failed: %w",
			a.primary.Name(), primaryErr, a.fallback.Name(), fallbackErr)
	}
	log.Printf("reasoning: fell back to %s after primary failure: %v", a.fallback.Name(), primaryErr)
	return raw, a.fallback.Name(), nil
}

func isRetryable(err error) bool {
	if reliability.IsRetryableError(err) {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return reliability.IsRetryableHTTPStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reliability.IsRetryableHTTPStatus(reqErr.HTTPStatusCode)
	}
	return false
}
