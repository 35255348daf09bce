package llm

import (
	"context"
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/freakspace/leadtool/internal/resilience"
	"github.com/freakspace/leadtool/pkg/anthropic"
)

const (
	defaultMaxTokens = 1024
	// jsonPrefill opens the assistant turn so the reply continues a JSON object.
	jsonPrefill = "{"
)

// AnthropicCompleter implements Completer over the Anthropic Messages API.
type AnthropicCompleter struct {
	client    anthropic.Client
	model     string
	maxTokens int
	limiter   *rate.Limiter
	breaker   *resilience.CircuitBreaker
	log       *zap.Logger
}

// Option configures an AnthropicCompleter.
type Option func(*AnthropicCompleter)

// WithMaxTokens sets the default completion budget.
func WithMaxTokens(n int) Option {
	return func(c *AnthropicCompleter) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithLimiter shares a rate limiter across completers.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *AnthropicCompleter) { c.limiter = l }
}

// WithBreaker shares a circuit breaker across completers.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *AnthropicCompleter) { c.breaker = cb }
}

// NewLimiter returns a limiter allowing rpm requests per minute. A
// non-positive rpm disables limiting.
func NewLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60), 1)
}

// NewAnthropicCompleter builds a completer for the given model.
func NewAnthropicCompleter(client anthropic.Client, model string, opts ...Option) *AnthropicCompleter {
	c := &AnthropicCompleter{
		client:    client,
		model:     model,
		maxTokens: defaultMaxTokens,
		log:       zap.L().With(zap.String("model", model)),
	}
	for _, o := range opts {
		o(c)
	}
	if c.limiter == nil {
		c.limiter = NewLimiter(0)
	}
	if c.breaker == nil {
		c.breaker = resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig())
	}
	return c
}

// Complete sends one message. In JSON mode the assistant turn is prefilled
// with "{" and the prefix is restored on the returned text.
func (c *AnthropicCompleter) Complete(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() == nil {
			// The wait would outlast the attempt deadline.
			return "", eris.Wrapf(ErrAttemptTimeout, "llm: rate limit wait: %v", err)
		}
		return "", eris.Wrap(err, "llm: rate limit wait")
	}

	user := anthropic.Message{Role: "user", Content: req.User}
	if req.Image != nil {
		user.Images = []anthropic.Image{{MediaType: req.Image.MediaType, Data: req.Image.Data}}
	}
	msgs := []anthropic.Message{user}
	if req.Mode == ModeJSON {
		msgs = append(msgs, anthropic.Message{Role: "assistant", Content: jsonPrefill})
	}

	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	mreq := anthropic.MessageRequest{
		Model:     c.model,
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if req.System != "" {
		mreq.System = anthropic.BuildCachedSystemBlocks(req.System)
	}

	resp, err := resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return c.client.CreateMessage(ctx, mreq)
	})
	if err != nil {
		return "", eris.Wrapf(markTransient(err), "llm: complete %s", req.Phase)
	}

	resp.Usage.LogCost(c.model, req.Phase)
	c.log.Debug("llm: completion",
		zap.String("phase", req.Phase),
		zap.Stringer("mode", req.Mode),
		zap.String("stop_reason", resp.StopReason),
	)

	text := resp.Text()
	if req.Mode == ModeJSON {
		text = jsonPrefill + text
	}
	return text, nil
}

// markTransient tags API errors whose status is safe to retry so the batch
// failure log classifies them correctly.
func markTransient(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
		return resilience.NewTransientError(err, apiErr.StatusCode)
	}
	return err
}
