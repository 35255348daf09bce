package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/freakspace/leadtool/internal/resilience"
	"github.com/freakspace/leadtool/pkg/anthropic"
)

func TestComplete_JSONModePrefills(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-haiku-4-5-20251001" &&
			req.MaxTokens == 1024 &&
			len(req.System) == 1 && req.System[0].Text == "system prompt" &&
			len(req.Messages) == 2 &&
			req.Messages[0].Role == "user" && req.Messages[0].Content == "site text" &&
			req.Messages[1].Role == "assistant" && req.Messages[1].Content == "{"
	})).Return(textResponse(`"email": "john@acme.dk"}`), nil)

	c := NewAnthropicCompleter(client, "claude-haiku-4-5-20251001")
	out, err := c.Complete(context.Background(), Request{
		System: "system prompt",
		User:   "site text",
		Mode:   ModeJSON,
		Phase:  "extract",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"email": "john@acme.dk"}`, out)
	client.AssertExpectations(t)
}

func TestComplete_TextModeWithImage(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.MaxTokens == 500 &&
			len(req.System) == 0 &&
			len(req.Messages) == 1 &&
			len(req.Messages[0].Images) == 1 &&
			req.Messages[0].Images[0].MediaType == "image/png"
	})).Return(textResponse("```json\n{\"classification\": 5}\n```"), nil)

	c := NewAnthropicCompleter(client, "claude-sonnet-4-5-20250929", WithMaxTokens(2048))
	out, err := c.Complete(context.Background(), Request{
		User:      "rubric",
		Image:     &Image{MediaType: "image/png", Data: []byte{1, 2, 3}},
		MaxTokens: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, "```json\n{\"classification\": 5}\n```", out)
}

func TestComplete_ServiceError(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, eris.New("anthropic: create message: 401"))

	c := NewAnthropicCompleter(client, "m")
	_, err := c.Complete(context.Background(), Request{User: "x", Phase: "extract"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm: complete extract")
	assert.False(t, resilience.IsTransient(err))
}

func TestComplete_CircuitOpens(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Times(2)

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour})
	c := NewAnthropicCompleter(client, "m", WithBreaker(cb))

	for i := 0; i < 2; i++ {
		_, err := c.Complete(context.Background(), Request{User: "x"})
		require.Error(t, err)
	}
	_, err := c.Complete(context.Background(), Request{User: "x"})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	client.AssertNumberOfCalls(t, "CreateMessage", 2)
}

func TestComplete_LimiterHonorsContext(t *testing.T) {
	client := &mockAnthropicClient{}
	c := NewAnthropicCompleter(client, "m", WithLimiter(NewLimiter(1)))

	// Drain the single token so the next Wait must block.
	require.True(t, c.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Complete(ctx, Request{User: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
	client.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestComplete_LimiterWaitPastDeadlineIsAttemptTimeout(t *testing.T) {
	client := &mockAnthropicClient{}
	c := NewAnthropicCompleter(client, "m", WithLimiter(NewLimiter(1)))
	require.True(t, c.limiter.Allow())

	_, err := Within(context.Background(), 50*time.Millisecond, func(ctx context.Context) (string, error) {
		return c.Complete(ctx, Request{User: "x", Phase: "extract"})
	})
	assert.ErrorIs(t, err, ErrAttemptTimeout)
	client.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "json", ModeJSON.String())
	assert.Equal(t, "text", ModeText.String())
}
