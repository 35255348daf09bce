package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/freakspace/leadtool/internal/batch"
	"github.com/freakspace/leadtool/internal/classify"
	"github.com/freakspace/leadtool/internal/config"
	"github.com/freakspace/leadtool/internal/content"
	"github.com/freakspace/leadtool/internal/extract"
	"github.com/freakspace/leadtool/internal/llm"
	"github.com/freakspace/leadtool/internal/model"
	"github.com/freakspace/leadtool/internal/resilience"
	"github.com/freakspace/leadtool/internal/store"
	anthropicpkg "github.com/freakspace/leadtool/pkg/anthropic"
)

// pipeline holds the orchestrators for one run.
type pipeline struct {
	Extract  *extract.Orchestrator
	Classify *classify.Orchestrator
}

// newAnthropicClient returns the SDK client. SDK-level retries are off; the
// orchestrators own the attempt budget.
func newAnthropicClient(c *config.Config) anthropicpkg.Client {
	return anthropicpkg.NewClient(c.Anthropic.Key,
		anthropicpkg.WithBaseURL(c.Anthropic.BaseURL),
		anthropicpkg.WithMaxRetries(0),
	)
}

// buildPipeline wires both orchestrators. The text and vision completers
// share one rate limiter and one circuit breaker.
func buildPipeline(ctx context.Context, c *config.Config, st store.Store, client anthropicpkg.Client) (*pipeline, error) {
	limiter := llm.NewLimiter(c.Anthropic.RequestsPerMinute)
	breaker := resilience.NewCircuitBreaker(resilience.FromCircuitConfig(c.Resilience.FailureThreshold, c.Resilience.ResetTimeoutSecs))

	text := llm.NewAnthropicCompleter(client, c.Anthropic.Model,
		llm.WithMaxTokens(c.Anthropic.MaxTokens),
		llm.WithLimiter(limiter),
		llm.WithBreaker(breaker),
	)
	vision := llm.NewAnthropicCompleter(client, c.Anthropic.VisionModel,
		llm.WithMaxTokens(c.Classify.MaxTokens),
		llm.WithLimiter(limiter),
		llm.WithBreaker(breaker),
	)

	vocab, err := extract.ResolveVocabulary(ctx, extract.VocabularySources{
		Values:        c.Extract.Vocabulary,
		File:          c.Extract.VocabularyFile,
		FromCampaigns: c.Extract.VocabularyFromCampaigns,
	}, st)
	if err != nil {
		return nil, eris.Wrap(err, "resolve vocabulary")
	}
	if len(vocab) > 0 {
		zap.L().Info("industry vocabulary loaded", zap.Strings("industries", vocab))
	}

	fetcher := content.NewFileFetcher(c.Content.Dir)

	ex := extract.NewOrchestrator(extract.NewClient(text, 0), fetcher, st, extract.Config{
		Fields:         c.Extract.Fields,
		MaxAttempts:    c.Extract.MaxAttempts,
		AttemptTimeout: c.Extract.AttemptTimeout(),
		Vocabulary:     vocab,
	})
	cl := classify.NewOrchestrator(vision, fetcher, st, ex, classify.Config{
		MaxAttempts:    c.Classify.MaxAttempts,
		AttemptTimeout: c.Classify.AttemptTimeout(),
		Threshold:      c.Classify.Threshold,
		MaxTokens:      c.Classify.MaxTokens,
	})

	return &pipeline{Extract: ex, Classify: cl}, nil
}

// selectLinks returns the eligible links for mode, capped at limit when
// limit is positive, together with the processor that handles them.
func (p *pipeline) selectLinks(ctx context.Context, st store.Store, mode string, limit int) ([]model.Link, batch.Processor, error) {
	var (
		links []model.Link
		proc  batch.Processor
		err   error
	)
	switch mode {
	case config.ModeClassify:
		links, err = st.FetchUnclassified(ctx)
		proc = p.Classify
	case config.ModeExtract:
		links, err = st.FetchUnparsed(ctx)
		proc = p.Extract
	default:
		return nil, nil, eris.Errorf("unknown mode %q", mode)
	}
	if err != nil {
		return nil, nil, eris.Wrapf(err, "fetch %s candidates", mode)
	}
	if limit > 0 && len(links) > limit {
		links = links[:limit]
	}
	return links, proc, nil
}
