// Package classify scores website screenshots with a vision completion and
// hands low-scoring sites on to extraction.
package classify

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/freakspace/leadtool/internal/content"
	"github.com/freakspace/leadtool/internal/llm"
	"github.com/freakspace/leadtool/internal/model"
	"github.com/freakspace/leadtool/internal/store"
)

// ErrUnclassified is returned when no attempt produced a classification.
// The link is left untouched.
var ErrUnclassified = eris.New("classify: no classification")

// DefaultThreshold is the highest score that still cascades into extraction.
const DefaultThreshold = 6

// Updater writes partial link updates.
type Updater interface {
	Update(ctx context.Context, id int64, u store.LinkUpdate) error
}

// Extractor runs extraction on a link. *extract.Orchestrator satisfies it.
type Extractor interface {
	Run(ctx context.Context, link *model.Link) error
}

// Config controls the attempt loop and the cascade.
type Config struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	Threshold      int
	MaxTokens      int
}

// Orchestrator classifies one link at a time.
type Orchestrator struct {
	completer llm.Completer
	fetcher   content.Fetcher
	store     Updater
	extractor Extractor
	cfg       Config
}

// NewOrchestrator wires an orchestrator. extractor may be nil to disable the
// cascade. Zero MaxAttempts and AttemptTimeout fall back to one attempt and
// 20s; a negative Threshold falls back to 6.
func NewOrchestrator(c llm.Completer, f content.Fetcher, st Updater, extractor Extractor, cfg Config) *Orchestrator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 20 * time.Second
	}
	if cfg.Threshold < 0 {
		cfg.Threshold = DefaultThreshold
	}
	return &Orchestrator{
		completer: c,
		fetcher:   f,
		store:     st,
		extractor: extractor,
		cfg:       cfg,
	}
}

// Classify scores a screenshot, spending up to MaxAttempts calls.
func (o *Orchestrator) Classify(ctx context.Context, img *content.Image) (Verdict, int, error) {
	log := zap.L().Named("classify")
	req := llm.Request{
		System:    systemPrompt,
		User:      userPrompt,
		Mode:      llm.ModeText,
		Image:     &llm.Image{MediaType: img.MediaType, Data: img.Data},
		MaxTokens: o.cfg.MaxTokens,
		Phase:     "classify",
	}

	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		raw, err := llm.Within(ctx, o.cfg.AttemptTimeout, func(ctx context.Context) (string, error) {
			return o.completer.Complete(ctx, req)
		})
		if err != nil {
			if !errors.Is(err, llm.ErrAttemptTimeout) {
				return Verdict{}, attempt, eris.Wrap(err, "classify: completion")
			}
			log.Warn("classify: attempt timed out", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		v, err := DecodeVerdict(raw)
		if err != nil {
			log.Warn("classify: undecodable reply", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		return v, attempt, nil
	}
	return Verdict{}, o.cfg.MaxAttempts, ErrUnclassified
}

// Run classifies the link's screenshot, writes the score and cascades into
// extraction when the score is at or below the threshold.
func (o *Orchestrator) Run(ctx context.Context, link *model.Link) error {
	log := zap.L().Named("classify").With(zap.Int64("link_id", link.ID), zap.String("domain", link.Domain))

	img, err := o.fetcher.Screenshot(ctx, link)
	if err != nil {
		return eris.Wrapf(err, "classify: load screenshot for link %d", link.ID)
	}

	v, attempts, err := o.Classify(ctx, img)
	if err != nil {
		return eris.Wrapf(err, "classify: link %d after %d attempts", link.ID, attempts)
	}

	upd := store.LinkUpdate{Classification: store.Ptr(v.Classification)}
	if v.Description != "" {
		upd.Description = store.Ptr(v.Description)
	}
	if err := o.store.Update(ctx, link.ID, upd); err != nil {
		return eris.Wrapf(err, "classify: write link %d", link.ID)
	}
	link.Classification = v.Classification
	link.Description = v.Description

	// The threshold applies to the score as returned, before rounding.
	cascade := v.Score <= float64(o.cfg.Threshold) && o.extractor != nil
	log.Info("classify: link classified",
		zap.Int("classification", v.Classification),
		zap.Float64("score", v.Score),
		zap.Int("attempts", attempts),
		zap.Bool("cascade", cascade),
	)
	if !cascade {
		return nil
	}

	if err := o.extractor.Run(ctx, link); err != nil {
		return eris.Wrapf(err, "classify: extract link %d", link.ID)
	}
	return nil
}
