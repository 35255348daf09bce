package extract

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/freakspace/leadtool/internal/content"
	"github.com/freakspace/leadtool/internal/llm"
	"github.com/freakspace/leadtool/internal/model"
	"github.com/freakspace/leadtool/internal/store"
)

// State is the position of one link in the extraction state machine.
type State int

const (
	StatePending State = iota
	StateAttempting
	StateSatisfied
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateSatisfied:
		return "satisfied"
	case StateExhausted:
		return "exhausted"
	default:
		return "pending"
	}
}

// Outcome is the terminal state of Extract.
type Outcome struct {
	State    State
	Attempts int
	Result   Result
}

// Updater writes partial link updates.
type Updater interface {
	Update(ctx context.Context, id int64, u store.LinkUpdate) error
}

// Config controls the attempt loop.
type Config struct {
	Fields         []string
	MaxAttempts    int
	AttemptTimeout time.Duration
	Vocabulary     []string
}

// Orchestrator drives a link through extraction attempts and persists the
// outcome.
type Orchestrator struct {
	client  *Client
	fetcher content.Fetcher
	store   Updater
	cfg     Config
	log     *zap.Logger
}

// NewOrchestrator wires an orchestrator. Zero MaxAttempts and AttemptTimeout
// fall back to 2 and 20s.
func NewOrchestrator(client *Client, fetcher content.Fetcher, st Updater, cfg Config) *Orchestrator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 2
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 20 * time.Second
	}
	return &Orchestrator{
		client:  client,
		fetcher: fetcher,
		store:   st,
		cfg:     cfg,
		log:     zap.L().Named("extract"),
	}
}

// Extract runs the attempt loop over content. Decode failures and attempt
// timeouts are logged and spend a budget slot; any other error aborts.
func (o *Orchestrator) Extract(ctx context.Context, text string) (Outcome, error) {
	out := Outcome{State: StatePending, Result: Result{}}

	for !out.Result.Has(o.cfg.Fields) && out.Attempts < o.cfg.MaxAttempts {
		out.State = StateAttempting

		req := ExtractionRequest{
			Content:    text,
			Fields:     o.cfg.Fields,
			Vocabulary: o.cfg.Vocabulary,
		}
		if out.Attempts > 0 {
			req.Reminder = out.Result.Missing(o.cfg.Fields)
		}

		out.Attempts++
		res, err := o.attempt(ctx, req)
		if err != nil {
			if !recoverable(err) {
				return out, err
			}
			o.log.Warn("extract: attempt failed",
				zap.Int("attempt", out.Attempts),
				zap.Int("max_attempts", o.cfg.MaxAttempts),
				zap.Error(err),
			)
			continue
		}
		out.Result.Merge(res)
	}

	out.State = StateExhausted
	if out.Result.Has(o.cfg.Fields) {
		out.State = StateSatisfied
	}
	return out, nil
}

func (o *Orchestrator) attempt(ctx context.Context, req ExtractionRequest) (Result, error) {
	raw, err := llm.Within(ctx, o.cfg.AttemptTimeout, func(ctx context.Context) (string, error) {
		return o.client.Extract(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return DecodeResult(raw)
}

func recoverable(err error) bool {
	return errors.Is(err, ErrDecode) || errors.Is(err, llm.ErrAttemptTimeout)
}

// Run extracts fields for one link and writes them back. Parsed is set on
// every terminal state; a link whose capture is empty is marked invalid.
func (o *Orchestrator) Run(ctx context.Context, link *model.Link) error {
	log := o.log.With(zap.Int64("link_id", link.ID), zap.String("domain", link.Domain))

	text, err := o.fetcher.Text(ctx, link)
	if err != nil {
		return eris.Wrapf(err, "extract: load content for link %d", link.ID)
	}
	if strings.TrimSpace(text) == "" {
		log.Warn("extract: empty content, marking invalid")
		if err := o.store.Update(ctx, link.ID, store.LinkUpdate{Invalid: store.Ptr(true)}); err != nil {
			return eris.Wrapf(err, "extract: mark link %d invalid", link.ID)
		}
		return nil
	}

	out, err := o.Extract(ctx, text)
	if err != nil {
		return eris.Wrapf(err, "extract: link %d", link.ID)
	}

	upd := store.LinkUpdate{Parsed: store.Ptr(true)}
	if len(out.Result) > 0 {
		cols, ignored := out.Result.Columns()
		if len(ignored) > 0 {
			log.Debug("extract: ignoring keys without a column", zap.Strings("keys", ignored))
		}
		upd.Fields = cols
	} else {
		log.Warn("extract: no data extracted", zap.Int("attempts", out.Attempts))
	}

	if err := o.store.Update(ctx, link.ID, upd); err != nil {
		return eris.Wrapf(err, "extract: write link %d", link.ID)
	}

	log.Info("extract: link parsed",
		zap.Stringer("state", out.State),
		zap.Int("attempts", out.Attempts),
		zap.Int("fields", len(upd.Fields)),
		zap.Strings("missing", out.Result.Missing(o.cfg.Fields)),
	)
	return nil
}
