package batch

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/freakspace/leadtool/internal/model"
)

var errNotClaimed = errors.New("batch: link leased elsewhere")

// process runs p on link while holding its lease.
func (r *Runner) process(ctx context.Context, owner string, link *model.Link, p Processor) error {
	ok, err := r.leaser.Claim(ctx, link.ID, owner, r.lease)
	if err != nil {
		return eris.Wrapf(err, "batch: claim link %d", link.ID)
	}
	if !ok {
		zap.L().Named("batch").Debug("batch: link leased elsewhere, skipping", zap.Int64("link_id", link.ID))
		return errNotClaimed
	}

	defer func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := r.leaser.Release(rctx, link.ID, owner); err != nil {
			zap.L().Named("batch").Warn("batch: release lease", zap.Int64("link_id", link.ID), zap.Error(err))
		}
	}()

	return p.Run(ctx, link)
}
