package harvest

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// LinkStore is the subset of the store used to register domains.
type LinkStore interface {
	CreateLink(ctx context.Context, domain string) (bool, error)
	CheckSent(ctx context.Context, domain, email string) (bool, error)
}

// Stats counts the outcome of one import.
type Stats struct {
	Read      int `json:"read"`
	Created   int `json:"created"`
	Duplicate int `json:"duplicate"`
	Contacted int `json:"contacted"`
	Invalid   int `json:"invalid"`
}

// Harvester registers harvested values as links.
type Harvester struct {
	store LinkStore
}

// NewHarvester returns a harvester writing to st.
func NewHarvester(st LinkStore) *Harvester {
	return &Harvester{store: st}
}

// Import normalizes each value to a domain and creates a link for it,
// skipping values without a domain and domains that were already emailed.
func (h *Harvester) Import(ctx context.Context, values []string) (Stats, error) {
	var s Stats
	for _, v := range values {
		if err := ctx.Err(); err != nil {
			return s, eris.Wrap(err, "harvest: import canceled")
		}
		s.Read++

		domain := ExtractDomain(v)
		if domain == "" {
			s.Invalid++
			continue
		}

		sent, err := h.store.CheckSent(ctx, domain, "")
		if err != nil {
			return s, eris.Wrapf(err, "harvest: check sent %s", domain)
		}
		if sent {
			s.Contacted++
			continue
		}

		created, err := h.store.CreateLink(ctx, domain)
		if err != nil {
			return s, eris.Wrapf(err, "harvest: create link %s", domain)
		}
		if created {
			s.Created++
		} else {
			s.Duplicate++
		}
	}

	zap.L().Info("harvest: import complete",
		zap.Int("read", s.Read),
		zap.Int("created", s.Created),
		zap.Int("duplicate", s.Duplicate),
		zap.Int("contacted", s.Contacted),
		zap.Int("invalid", s.Invalid),
	)
	return s, nil
}
