// Package export writes parsed leads to CSV for outreach tools.
package export

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/freakspace/leadtool/internal/model"
	"github.com/freakspace/leadtool/internal/store"
)

// LinkLister lists links matching a filter.
type LinkLister interface {
	ListLinks(ctx context.Context, filter store.LinkFilter) ([]model.Link, error)
}

// LeadRow is one CSV line.
type LeadRow struct {
	ID             int64  `csv:"id"`
	Domain         string `csv:"domain"`
	Email          string `csv:"email"`
	ContactName    string `csv:"contact_name"`
	Pronoun        string `csv:"pronoun"`
	Industry       string `csv:"industry"`
	City           string `csv:"city"`
	Area           string `csv:"area"`
	Classification int    `csv:"classification"`
}

// NewLeadRow flattens a link. Unknown and none fields export as empty cells.
func NewLeadRow(l *model.Link) LeadRow {
	return LeadRow{
		ID:             l.ID,
		Domain:         l.Domain,
		Email:          cell(l.Email),
		ContactName:    cell(l.ContactName),
		Pronoun:        cell(l.Pronoun),
		Industry:       cell(l.Industry),
		City:           cell(l.City),
		Area:           cell(l.Area),
		Classification: l.Classification,
	}
}

func cell(f model.Field) string {
	if !f.IsSet() {
		return ""
	}
	return f.Value
}

// Leads writes every parsed, valid link with a usable email to w and
// returns the number of rows written.
func Leads(ctx context.Context, st LinkLister, w io.Writer) (int, error) {
	links, err := st.ListLinks(ctx, store.LinkFilter{
		Parsed:  store.Ptr(true),
		Invalid: store.Ptr(false),
	})
	if err != nil {
		return 0, eris.Wrap(err, "export: list leads")
	}

	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(LeadRow{}); err != nil {
		return 0, eris.Wrap(err, "export: write header")
	}

	n := 0
	for i := range links {
		if !links[i].IsLead() {
			continue
		}
		if err := enc.Encode(NewLeadRow(&links[i])); err != nil {
			return n, eris.Wrapf(err, "export: write link %d", links[i].ID)
		}
		n++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, eris.Wrap(err, "export: flush")
	}
	return n, nil
}
