package export

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freakspace/leadtool/internal/model"
	"github.com/freakspace/leadtool/internal/store"
)

type fakeLister struct {
	links  []model.Link
	err    error
	filter store.LinkFilter
}

func (f *fakeLister) ListLinks(_ context.Context, filter store.LinkFilter) ([]model.Link, error) {
	f.filter = filter
	return f.links, f.err
}

func TestLeads(t *testing.T) {
	st := &fakeLister{links: []model.Link{
		{
			ID: 1, Domain: "acme.dk", Parsed: true,
			Email: model.Value("john@acme.dk"), ContactName: model.Value("John"),
			Pronoun: model.Value("du"), Industry: model.Value("Roofing"),
			City: model.Value("Aarhus"), Area: model.None(), Classification: 5,
		},
		{ID: 2, Domain: "none.dk", Parsed: true, Email: model.None()},
		{ID: 3, Domain: "unknown.dk", Parsed: true},
	}}

	var buf bytes.Buffer
	n, err := Leads(context.Background(), st, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NotNil(t, st.filter.Parsed)
	assert.True(t, *st.filter.Parsed)
	require.NotNil(t, st.filter.Invalid)
	assert.False(t, *st.filter.Invalid)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,domain,email,contact_name,pronoun,industry,city,area,classification", lines[0])
	assert.Equal(t, "1,acme.dk,john@acme.dk,John,du,Roofing,Aarhus,,5", lines[1])
}

func TestLeads_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	n, err := Leads(context.Background(), &fakeLister{}, &buf)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "id,domain,email,contact_name,pronoun,industry,city,area,classification\n", buf.String())
}

func TestLeads_StoreError(t *testing.T) {
	var buf bytes.Buffer
	_, err := Leads(context.Background(), &fakeLister{err: errors.New("db closed")}, &buf)
	assert.Error(t, err)
	assert.Empty(t, buf.String())
}
