package extract

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/freakspace/leadtool/internal/content"
	"github.com/freakspace/leadtool/internal/llm"
	"github.com/freakspace/leadtool/internal/model"
	"github.com/freakspace/leadtool/internal/store"
)

// --- Completer Mock ---

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// reply is one scripted completion.
type reply struct {
	text  string
	err   error
	delay time.Duration
}

// scriptedCompleter answers calls in order, repeating the last reply.
type scriptedCompleter struct {
	mu      sync.Mutex
	replies []reply
	calls   []llm.Request
}

func (s *scriptedCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	i := min(len(s.calls), len(s.replies)-1)
	s.calls = append(s.calls, req)
	r := s.replies[i]
	s.mu.Unlock()

	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return r.text, r.err
}

func (s *scriptedCompleter) requests() []llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Request(nil), s.calls...)
}

// --- Store fake ---

type update struct {
	id int64
	u  store.LinkUpdate
}

type fakeStore struct {
	mu      sync.Mutex
	updates []update
	err     error
}

func (f *fakeStore) Update(_ context.Context, id int64, u store.LinkUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.updates = append(f.updates, update{id, u})
	return nil
}

// --- Fetcher fake ---

type fakeFetcher struct {
	text string
	err  error
}

func (f *fakeFetcher) Text(context.Context, *model.Link) (string, error) {
	return f.text, f.err
}

func (f *fakeFetcher) Screenshot(context.Context, *model.Link) (*content.Image, error) {
	return nil, content.ErrMissingAsset
}

// --- Campaign lister fake ---

type fakeCampaigns struct {
	list []model.Campaign
	err  error
}

func (f *fakeCampaigns) ListCampaigns(context.Context) ([]model.Campaign, error) {
	return f.list, f.err
}

var (
	_ llm.Completer   = (*mockCompleter)(nil)
	_ llm.Completer   = (*scriptedCompleter)(nil)
	_ Updater         = (*fakeStore)(nil)
	_ content.Fetcher = (*fakeFetcher)(nil)
	_ CampaignLister  = (*fakeCampaigns)(nil)
)
