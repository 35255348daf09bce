package classify

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/freakspace/leadtool/internal/content"
	"github.com/freakspace/leadtool/internal/llm"
	"github.com/freakspace/leadtool/internal/model"
	"github.com/freakspace/leadtool/internal/store"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Run(ctx context.Context, link *model.Link) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

type fakeStore struct {
	mu      sync.Mutex
	updates []store.LinkUpdate
	err     error
}

func (f *fakeStore) Update(_ context.Context, _ int64, u store.LinkUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.updates = append(f.updates, u)
	return nil
}

type fakeFetcher struct {
	img *content.Image
	err error
}

func (f *fakeFetcher) Text(context.Context, *model.Link) (string, error) {
	return "", content.ErrMissingAsset
}

func (f *fakeFetcher) Screenshot(context.Context, *model.Link) (*content.Image, error) {
	return f.img, f.err
}

var png = &content.Image{MediaType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}
