package classify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/freakspace/leadtool/internal/content"
	"github.com/freakspace/leadtool/internal/llm"
	"github.com/freakspace/leadtool/internal/model"
)

func visionRequest(req llm.Request) bool {
	return req.Mode == llm.ModeText &&
		req.Phase == "classify" &&
		req.Image != nil &&
		req.Image.MediaType == "image/png" &&
		strings.Contains(req.System, "classification")
}

func TestOrchestrator_Run_CascadesAtThreshold(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, mock.MatchedBy(visionRequest)).
		Return(`{"classification": 6, "description": "Dated design"}`, nil).Once()

	ex := &mockExtractor{}
	ex.On("Run", mock.Anything, mock.MatchedBy(func(l *model.Link) bool {
		return l.ID == 1 && l.Classification == 6
	})).Return(nil).Once()

	st := &fakeStore{}
	o := NewOrchestrator(c, &fakeFetcher{img: png}, st, ex, Config{Threshold: 6})

	require.NoError(t, o.Run(context.Background(), &model.Link{ID: 1, Domain: "acme.dk"}))

	require.Len(t, st.updates, 1)
	assert.Equal(t, 6, *st.updates[0].Classification)
	assert.Equal(t, "Dated design", *st.updates[0].Description)
	c.AssertExpectations(t)
	ex.AssertExpectations(t)
}

func TestOrchestrator_Run_NoCascadeAboveThreshold(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, mock.Anything).
		Return(`{"classification": 7, "description": "Modern"}`, nil).Once()

	ex := &mockExtractor{}
	st := &fakeStore{}
	o := NewOrchestrator(c, &fakeFetcher{img: png}, st, ex, Config{Threshold: 6})

	require.NoError(t, o.Run(context.Background(), &model.Link{ID: 2}))

	require.Len(t, st.updates, 1)
	assert.Equal(t, 7, *st.updates[0].Classification)
	ex.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestOrchestrator_Run_FractionalScoreAboveThreshold(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, mock.Anything).
		Return(`{"classification": 6.4, "description": "Mostly modern"}`, nil).Once()

	ex := &mockExtractor{}
	st := &fakeStore{}
	o := NewOrchestrator(c, &fakeFetcher{img: png}, st, ex, Config{Threshold: 6})

	link := &model.Link{ID: 4}
	require.NoError(t, o.Run(context.Background(), link))

	require.Len(t, st.updates, 1)
	assert.Equal(t, 6, *st.updates[0].Classification)
	assert.Equal(t, 6, link.Classification)
	ex.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestOrchestrator_Run_MissingScreenshot(t *testing.T) {
	c := &mockCompleter{}
	st := &fakeStore{}
	o := NewOrchestrator(c, &fakeFetcher{err: content.ErrMissingAsset}, st, nil, Config{})

	err := o.Run(context.Background(), &model.Link{ID: 3})
	assert.ErrorIs(t, err, content.ErrMissingAsset)
	assert.Empty(t, st.updates)
	c.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestOrchestrator_Run_RetriesUndecodableReplies(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, mock.Anything).Return("I think it looks fine", nil).Once()
	c.On("Complete", mock.Anything, mock.Anything).Return("```json\n{\"classification\": \"8\"}\n```", nil).Once()

	st := &fakeStore{}
	o := NewOrchestrator(c, &fakeFetcher{img: png}, st, nil, Config{MaxAttempts: 2})

	require.NoError(t, o.Run(context.Background(), &model.Link{ID: 4}))
	require.Len(t, st.updates, 1)
	assert.Equal(t, 8, *st.updates[0].Classification)
	assert.Nil(t, st.updates[0].Description)
	c.AssertNumberOfCalls(t, "Complete", 2)
}

func TestOrchestrator_Run_Unclassified(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, mock.Anything).Return(`{"classification": 42}`, nil)

	st := &fakeStore{}
	ex := &mockExtractor{}
	o := NewOrchestrator(c, &fakeFetcher{img: png}, st, ex, Config{MaxAttempts: 3})

	err := o.Run(context.Background(), &model.Link{ID: 5})
	assert.ErrorIs(t, err, ErrUnclassified)
	assert.Empty(t, st.updates)
	c.AssertNumberOfCalls(t, "Complete", 3)
	ex.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestOrchestrator_Run_AttemptTimeout(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return("", context.DeadlineExceeded)

	st := &fakeStore{}
	o := NewOrchestrator(c, &fakeFetcher{img: png}, st, nil, Config{MaxAttempts: 2, AttemptTimeout: 10 * time.Millisecond})

	err := o.Run(context.Background(), &model.Link{ID: 6})
	assert.ErrorIs(t, err, ErrUnclassified)
	assert.Empty(t, st.updates)
}

func TestOrchestrator_Run_ServiceErrorIsFatal(t *testing.T) {
	boom := errors.New("overloaded")
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, mock.Anything).Return("", boom).Once()

	st := &fakeStore{}
	o := NewOrchestrator(c, &fakeFetcher{img: png}, st, nil, Config{MaxAttempts: 3})

	err := o.Run(context.Background(), &model.Link{ID: 7})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, st.updates)
	c.AssertNumberOfCalls(t, "Complete", 1)
}

func TestOrchestrator_Run_CascadeError(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, mock.Anything).Return(`{"classification": 3}`, nil)

	boom := errors.New("extraction failed")
	ex := &mockExtractor{}
	ex.On("Run", mock.Anything, mock.Anything).Return(boom)

	st := &fakeStore{}
	o := NewOrchestrator(c, &fakeFetcher{img: png}, st, ex, Config{})

	err := o.Run(context.Background(), &model.Link{ID: 8})
	assert.ErrorIs(t, err, boom)
	require.Len(t, st.updates, 1, "classification is written before the cascade")
}

func TestOrchestrator_Run_StoreError(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, mock.Anything).Return(`{"classification": 3}`, nil)

	ex := &mockExtractor{}
	o := NewOrchestrator(c, &fakeFetcher{img: png}, &fakeStore{err: errors.New("locked")}, ex, Config{})

	err := o.Run(context.Background(), &model.Link{ID: 9})
	require.Error(t, err)
	ex.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestNewOrchestrator_Defaults(t *testing.T) {
	o := NewOrchestrator(nil, nil, nil, nil, Config{Threshold: -1})
	assert.Equal(t, 1, o.cfg.MaxAttempts)
	assert.Equal(t, 20*time.Second, o.cfg.AttemptTimeout)
	assert.Equal(t, DefaultThreshold, o.cfg.Threshold)
}
