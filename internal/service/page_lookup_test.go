package service

import (
	"context"
	"errors"
	"testing"

	"github.com/healthhub/internal/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFinder struct {
	page   *WebsitePage
	err    error
	cancel context.CancelFunc
	calls  int
}

func (s *stubFinder) GetBySlug(ctx context.Context, slug string) (*WebsitePage, error) {
	s.calls++
	if s.cancel != nil {
		s.cancel()
	}
	return s.page, s.err
}

func TestLookupFollowsPublishLifecycle(t *testing.T) {
	pages := NewPageService(setupServiceTestDB(t))
	lookup := NewPageLookup(pages, nil)
	ctx := context.Background()

	created, err := pages.Create(ctx, aboutUsInput())
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	result := lookup.Resolve(ctx, "about-us")
	assert.Equal(t, LookupNotPublished, result.State)
	assert.Equal(t, MessageNotPublished, result.Message)
	assert.Nil(t, result.Page)
	assert.False(t, result.Notify)

	_, err = pages.Update(ctx, created.ID, PageUpdate{Published: ptr(true)})
	require.NoError(t, err)

	result = lookup.Resolve(ctx, "about-us")
	require.Equal(t, LookupReady, result.State)
	require.NotNil(t, result.Page)
	require.Equal(t, 1, result.Page.Content.Len())
	hero, ok := result.Page.Content.Sections[0].(content.Hero)
	require.True(t, ok)
	assert.Equal(t, "Welcome", hero.Title)
	assert.Empty(t, result.Message)
}

func TestLookupMissingSlug(t *testing.T) {
	lookup := NewPageLookup(NewPageService(setupServiceTestDB(t)), nil)

	result := lookup.Resolve(context.Background(), "missing-page")

	assert.Equal(t, LookupNotFound, result.State)
	assert.Equal(t, MessageNotFound, result.Message)
	assert.False(t, result.Notify)
}

func TestLookupBlankSlugNeverQueries(t *testing.T) {
	finder := &stubFinder{}
	lookup := NewPageLookup(finder, nil)

	result := lookup.Resolve(context.Background(), "   ")

	assert.Equal(t, LookupNotFound, result.State)
	assert.Zero(t, finder.calls)
}

func TestLookupFailureNotifiesOnce(t *testing.T) {
	finder := &stubFinder{err: &PersistenceError{Op: "get", Err: errors.New("disk I/O error")}}
	lookup := NewPageLookup(finder, nil)

	result := lookup.Resolve(context.Background(), "about-us")

	assert.Equal(t, LookupFailed, result.State)
	assert.Equal(t, MessageLoadFailed, result.Message)
	assert.True(t, result.Notify)
	assert.Nil(t, result.Page)
}

func TestLookupDiscardsResultAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	finder := &stubFinder{
		page:   &WebsitePage{Slug: "about-us", Published: true},
		cancel: cancel,
	}
	lookup := NewPageLookup(finder, nil)

	result := lookup.Resolve(ctx, "about-us")

	assert.Equal(t, LookupCanceled, result.State)
	assert.Nil(t, result.Page)
	assert.False(t, result.Notify)
}

func TestDocumentTitle(t *testing.T) {
	cases := []struct {
		page, site, want string
	}{
		{"About", "HealthHub", "About | HealthHub"},
		{"  About  ", "", "About"},
		{"", "HealthHub", "HealthHub"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DocumentTitle(tc.page, tc.site))
	}
}
