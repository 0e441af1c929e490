package posts_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"git.tdpain.net/codemicro/vecnews/events"
	"git.tdpain.net/codemicro/vecnews/kv"
	"git.tdpain.net/codemicro/vecnews/models"
	"git.tdpain.net/codemicro/vecnews/posts"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(n int) models.Article {
	return models.Article{
		ID:            fmt.Sprintf("user-post-%d", n),
		Title:         fmt.Sprintf("Post %d", n),
		Description:   "Description",
		Content:       "Content",
		Author:        "Anonymous",
		PublishedAt:   time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC),
		Source:        "VecNews",
		IsUserCreated: true,
	}
}

func ids(articles []models.Article) []string {
	o := make([]string, len(articles))
	for i, a := range articles {
		o[i] = a.ID
	}
	return o
}

func seeded(t *testing.T, n int) (*posts.Store, *kv.Memory) {
	t.Helper()
	mem := kv.NewMemory()
	s := posts.New(mem)
	for i := 1; i <= n; i++ {
		require.NoError(t, s.Create(context.Background(), post(i)))
	}
	return s, mem
}

func TestListEmptyOnFirstRun(t *testing.T) {
	s := posts.New(kv.NewMemory())

	got, err := s.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCreatePrependsAndRoundTrips(t *testing.T) {
	ctx := context.Background()
	s, _ := seeded(t, 2)

	a := post(3)
	a.ImageURL = "https://example.com/a.png"
	a.Category = models.CategoryScience
	require.NoError(t, s.Create(ctx, a))

	got, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"user-post-3", "user-post-2", "user-post-1"}, ids(got))
	if diff := cmp.Diff(a, got[0]); diff != "" {
		t.Errorf("created post differs after round trip (-want +got):\n%s", diff)
	}

	require.NoError(t, s.Delete(ctx, a.ID))
	got, err = s.List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, ids(got), a.ID)
}

func TestFailedCreateLeavesListUnchanged(t *testing.T) {
	ctx := context.Background()
	s, mem := seeded(t, 2)

	before, err := s.List(ctx)
	require.NoError(t, err)

	mem.FailWrites(true)
	err = s.Create(ctx, post(3))
	assert.ErrorIs(t, err, posts.ErrPersistence)
	assert.ErrorIs(t, err, kv.ErrIO)
	mem.FailWrites(false)

	after, err := s.List(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("list changed after failed create (-before +after):\n%s", diff)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := seeded(t, 3)

	require.NoError(t, s.Delete(ctx, "user-post-2"))
	once, err := s.List(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "user-post-2"))
	twice, err := s.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"user-post-3", "user-post-1"}, ids(once))
	assert.Empty(t, cmp.Diff(once, twice))
}

func TestUpdatePreservesOrdering(t *testing.T) {
	ctx := context.Background()
	s, _ := seeded(t, 4)

	replacement := post(2)
	replacement.Title = "Edited"
	require.NoError(t, s.Update(ctx, "user-post-2", replacement))

	got, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"user-post-4", "user-post-3", "user-post-2", "user-post-1"}, ids(got))
	assert.Equal(t, "Edited", got[2].Title)
}

func TestUpdateKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	s, _ := seeded(t, 2)

	replacement := post(9)
	replacement.ID = "something-else"
	replacement.IsUserCreated = false
	require.NoError(t, s.Update(ctx, "user-post-1", replacement))

	got, err := s.Get(ctx, "user-post-1")
	require.NoError(t, err)
	assert.Equal(t, "Post 9", got.Title)
	assert.True(t, got.IsUserCreated)

	_, err = s.Get(ctx, "something-else")
	assert.ErrorIs(t, err, posts.ErrNotFound)
}

func TestUpdateUnknownIsNoOp(t *testing.T) {
	ctx := context.Background()
	s, mem := seeded(t, 2)
	before, _, _ := mem.Get(ctx, posts.DefaultKey)

	require.NoError(t, s.Update(ctx, "missing", post(7)))

	after, _, _ := mem.Get(ctx, posts.DefaultKey)
	assert.Equal(t, before, after)
}

func TestCorruptedStore(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(ctx, posts.DefaultKey, "{not json"))
	s := posts.New(mem)

	got, err := s.List(ctx)
	assert.ErrorIs(t, err, posts.ErrCorruptedStore)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	assert.ErrorIs(t, s.Create(ctx, post(1)), posts.ErrCorruptedStore)
	assert.ErrorIs(t, s.Delete(ctx, "user-post-1"), posts.ErrCorruptedStore)

	raw, _, _ := mem.Get(ctx, posts.DefaultKey)
	assert.Equal(t, "{not json", raw, "corrupted data must not be overwritten")
}

func TestBlankValueIsEmpty(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(ctx, posts.DefaultKey, "  "))

	got, err := posts.New(mem).List(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadFailure(t *testing.T) {
	ctx := context.Background()
	s, mem := seeded(t, 1)
	mem.FailReads(true)

	got, err := s.List(ctx)
	assert.ErrorIs(t, err, kv.ErrIO)
	assert.Empty(t, got)
}

func TestWithKeyIsolatesCollections(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	a := posts.New(mem, posts.WithKey("a"))
	b := posts.New(mem, posts.WithKey("b"))

	require.NoError(t, a.Create(ctx, post(1)))

	got, err := b.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNotifier(t *testing.T) {
	ctx := context.Background()
	var got []events.Event
	n := events.NotifierFunc(func(_ context.Context, ev events.Event) error {
		got = append(got, ev)
		return nil
	})
	s := posts.New(kv.NewMemory(), posts.WithNotifier(n))

	require.NoError(t, s.Create(ctx, post(1)))
	require.NoError(t, s.Update(ctx, "user-post-1", post(1)))
	require.NoError(t, s.Delete(ctx, "user-post-1"))
	require.NoError(t, s.Delete(ctx, "user-post-1"))

	require.Len(t, got, 3)
	assert.Equal(t, events.PostCreated, got[0].Type)
	assert.Equal(t, events.PostUpdated, got[1].Type)
	assert.Equal(t, events.PostDeleted, got[2].Type)
	assert.Equal(t, "user-post-1", got[2].PostID)
}

func TestNotifierErrorDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	n := events.NotifierFunc(func(context.Context, events.Event) error {
		return errors.New("broker down")
	})
	s := posts.New(kv.NewMemory(), posts.WithNotifier(n))

	require.NoError(t, s.Create(ctx, post(1)))
	got, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestNoNotificationOnFailedWrite(t *testing.T) {
	ctx := context.Background()
	called := false
	n := events.NotifierFunc(func(context.Context, events.Event) error {
		called = true
		return nil
	})
	mem := kv.NewMemory()
	mem.FailWrites(true)

	err := posts.New(mem, posts.WithNotifier(n)).Create(ctx, post(1))
	assert.ErrorIs(t, err, posts.ErrPersistence)
	assert.False(t, called)
}
