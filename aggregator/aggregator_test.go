package aggregator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"git.tdpain.net/codemicro/vecnews/aggregator"
	"git.tdpain.net/codemicro/vecnews/kv"
	"git.tdpain.net/codemicro/vecnews/models"
	"git.tdpain.net/codemicro/vecnews/posts"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSource struct {
	mu sync.Mutex

	headlines []models.Article
	results   []models.Article
	err       error
	delay     time.Duration

	gotCategory models.Category
	gotQuery    string
	calls       int
}

func (f *fakeSource) TopHeadlines(_ context.Context, category models.Category) ([]models.Article, error) {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotCategory = category
	return f.headlines, f.err
}

func (f *fakeSource) Search(_ context.Context, query string) ([]models.Article, error) {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotQuery = query
	return f.results, f.err
}

type failingLister struct{}

func (failingLister) List(context.Context) ([]models.Article, error) {
	return []models.Article{}, posts.ErrCorruptedStore
}

func remote(id, title string) models.Article {
	return models.Article{ID: id, Title: title, Description: "remote", Source: "Wire"}
}

func userPost(id, title, description string) models.Article {
	return models.Article{ID: id, Title: title, Description: description, Source: "VecNews", IsUserCreated: true}
}

func localStore(t *testing.T, articles ...models.Article) *posts.Store {
	t.Helper()
	s := posts.New(kv.NewMemory())
	// Create prepends, so insert in reverse to keep the given order.
	for i := len(articles) - 1; i >= 0; i-- {
		require.NoError(t, s.Create(context.Background(), articles[i]))
	}
	return s
}

func assertUserPostsFirst(t *testing.T, articles []models.Article) {
	t.Helper()
	seenRemote := false
	for _, a := range articles {
		if !a.IsUserCreated {
			seenRemote = true
			continue
		}
		assert.False(t, seenRemote, "user post %s appears after a remote article", a.ID)
	}
}

func TestLoadFeedMergesLocalFirst(t *testing.T) {
	local := localStore(t, userPost("u2", "Newest", "d"), userPost("u1", "Older", "d"))
	source := &fakeSource{headlines: []models.Article{remote("r1", "A"), remote("r2", "B")}}

	got := aggregator.New(source, local).LoadFeed(context.Background(), models.CategorySports)

	want := []models.Article{
		userPost("u2", "Newest", "d"),
		userPost("u1", "Older", "d"),
		remote("r1", "A"),
		remote("r2", "B"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected feed (-want +got):\n%s", diff)
	}
	assert.Equal(t, models.CategorySports, source.gotCategory)
	assertUserPostsFirst(t, got)
}

func TestLoadFeedDegradesOnRemoteFailure(t *testing.T) {
	local := localStore(t, userPost("u2", "B", "d"), userPost("u1", "A", "d"))
	source := &fakeSource{headlines: []models.Article{remote("r1", "ignored")}, err: errors.New("boom")}

	got := aggregator.New(source, local).LoadFeed(context.Background(), "")

	stored, err := local.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(stored, got))
}

func TestLoadFeedDegradesOnLocalFailure(t *testing.T) {
	source := &fakeSource{headlines: []models.Article{remote("r1", "A")}}

	got := aggregator.New(source, failingLister{}).LoadFeed(context.Background(), "")

	assert.Empty(t, cmp.Diff([]models.Article{remote("r1", "A")}, got))
}

func TestLoadFeedBothFailing(t *testing.T) {
	source := &fakeSource{err: errors.New("boom")}

	got := aggregator.New(source, failingLister{}).LoadFeed(context.Background(), "")

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLoadFeedRunsConcurrently(t *testing.T) {
	source := &fakeSource{delay: 50 * time.Millisecond, headlines: []models.Article{remote("r1", "A")}}
	local := &slowLister{delay: 50 * time.Millisecond}

	start := time.Now()
	got := aggregator.New(source, local).LoadFeed(context.Background(), "")
	elapsed := time.Since(start)

	assert.Len(t, got, 2)
	assert.Less(t, elapsed, 95*time.Millisecond, "collaborators should be queried in parallel")
}

type slowLister struct {
	delay time.Duration
}

func (s *slowLister) List(context.Context) ([]models.Article, error) {
	time.Sleep(s.delay)
	return []models.Article{userPost("u1", "Slow", "d")}, nil
}

func TestDuplicateRemoteIDsAreDropped(t *testing.T) {
	local := localStore(t, userPost("shared", "Local", "d"))
	source := &fakeSource{headlines: []models.Article{
		remote("shared", "Clash"),
		remote("r1", "A"),
		remote("r1", "A again"),
	}}

	got := aggregator.New(source, local).LoadFeed(context.Background(), "")

	require.Len(t, got, 2)
	assert.Equal(t, "Local", got[0].Title)
	assert.Equal(t, "A", got[1].Title)
}

func TestSearchFiltersLocalPosts(t *testing.T) {
	local := localStore(t,
		userPost("u1", "Ocean Life", "Under the sea"),
		userPost("u2", "Space Race", "Rockets"),
		userPost("u3", "Rivers", "Where they meet the OCEAN"),
	)
	source := &fakeSource{results: []models.Article{remote("r1", "Ocean news")}}

	got := aggregator.New(source, local).Search(context.Background(), "  ocean ", models.CategoryHealth)

	var localIDs []string
	for _, a := range got {
		if a.IsUserCreated {
			localIDs = append(localIDs, a.ID)
		}
	}
	assert.Equal(t, []string{"u1", "u3"}, localIDs)
	assert.Equal(t, "r1", got[len(got)-1].ID)
	assert.Equal(t, "ocean", source.gotQuery)
	assert.Equal(t, models.Category(""), source.gotCategory, "category is not applied to search")
	assertUserPostsFirst(t, got)
}

func TestSearchLocalContributionMatchesTitleOnly(t *testing.T) {
	local := localStore(t, userPost("u1", "Ocean Life", ""), userPost("u2", "Space Race", ""))
	source := &fakeSource{}

	got := aggregator.New(source, local).Search(context.Background(), "ocean", "")

	require.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].ID)
}

func TestSearchBlankQueryLoadsFeed(t *testing.T) {
	local := localStore(t, userPost("u1", "Ocean Life", ""))
	source := &fakeSource{headlines: []models.Article{remote("r1", "Headline")}}

	got := aggregator.New(source, local).Search(context.Background(), " \t", models.CategoryBusiness)

	assert.Equal(t, []string{"u1", "r1"}, []string{got[0].ID, got[1].ID})
	assert.Equal(t, models.CategoryBusiness, source.gotCategory)
	assert.Equal(t, "", source.gotQuery)
}

func TestSearchDegradesOnRemoteFailure(t *testing.T) {
	local := localStore(t, userPost("u1", "Ocean Life", ""))
	source := &fakeSource{err: errors.New("timeout")}

	got := aggregator.New(source, local).Search(context.Background(), "ocean", "")

	require.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].ID)
}

func TestNoCaching(t *testing.T) {
	local := localStore(t)
	source := &fakeSource{headlines: []models.Article{remote("r1", "A")}}
	agg := aggregator.New(source, local)

	agg.LoadFeed(context.Background(), "")
	require.NoError(t, local.Create(context.Background(), userPost("u1", "New", "")))
	got := agg.LoadFeed(context.Background(), "")

	assert.Equal(t, 2, source.calls)
	assert.Equal(t, "u1", got[0].ID, "a post created between calls appears on the next read")
}
