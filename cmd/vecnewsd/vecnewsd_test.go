package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"git.tdpain.net/codemicro/vecnews/aggregator"
	"git.tdpain.net/codemicro/vecnews/cmd/vecnewsd/internal/config"
	"git.tdpain.net/codemicro/vecnews/events"
	"git.tdpain.net/codemicro/vecnews/kv"
	"git.tdpain.net/codemicro/vecnews/models"
	"git.tdpain.net/codemicro/vecnews/posts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource []models.Article

func (s staticSource) TopHeadlines(context.Context, models.Category) ([]models.Article, error) {
	return s, nil
}

func (s staticSource) Search(context.Context, string) ([]models.Article, error) {
	return s, nil
}

func testConfig() (*config.Config, error) {
	return &config.Config{LogLevel: slog.LevelError, KafkaTopic: events.DefaultTopic}, nil
}

// cli runs vecnewsd commands against one in-memory store.
type cli struct {
	mem    *kv.Memory
	source staticSource
}

func newCLI() *cli {
	return &cli{
		mem: kv.NewMemory(),
		source: staticSource{{
			ID:          "news-1",
			Title:       "Remote headline",
			Source:      "Wire",
			PublishedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		}},
	}
}

func (c *cli) open(context.Context, *config.Config) (*backend, error) {
	store := posts.New(c.mem)
	return &backend{Posts: store, Aggregator: aggregator.New(c.source, store)}, nil
}

func (c *cli) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(testConfig, c.open)
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPostCommands(t *testing.T) {
	c := newCLI()

	out, err := c.run(t, "post", "create", "--title", "My post", "--description", "About things", "--content", "Words", "--category", "science")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(id, "user-post-"))

	out, err = c.run(t, "post", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "My post")

	out, err = c.run(t, "post", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "By Anonymous - VecNews")
	assert.Contains(t, out, "About things")

	_, err = c.run(t, "post", "update", id, "--title", "Renamed")
	require.NoError(t, err)

	out, err = c.run(t, "post", "list", "--json")
	require.NoError(t, err)
	var listed []models.Article
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Renamed", listed[0].Title)
	assert.Equal(t, "About things", listed[0].Description)
	assert.Equal(t, models.CategoryScience, listed[0].Category)

	_, err = c.run(t, "post", "delete", id)
	require.NoError(t, err)

	out, err = c.run(t, "post", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No articles found.")

	_, err = c.run(t, "post", "show", id)
	assert.ErrorContains(t, err, "no post with ID")
}

func TestPostCreateValidation(t *testing.T) {
	c := newCLI()

	_, err := c.run(t, "post", "create", "--title", "Only a title")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Description is required")

	list, err := posts.New(c.mem).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPostCreatePersistenceFailure(t *testing.T) {
	c := newCLI()
	c.mem.FailWrites(true)

	_, err := c.run(t, "post", "create", "--title", "T", "--description", "D", "--content", "C")
	require.Error(t, err)
	assert.ErrorIs(t, err, posts.ErrPersistence)
}

func TestFeedAndSearchCommands(t *testing.T) {
	c := newCLI()
	_, err := c.run(t, "post", "create", "--title", "Local rocket", "--description", "D", "--content", "C")
	require.NoError(t, err)

	out, err := c.run(t, "feed", "--json")
	require.NoError(t, err)
	var feed []models.Article
	require.NoError(t, json.Unmarshal([]byte(out), &feed))
	require.Len(t, feed, 2)
	assert.True(t, feed[0].IsUserCreated)
	assert.Equal(t, "news-1", feed[1].ID)

	out, err = c.run(t, "search", "nothing-local")
	require.NoError(t, err)
	assert.NotContains(t, out, "Local rocket")
	assert.Contains(t, out, "Remote headline")

	_, err = c.run(t, "feed", "--category", "weather")
	assert.ErrorIs(t, err, models.ErrUnknownCategory)
}

func TestOpenBackendInMemory(t *testing.T) {
	conf := &config.Config{
		Store:        kv.Options{Backend: kv.BackendMemory},
		NewsProvider: config.ProviderNewsAPI,
		KafkaTopic:   events.DefaultTopic,
		FetchTimeout: time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, err := openBackend(ctx, conf)
	require.NoError(t, err)

	require.NoError(t, b.Posts.Create(ctx, models.Article{ID: "user-post-1", Title: "Mine", IsUserCreated: true}))

	// Without an API key the news provider serves its sample articles.
	feed := b.Aggregator.LoadFeed(ctx, "")
	require.Len(t, feed, 4)
	assert.Equal(t, "user-post-1", feed[0].ID)

	assert.NoError(t, b.Close())
}
