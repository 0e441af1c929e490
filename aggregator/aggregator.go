// Package aggregator combines a user's local posts with articles from a
// remote news source into the list shown to a reader.
package aggregator

import (
	"context"
	"log/slog"
	"strings"

	"git.tdpain.net/codemicro/vecnews/models"
	"golang.org/x/sync/errgroup"
)

// NewsSource supplies remote articles. The zero Category means no filter.
type NewsSource interface {
	TopHeadlines(ctx context.Context, category models.Category) ([]models.Article, error)
	Search(ctx context.Context, query string) ([]models.Article, error)
}

// PostLister supplies the user's local posts.
type PostLister interface {
	List(ctx context.Context) ([]models.Article, error)
}

// Aggregator never caches and never retries. Every call queries both
// collaborators once, and a failure in either becomes an empty contribution
// rather than an error.
type Aggregator struct {
	source NewsSource
	local  PostLister
}

func New(source NewsSource, local PostLister) *Aggregator {
	return &Aggregator{source: source, local: local}
}

// LoadFeed returns the local posts followed by the top headlines for
// category.
func (a *Aggregator) LoadFeed(ctx context.Context, category models.Category) []models.Article {
	return a.gather(ctx,
		func(ctx context.Context) ([]models.Article, error) {
			return a.source.TopHeadlines(ctx, category)
		},
		func(models.Article) bool { return true },
		"category", category,
	)
}

// Search returns the local posts whose title or description contains query,
// followed by the remote search results. The category only applies when
// query is blank, in which case Search is LoadFeed.
func (a *Aggregator) Search(ctx context.Context, query string, category models.Category) []models.Article {
	query = strings.TrimSpace(query)
	if query == "" {
		return a.LoadFeed(ctx, category)
	}

	return a.gather(ctx,
		func(ctx context.Context) ([]models.Article, error) {
			return a.source.Search(ctx, query)
		},
		func(article models.Article) bool { return article.Matches(query) },
		"query", query,
	)
}

func (a *Aggregator) gather(
	ctx context.Context,
	fetchRemote func(context.Context) ([]models.Article, error),
	keepLocal func(models.Article) bool,
	logArgs ...any,
) []models.Article {
	var (
		local  []models.Article
		remote []models.Article
		eg     errgroup.Group
	)

	eg.Go(func() error {
		articles, err := a.local.List(ctx)
		if err != nil {
			slog.Error("unable to read local posts, continuing without them", append([]any{"error", err}, logArgs...)...)
			return nil
		}
		for _, article := range articles {
			if keepLocal(article) {
				local = append(local, article)
			}
		}
		return nil
	})

	eg.Go(func() error {
		articles, err := fetchRemote(ctx)
		if err != nil {
			slog.Warn("unable to fetch remote articles, continuing without them", append([]any{"error", err}, logArgs...)...)
			return nil
		}
		remote = articles
		return nil
	})

	_ = eg.Wait()
	return merge(local, remote)
}

// merge concatenates local and remote, dropping any remote article whose ID
// has already been used.
func merge(local, remote []models.Article) []models.Article {
	o := make([]models.Article, 0, len(local)+len(remote))
	seen := make(map[string]struct{}, len(local)+len(remote))

	for _, article := range local {
		seen[article.ID] = struct{}{}
		o = append(o, article)
	}
	for _, article := range remote {
		if _, dup := seen[article.ID]; dup {
			slog.Debug("dropping remote article with duplicate id", "id", article.ID)
			continue
		}
		seen[article.ID] = struct{}{}
		o = append(o, article)
	}
	return o
}
