package newssource

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"git.tdpain.net/codemicro/vecnews/models"
	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// Feed is one RSS or Atom feed contributing to the headlines of Category.
type Feed struct {
	URL      string
	Category models.Category
}

// ParseFeeds parses a comma separated list of category=url pairs. A pair
// without a category is filed under general.
func ParseFeeds(s string) ([]Feed, error) {
	var o []Feed
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		feed := Feed{URL: part, Category: models.CategoryGeneral}
		if cat, u, found := strings.Cut(part, "="); found {
			c, err := models.ParseCategory(cat)
			if err != nil {
				return nil, fmt.Errorf("feed %q: %w", part, err)
			}
			if c != "" {
				feed.Category = c
			}
			feed.URL = strings.TrimSpace(u)
		}
		if feed.URL == "" {
			return nil, fmt.Errorf("feed %q has no URL", part)
		}
		o = append(o, feed)
	}
	return o, nil
}

// RSS serves headlines and search results from a fixed set of feeds. Every
// call fetches the relevant feeds concurrently. Feeds that fail are logged
// and skipped; an error is only returned when every feed failed.
type RSS struct {
	feeds   []Feed
	parser  *gofeed.Parser
	timeout time.Duration
}

func NewRSS(feeds []Feed, timeout time.Duration, client *http.Client) *RSS {
	parser := gofeed.NewParser()
	if client != nil {
		parser.Client = client
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &RSS{feeds: feeds, parser: parser, timeout: timeout}
}

var errAllFeedsFailed = errors.New("every feed failed")

type fetchResult struct {
	index    int
	articles []models.Article
	err      error
}

func (r *RSS) TopHeadlines(ctx context.Context, category models.Category) ([]models.Article, error) {
	var feeds []Feed
	for _, f := range r.feeds {
		if category == "" || f.Category == category {
			feeds = append(feeds, f)
		}
	}
	return r.fetchAll(ctx, feeds)
}

func (r *RSS) Search(ctx context.Context, query string) ([]models.Article, error) {
	articles, err := r.fetchAll(ctx, r.feeds)
	if err != nil {
		return nil, err
	}
	o := []models.Article{}
	for _, a := range articles {
		if a.Matches(query) {
			o = append(o, a)
		}
	}
	return o, nil
}

// fetchAll fans out one goroutine per feed and concatenates the results in
// feed order.
func (r *RSS) fetchAll(ctx context.Context, feeds []Feed) ([]models.Article, error) {
	if len(feeds) == 0 {
		return []models.Article{}, nil
	}

	results := make(chan fetchResult, len(feeds))
	var wg sync.WaitGroup
	for i, feed := range feeds {
		wg.Add(1)
		go func(i int, feed Feed) {
			defer wg.Done()
			articles, err := r.fetchFeed(ctx, feed)
			results <- fetchResult{index: i, articles: articles, err: err}
		}(i, feed)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	byFeed := make([][]models.Article, len(feeds))
	failures := 0
	for res := range results {
		if res.err != nil {
			failures++
			slog.Warn("feed fetch failed", "url", feeds[res.index].URL, "error", res.err)
			continue
		}
		byFeed[res.index] = res.articles
	}

	if failures == len(feeds) {
		return nil, errAllFeedsFailed
	}

	o := []models.Article{}
	for _, articles := range byFeed {
		o = append(o, articles...)
	}
	return o, nil
}

func (r *RSS) fetchFeed(ctx context.Context, feed Feed) ([]models.Article, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	parsed, err := r.parser.ParseURLWithContext(feed.URL, fetchCtx)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", feed.URL, err)
	}

	source := parsed.Title
	if source == "" {
		source = feed.URL
	}

	articles := make([]models.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		articles = append(articles, transformFeedItem(item, source, feed))
	}
	return articles, nil
}

func transformFeedItem(item *gofeed.Item, source string, feed Feed) models.Article {
	description := htmlToText(item.Description)
	if description == "" {
		description = "No description available"
	}

	content := htmlToText(item.Content)
	if content == "" {
		content = description
	}

	author := source
	if item.Author != nil && item.Author.Name != "" {
		author = item.Author.Name
	}

	var published time.Time
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		published = item.UpdatedParsed.UTC()
	}

	var imageURL string
	if item.Image != nil {
		imageURL = item.Image.URL
	}

	return models.Article{
		ID:          rssArticleID(feed.URL, item),
		Title:       strings.TrimSpace(item.Title),
		Description: description,
		Content:     content,
		Author:      author,
		PublishedAt: published,
		ImageURL:    imageURL,
		Source:      source,
		URL:         item.Link,
		Category:    feed.Category,
	}
}

// rssArticleID derives a stable ID so the same item keeps its ID across
// fetches.
func rssArticleID(feedURL string, item *gofeed.Item) string {
	key := item.GUID
	if key == "" {
		key = item.Link
	}
	if key == "" {
		key = item.Title
	}
	h := sha256.Sum256([]byte(feedURL + "|" + key))
	return fmt.Sprintf("rss-%x", h[:8])
}

// htmlToText strips markup from feed descriptions, which are frequently
// HTML fragments.
func htmlToText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
