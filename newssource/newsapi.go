package newssource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"git.tdpain.net/codemicro/vecnews/models"
	"github.com/araddon/dateparse"
	"github.com/google/uuid"
)

const (
	DefaultNewsAPIURL = "https://newsapi.org/v2"
	DefaultCountry    = "us"
	DefaultTimeout    = 10 * time.Second
)

// NewsAPI fetches articles from newsapi.org. It never returns an error:
// headline failures fall back to the sample dataset and search failures to
// an empty result, with the cause logged.
type NewsAPI struct {
	baseURL string
	apiKey  string
	country string
	client  *http.Client
	now     func() time.Time
}

type NewsAPIOptions struct {
	BaseURL string
	APIKey  string
	Country string
	Timeout time.Duration
	// Client overrides the HTTP client. Timeout is ignored when set.
	Client *http.Client
}

func NewNewsAPI(opts NewsAPIOptions) *NewsAPI {
	n := &NewsAPI{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		country: opts.Country,
		client:  opts.Client,
		now:     time.Now,
	}
	if n.baseURL == "" {
		n.baseURL = DefaultNewsAPIURL
	}
	if n.country == "" {
		n.country = DefaultCountry
	}
	if n.client == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		n.client = &http.Client{Timeout: timeout}
	}
	return n
}

type newsAPIResponse struct {
	Status   string           `json:"status"`
	Code     string           `json:"code"`
	Message  string           `json:"message"`
	Articles []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		ID   *string `json:"id"`
		Name string  `json:"name"`
	} `json:"source"`
	Author      *string `json:"author"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	URL         string  `json:"url"`
	URLToImage  *string `json:"urlToImage"`
	PublishedAt string  `json:"publishedAt"`
	Content     string  `json:"content"`
}

func (n *NewsAPI) TopHeadlines(ctx context.Context, category models.Category) ([]models.Article, error) {
	if n.apiKey == "" {
		slog.Debug("no NewsAPI key configured, using sample articles")
		return Samples(n.now()), nil
	}

	params := make(url.Values)
	params.Set("country", n.country)
	if category != "" {
		params.Set("category", string(category))
	}

	articles, err := n.query(ctx, "/top-headlines", params)
	if err != nil {
		slog.Warn("NewsAPI headlines request failed, using sample articles", "error", err, "category", category)
		return Samples(n.now()), nil
	}
	if len(articles) == 0 {
		return Samples(n.now()), nil
	}

	o := make([]models.Article, 0, len(articles))
	for _, a := range articles {
		o = append(o, transformNewsAPIArticle(a, category))
	}
	return o, nil
}

func (n *NewsAPI) Search(ctx context.Context, query string) ([]models.Article, error) {
	if n.apiKey == "" {
		return filterSamples(n.now(), query), nil
	}

	params := make(url.Values)
	params.Set("q", query)
	params.Set("sortBy", "publishedAt")

	articles, err := n.query(ctx, "/everything", params)
	if err != nil {
		slog.Warn("NewsAPI search request failed", "error", err, "query", query)
		return []models.Article{}, nil
	}

	o := make([]models.Article, 0, len(articles))
	for _, a := range articles {
		o = append(o, transformNewsAPIArticle(a, ""))
	}
	return o, nil
}

func (n *NewsAPI) query(ctx context.Context, path string, params url.Values) ([]newsAPIArticle, error) {
	params.Set("apiKey", n.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("make http request: %w", err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do http request: %w", err)
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var x newsAPIResponse
	if resp.StatusCode/100 != 2 {
		_ = json.Unmarshal(body, &x)
		return nil, fmt.Errorf("NewsAPI returned status %d: %s %s", resp.StatusCode, x.Code, x.Message)
	}

	if err := json.Unmarshal(body, &x); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return x.Articles, nil
}

func transformNewsAPIArticle(a newsAPIArticle, category models.Category) models.Article {
	description := a.Description
	if description == "" {
		description = "No description available"
	}

	content := a.Content
	if content == "" {
		content = a.Description
	}
	if content == "" {
		content = "Read more at source"
	}

	author := a.Source.Name
	if a.Author != nil && *a.Author != "" {
		author = *a.Author
	}

	var imageURL string
	if a.URLToImage != nil {
		imageURL = *a.URLToImage
	}

	var published time.Time
	if a.PublishedAt != "" {
		t, err := dateparse.ParseAny(a.PublishedAt)
		if err != nil {
			slog.Debug("unparseable publishedAt from NewsAPI", "value", a.PublishedAt, "error", err)
		} else {
			published = t.UTC()
		}
	}

	return models.Article{
		ID:          newsAPIArticleID(a),
		Title:       a.Title,
		Description: description,
		Content:     content,
		Author:      author,
		PublishedAt: published,
		ImageURL:    imageURL,
		Source:      a.Source.Name,
		URL:         a.URL,
		Category:    category,
	}
}

// newsAPIArticleID derives an ID from the article's link so the same article
// keeps its ID across fetches.
func newsAPIArticleID(a newsAPIArticle) string {
	key := a.URL
	if key == "" {
		key = a.Source.Name + "|" + a.Title + "|" + a.PublishedAt
	}
	return "news-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}
