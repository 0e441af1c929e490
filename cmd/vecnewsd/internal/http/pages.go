package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"git.tdpain.net/codemicro/vecnews/models"
	"git.tdpain.net/codemicro/vecnews/posts"
	"git.tdpain.net/codemicro/vecnews/transport"
	g "github.com/maragudk/gomponents"
	c "github.com/maragudk/gomponents/components"
	. "github.com/maragudk/gomponents/html"
)

const siteName = "VecNews"

func renderPage(rw http.ResponseWriter, status int, title string, body ...g.Node) error {
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	rw.WriteHeader(status)
	return c.HTML5(c.HTML5Props{
		Title:    title + " - " + siteName,
		Language: "en-GB",
		Head:     []g.Node{Link(g.Attr("rel", "stylesheet"), g.Attr("href", "https://www.tdpain.net/assets/css/ghpages.css"), g.Attr("type", "text/css"))},
		Body: []g.Node{Div(g.Attr("class", "container"),
			Nav(A(g.Attr("href", "/"), g.Text(siteName)), g.Text(" :: "), A(g.Attr("href", "/posts/new"), g.Text("Write a post"))),
			Hr(),
			g.Group(body),
		)},
	}).Render(rw)
}

func notFoundPage(rw http.ResponseWriter) error {
	return renderPage(rw, http.StatusNotFound, "Not found",
		H1(g.Text("Not found")),
		P(g.Text("That article doesn't exist. It may have been deleted or dropped out of the feed.")),
		P(A(g.Attr("href", "/"), g.Text("Back to the feed"))),
	)
}

func feedURL(category models.Category, query string) string {
	v := url.Values{}
	if category != "" {
		v.Set("category", string(category))
	}
	if query != "" {
		v.Set("q", query)
	}
	if len(v) == 0 {
		return "/"
	}
	return "/?" + v.Encode()
}

func (e endpoints) feedPage(rw http.ResponseWriter, req *http.Request) error {
	query := req.URL.Query().Get("q")
	category, err := models.ParseCategory(req.URL.Query().Get("category"))
	if err != nil {
		return renderPage(rw, http.StatusBadRequest, "Unknown category",
			H1(g.Text("Unknown category")),
			P(g.Text(err.Error())),
		)
	}

	articles := e.Aggregator.Search(req.Context(), query, category)

	categories := models.Categories()
	chips := g.Map(len(categories), func(i int) g.Node {
		cat := categories[i]
		// Selecting the active category again clears the filter.
		target := cat
		if cat == category {
			target = ""
		}
		n := A(g.Attr("href", feedURL(target, query)), g.Text(string(cat)))
		if cat == category {
			n = Strong(n)
		}
		return g.Group([]g.Node{n, g.Text(" ")})
	})

	var listing g.Node
	if len(articles) == 0 {
		listing = P(g.Attr("class", "secondary"), g.Text("No articles found. Try a different search or category."))
	} else {
		listing = Ul(g.Group(g.Map(len(articles), func(i int) g.Node {
			return articleCard(articles[i], category, query)
		})))
	}

	return renderPage(rw, http.StatusOK, "Feed",
		H1(g.Text(siteName)),
		g.El("form", g.Attr("method", "get"), g.Attr("action", "/"),
			Input(g.Attr("type", "search"), g.Attr("name", "q"), g.Attr("value", query), g.Attr("placeholder", "Search news")),
			g.If(category != "", Input(g.Attr("type", "hidden"), g.Attr("name", "category"), g.Attr("value", string(category)))),
			Button(g.Attr("type", "submit"), g.Text("Search")),
		),
		P(g.Group(chips)),
		listing,
	)
}

// articleCard links user posts to their stored page. Remote articles only
// exist for the duration of a request, so their link carries the category
// and query needed to fetch them again.
func articleCard(a models.Article, category models.Category, query string) g.Node {
	href := "/posts/" + url.PathEscape(a.ID)
	if !a.IsUserCreated {
		href = "/articles/" + url.PathEscape(a.ID) + strings.TrimPrefix(feedURL(category, query), "/")
	}

	return Li(
		A(g.Attr("href", href), g.Text(a.Title)),
		g.Text(" - "+a.Source+", "+a.PublishedAt.Format("2 Jan 2006")),
		g.If(a.IsUserCreated, Span(g.Attr("class", "secondary"), g.Text(" - your post"))),
		g.If(a.Description != "", P(g.Attr("class", "secondary"), g.Text(a.Description))),
	)
}

func articleDetail(article models.Article) g.Node {
	return g.Group([]g.Node{
		H1(g.Text(article.Title)),
		P(g.Attr("class", "secondary"),
			g.Textf("By %s - %s - %s", article.Author, article.Source, article.PublishedAt.Format("January 2, 2006")),
			g.If(article.Category != "", g.Text(" - "+string(article.Category))),
		),
		g.If(article.ImageURL != "", Img(g.Attr("src", article.ImageURL), g.Attr("alt", article.Title), g.Attr("style", "max-width: 100%"))),
		P(Em(g.Text(article.Description))),
		P(g.Text(article.Content)),
		g.If(article.URL != "", P(A(g.Attr("href", article.URL), g.Attr("rel", "noopener"), g.Attr("target", "_blank"), g.Text("Read the original")))),
		H2(g.Text("Share")),
		Pre(g.Text(article.ShareText())),
	})
}

func (e endpoints) postPage(rw http.ResponseWriter, req *http.Request) error {
	article, err := e.Posts.Get(req.Context(), req.PathValue("id"))
	if errors.Is(err, posts.ErrNotFound) {
		return notFoundPage(rw)
	}
	if err != nil {
		return fmt.Errorf("get post: %w", err)
	}

	editURL := "/posts/" + url.PathEscape(article.ID) + "/edit"
	deleteURL := "/posts/" + url.PathEscape(article.ID) + "/delete"

	return renderPage(rw, http.StatusOK, article.Title,
		articleDetail(article),
		Hr(),
		P(A(g.Attr("href", editURL), g.Text("Edit this post"))),
		g.El("form", g.Attr("method", "post"), g.Attr("action", deleteURL),
			Button(g.Attr("type", "submit"), g.Text("Delete this post")),
		),
	)
}

// articlePage shows an article from the aggregated feed. The feed or search
// that produced the card is run again and the article found by ID, which
// relies on remote IDs being stable across fetches.
func (e endpoints) articlePage(rw http.ResponseWriter, req *http.Request) error {
	query := req.URL.Query().Get("q")
	category, err := models.ParseCategory(req.URL.Query().Get("category"))
	if err != nil {
		return renderPage(rw, http.StatusBadRequest, "Unknown category",
			H1(g.Text("Unknown category")),
			P(g.Text(err.Error())),
		)
	}

	id := req.PathValue("id")
	for _, article := range e.Aggregator.Search(req.Context(), query, category) {
		if article.ID != id {
			continue
		}
		return renderPage(rw, http.StatusOK, article.Title,
			articleDetail(article),
			Hr(),
			P(A(g.Attr("href", feedURL(category, query)), g.Text("Back to the feed"))),
		)
	}
	return notFoundPage(rw)
}

// postForm renders the create and edit forms.
func postForm(action, submitLabel string, inputs transport.Inputs, problems []string) g.Node {
	field := func(label, name, value string, required bool) g.Node {
		return P(
			g.El("label", g.Attr("for", name), g.Text(label)), Br(),
			Input(g.Attr("type", "text"), g.Attr("id", name), g.Attr("name", name), g.Attr("value", value), g.If(required, g.Attr("required"))),
		)
	}

	categories := models.Categories()
	options := []g.Node{Option(g.Attr("value", ""), g.Text("None"))}
	for _, cat := range categories {
		options = append(options, Option(
			g.Attr("value", string(cat)),
			g.If(string(cat) == inputs.Category, g.Attr("selected")),
			g.Text(string(cat)),
		))
	}

	return g.Group([]g.Node{
		g.If(len(problems) != 0, Div(g.Attr("class", "errors"),
			P(Strong(g.Text("Please fix the following:"))),
			Ul(g.Group(g.Map(len(problems), func(i int) g.Node {
				return Li(g.Text(problems[i]))
			}))),
		)),
		g.El("form", g.Attr("method", "post"), g.Attr("action", action),
			field("Title", "title", inputs.Title, true),
			field("Description", "description", inputs.Description, true),
			P(
				g.El("label", g.Attr("for", "content"), g.Text("Content")), Br(),
				Textarea(g.Attr("id", "content"), g.Attr("name", "content"), g.Attr("rows", "10"), g.Attr("required"), g.Text(inputs.Content)),
			),
			field("Author", "author", inputs.Author, false),
			field("Image URL", "imageUrl", inputs.ImageURL, false),
			field("Link to original", "url", inputs.URL, false),
			P(
				g.El("label", g.Attr("for", "category"), g.Text("Category")), Br(),
				Select(g.Attr("id", "category"), g.Attr("name", "category"), g.Group(options)),
			),
			Button(g.Attr("type", "submit"), g.Text(submitLabel)),
		),
	})
}

func formInputs(rw http.ResponseWriter, req *http.Request) (transport.Inputs, error) {
	req.Body = http.MaxBytesReader(rw, req.Body, maxBodyBytes)
	if err := req.ParseForm(); err != nil {
		return transport.Inputs{}, err
	}
	return transport.Inputs{
		Title:       req.PostFormValue("title"),
		Description: req.PostFormValue("description"),
		Content:     req.PostFormValue("content"),
		Author:      req.PostFormValue("author"),
		ImageURL:    req.PostFormValue("imageUrl"),
		URL:         req.PostFormValue("url"),
		Category:    req.PostFormValue("category"),
	}, nil
}

func (e endpoints) newPostPage(rw http.ResponseWriter, _ *http.Request) error {
	return renderPage(rw, http.StatusOK, "Write a post",
		H1(g.Text("Write a post")),
		postForm("/posts", "Publish", transport.Inputs{}, nil),
	)
}

func (e endpoints) createPostForm(rw http.ResponseWriter, req *http.Request) error {
	inputs, err := formInputs(rw, req)
	if err != nil {
		rw.WriteHeader(http.StatusBadRequest)
		return nil
	}

	if err := inputs.Validate(); err != nil {
		return renderPage(rw, http.StatusBadRequest, "Write a post",
			H1(g.Text("Write a post")),
			postForm("/posts", "Publish", inputs, transport.Problems(err)),
		)
	}

	article := inputs.Article(time.Now())
	if err := e.Posts.Create(req.Context(), article); err != nil {
		if rerr := renderPage(rw, http.StatusInternalServerError, "Write a post",
			H1(g.Text("Write a post")),
			postForm("/posts", "Publish", inputs, []string{publishFailedMessage}),
		); rerr != nil {
			return rerr
		}
		// The response has been written, so the failure is only logged.
		return logOnly(fmt.Errorf("create post: %w", err))
	}

	http.Redirect(rw, req, "/posts/"+url.PathEscape(article.ID), http.StatusSeeOther)
	return nil
}

func (e endpoints) editPostPage(rw http.ResponseWriter, req *http.Request) error {
	article, err := e.Posts.Get(req.Context(), req.PathValue("id"))
	if errors.Is(err, posts.ErrNotFound) {
		return notFoundPage(rw)
	}
	if err != nil {
		return fmt.Errorf("get post: %w", err)
	}

	return renderPage(rw, http.StatusOK, "Edit post",
		H1(g.Text("Edit post")),
		postForm("/posts/"+url.PathEscape(article.ID), "Save changes", transport.FromArticle(article), nil),
	)
}

func (e endpoints) updatePostForm(rw http.ResponseWriter, req *http.Request) error {
	id := req.PathValue("id")
	action := "/posts/" + url.PathEscape(id)

	existing, err := e.Posts.Get(req.Context(), id)
	if errors.Is(err, posts.ErrNotFound) {
		return notFoundPage(rw)
	}
	if err != nil {
		return fmt.Errorf("get post: %w", err)
	}

	inputs, err := formInputs(rw, req)
	if err != nil {
		rw.WriteHeader(http.StatusBadRequest)
		return nil
	}

	if err := inputs.Validate(); err != nil {
		return renderPage(rw, http.StatusBadRequest, "Edit post",
			H1(g.Text("Edit post")),
			postForm(action, "Save changes", inputs, transport.Problems(err)),
		)
	}

	if err := e.Posts.Update(req.Context(), id, inputs.Apply(existing)); err != nil {
		if rerr := renderPage(rw, http.StatusInternalServerError, "Edit post",
			H1(g.Text("Edit post")),
			postForm(action, "Save changes", inputs, []string{"Failed to update your post. Please try again."}),
		); rerr != nil {
			return rerr
		}
		return logOnly(fmt.Errorf("update post: %w", err))
	}

	http.Redirect(rw, req, action, http.StatusSeeOther)
	return nil
}

func (e endpoints) deletePostForm(rw http.ResponseWriter, req *http.Request) error {
	id := req.PathValue("id")
	if err := e.Posts.Delete(req.Context(), id); err != nil {
		if rerr := renderPage(rw, http.StatusInternalServerError, "Delete failed",
			H1(g.Text("Delete failed")),
			P(g.Text("Failed to delete your post. Please try again.")),
			P(A(g.Attr("href", "/posts/"+url.PathEscape(id)), g.Text("Back to the post"))),
		); rerr != nil {
			return rerr
		}
		return logOnly(fmt.Errorf("delete post: %w", err))
	}
	http.Redirect(rw, req, "/", http.StatusSeeOther)
	return nil
}
