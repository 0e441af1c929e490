package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"git.tdpain.net/codemicro/vecnews/aggregator"
	"git.tdpain.net/codemicro/vecnews/posts"
)

type Deps struct {
	Aggregator *aggregator.Aggregator
	Posts      *posts.Store

	// RateLimit is the sustained number of requests per second allowed per
	// client. Zero disables rate limiting.
	RateLimit float64
	RateBurst int
	// TrustProxy makes the rate limiter identify clients by X-Forwarded-For.
	// Only set it when every request arrives through a reverse proxy that
	// overwrites the header.
	TrustProxy bool
}

type endpoints struct {
	Aggregator *aggregator.Aggregator
	Posts      *posts.Store
}

// NewHandler returns the complete HTTP surface: the JSON API under /api and
// the HTML pages.
func NewHandler(deps Deps) http.Handler {
	e := &endpoints{Aggregator: deps.Aggregator, Posts: deps.Posts}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(rw http.ResponseWriter, _ *http.Request) {
		writeJSON(rw, http.StatusOK, map[string]string{"status": "ok"})
	})

	handle(mux, "GET /api/categories", "categories", e.apiCategories)
	handle(mux, "GET /api/feed", "feed", e.apiFeed)
	handle(mux, "GET /api/search", "search", e.apiSearch)
	handle(mux, "GET /api/posts", "listPosts", e.apiListPosts)
	handle(mux, "POST /api/posts", "createPost", e.apiCreatePost)
	handle(mux, "GET /api/posts/{id}", "getPost", e.apiGetPost)
	handle(mux, "PUT /api/posts/{id}", "updatePost", e.apiUpdatePost)
	handle(mux, "DELETE /api/posts/{id}", "deletePost", e.apiDeletePost)

	handle(mux, "GET /{$}", "feedPage", e.feedPage)
	handle(mux, "GET /posts/new", "newPostPage", e.newPostPage)
	handle(mux, "POST /posts", "createPostForm", e.createPostForm)
	handle(mux, "GET /articles/{id}", "articlePage", e.articlePage)
	handle(mux, "GET /posts/{id}", "postPage", e.postPage)
	handle(mux, "GET /posts/{id}/edit", "editPostPage", e.editPostPage)
	handle(mux, "POST /posts/{id}", "updatePostForm", e.updatePostForm)
	handle(mux, "POST /posts/{id}/delete", "deletePostForm", e.deletePostForm)

	if deps.RateLimit <= 0 {
		return mux
	}
	return newRateLimiter(deps.RateLimit, deps.RateBurst, deps.TrustProxy).Middleware(mux)
}

// respondedError is returned by handlers that have already written an error
// response but still want the cause logged.
type respondedError struct {
	error
}

func logOnly(err error) error {
	return respondedError{err}
}

func handle(mux *http.ServeMux, pattern, name string, fn func(http.ResponseWriter, *http.Request) error) {
	mux.Handle(pattern, http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		if err := fn(rw, req); err != nil {
			slog.Error("error in "+name+" HTTP handler", "error", err, "method", req.Method, "path", req.URL.Path)
			var responded respondedError
			if !errors.As(err, &responded) {
				rw.WriteHeader(http.StatusInternalServerError)
			}
		}
	}))
}

// Listen serves handler on addr until ctx is cancelled, then shuts down
// gracefully.
func Listen(ctx context.Context, addr string, handler http.Handler) error {
	slog.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errChan; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
