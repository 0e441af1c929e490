package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"git.tdpain.net/codemicro/vecnews/models"
	"git.tdpain.net/codemicro/vecnews/posts"
	"git.tdpain.net/codemicro/vecnews/transport"
)

const (
	publishFailedMessage = "Failed to publish your post. Please try again."

	// maxBodyBytes caps JSON and form request bodies.
	maxBodyBytes = 1 << 20
)

func writeJSON(rw http.ResponseWriter, status int, data any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(data)
}

func writeJSONError(rw http.ResponseWriter, status int, message string, problems ...string) {
	body := map[string]any{"error": message}
	if len(problems) != 0 {
		body["problems"] = problems
	}
	writeJSON(rw, status, body)
}

// categoryParam parses the category query parameter. ok is false if a
// response has already been written.
func categoryParam(rw http.ResponseWriter, req *http.Request) (models.Category, bool) {
	category, err := models.ParseCategory(req.URL.Query().Get("category"))
	if err != nil {
		writeJSONError(rw, http.StatusBadRequest, err.Error())
		return "", false
	}
	return category, true
}

func (e endpoints) apiCategories(rw http.ResponseWriter, _ *http.Request) error {
	writeJSON(rw, http.StatusOK, models.Categories())
	return nil
}

func (e endpoints) apiFeed(rw http.ResponseWriter, req *http.Request) error {
	category, ok := categoryParam(rw, req)
	if !ok {
		return nil
	}
	writeJSON(rw, http.StatusOK, e.Aggregator.LoadFeed(req.Context(), category))
	return nil
}

func (e endpoints) apiSearch(rw http.ResponseWriter, req *http.Request) error {
	category, ok := categoryParam(rw, req)
	if !ok {
		return nil
	}
	writeJSON(rw, http.StatusOK, e.Aggregator.Search(req.Context(), req.URL.Query().Get("q"), category))
	return nil
}

func (e endpoints) apiListPosts(rw http.ResponseWriter, req *http.Request) error {
	// List degrades to an empty slice and logs the cause itself.
	articles, _ := e.Posts.List(req.Context())
	writeJSON(rw, http.StatusOK, articles)
	return nil
}

func decodeInputs(rw http.ResponseWriter, req *http.Request) (*transport.Inputs, bool) {
	inputs := new(transport.Inputs)
	if err := json.NewDecoder(http.MaxBytesReader(rw, req.Body, maxBodyBytes)).Decode(inputs); err != nil {
		writeJSONError(rw, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	if err := inputs.Validate(); err != nil {
		writeJSONError(rw, http.StatusBadRequest, "invalid post", transport.Problems(err)...)
		return nil, false
	}
	return inputs, true
}

func (e endpoints) apiCreatePost(rw http.ResponseWriter, req *http.Request) error {
	inputs, ok := decodeInputs(rw, req)
	if !ok {
		return nil
	}

	article := inputs.Article(time.Now())
	if err := e.Posts.Create(req.Context(), article); err != nil {
		writeJSONError(rw, http.StatusInternalServerError, publishFailedMessage)
		return logOnly(fmt.Errorf("create post: %w", err))
	}

	writeJSON(rw, http.StatusCreated, article)
	return nil
}

func (e endpoints) apiGetPost(rw http.ResponseWriter, req *http.Request) error {
	article, err := e.Posts.Get(req.Context(), req.PathValue("id"))
	if errors.Is(err, posts.ErrNotFound) {
		writeJSONError(rw, http.StatusNotFound, "post not found")
		return nil
	}
	if err != nil {
		return fmt.Errorf("get post: %w", err)
	}
	writeJSON(rw, http.StatusOK, article)
	return nil
}

func (e endpoints) apiUpdatePost(rw http.ResponseWriter, req *http.Request) error {
	id := req.PathValue("id")

	existing, err := e.Posts.Get(req.Context(), id)
	if errors.Is(err, posts.ErrNotFound) {
		writeJSONError(rw, http.StatusNotFound, "post not found")
		return nil
	}
	if err != nil {
		return fmt.Errorf("get post: %w", err)
	}

	inputs, ok := decodeInputs(rw, req)
	if !ok {
		return nil
	}

	updated := inputs.Apply(existing)
	if err := e.Posts.Update(req.Context(), id, updated); err != nil {
		writeJSONError(rw, http.StatusInternalServerError, "Failed to update your post. Please try again.")
		return logOnly(fmt.Errorf("update post: %w", err))
	}

	writeJSON(rw, http.StatusOK, updated)
	return nil
}

func (e endpoints) apiDeletePost(rw http.ResponseWriter, req *http.Request) error {
	if err := e.Posts.Delete(req.Context(), req.PathValue("id")); err != nil {
		writeJSONError(rw, http.StatusInternalServerError, "Failed to delete your post. Please try again.")
		return logOnly(fmt.Errorf("delete post: %w", err))
	}
	rw.WriteHeader(http.StatusNoContent)
	return nil
}
