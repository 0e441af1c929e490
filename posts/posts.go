// Package posts is the durable collection of user-authored articles.
//
// The whole collection is stored as one JSON array under a single key, most
// recent first. Every mutation reads the full array, changes it in memory and
// writes the full array back. There is no locking: two writers racing on the
// same key can lose an update (last write wins). The store is intended for a
// single process with a low write rate; safe multi-writer use would need a
// version stamp with compare-and-swap in the backing store.
package posts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"git.tdpain.net/codemicro/vecnews/events"
	"git.tdpain.net/codemicro/vecnews/kv"
	"git.tdpain.net/codemicro/vecnews/models"
)

const DefaultKey = "@vecnews_user_posts"

var (
	// ErrPersistence is returned when an updated collection could not be
	// written. The stored collection is unchanged.
	ErrPersistence = errors.New("unable to persist posts")
	// ErrCorruptedStore is returned when the stored collection cannot be
	// decoded.
	ErrCorruptedStore = errors.New("stored posts are corrupted")
	ErrNotFound       = errors.New("post not found")
)

type Store struct {
	kv       kv.Store
	key      string
	notifier events.Notifier
	now      func() time.Time
}

type Option func(*Store)

// WithKey stores the collection under key instead of DefaultKey.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithNotifier sends an event to n after every successful write.
func WithNotifier(n events.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

func New(store kv.Store, opts ...Option) *Store {
	s := &Store{kv: store, key: DefaultKey, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// load reads the full collection. A missing or blank value is an empty
// collection.
func (s *Store) load(ctx context.Context) ([]models.Article, error) {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("read posts: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []models.Article{}, nil
	}

	var articles []models.Article
	if err := json.Unmarshal([]byte(raw), &articles); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptedStore, err)
	}
	if articles == nil {
		articles = []models.Article{}
	}
	return articles, nil
}

func (s *Store) save(ctx context.Context, articles []models.Article) error {
	b, err := json.Marshal(articles)
	if err != nil {
		return fmt.Errorf("%w: marshal posts: %w", ErrPersistence, err)
	}
	if err := s.kv.Set(ctx, s.key, string(b)); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

func (s *Store) notify(ctx context.Context, typ events.Type, id string, article models.Article) {
	if s.notifier == nil {
		return
	}
	ev := events.Event{Type: typ, PostID: id, Article: article, At: s.now().UTC()}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		slog.Warn("unable to publish post event", "error", err, "type", typ, "id", id)
	}
}

// List returns every stored post, most recently created first.
//
// List always returns a non-nil slice. If the stored collection cannot be
// read or decoded the slice is empty and the cause is returned alongside it
// (and logged), so callers that only want to show what is available can
// ignore the error.
func (s *Store) List(ctx context.Context) ([]models.Article, error) {
	articles, err := s.load(ctx)
	if err != nil {
		slog.Error("unable to list posts", "error", err, "key", s.key)
		return []models.Article{}, err
	}
	return articles, nil
}

// Get returns the post with the given ID.
func (s *Store) Get(ctx context.Context, id string) (models.Article, error) {
	articles, err := s.load(ctx)
	if err != nil {
		return models.Article{}, err
	}
	for _, a := range articles {
		if a.ID == id {
			return a, nil
		}
	}
	return models.Article{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Create prepends article to the collection.
func (s *Store) Create(ctx context.Context, article models.Article) error {
	articles, err := s.load(ctx)
	if err != nil {
		return err
	}

	updated := make([]models.Article, 0, len(articles)+1)
	updated = append(updated, article)
	updated = append(updated, articles...)

	if err := s.save(ctx, updated); err != nil {
		return err
	}
	s.notify(ctx, events.PostCreated, article.ID, article)
	return nil
}

// Update replaces the post with the given ID, keeping its position. The
// stored ID and user-created flag are never changed. Updating an ID that is
// not stored does nothing.
func (s *Store) Update(ctx context.Context, id string, article models.Article) error {
	articles, err := s.load(ctx)
	if err != nil {
		return err
	}

	idx := indexOf(articles, id)
	if idx == -1 {
		slog.Debug("update of unknown post ignored", "id", id)
		return nil
	}

	article.ID = articles[idx].ID
	article.IsUserCreated = articles[idx].IsUserCreated
	articles[idx] = article

	if err := s.save(ctx, articles); err != nil {
		return err
	}
	s.notify(ctx, events.PostUpdated, id, article)
	return nil
}

// Delete removes the post with the given ID. Deleting an ID that is not
// stored does nothing.
func (s *Store) Delete(ctx context.Context, id string) error {
	articles, err := s.load(ctx)
	if err != nil {
		return err
	}

	idx := indexOf(articles, id)
	if idx == -1 {
		slog.Debug("delete of unknown post ignored", "id", id)
		return nil
	}

	updated := make([]models.Article, 0, len(articles)-1)
	updated = append(updated, articles[:idx]...)
	updated = append(updated, articles[idx+1:]...)

	if err := s.save(ctx, updated); err != nil {
		return err
	}
	s.notify(ctx, events.PostDeleted, id, models.Article{})
	return nil
}

func indexOf(articles []models.Article, id string) int {
	for i, a := range articles {
		if a.ID == id {
			return i
		}
	}
	return -1
}
