// Package events publishes the lifecycle of user posts to message brokers.
package events

import (
	"context"
	"time"

	"git.tdpain.net/codemicro/vecnews/models"
)

type Type string

const (
	PostCreated Type = "post.created"
	PostUpdated Type = "post.updated"
	PostDeleted Type = "post.deleted"
)

// Event describes one successful change to the local post collection.
// Article is the zero value for deletions.
type Event struct {
	Type    Type           `json:"type"`
	PostID  string         `json:"postId"`
	Article models.Article `json:"article"`
	At      time.Time      `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}
