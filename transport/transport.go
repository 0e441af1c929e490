package transport

import (
	"strings"
	"time"

	"git.tdpain.net/codemicro/vecnews/models"
	"github.com/go-playground/validator"
	"github.com/google/uuid"
)

var validate = validator.New()

const (
	DefaultAuthor    = "Anonymous"
	UserSource       = "VecNews"
	userPostIDPrefix = "user-post-"
)

// Inputs represents the data that is expected to be provided when creating or
// editing a user post.
// The `form` struct tags match the field names of the HTML creation form.
type Inputs struct {
	Title       string `json:"title" form:"title" validate:"required"`
	Description string `json:"description" form:"description" validate:"required"`
	Content     string `json:"content" form:"content" validate:"required"`
	Author      string `json:"author" form:"author"`
	ImageURL    string `json:"imageUrl" form:"imageUrl" validate:"omitempty,url"`
	URL         string `json:"url" form:"url" validate:"omitempty,url"`
	Category    string `json:"category" form:"category" validate:"omitempty,oneof=general technology business entertainment sports science health"`
}

// Normalise trims surrounding whitespace from every field.
func (i *Inputs) Normalise() {
	i.Title = strings.TrimSpace(i.Title)
	i.Description = strings.TrimSpace(i.Description)
	i.Content = strings.TrimSpace(i.Content)
	i.Author = strings.TrimSpace(i.Author)
	i.ImageURL = strings.TrimSpace(i.ImageURL)
	i.URL = strings.TrimSpace(i.URL)
	i.Category = strings.ToLower(strings.TrimSpace(i.Category))
}

// Validate normalises i and checks it. A whitespace-only title, description
// or content is rejected.
func (i *Inputs) Validate() error {
	i.Normalise()
	return validate.Struct(i)
}

// Problems flattens a validation error into one message per failing field.
func Problems(err error) []string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	var o []string
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			o = append(o, fe.Field()+" is required")
		case "url":
			o = append(o, fe.Field()+" must be a valid URL")
		case "oneof":
			o = append(o, fe.Field()+" must be one of: "+fe.Param())
		default:
			o = append(o, fe.Field()+" is invalid")
		}
	}
	return o
}

// NewPostID returns a collision-resistant identifier for a user post.
func NewPostID() string {
	return userPostIDPrefix + uuid.NewString()
}

// Article builds a new user-created article from validated inputs.
func (i *Inputs) Article(now time.Time) models.Article {
	author := i.Author
	if author == "" {
		author = DefaultAuthor
	}
	return models.Article{
		ID:            NewPostID(),
		Title:         i.Title,
		Description:   i.Description,
		Content:       i.Content,
		Author:        author,
		PublishedAt:   now.UTC(),
		ImageURL:      i.ImageURL,
		Source:        UserSource,
		URL:           i.URL,
		Category:      models.Category(i.Category),
		IsUserCreated: true,
	}
}

// Apply returns the replacement for existing after an edit. Identity,
// publication time, source and the user-created flag are kept.
func (i *Inputs) Apply(existing models.Article) models.Article {
	a := i.Article(existing.PublishedAt)
	a.ID = existing.ID
	a.PublishedAt = existing.PublishedAt
	a.Source = existing.Source
	a.IsUserCreated = existing.IsUserCreated
	return a
}

// FromArticle is the inverse of Article, used to pre-fill an edit form.
func FromArticle(a models.Article) Inputs {
	return Inputs{
		Title:       a.Title,
		Description: a.Description,
		Content:     a.Content,
		Author:      a.Author,
		ImageURL:    a.ImageURL,
		URL:         a.URL,
		Category:    string(a.Category),
	}
}
