package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Article is a news item. It is either authored locally (IsUserCreated) or
// synthesised from a remote news source for the duration of one request.
type Article struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Content       string    `json:"content"`
	Author        string    `json:"author"`
	PublishedAt   time.Time `json:"publishedAt"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	Source        string    `json:"source"`
	URL           string    `json:"url,omitempty"`
	Category      Category  `json:"category,omitempty"`
	IsUserCreated bool      `json:"isUserCreated"`
}

// Matches reports whether query is a case-insensitive substring of the
// article's title or description.
func (a Article) Matches(query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(a.Title), q) ||
		strings.Contains(strings.ToLower(a.Description), q)
}

// ShareText renders the article as a plain text message for sharing.
func (a Article) ShareText() string {
	link := a.URL
	if link == "" {
		link = "VecNews"
	}
	return a.Title + "\n\n" + a.Description + "\n\n" + link
}

type Category string

const (
	CategoryGeneral       Category = "general"
	CategoryTechnology    Category = "technology"
	CategoryBusiness      Category = "business"
	CategoryEntertainment Category = "entertainment"
	CategorySports        Category = "sports"
	CategoryScience       Category = "science"
	CategoryHealth        Category = "health"
)

var ErrUnknownCategory = errors.New("unknown category")

var categories = []Category{
	CategoryGeneral,
	CategoryTechnology,
	CategoryBusiness,
	CategoryEntertainment,
	CategorySports,
	CategoryScience,
	CategoryHealth,
}

// Categories returns every known category in display order.
func Categories() []Category {
	o := make([]Category, len(categories))
	copy(o, categories)
	return o
}

func (c Category) Valid() bool {
	for _, x := range categories {
		if c == x {
			return true
		}
	}
	return false
}

// ParseCategory parses s case-insensitively. An empty string yields the zero
// Category, meaning "no filter".
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}
