// Package newssource implements remote news providers for the aggregator.
package newssource

import (
	_ "embed"
	"fmt"
	"time"

	"git.tdpain.net/codemicro/vecnews/models"
	"gopkg.in/yaml.v3"
)

//go:embed samples.yaml
var samplesYAML []byte

type sampleEntry struct {
	ID          string        `yaml:"id"`
	Title       string        `yaml:"title"`
	Description string        `yaml:"description"`
	Content     string        `yaml:"content"`
	Author      string        `yaml:"author"`
	Age         time.Duration `yaml:"age"`
	ImageURL    string        `yaml:"imageUrl"`
	Source      string        `yaml:"source"`
	Category    string        `yaml:"category"`
}

var sampleEntries = mustParseSamples(samplesYAML)

func mustParseSamples(b []byte) []sampleEntry {
	var entries []sampleEntry
	if err := yaml.Unmarshal(b, &entries); err != nil {
		panic(fmt.Errorf("parse embedded samples: %w", err))
	}
	return entries
}

// Samples returns the fallback dataset with publication times relative to
// now.
func Samples(now time.Time) []models.Article {
	o := make([]models.Article, 0, len(sampleEntries))
	for _, e := range sampleEntries {
		o = append(o, models.Article{
			ID:          e.ID,
			Title:       e.Title,
			Description: e.Description,
			Content:     e.Content,
			Author:      e.Author,
			PublishedAt: now.Add(-e.Age).UTC(),
			ImageURL:    e.ImageURL,
			Source:      e.Source,
			Category:    models.Category(e.Category),
		})
	}
	return o
}

// filterSamples returns the samples matching query.
func filterSamples(now time.Time, query string) []models.Article {
	var o []models.Article
	for _, a := range Samples(now) {
		if a.Matches(query) {
			o = append(o, a)
		}
	}
	return o
}
