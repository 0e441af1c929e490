package models_test

import (
	"testing"

	"git.tdpain.net/codemicro/vecnews/models"
	"github.com/stretchr/testify/assert"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    models.Category
		wantErr bool
	}{
		{"", "", false},
		{"  ", "", false},
		{"technology", models.CategoryTechnology, false},
		{"Health", models.CategoryHealth, false},
		{" SPORTS ", models.CategorySports, false},
		{"weather", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := models.ParseCategory(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrUnknownCategory)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCategoriesIsACopy(t *testing.T) {
	c := models.Categories()
	assert.Len(t, c, 7)
	c[0] = "mutated"
	assert.Equal(t, models.CategoryGeneral, models.Categories()[0])
}

func TestArticleMatches(t *testing.T) {
	a := models.Article{Title: "Ocean Life", Description: "Whales and dolphins"}

	assert.True(t, a.Matches("ocean"))
	assert.True(t, a.Matches("DOLPHIN"))
	assert.False(t, a.Matches("space"))
}

func TestArticleShareText(t *testing.T) {
	a := models.Article{Title: "T", Description: "D"}
	assert.Equal(t, "T\n\nD\n\nVecNews", a.ShareText())

	a.URL = "https://example.com/a"
	assert.Equal(t, "T\n\nD\n\nhttps://example.com/a", a.ShareText())
}
