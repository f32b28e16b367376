package mapping

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"CardForge/internal/domain"
)

var fixedNow = time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)

func TestResolveNilMappingFallsBackToIdentityQuad(t *testing.T) {
	t.Parallel()

	article := domain.Article{Title: "T", Description: "D"}

	resolved := Resolve(nil, article, fixedNow)

	assert.Equal(t, "T", resolved.Values["title"])
	assert.Equal(t, "D", resolved.Values["subtitle"])
	assert.Equal(t, "", resolved.Values["image"])
	assert.Equal(t, "March 14, 2026", resolved.Values["date"])
	assert.Equal(t, "title", resolved.CaptionKey)
	assert.Equal(t, "T", resolved.Caption())
}

func TestResolveExplicitMapping(t *testing.T) {
	t.Parallel()

	article := domain.Article{
		Title:       "Flood warning issued",
		Description: "Rivers rising",
		Link:        "https://example.com/news/123456",
		Author:      "Jo Field",
	}
	m := &domain.Mapping{
		Fields: map[string]string{
			"headline": "title",
			"byline":   "author",
			"source":   "link",
		},
		CaptionField: "headline",
	}

	resolved := Resolve(m, article, fixedNow)

	assert.Equal(t, "Flood warning issued", resolved.Values["headline"])
	assert.Equal(t, "Jo Field", resolved.Values["byline"])
	assert.Equal(t, "https://example.com/news/123456", resolved.Values["source"])
	// Required quad stays available underneath the explicit keys.
	assert.Equal(t, "Rivers rising", resolved.Values["subtitle"])
	assert.Equal(t, "headline", resolved.CaptionKey)
	assert.Equal(t, "Flood warning issued", resolved.Caption())
}

func TestResolveDefaults(t *testing.T) {
	t.Parallel()

	resolved := Resolve(nil, domain.Article{}, fixedNow)

	assert.Equal(t, "Untitled", resolved.Values["title"])
	assert.Equal(t, "March 14, 2026", resolved.Values["date"])
	assert.Equal(t, "", resolved.Values["subtitle"])
	assert.Equal(t, "", resolved.Values["image"])
}

func TestResolveUnknownSourceFieldYieldsEmptyString(t *testing.T) {
	t.Parallel()

	m := &domain.Mapping{Fields: map[string]string{"badge": "no_such_field"}}

	resolved := Resolve(m, domain.Article{Title: "T"}, fixedNow)

	value, ok := resolved.Values["badge"]
	assert.True(t, ok)
	assert.Equal(t, "", value)
}

func TestResolveCaptionFieldFallsBackToTitleWhenAbsent(t *testing.T) {
	t.Parallel()

	m := &domain.Mapping{
		Fields:       map[string]string{"headline": "title"},
		CaptionField: "missing_key",
	}

	resolved := Resolve(m, domain.Article{Title: "T"}, fixedNow)

	assert.Equal(t, "title", resolved.CaptionKey)
	assert.Equal(t, "T", resolved.Caption())
}
