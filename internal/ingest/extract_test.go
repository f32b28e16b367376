package ingest

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestIsArticleLink(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"https://news.example.com/politics/flood-warning/123456":  true,
		"https://news.example.com/2026/08/567890/":                true,
		"https://news.example.com/article/99":                     false, // too short
		"https://news.example.com/category/politics/123456":       false,
		"https://news.example.com/search?q=flood":                 false,
		"https://news.example.com/politics/flood-warning":         false, // no numeric tail
		"https://news.example.com/tag/weather/123456":             false,
		"https://news.example.com/politics/123456?page=2":         false,
		"ftp://news.example.com/123456":                           false,
	}
	for raw, want := range cases {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, want, isArticleLink(u), "url %s", raw)
	}
}

func TestExtractDetailImagePriority(t *testing.T) {
	t.Parallel()

	base := mustURL(t, "https://news.example.com/politics/123456")

	t.Run("og meta wins", func(t *testing.T) {
		doc := docFrom(t, `
			<head>
				<meta property="og:image" content="https://cdn.example.com/a.jpg">
				<script type="application/ld+json">{"image": "https://cdn.example.com/ld.jpg"}</script>
			</head>
			<body><img src="/img/body.jpg"></body>`)
		assert.Equal(t, "https://cdn.example.com/a.jpg", extractDetail(doc, base).Image)
	})

	t.Run("json-ld second", func(t *testing.T) {
		doc := docFrom(t, `
			<head><script type="application/ld+json">{"@type": "NewsArticle", "image": {"url": "https://cdn.example.com/ld.jpg"}}</script></head>
			<body><img src="/img/body.jpg"></body>`)
		assert.Equal(t, "https://cdn.example.com/ld.jpg", extractDetail(doc, base).Image)
	})

	t.Run("broken json-ld is skipped", func(t *testing.T) {
		doc := docFrom(t, `
			<head>
				<script type="application/ld+json">{not json</script>
				<script type="application/ld+json">{"image": ["https://cdn.example.com/first.jpg", "https://cdn.example.com/second.jpg"]}</script>
			</head>`)
		assert.Equal(t, "https://cdn.example.com/first.jpg", extractDetail(doc, base).Image)
	})

	t.Run("first content img third, resolved absolute", func(t *testing.T) {
		doc := docFrom(t, `<body><img data-src="/img/body.jpg"></body>`)
		assert.Equal(t, "https://news.example.com/img/body.jpg", extractDetail(doc, base).Image)
	})

	t.Run("banned chrome images skipped", func(t *testing.T) {
		doc := docFrom(t, `<body>
			<img src="/assets/logo.png">
			<img src="/avatars/jo.png">
			<img srcset="/img/hero-480.jpg 480w, /img/hero-1080.jpg 1080w">
		</body>`)
		assert.Equal(t, "https://news.example.com/img/hero-480.jpg", extractDetail(doc, base).Image)
	})

	t.Run("no usable image", func(t *testing.T) {
		doc := docFrom(t, `<body><img src="/sprite/icons.png"></body>`)
		assert.Equal(t, "", extractDetail(doc, base).Image)
	})
}

func TestExtractDetailMetadata(t *testing.T) {
	t.Parallel()

	base := mustURL(t, "https://news.example.com/politics/123456")
	doc := docFrom(t, `
		<head>
			<meta property="og:description" content="Rivers are rising across the region.">
			<meta name="author" content="Jo Field">
		</head>
		<body>
			<time datetime="2026-08-27T09:30:00Z">yesterday</time>
			<p>First paragraph.</p>
			<p>Second paragraph.</p>
		</body>`)

	detail := extractDetail(doc, base)

	assert.Equal(t, "Rivers are rising across the region.", detail.Description)
	assert.Equal(t, "Jo Field", detail.Author)
	assert.Equal(t, "First paragraph.\n\nSecond paragraph.", detail.Body)
	require.False(t, detail.PublishedAt.IsZero())
	assert.Equal(t, 2026, detail.PublishedAt.Year())
	assert.Equal(t, 27, detail.PublishedAt.Day())
}

func TestExtractDetailBylineSelectorFallback(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<body><span class="byline">By Sam Reporter</span></body>`)
	assert.Equal(t, "By Sam Reporter", extractDetail(doc, mustURL(t, "https://x.test/1234")).Author)
}

func TestLargestParagraph(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<body>
		<p>short</p>
		<div>this block carries the actual article text and is clearly the longest one here</div>
	</body>`)
	assert.Contains(t, largestParagraph(doc), "actual article text")
}

func TestFirstSrcsetCandidate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/img/a.jpg", firstSrcsetCandidate("/img/a.jpg 480w, /img/b.jpg 1080w"))
	assert.Equal(t, "", firstSrcsetCandidate("   "))
}
