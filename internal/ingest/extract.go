package ingest

import (
	"encoding/json"
	"net/url"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"CardForge/internal/domain"
)

// Image URLs containing these fragments are site chrome, not article photos.
var bannedImageKeywords = []string{
	"logo", "avatar", "placeholder", "icon", "sprite", "spacer", "blank", "default-",
}

// Path or query fragments that mark listing, category, search, or pagination
// URLs rather than single articles.
var listingKeywords = []string{
	"category", "categories", "search", "tag", "tags", "page", "archive", "list",
}

const minBodyLength = 200

// extractDetail runs the shared heuristics against a parsed article page.
// Both the plain-HTTP and the headless-browser paths funnel through here.
func extractDetail(doc *goquery.Document, base *url.URL) domain.ArticleDetail {
	detail := domain.ArticleDetail{
		Description: metaContent(doc,
			`meta[property="og:description"]`,
			`meta[name="description"]`,
		),
		Body:   paragraphText(doc),
		Author: extractAuthor(doc),
	}

	// Image priority: og/twitter meta, then JSON-LD, then the first content
	// <img> that survives the chrome ban list. First match wins.
	for _, candidate := range []string{
		metaContent(doc, `meta[property="og:image"]`, `meta[name="twitter:image"]`, `meta[name="twitter:image:src"]`),
		jsonLDImage(doc),
		firstContentImage(doc, base),
	} {
		if resolved := resolveURL(base, candidate); resolved != "" && !bannedImage(resolved) {
			detail.Image = resolved
			break
		}
	}

	if raw := publishedRaw(doc); raw != "" {
		if parsed, err := dateparse.ParseAny(raw); err == nil {
			detail.PublishedAt = parsed
		}
	}

	return detail
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if trimmed := strings.TrimSpace(content); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// jsonLDImage pulls the image field out of the first structured-data block
// that parses and carries one. The field may be a string, an object with a
// url key, or an array of either.
func jsonLDImage(doc *goquery.Document) string {
	var found string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var payload any
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return true
		}
		if img := imageFromLD(payload); img != "" {
			found = img
			return false
		}
		return true
	})
	return found
}

func imageFromLD(payload any) string {
	switch v := payload.(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		for _, item := range v {
			if img := imageFromLD(item); img != "" {
				return img
			}
		}
	case map[string]any:
		if img, ok := v["image"]; ok {
			if s := imageFromLD(img); s != "" {
				return s
			}
		}
		if u, ok := v["url"].(string); ok && looksLikeImage(u) {
			return strings.TrimSpace(u)
		}
		if graph, ok := v["@graph"]; ok {
			return imageFromLD(graph)
		}
	}
	return ""
}

func looksLikeImage(u string) bool {
	lower := strings.ToLower(u)
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".webp", ".gif"} {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return false
}

// firstContentImage scans <img> elements in document order, checking the lazy
// loading attributes the usual CMSes hide the real source behind.
func firstContentImage(doc *goquery.Document, base *url.URL) string {
	var found string
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		for _, attr := range []string{"src", "data-src", "data-original"} {
			if v, ok := img.Attr(attr); ok {
				if candidate := strings.TrimSpace(v); candidate != "" && !strings.HasPrefix(candidate, "data:") {
					if resolved := resolveURL(base, candidate); resolved != "" && !bannedImage(resolved) {
						found = resolved
						return false
					}
				}
			}
		}
		if srcset, ok := img.Attr("srcset"); ok {
			if candidate := firstSrcsetCandidate(srcset); candidate != "" {
				if resolved := resolveURL(base, candidate); resolved != "" && !bannedImage(resolved) {
					found = resolved
					return false
				}
			}
		}
		return true
	})
	return found
}

func firstSrcsetCandidate(srcset string) string {
	first := strings.Split(srcset, ",")[0]
	fields := strings.Fields(strings.TrimSpace(first))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func bannedImage(u string) bool {
	lower := strings.ToLower(u)
	for _, keyword := range bannedImageKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// resolveURL turns a candidate reference absolute against the article URL.
func resolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		parsed = base.ResolveReference(parsed)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return parsed.String()
}

func paragraphText(doc *goquery.Document) string {
	var parts []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n\n")
}

// largestParagraph is the browser path's last resort when the aggregated
// paragraph text stays under the minimum length.
func largestParagraph(doc *goquery.Document) string {
	var largest string
	doc.Find("p, div").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); len(text) > len(largest) {
			largest = text
		}
	})
	return largest
}

func extractAuthor(doc *goquery.Document) string {
	if author := metaContent(doc, `meta[name="author"]`, `meta[property="article:author"]`); author != "" {
		return author
	}
	for _, sel := range []string{`[rel="author"]`, ".author", ".byline"} {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func publishedRaw(doc *goquery.Document) string {
	if dt, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
		return strings.TrimSpace(dt)
	}
	return metaContent(doc, `meta[property="article:published_time"]`, `meta[name="date"]`)
}

// isArticleLink is the link-shape heuristic for listing pages: article URLs
// end in a numeric path segment and never look like listing, category,
// search, or pagination URLs.
func isArticleLink(u *url.URL) bool {
	if u == nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}

	lowerPath := strings.ToLower(u.Path)
	for _, keyword := range listingKeywords {
		if strings.Contains(lowerPath, "/"+keyword) || u.Query().Has(keyword) {
			return false
		}
	}
	if u.Query().Has("q") || u.Query().Has("p") {
		return false
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	last := segments[len(segments)-1]
	if len(last) < 3 {
		return false
	}
	for _, r := range last {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
