package domain

import "time"

// Article is the canonical product of one ingestion call. Articles are
// transient: they are never persisted as their own entity, only their derived
// products (PostedLink rows, NewsCard source snapshots) survive the run.
type Article struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	Image       string    `json:"image,omitempty"`
	PublishedAt time.Time `json:"publishedAt,omitempty"`
	Category    string    `json:"category,omitempty"`
	Author      string    `json:"author,omitempty"`
}

// Field resolves a source field by its mapping name. Unknown names return an
// empty string so a stale mapping degrades instead of erroring.
func (a Article) Field(name string) string {
	switch name {
	case "title":
		return a.Title
	case "link", "url":
		return a.Link
	case "description":
		return a.Description
	case "image":
		return a.Image
	case "category":
		return a.Category
	case "author":
		return a.Author
	case "date", "publishedAt", "published_at":
		if a.PublishedAt.IsZero() {
			return ""
		}
		return a.PublishedAt.Format("January 2, 2006")
	default:
		return ""
	}
}

// ArticleDetail carries everything a detail fetch could mine from one page.
type ArticleDetail struct {
	Image       string
	Description string
	Body        string
	Author      string
	PublishedAt time.Time
}

// Empty reports whether the detail fetch yielded nothing usable, which is the
// trigger for the headless-browser fallback.
func (d ArticleDetail) Empty() bool {
	return d.Image == "" && d.Body == "" && d.Description == ""
}

// PostedLink is one row of the append-only dedup ledger. Rows are created
// exactly once per (source, url) and never updated or deleted.
type PostedLink struct {
	Source   string    `db:"source"`
	URL      string    `db:"url"`
	Title    string    `db:"title"`
	PostedAt time.Time `db:"posted_at"`
}
