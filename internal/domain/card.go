package domain

import "time"

// CardStatus enumerates the NewsCard lifecycle. Transitions only move
// forward; GENERATED is terminal for cards that are never scheduled.
type CardStatus string

const (
	CardDraft     CardStatus = "DRAFT"
	CardQueued    CardStatus = "QUEUED"
	CardGenerated CardStatus = "GENERATED"
	CardPosted    CardStatus = "POSTED"
	CardFailed    CardStatus = "FAILED"
)

var cardTransitions = map[CardStatus][]CardStatus{
	CardDraft:     {CardQueued, CardGenerated},
	CardQueued:    {CardGenerated, CardPosted, CardFailed},
	CardGenerated: {CardPosted, CardFailed},
}

// CanTransition reports whether a card may move from one status to another.
func CanTransition(from, to CardStatus) bool {
	for _, next := range cardTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NewsCard is one rendered card. SourceData is a frozen Article snapshot
// owned by the card, not a live reference.
type NewsCard struct {
	ID         string
	Image      []byte
	Status     CardStatus
	SourceData Article
	TemplateID string
	MappingID  string
	CreatedAt  time.Time
}

// PostStatus enumerates the Post lifecycle. FAILED is terminal: a failed post
// is never re-selected by the sweep and waits for external intervention.
type PostStatus string

const (
	PostQueued PostStatus = "QUEUED"
	PostPosted PostStatus = "POSTED"
	PostFailed PostStatus = "FAILED"
)

// Post tracks one publish attempt of one NewsCard to one social account.
type Post struct {
	ID             string     `db:"id"`
	NewsCardID     string     `db:"news_card_id"`
	AccountID      string     `db:"account_id"`
	Content        string     `db:"content"`
	Status         PostStatus `db:"status"`
	ScheduledFor   *time.Time `db:"scheduled_for"`
	PlatformPostID string     `db:"platform_post_id"`
	PlatformURL    string     `db:"platform_url"`
	ErrorMessage   string     `db:"error_message"`
	CreatedAt      time.Time  `db:"created_at"`
}
