package domain

import "time"

// ThreadFilter selects threads. Zero-valued fields do not constrain.
type ThreadFilter struct {
	IDs              []string
	AuthorID         string
	Status           ThreadStatus
	OriginalThreadID string
	OriginalAuthorID string
	SupersedesID     string
	Tags             []string
	MatchAllTags     bool
	CreatedSince     *time.Time

	// VisibleTo, when set without Status, matches published threads plus
	// the drafts authored by this user.
	VisibleTo string
}

// UserFilter selects users referencing a thread from their bookmarks or
// any of their collections.
type UserFilter struct {
	ReferencesThread string
}
