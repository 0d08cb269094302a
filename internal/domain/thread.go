package domain

import (
	"encoding/json"
	"strings"
	"time"
)

type ThreadStatus string

const (
	StatusDraft     ThreadStatus = "draft"
	StatusPublished ThreadStatus = "published"
)

// ParseThreadStatus accepts "draft" or "published"; the empty string means draft.
func ParseThreadStatus(s string) (ThreadStatus, error) {
	switch ThreadStatus(s) {
	case "":
		return StatusDraft, nil
	case StatusDraft, StatusPublished:
		return ThreadStatus(s), nil
	default:
		return "", ValidationError{Field: "status", Reason: "status must be either 'draft' or 'published'"}
	}
}

// Thread is an authored, ordered sequence of segments with a lifecycle status.
type Thread struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	AuthorID string       `json:"authorId"`
	Segments []Segment    `json:"segments"`
	Tags     []string     `json:"tags"`
	Status   ThreadStatus `json:"status"`

	BookmarkCount int64 `json:"bookmarkCount"`
	ForkCount     int64 `json:"forkCount"`

	// Fork lineage. OriginalThreadID may dangle once the source is deleted.
	OriginalThreadID *string `json:"originalThreadId"`
	OriginalAuthorID *string `json:"originalAuthorId"`

	// SupersedesThreadID links a thread published from a draft back to that draft.
	SupersedesThreadID *string `json:"supersedesThreadId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Version int64 `json:"-"`
}

func (t Thread) IsPublished() bool {
	return t.Status == StatusPublished
}

func (t Thread) IsDraft() bool {
	return t.Status == StatusDraft
}

// SegmentIndex returns the position of the segment with the given id, or -1.
func (t Thread) SegmentIndex(segmentID string) int {
	for i := range t.Segments {
		if t.Segments[i].ID == segmentID {
			return i
		}
	}
	return -1
}

// TotalReactions sums active reactions over every segment.
func (t Thread) TotalReactions() int64 {
	var total int64
	for _, s := range t.Segments {
		total += s.Reactions.Total()
	}
	return total
}

// Clone returns a deep copy, reaction maps included.
func (t Thread) Clone() Thread {
	c := t
	c.Tags = append([]string(nil), t.Tags...)
	c.Segments = make([]Segment, len(t.Segments))
	for i, s := range t.Segments {
		c.Segments[i] = s.Clone()
	}
	c.OriginalThreadID = cloneString(t.OriginalThreadID)
	c.OriginalAuthorID = cloneString(t.OriginalAuthorID)
	c.SupersedesThreadID = cloneString(t.SupersedesThreadID)
	return c
}

// Segment is one block of content within a thread. It has no identity
// outside its thread.
type Segment struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Reactions Reactions `json:"-"`
}

// React toggles the user's reaction. Submitting the active emoji clears
// it; any other emoji replaces it. It returns the prior and the resulting
// reaction, empty when none.
func (s *Segment) React(userID string, e Emoji) (prev, active Emoji) {
	if s.Reactions == nil {
		s.Reactions = Reactions{}
	}
	prev = s.Reactions[userID]
	delete(s.Reactions, userID)
	if prev == e {
		return prev, ""
	}
	s.Reactions[userID] = e
	return prev, e
}

func (s Segment) Clone() Segment {
	c := s
	if s.Reactions != nil {
		c.Reactions = make(Reactions, len(s.Reactions))
		for k, v := range s.Reactions {
			c.Reactions[k] = v
		}
	}
	return c
}

type segmentJSON struct {
	ID        string                   `json:"id"`
	Title     string                   `json:"title"`
	Content   string                   `json:"content"`
	CreatedAt time.Time                `json:"createdAt"`
	Reactions map[Emoji]ReactionBucket `json:"reactions"`
}

func (s Segment) MarshalJSON() ([]byte, error) {
	return json.Marshal(segmentJSON{
		ID:        s.ID,
		Title:     s.Title,
		Content:   s.Content,
		CreatedAt: s.CreatedAt,
		Reactions: s.Reactions.Buckets(),
	})
}

func (s *Segment) UnmarshalJSON(data []byte) error {
	var raw segmentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.ID = raw.ID
	s.Title = raw.Title
	s.Content = raw.Content
	s.CreatedAt = raw.CreatedAt
	s.Reactions = Reactions{}
	for e, bucket := range raw.Reactions {
		for _, user := range bucket.Users {
			s.Reactions[user] = e
		}
	}
	return nil
}

// Preview returns the first n runes of the content, with an ellipsis when cut.
func (s Segment) Preview(n int) string {
	runes := []rune(s.Content)
	if len(runes) <= n {
		return s.Content
	}
	return string(runes[:n]) + "..."
}

// NormalizeTags trims tags, drops empties and removes duplicates, keeping
// first occurrences in order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// VersionRef points at a related thread version.
type VersionRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// RelatedVersions surfaces the draft/published counterparts of a thread.
type RelatedVersions struct {
	DraftVersion     *VersionRef `json:"draftVersion,omitempty"`
	PublishedVersion *VersionRef `json:"publishedVersion,omitempty"`
}

func (r RelatedVersions) Empty() bool {
	return r.DraftVersion == nil && r.PublishedVersion == nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// ThreadRemoved is issued by the lifecycle manager before a thread is deleted
// so that components holding references can drop them.
type ThreadRemoved struct {
	ThreadID string
	AuthorID string
}
