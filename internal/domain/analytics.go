package domain

import (
	"time"

	"github.com/akashdesaidev/Threadspire/internal/utils"
)

// Analytics is the engagement summary of one user.
type Analytics struct {
	TotalThreads           int                      `json:"totalThreads"`
	PublishedThreads       int                      `json:"publishedThreads"`
	DraftThreads           int                      `json:"draftThreads"`
	TotalBookmarks         int                      `json:"totalBookmarks"`
	TotalBookmarksReceived int64                    `json:"totalBookmarksReceived"`
	TotalForks             int64                    `json:"totalForks"`
	MostForkedThread       *MostForkedThread        `json:"mostForkedThread"`
	ForksByThread          map[string][]ForkSummary `json:"forksByThread"`
	ReactionCounts         EmojiCounts              `json:"reactionCounts"`
	ThreadsWithReactions   []ThreadReactions        `json:"threadsWithReactions"`
	ThreadActivity         []ThreadActivity         `json:"threadActivity"`
	ActivityByDate         utils.OrderedKV[int64]   `json:"activityByDate"`
	GeneratedAt            time.Time                `json:"generatedAt"`
}

type MostForkedThread struct {
	ThreadID    string    `json:"threadId"`
	Title       string    `json:"title"`
	ForkCount   int64     `json:"forkCount"`
	PublishDate time.Time `json:"publishDate"`
}

type ForkSummary struct {
	ForkID    string    `json:"forkId"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type SegmentReactions struct {
	SegmentID      string      `json:"segmentId"`
	Position       int         `json:"position"`
	Content        string      `json:"content"`
	ReactionCounts EmojiCounts `json:"reactionCounts"`
	TotalReactions int64       `json:"totalReactions"`
}

type TopSegment struct {
	SegmentID      string `json:"segmentId"`
	Position       int    `json:"position"`
	Content        string `json:"content"`
	TotalReactions int64  `json:"totalReactions"`
}

type ThreadReactions struct {
	ThreadID          string             `json:"threadId"`
	Title             string             `json:"title"`
	Segments          []SegmentReactions `json:"segments"`
	TopReactedSegment *TopSegment        `json:"topReactedSegment"`
}

type ThreadActivity struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Bookmarks int64     `json:"bookmarks"`
	Forks     int64     `json:"forks"`
	Reactions int64     `json:"reactions"`
	CreatedAt time.Time `json:"createdAt"`
}

// DailyReactions is one point of a reaction time series.
type DailyReactions struct {
	Date           string `json:"date"`
	TotalReactions int64  `json:"totalReactions"`
}

// DateKey formats t as a UTC calendar day.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
