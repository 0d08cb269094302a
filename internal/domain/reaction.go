package domain

import (
	"encoding/json"
	"sort"

	"github.com/akashdesaidev/Threadspire/internal/utils"
)

// Emoji is one of the five recognised segment reactions.
type Emoji string

const (
	EmojiMindBlown Emoji = "🤯"
	EmojiInsight   Emoji = "💡"
	EmojiCalm      Emoji = "😌"
	EmojiFire      Emoji = "🔥"
	EmojiHeart     Emoji = "🫶"
)

// Emojis lists the reactions in their canonical display order.
var Emojis = [...]Emoji{EmojiMindBlown, EmojiInsight, EmojiCalm, EmojiFire, EmojiHeart}

func (e Emoji) Valid() bool {
	for _, known := range Emojis {
		if e == known {
			return true
		}
	}
	return false
}

func ParseEmoji(s string) (Emoji, error) {
	e := Emoji(s)
	if !e.Valid() {
		return "", ValidationError{Field: "reaction", Reason: "unsupported reaction type"}
	}
	return e, nil
}

// ReactionBucket is the per-emoji view of a segment's reactions.
type ReactionBucket struct {
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// Reactions holds the single active reaction of each user on a segment.
// Buckets are derived from it, so a user can never sit in two buckets
// and every bucket count equals the number of its users.
type Reactions map[string]Emoji

// Active returns the user's current reaction, if any.
func (r Reactions) Active(userID string) (Emoji, bool) {
	e, ok := r[userID]
	return e, ok
}

// Bucket returns the users currently reacting with e, sorted by id.
func (r Reactions) Bucket(e Emoji) ReactionBucket {
	users := []string{}
	for user, active := range r {
		if active == e {
			users = append(users, user)
		}
	}
	sort.Strings(users)
	return ReactionBucket{Count: len(users), Users: users}
}

// Buckets returns a bucket for each of the five emojis, empty ones included.
func (r Reactions) Buckets() map[Emoji]ReactionBucket {
	buckets := make(map[Emoji]ReactionBucket, len(Emojis))
	for _, e := range Emojis {
		buckets[e] = r.Bucket(e)
	}
	return buckets
}

// Counts returns the number of users per emoji.
func (r Reactions) Counts() EmojiCounts {
	var counts EmojiCounts
	for _, e := range r {
		counts.Add(e, 1)
	}
	return counts
}

func (r Reactions) Total() int64 {
	return int64(len(r))
}

// EmojiCounts is a fixed-size tally indexed by canonical emoji order.
type EmojiCounts [len(Emojis)]int64

func (c *EmojiCounts) Add(e Emoji, n int64) {
	for i, known := range Emojis {
		if known == e {
			c[i] += n
			return
		}
	}
}

func (c EmojiCounts) Get(e Emoji) int64 {
	for i, known := range Emojis {
		if known == e {
			return c[i]
		}
	}
	return 0
}

func (c EmojiCounts) Total() int64 {
	var total int64
	for _, n := range c {
		total += n
	}
	return total
}

// Merge adds every count of other into c.
func (c *EmojiCounts) Merge(other EmojiCounts) {
	for i, n := range other {
		c[i] += n
	}
}

// MarshalJSON renders the counts as an object keyed by emoji, in canonical order.
func (c EmojiCounts) MarshalJSON() ([]byte, error) {
	kv := make(utils.OrderedKV[int64], 0, len(Emojis))
	for i, e := range Emojis {
		kv = kv.Set(string(e), c[i])
	}
	return json.Marshal(kv)
}

func (c *EmojiCounts) UnmarshalJSON(data []byte) error {
	var raw map[string]int64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = EmojiCounts{}
	for k, v := range raw {
		c.Add(Emoji(k), v)
	}
	return nil
}
