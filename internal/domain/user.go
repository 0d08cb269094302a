package domain

import (
	"strings"
	"time"
)

// User is a profile together with the user's bookmarks and collections.
type User struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Bio         string       `json:"bio"`
	Bookmarks   []string     `json:"bookmarks"`
	Collections []Collection `json:"collections"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`

	Version int64 `json:"-"`
}

// Collection is a named group of bookmarked threads. A thread belongs to
// at most one collection of a user.
type Collection struct {
	Name    string   `json:"name"`
	Threads []string `json:"threads"`
}

func (c Collection) Contains(threadID string) bool {
	for _, id := range c.Threads {
		if id == threadID {
			return true
		}
	}
	return false
}

func (u User) HasBookmark(threadID string) bool {
	for _, id := range u.Bookmarks {
		if id == threadID {
			return true
		}
	}
	return false
}

// ToggleBookmark adds or removes the bookmark and reports the new state.
// Removing a bookmark also removes the thread from every collection.
func (u *User) ToggleBookmark(threadID string) bool {
	if u.HasBookmark(threadID) {
		u.PurgeThread(threadID)
		return false
	}
	u.Bookmarks = append(u.Bookmarks, threadID)
	return true
}

// PurgeThread drops every reference to the thread and reports whether
// anything changed.
func (u *User) PurgeThread(threadID string) bool {
	changed := false
	kept := u.Bookmarks[:0]
	for _, id := range u.Bookmarks {
		if id == threadID {
			changed = true
			continue
		}
		kept = append(kept, id)
	}
	u.Bookmarks = kept
	for i := range u.Collections {
		if u.Collections[i].Contains(threadID) {
			u.Collections[i].Threads = without(u.Collections[i].Threads, threadID)
			changed = true
		}
	}
	return changed
}

func (u *User) Collection(name string) *Collection {
	for i := range u.Collections {
		if u.Collections[i].Name == name {
			return &u.Collections[i]
		}
	}
	return nil
}

// CollectionOf returns the collection holding the thread, if any.
func (u *User) CollectionOf(threadID string) *Collection {
	for i := range u.Collections {
		if u.Collections[i].Contains(threadID) {
			return &u.Collections[i]
		}
	}
	return nil
}

func (u *User) CreateCollection(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Reason: "collection name is required"}
	}
	if u.Collection(name) != nil {
		return ConflictError{Reason: "collection with this name already exists"}
	}
	u.Collections = append(u.Collections, Collection{Name: name, Threads: []string{}})
	return nil
}

// AddToCollection files a bookmarked thread under the named collection.
// Moving a thread between collections requires removing it first.
func (u *User) AddToCollection(name, threadID string) error {
	c := u.Collection(name)
	if c == nil {
		return NotFoundError{Resource: "collection"}
	}
	if c.Contains(threadID) {
		return ConflictError{Reason: "thread already in collection"}
	}
	if other := u.CollectionOf(threadID); other != nil {
		return ConflictError{Reason: "thread already exists in another collection; remove it from that collection first"}
	}
	if !u.HasBookmark(threadID) {
		return ConflictError{Reason: "thread must be bookmarked before it can be added to a collection"}
	}
	c.Threads = append(c.Threads, threadID)
	return nil
}

func (u *User) RemoveFromCollection(name, threadID string) error {
	c := u.Collection(name)
	if c == nil {
		return NotFoundError{Resource: "collection"}
	}
	if !c.Contains(threadID) {
		return NotFoundError{Resource: "thread in collection"}
	}
	c.Threads = without(c.Threads, threadID)
	return nil
}

func (u User) Clone() User {
	c := u
	c.Bookmarks = append([]string(nil), u.Bookmarks...)
	c.Collections = make([]Collection, len(u.Collections))
	for i, col := range u.Collections {
		c.Collections[i] = Collection{Name: col.Name, Threads: append([]string{}, col.Threads...)}
	}
	return c
}

func without(ids []string, target string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
