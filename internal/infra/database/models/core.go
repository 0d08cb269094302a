package models

import (
	"time"
)

type Thread struct {
	ID                 string      `json:"id" gorm:"primaryKey;type:text"`
	Title              string      `json:"title" gorm:"type:text;not null"`
	AuthorID           string      `json:"authorID" gorm:"type:text;not null;index"`
	Status             string      `json:"status" gorm:"type:text;not null;index"`
	BookmarkCount      int64       `json:"bookmarkCount" gorm:"not null;default:0;index"`
	ForkCount          int64       `json:"forkCount" gorm:"not null;default:0;index"`
	OriginalThreadID   *string     `json:"originalThreadID" gorm:"type:text;index"`
	OriginalAuthorID   *string     `json:"originalAuthorID" gorm:"type:text;index"`
	SupersedesThreadID *string     `json:"supersedesThreadID" gorm:"type:text;index"`
	Version            int64       `json:"version" gorm:"not null;default:1"`
	Seq                int64       `json:"seq" gorm:"autoIncrement;uniqueIndex"`
	Segments           []Segment   `json:"segments" gorm:"foreignKey:ThreadID;references:ID;constraint:OnDelete:CASCADE;"`
	Tags               []ThreadTag `json:"tags" gorm:"foreignKey:ThreadID;references:ID;constraint:OnDelete:CASCADE;"`
	CDate              time.Time   `json:"cdate" gorm:"type:timestamp with time zone;not null;index"`
	MDate              time.Time   `json:"mdate" gorm:"type:timestamp with time zone;not null"`
}

type Segment struct {
	ID        string            `json:"id" gorm:"primaryKey;type:text"`
	ThreadID  string            `json:"threadID" gorm:"type:text;not null;index"`
	Position  int               `json:"position" gorm:"not null"`
	Title     string            `json:"title" gorm:"type:text"`
	Content   string            `json:"content" gorm:"type:text;not null"`
	Reactions []SegmentReaction `json:"reactions" gorm:"foreignKey:SegmentID;references:ID;constraint:OnDelete:CASCADE;"`
	CDate     time.Time         `json:"cdate" gorm:"type:timestamp with time zone;not null"`
}

// SegmentReaction holds a user's single active reaction on a segment.
type SegmentReaction struct {
	SegmentID string `json:"segmentID" gorm:"primaryKey;type:text"`
	UserID    string `json:"userID" gorm:"primaryKey;type:text;index"`
	Emoji     string `json:"emoji" gorm:"type:text;not null"`
}

type ThreadTag struct {
	ThreadID string `json:"threadID" gorm:"primaryKey;type:text"`
	Tag      string `json:"tag" gorm:"primaryKey;type:text;index"`
	Position int    `json:"position" gorm:"not null"`
}

type User struct {
	ID          string       `json:"id" gorm:"primaryKey;type:text"`
	Name        string       `json:"name" gorm:"type:text;not null"`
	Email       string       `json:"email" gorm:"type:text;not null;uniqueIndex"`
	Bio         string       `json:"bio" gorm:"type:text"`
	Version     int64        `json:"version" gorm:"not null;default:1"`
	Bookmarks   []Bookmark   `json:"bookmarks" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE;"`
	Collections []Collection `json:"collections" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE;"`
	CDate       time.Time    `json:"cdate" gorm:"type:timestamp with time zone;not null"`
	MDate       time.Time    `json:"mdate" gorm:"type:timestamp with time zone;not null"`
}
