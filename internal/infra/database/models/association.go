package models

// Bookmark and CollectionThread keep thread ids without a foreign key:
// references are dropped by the thread removal handler, not by the database.
type Bookmark struct {
	UserID   string `json:"userID" gorm:"primaryKey;type:text"`
	ThreadID string `json:"threadID" gorm:"primaryKey;type:text;index"`
	Position int    `json:"position" gorm:"not null"`
}

type Collection struct {
	UserID   string             `json:"userID" gorm:"primaryKey;type:text"`
	Name     string             `json:"name" gorm:"primaryKey;type:text"`
	Position int                `json:"position" gorm:"not null"`
	Threads  []CollectionThread `json:"threads" gorm:"foreignKey:UserID,CollectionName;references:UserID,Name;constraint:OnDelete:CASCADE;"`
}

// CollectionThread files a thread under one collection; the unique index
// keeps a thread in at most one collection per user.
type CollectionThread struct {
	UserID         string `json:"userID" gorm:"primaryKey;type:text;uniqueIndex:uniq_collection_thread"`
	CollectionName string `json:"collectionName" gorm:"primaryKey;type:text"`
	ThreadID       string `json:"threadID" gorm:"primaryKey;type:text;uniqueIndex:uniq_collection_thread;index"`
	Position       int    `json:"position" gorm:"not null"`
}
