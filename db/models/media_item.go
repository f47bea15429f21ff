package models

// MediaItem is one indexed upload: a reference to a video-like message in a
// group chat, keyed case-insensitively by (chat_id, title_key). TitleKey is
// the lowercased title; Title preserves the original casing for display.
type MediaItem struct {
	ChatID    int64  `gorm:"column:chat_id;not null;uniqueIndex:uniq_chat_title_key,priority:1;index:idx_chat_updated,priority:1"`
	Title     string `gorm:"column:title;type:text;not null"`
	TitleKey  string `gorm:"column:title_key;type:text;not null;uniqueIndex:uniq_chat_title_key,priority:2"`
	MessageID int64  `gorm:"column:message_id;not null"`
	ChatTitle string `gorm:"column:chat_title;type:text"`
	CreatedAt int64  `gorm:"column:created_at;not null"`
	UpdatedAt int64  `gorm:"column:updated_at;not null;index:idx_chat_updated,priority:2"`
}

func (MediaItem) TableName() string { return "media_items" }
