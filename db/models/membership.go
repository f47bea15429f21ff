package models

// Membership records that a user was observed active in a group chat.
// LastSeenAt only moves forward; ChatTitle keeps the most recent non-empty
// name observed for the chat.
type Membership struct {
	UserID     int64  `gorm:"column:user_id;not null;uniqueIndex:uniq_user_chat,priority:1;index:idx_user_seen,priority:1"`
	ChatID     int64  `gorm:"column:chat_id;not null;uniqueIndex:uniq_user_chat,priority:2"`
	ChatTitle  string `gorm:"column:chat_title;type:text"`
	LastSeenAt int64  `gorm:"column:last_seen_at;not null;index:idx_user_seen,priority:2"`
}

func (Membership) TableName() string { return "memberships" }
