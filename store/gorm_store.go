package store

import (
	"context"
	"errors"
	"strings"

	"github.com/quailyquaily/clipshelf/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FuzzyLimit caps how many fuzzy matches a single chat contributes.
const FuzzyLimit = 5

// ChatRef is one chat a user has been seen in, most recent first.
type ChatRef struct {
	ChatID     int64
	ChatTitle  string
	LastSeenAt int64
}

type Store struct {
	DB *gorm.DB
}

func New(gdb *gorm.DB) *Store {
	return &Store{DB: gdb}
}

// TitleKey returns the case-insensitive lookup key for a title.
func TitleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// UpsertMedia writes the latest message reference for (chat, title).
// A repeat upload with the same normalized title replaces the reference
// and timestamp of the earlier record.
func (s *Store) UpsertMedia(ctx context.Context, chatID int64, title string, messageID int64, chatTitle string, ts int64) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	row := models.MediaItem{
		ChatID:    chatID,
		Title:     title,
		TitleKey:  TitleKey(title),
		MessageID: messageID,
		ChatTitle: strings.TrimSpace(chatTitle),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "chat_id"},
				{Name: "title_key"},
			},
			DoUpdates: clause.Assignments(map[string]any{
				"title":      row.Title,
				"message_id": row.MessageID,
				"chat_title": row.ChatTitle,
				"updated_at": ts,
			}),
		}).
		Create(&row).Error
	return wrap("upsert media", err)
}

// GetExact looks a title up case-insensitively within one chat.
func (s *Store) GetExact(ctx context.Context, chatID int64, title string) (models.MediaItem, bool, error) {
	key := TitleKey(title)
	if key == "" {
		return models.MediaItem{}, false, nil
	}
	var row models.MediaItem
	err := s.DB.WithContext(ctx).
		Where("chat_id = ? AND title_key = ?", chatID, key).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.MediaItem{}, false, nil
		}
		return models.MediaItem{}, false, wrap("get exact", err)
	}
	return row, true, nil
}

// likeEscaper neutralizes LIKE metacharacters so a query substring only ever
// matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchFuzzy returns records whose title contains the substring literally
// and case-insensitively, newest first, capped at FuzzyLimit.
func (s *Store) SearchFuzzy(ctx context.Context, chatID int64, substring string, limit int) ([]models.MediaItem, error) {
	key := TitleKey(substring)
	if key == "" {
		return nil, nil
	}
	if limit <= 0 || limit > FuzzyLimit {
		limit = FuzzyLimit
	}
	var rows []models.MediaItem
	err := s.DB.WithContext(ctx).
		Where(`chat_id = ? AND title_key LIKE ? ESCAPE '\'`, chatID, "%"+likeEscaper.Replace(key)+"%").
		Order("updated_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, wrap("search fuzzy", err)
	}
	return rows, nil
}

func (s *Store) ListMedia(ctx context.Context, chatID int64, limit, offset int) ([]models.MediaItem, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	var rows []models.MediaItem
	err := s.DB.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, wrap("list media", err)
	}
	return rows, nil
}

func (s *Store) CountMedia(ctx context.Context, chatID int64) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).
		Model(&models.MediaItem{}).
		Where("chat_id = ?", chatID).
		Count(&n).Error
	if err != nil {
		return 0, wrap("count media", err)
	}
	return n, nil
}

// UpsertMembership records that a user was active in a chat. last_seen_at
// never moves backwards, and the cached chat title is only overwritten by a
// non-empty observed name.
func (s *Store) UpsertMembership(ctx context.Context, userID, chatID int64, ts int64, chatTitle string) error {
	chatTitle = strings.TrimSpace(chatTitle)
	row := models.Membership{
		UserID:     userID,
		ChatID:     chatID,
		ChatTitle:  chatTitle,
		LastSeenAt: ts,
	}
	assignments := map[string]any{
		"last_seen_at": gorm.Expr("MAX(last_seen_at, ?)", ts),
	}
	if chatTitle != "" {
		assignments["chat_title"] = chatTitle
	}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "chat_id"},
			},
			DoUpdates: clause.Assignments(assignments),
		}).
		Create(&row).Error
	return wrap("upsert membership", err)
}

// ListChatsForUser returns every chat the user has been seen in, ordered by
// last-seen descending.
func (s *Store) ListChatsForUser(ctx context.Context, userID int64) ([]ChatRef, error) {
	var rows []models.Membership
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_seen_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, wrap("list chats for user", err)
	}
	out := make([]ChatRef, 0, len(rows))
	for _, r := range rows {
		out = append(out, ChatRef{ChatID: r.ChatID, ChatTitle: r.ChatTitle, LastSeenAt: r.LastSeenAt})
	}
	return out, nil
}

// ListMediaForUser pages across every chat the user belongs to, newest first.
func (s *Store) ListMediaForUser(ctx context.Context, userID int64, limit, offset int) ([]models.MediaItem, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	var rows []models.MediaItem
	err := s.DB.WithContext(ctx).
		Model(&models.MediaItem{}).
		Joins("JOIN memberships ON memberships.chat_id = media_items.chat_id AND memberships.user_id = ?", userID).
		Order("media_items.updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, wrap("list media for user", err)
	}
	return rows, nil
}

func (s *Store) CountMediaForUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).
		Model(&models.MediaItem{}).
		Joins("JOIN memberships ON memberships.chat_id = media_items.chat_id AND memberships.user_id = ?", userID).
		Count(&n).Error
	if err != nil {
		return 0, wrap("count media for user", err)
	}
	return n, nil
}
