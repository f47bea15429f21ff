// Package menu renders windowed listings of the media index as inline
// keyboards. It holds no state between invocations: scope and offset travel
// in the round-trip callback token.
package menu

import (
	"context"

	"github.com/quailyquaily/clipshelf/db/models"
	"github.com/quailyquaily/clipshelf/internal/strutil"
	"github.com/quailyquaily/clipshelf/telegram"
)

// PageSize is the fixed window; Telegram keyboards get unwieldy past ten rows.
const PageSize = 10

// Button labels stay under Telegram's 64-byte callback/text comfort zone.
const maxLabelBytes = 48

type ScopeKind string

const (
	ScopeChat ScopeKind = "chat"
	ScopeUser ScopeKind = "user"
)

type Scope struct {
	Kind ScopeKind
	ID   int64
}

type Row struct {
	Title     string
	ChatTitle string
	ChatID    int64
	MessageID int64
}

type Page struct {
	Scope   Scope
	Offset  int
	Total   int64
	Rows    []Row
	HasPrev bool
	HasNext bool
}

type Lister interface {
	ListMedia(ctx context.Context, chatID int64, limit, offset int) ([]models.MediaItem, error)
	CountMedia(ctx context.Context, chatID int64) (int64, error)
	ListMediaForUser(ctx context.Context, userID int64, limit, offset int) ([]models.MediaItem, error)
	CountMediaForUser(ctx context.Context, userID int64) (int64, error)
}

type Paginator struct {
	store Lister
}

func New(store Lister) *Paginator {
	return &Paginator{store: store}
}

func (p *Paginator) Page(ctx context.Context, scope Scope, offset int) (Page, error) {
	if offset < 0 {
		offset = 0
	}
	var (
		items []models.MediaItem
		total int64
		err   error
	)
	switch scope.Kind {
	case ScopeUser:
		total, err = p.store.CountMediaForUser(ctx, scope.ID)
		if err == nil {
			items, err = p.store.ListMediaForUser(ctx, scope.ID, PageSize, offset)
		}
	default:
		total, err = p.store.CountMedia(ctx, scope.ID)
		if err == nil {
			items, err = p.store.ListMedia(ctx, scope.ID, PageSize, offset)
		}
	}
	if err != nil {
		return Page{}, err
	}

	page := Page{
		Scope:   scope,
		Offset:  offset,
		Total:   total,
		HasPrev: offset > 0,
		HasNext: int64(offset+PageSize) < total,
	}
	for _, it := range items {
		page.Rows = append(page.Rows, Row{
			Title:     it.Title,
			ChatTitle: it.ChatTitle,
			ChatID:    it.ChatID,
			MessageID: it.MessageID,
		})
	}
	return page, nil
}

// Keyboard maps each row to a forward action plus a navigation row exposing
// prev/next only when a prior/following page exists.
func Keyboard(page Page) *telegram.InlineKeyboardMarkup {
	kb := &telegram.InlineKeyboardMarkup{}
	for _, row := range page.Rows {
		kb.InlineKeyboard = append(kb.InlineKeyboard, []telegram.InlineKeyboardButton{{
			Text:         strutil.TruncateUTF8(row.Title, maxLabelBytes),
			CallbackData: ForwardToken(row.ChatID, row.MessageID),
		}})
	}
	var nav []telegram.InlineKeyboardButton
	if page.HasPrev {
		prev := page.Offset - PageSize
		if prev < 0 {
			prev = 0
		}
		nav = append(nav, telegram.InlineKeyboardButton{
			Text:         "« Prev",
			CallbackData: PageToken(page.Scope, prev),
		})
	}
	if page.HasNext {
		nav = append(nav, telegram.InlineKeyboardButton{
			Text:         "Next »",
			CallbackData: PageToken(page.Scope, page.Offset+PageSize),
		})
	}
	if len(nav) > 0 {
		kb.InlineKeyboard = append(kb.InlineKeyboard, nav)
	}
	return kb
}
