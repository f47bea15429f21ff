// Package membership keeps the user→chat recency table fresh. Every inbound
// group event from a human sender is observed; failures here are logged and
// swallowed so they never block indexing or command handling.
package membership

import (
	"context"
	"log/slog"
	"time"

	"github.com/quailyquaily/clipshelf/telegram"
)

type MembershipStore interface {
	UpsertMembership(ctx context.Context, userID, chatID int64, ts int64, chatTitle string) error
}

type Tracker struct {
	store  MembershipStore
	logger *slog.Logger
	now    func() time.Time
}

func New(store MembershipStore, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{store: store, logger: logger, now: time.Now}
}

// Observe records the sender as a current member of the message's group chat.
// It never returns an error: downstream handling of the same event must not
// depend on tracker outcome.
func (t *Tracker) Observe(ctx context.Context, msg *telegram.Message) {
	if msg == nil {
		return
	}
	t.ObserveUser(ctx, msg.From, msg.Chat)
}

// ObserveUser records user u as a current member of chat. Button activations
// carry sender identity without a message of their own, so they route through
// here directly.
func (t *Tracker) ObserveUser(ctx context.Context, u *telegram.User, chat *telegram.Chat) {
	if !chat.IsGroup() {
		return
	}
	if u == nil || u.IsBot || u.ID == 0 {
		return
	}
	err := t.store.UpsertMembership(ctx, u.ID, chat.ID, t.now().Unix(), chat.Title)
	if err != nil {
		t.logger.Warn("membership_upsert_error", "user_id", u.ID, "chat_id", chat.ID, "error", err.Error())
		return
	}
	t.logger.Debug("membership_observed", "user_id", u.ID, "user", telegram.DisplayName(u), "chat_id", chat.ID)
}
