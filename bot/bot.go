// Package bot wires the transport event stream to the indexing and retrieval
// engine. Every inbound update is dispatched as its own task; membership
// tracking runs first and never short-circuits the handlers behind it.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/quailyquaily/clipshelf/index"
	"github.com/quailyquaily/clipshelf/limiter"
	"github.com/quailyquaily/clipshelf/membership"
	"github.com/quailyquaily/clipshelf/menu"
	"github.com/quailyquaily/clipshelf/resolve"
	"github.com/quailyquaily/clipshelf/store"
	"github.com/quailyquaily/clipshelf/telegram"
)

type Options struct {
	API            *telegram.Client
	Store          *store.Store
	Limiter        *limiter.Limiter
	Logger         *slog.Logger
	PollTimeout    time.Duration
	MaxConcurrency int
}

type Bot struct {
	api      *telegram.Client
	store    *store.Store
	tracker  *membership.Tracker
	indexer  *index.Indexer
	resolver *resolve.Resolver
	pager    *menu.Paginator
	limiter  *limiter.Limiter
	guard    *callbackGuard
	logger   *slog.Logger

	pollTimeout time.Duration
	maxConc     int
	botUser     string
}

func New(opts Options) *Bot {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30 * time.Second
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 8
	}
	return &Bot{
		api:         opts.API,
		store:       opts.Store,
		tracker:     membership.New(opts.Store, opts.Logger),
		indexer:     index.New(opts.Store, opts.Logger),
		resolver:    resolve.New(opts.Store),
		pager:       menu.New(opts.Store),
		limiter:     opts.Limiter,
		guard:       newCallbackGuard(),
		logger:      opts.Logger,
		pollTimeout: opts.PollTimeout,
		maxConc:     opts.MaxConcurrency,
	}
}

// Run polls the transport until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	var me *telegram.User
	for {
		var err error
		me, err = b.api.GetMe(ctx)
		if err == nil {
			break
		}
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			b.logger.Info("bot_stop", "reason", "context_canceled")
			return nil
		}
		b.logger.Warn("bot_get_me_error", "error", err.Error())
		select {
		case <-ctx.Done():
			b.logger.Info("bot_stop", "reason", "context_canceled")
			return nil
		case <-time.After(2 * time.Second):
		}
	}
	b.botUser = me.Username

	go b.guard.run(ctx)

	b.logger.Info("bot_start",
		"bot_username", b.botUser,
		"bot_id", me.ID,
		"poll_timeout", b.pollTimeout.String(),
		"max_concurrency", b.maxConc,
	)

	sem := make(chan struct{}, b.maxConc)
	var offset int64
	for {
		updates, nextOffset, err := b.api.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				b.logger.Info("bot_stop", "reason", "context_canceled")
				return nil
			}
			if telegram.IsPollTimeout(err) {
				b.logger.Debug("bot_get_updates_timeout", "error", err.Error())
			} else {
				b.logger.Warn("bot_get_updates_error", "error", err.Error())
			}
			time.Sleep(1 * time.Second)
			continue
		}
		offset = nextOffset

		for _, u := range updates {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				b.logger.Info("bot_stop", "reason", "context_canceled")
				return nil
			}
			u := u
			go func() {
				defer func() { <-sem }()
				b.dispatch(ctx, u)
			}()
		}
	}
}

// dispatch handles one update, recovering from any panic so a single bad
// event can never take the process down.
func (b *Bot) dispatch(ctx context.Context, u telegram.Update) {
	var chatID int64
	var private bool
	if msg := updateMessage(u); msg != nil && msg.Chat != nil {
		chatID = msg.Chat.ID
		private = msg.Chat.IsPrivate()
	} else if u.CallbackQuery != nil && u.CallbackQuery.Message != nil && u.CallbackQuery.Message.Chat != nil {
		chatID = u.CallbackQuery.Message.Chat.ID
		private = u.CallbackQuery.Message.Chat.IsPrivate()
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bot_handler_panic", "update_id", u.UpdateID, "chat_id", chatID, "panic", r)
			if private && chatID != 0 {
				b.sendText(ctx, chatID, techIssueText, telegram.SendOptions{})
			}
		}
	}()

	if cb := u.CallbackQuery; cb != nil {
		// A button tap in a group is membership evidence like any message.
		if cb.Message != nil {
			b.tracker.ObserveUser(ctx, cb.From, cb.Message.Chat)
		}
		b.handleCallback(ctx, cb)
		return
	}

	msg := u.Message
	edited := false
	if msg == nil {
		msg = u.EditedMessage
		edited = true
	}
	if msg == nil || msg.Chat == nil {
		return
	}

	// Side effect only; the event keeps flowing regardless of outcome.
	b.tracker.Observe(ctx, msg)
	b.indexer.HandleMessage(ctx, msg)

	if edited {
		// Caption edits only re-run indexing; commands are not replayed.
		return
	}
	b.handleCommand(ctx, msg)
}

func updateMessage(u telegram.Update) *telegram.Message {
	if u.Message != nil {
		return u.Message
	}
	return u.EditedMessage
}

func destKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// sendText pushes a message through the delivery limiter, logging (not
// propagating) the failure: callers on the event path have nobody to report
// to.
func (b *Bot) sendText(ctx context.Context, chatID int64, text string, opts telegram.SendOptions) {
	err := b.limiter.Do(ctx, destKey(chatID), func(ctx context.Context) error {
		return b.api.SendMessage(ctx, chatID, text, opts)
	})
	if err != nil {
		b.logger.Warn("bot_send_error", "chat_id", chatID, "error", err.Error())
	}
}
