package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/quailyquaily/clipshelf/internal/strutil"
	"github.com/quailyquaily/clipshelf/menu"
	"github.com/quailyquaily/clipshelf/resolve"
	"github.com/quailyquaily/clipshelf/telegram"
)

func (b *Bot) handleCommand(ctx context.Context, msg *telegram.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	chat := msg.Chat
	word, args := splitCommand(text)
	switch normalizeCommand(word, b.botUser) {
	case "/start", "/help":
		opts := telegram.SendOptions{}
		if chat.IsPrivate() {
			opts.ReplyMarkup = &telegram.ReplyKeyboardMarkup{
				Keyboard:       [][]telegram.KeyboardButton{{{Text: menuButtonLabel}}},
				ResizeKeyboard: true,
			}
		}
		b.sendText(ctx, chat.ID, helpText(b.botUser), opts)
	case "/id":
		b.sendText(ctx, chat.ID, fmt.Sprintf("chat_id=%d type=%s", chat.ID, chat.Type), telegram.SendOptions{})
	case "/menu":
		b.handleMenu(ctx, msg)
	case "/search", "/s":
		b.handleSearch(ctx, msg, args)
	default:
		if isMenuLabel(text, chat.IsPrivate()) {
			b.handleMenu(ctx, msg)
			return
		}
		// In private chat, bare text is a query; in groups everything
		// else is ordinary conversation.
		if chat.IsPrivate() && !strings.HasPrefix(text, "/") {
			b.handleSearch(ctx, msg, text)
		}
	}
}

func (b *Bot) handleSearch(ctx context.Context, msg *telegram.Message, query string) {
	chat := msg.Chat
	req := resolve.Request{
		Query:   query,
		ChatID:  chat.ID,
		Private: chat.IsPrivate(),
	}
	if msg.From != nil {
		req.UserID = msg.From.ID
	}

	disp, err := b.resolver.Resolve(ctx, req)
	if err != nil {
		b.logger.Error("bot_resolve_error", "chat_id", chat.ID, "error", err.Error())
		// Storage trouble is surfaced in private chats only; groups stay
		// quiet rather than spamming every member.
		if chat.IsPrivate() {
			b.sendText(ctx, chat.ID, techIssueText, telegram.SendOptions{})
		}
		return
	}

	switch disp.Kind {
	case resolve.KindUsage:
		b.sendText(ctx, chat.ID, usageText, telegram.SendOptions{})
	case resolve.KindNoScope:
		b.sendText(ctx, chat.ID, noScopeText, telegram.SendOptions{})
	case resolve.KindNotFound:
		if chat.IsPrivate() {
			b.sendText(ctx, chat.ID, notFoundText, telegram.SendOptions{})
		}
	case resolve.KindResolved:
		b.forward(ctx, chat.ID, disp.Target.ChatID, disp.Target.MessageID)
	case resolve.KindAmbiguous:
		b.sendText(ctx, chat.ID, formatAmbiguous(disp), telegram.SendOptions{})
	}
}

func (b *Bot) forward(ctx context.Context, toChatID, fromChatID, messageID int64) {
	err := b.limiter.Do(ctx, destKey(toChatID), func(ctx context.Context) error {
		return b.api.ForwardMessage(ctx, toChatID, fromChatID, messageID)
	})
	if err != nil {
		b.logger.Warn("bot_forward_error", "to_chat_id", toChatID, "from_chat_id", fromChatID, "message_id", messageID, "error", err.Error())
		b.sendText(ctx, toChatID, forwardFailedText, telegram.SendOptions{})
	}
}

func formatAmbiguous(disp resolve.Disposition) string {
	var sb strings.Builder
	sb.WriteString("Found several matches, please be more specific:\n")
	for _, c := range disp.Candidates {
		sb.WriteString("• ")
		if disp.Phase == resolve.PhaseExact {
			sb.WriteString(c.ChatTitle)
		} else {
			sb.WriteString(c.ChatTitle)
			sb.WriteString(": ")
			sb.WriteString(strutil.TruncateUTF8(c.Title, 80))
		}
		sb.WriteString("\n")
	}
	if disp.Omitted > 0 {
		fmt.Fprintf(&sb, "…and %d more\n", disp.Omitted)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) handleMenu(ctx context.Context, msg *telegram.Message) {
	chat := msg.Chat
	scope := menu.Scope{Kind: menu.ScopeChat, ID: chat.ID}
	if chat.IsPrivate() {
		if msg.From == nil || msg.From.ID == 0 {
			return
		}
		scope = menu.Scope{Kind: menu.ScopeUser, ID: msg.From.ID}
	}

	page, err := b.pager.Page(ctx, scope, 0)
	if err != nil {
		b.logger.Error("bot_menu_error", "chat_id", chat.ID, "error", err.Error())
		if chat.IsPrivate() {
			b.sendText(ctx, chat.ID, techIssueText, telegram.SendOptions{})
		}
		return
	}
	if page.Total == 0 {
		b.sendText(ctx, chat.ID, "Nothing indexed yet. Post a video with a caption in a group chat.", telegram.SendOptions{})
		return
	}
	b.sendText(ctx, chat.ID, menuHeader(page), telegram.SendOptions{ReplyMarkup: menu.Keyboard(page)})
}

func menuHeader(page menu.Page) string {
	return fmt.Sprintf("Indexed videos (%d):", page.Total)
}

func (b *Bot) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		b.answerCallback(ctx, 0, cb.ID, "", false)
		return
	}
	chatID := cb.Message.Chat.ID

	if !b.guard.firstTime(cb.ID) {
		// Duplicate tap or transport retransmission; acknowledge without
		// repeating the side effect.
		b.answerCallback(ctx, chatID, cb.ID, "Already on it.", false)
		return
	}

	action, err := menu.ParseToken(cb.Data)
	if err != nil {
		b.logger.Warn("bot_callback_bad_token", "chat_id", chatID, "data", cb.Data, "error", err.Error())
		b.answerCallback(ctx, chatID, cb.ID, "This button has expired.", true)
		return
	}

	switch action.Kind {
	case menu.ActionForward:
		err := b.limiter.Do(ctx, destKey(chatID), func(ctx context.Context) error {
			return b.api.ForwardMessage(ctx, chatID, action.ChatID, action.MessageID)
		})
		if err != nil {
			b.logger.Warn("bot_callback_forward_error", "chat_id", chatID, "error", err.Error())
			b.answerCallback(ctx, chatID, cb.ID, forwardFailedText, true)
			return
		}
		b.answerCallback(ctx, chatID, cb.ID, "", false)
	case menu.ActionPage:
		page, err := b.pager.Page(ctx, action.Scope, action.Offset)
		if err != nil {
			b.logger.Error("bot_callback_page_error", "chat_id", chatID, "error", err.Error())
			b.answerCallback(ctx, chatID, cb.ID, techIssueText, true)
			return
		}
		err = b.limiter.Do(ctx, destKey(chatID), func(ctx context.Context) error {
			return b.api.EditMessageReplyMarkup(ctx, chatID, cb.Message.MessageID, menu.Keyboard(page))
		})
		if err != nil {
			b.logger.Warn("bot_callback_edit_error", "chat_id", chatID, "error", err.Error())
		}
		b.answerCallback(ctx, chatID, cb.ID, "", false)
	}
}

func (b *Bot) answerCallback(ctx context.Context, chatID int64, callbackID, text string, alert bool) {
	dest := destKey(chatID)
	if chatID == 0 {
		dest = "callback"
	}
	err := b.limiter.Do(ctx, dest, func(ctx context.Context) error {
		return b.api.AnswerCallbackQuery(ctx, callbackID, text, alert, 0)
	})
	if err != nil {
		b.logger.Warn("bot_answer_callback_error", "callback_id", callbackID, "error", err.Error())
	}
}
