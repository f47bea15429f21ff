package menu

import (
	"fmt"
	"strconv"
	"strings"
)

// Callback data tokens are pipe-delimited ASCII and must round-trip exactly:
//
//	L|<chatId>|<messageId>          forward one indexed message
//	P|chat|<chatId>|<offset>        page within a single chat
//	P|user|<userId>|<offset>        page within a user's cross-chat scope

type ActionKind string

const (
	ActionForward ActionKind = "forward"
	ActionPage    ActionKind = "page"
)

type Action struct {
	Kind      ActionKind
	ChatID    int64
	MessageID int64
	Scope     Scope
	Offset    int
}

func ForwardToken(chatID, messageID int64) string {
	return fmt.Sprintf("L|%d|%d", chatID, messageID)
}

func PageToken(scope Scope, offset int) string {
	return fmt.Sprintf("P|%s|%d|%d", scope.Kind, scope.ID, offset)
}

func ParseToken(data string) (Action, error) {
	parts := strings.Split(data, "|")
	switch {
	case len(parts) == 3 && parts[0] == "L":
		chatID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return Action{}, fmt.Errorf("bad forward token %q: %w", data, err)
		}
		messageID, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return Action{}, fmt.Errorf("bad forward token %q: %w", data, err)
		}
		return Action{Kind: ActionForward, ChatID: chatID, MessageID: messageID}, nil
	case len(parts) == 4 && parts[0] == "P":
		kind := ScopeKind(parts[1])
		if kind != ScopeChat && kind != ScopeUser {
			return Action{}, fmt.Errorf("bad page token %q: unknown scope", data)
		}
		id, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return Action{}, fmt.Errorf("bad page token %q: %w", data, err)
		}
		offset, err := strconv.Atoi(parts[3])
		if err != nil || offset < 0 {
			return Action{}, fmt.Errorf("bad page token %q: invalid offset", data)
		}
		return Action{Kind: ActionPage, Scope: Scope{Kind: kind, ID: id}, Offset: offset}, nil
	default:
		return Action{}, fmt.Errorf("unknown callback token %q", data)
	}
}
