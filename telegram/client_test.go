package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetMe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/getMe" {
			t.Errorf("path mismatch: got %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"username":"clipshelf_bot"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "TOKEN")
	me, err := c.GetMe(context.Background())
	if err != nil {
		t.Fatalf("GetMe() error = %v", err)
	}
	if me.Username != "clipshelf_bot" || !me.IsBot {
		t.Fatalf("user mismatch: got %+v", me)
	}
}

func TestGetUpdates_AdvancesOffset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":100,"message":{"message_id":1,"chat":{"id":-5,"type":"group"},"text":"hi"}},
			{"update_id":101,"message":{"message_id":2,"chat":{"id":-5,"type":"group"},"text":"yo"}}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "TOKEN")
	updates, next, err := c.GetUpdates(context.Background(), 0, time.Second)
	if err != nil {
		t.Fatalf("GetUpdates() error = %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("update count mismatch: got %d", len(updates))
	}
	if next != 102 {
		t.Fatalf("next offset mismatch: got %d want 102", next)
	}
	if updates[0].Message == nil || updates[0].Message.Chat.ID != -5 {
		t.Fatalf("update payload mismatch: got %+v", updates[0])
	}
}

func TestGetUpdates_EmptyKeepsOffset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("offset"); got != "42" {
			t.Errorf("offset mismatch: got %q", got)
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "TOKEN")
	updates, next, err := c.GetUpdates(context.Background(), 42, time.Second)
	if err != nil {
		t.Fatalf("GetUpdates() error = %v", err)
	}
	if len(updates) != 0 || next != 42 {
		t.Fatalf("mismatch: %d updates, next %d", len(updates), next)
	}
}

func TestSendMessage_Payload(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("path mismatch: got %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "TOKEN")
	err := c.SendMessage(context.Background(), 7, "  hello  ", SendOptions{})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if got.ChatID != 7 || got.Text != "hello" {
		t.Fatalf("payload mismatch: got %+v", got)
	}
	if !got.DisableWebPagePreview {
		t.Fatalf("expected link previews disabled")
	}
}

func TestForwardMessage_ErrorShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: message to forward not found"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "TOKEN")
	err := c.ForwardMessage(context.Background(), 7, -100, 55)
	if err == nil {
		t.Fatalf("expected an error")
	}
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("error type mismatch: %T", err)
	}
	if reqErr.StatusCode != 400 || reqErr.ErrorCode != 400 {
		t.Fatalf("codes mismatch: got %+v", reqErr)
	}
	if reqErr.Description != "Bad Request: message to forward not found" {
		t.Fatalf("description mismatch: got %q", reqErr.Description)
	}
}

func TestPost_RateLimitCarriesRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 17","parameters":{"retry_after":17}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "TOKEN")
	err := c.SendMessage(context.Background(), 7, "hi", SendOptions{})
	if err == nil {
		t.Fatalf("expected an error")
	}

	delay, ok := RetryAfterIn(err)
	if !ok {
		t.Fatalf("expected a retry hint from %v", err)
	}
	if delay != 17*time.Second {
		t.Fatalf("delay mismatch: got %v", delay)
	}
}

func TestRetryAfterIn_Negatives(t *testing.T) {
	cases := []error{
		nil,
		errors.New("plain"),
		&RequestError{StatusCode: 400, ErrorCode: 400},
		&RequestError{StatusCode: 429, ErrorCode: 429}, // no parameters
		&RequestError{StatusCode: 429, ErrorCode: 429, Parameters: &ResponseParameters{RetryAfter: 0}},
	}
	for _, err := range cases {
		if _, ok := RetryAfterIn(err); ok {
			t.Fatalf("RetryAfterIn(%v) unexpectedly reported a hint", err)
		}
	}
}

func TestAnswerCallbackQuery_RequiresID(t *testing.T) {
	c := NewClient(nil, "http://127.0.0.1:0", "TOKEN")
	if err := c.AnswerCallbackQuery(context.Background(), "  ", "", false, 0); err == nil {
		t.Fatalf("expected an error for a blank callback id")
	}
}

func TestIsPollTimeout(t *testing.T) {
	if !IsPollTimeout(context.DeadlineExceeded) {
		t.Fatalf("deadline exceeded should read as a poll timeout")
	}
	if IsPollTimeout(nil) {
		t.Fatalf("nil is not a timeout")
	}
	if IsPollTimeout(errors.New("connection refused")) {
		t.Fatalf("refused connection is not a timeout")
	}
}
