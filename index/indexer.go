// Package index derives titles from media-bearing group messages and records
// them for later retrieval. Indexing is best-effort: anything that does not
// qualify is ignored, and storage faults never interrupt event handling.
package index

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/quailyquaily/clipshelf/internal/strutil"
	"github.com/quailyquaily/clipshelf/telegram"
)

type MediaStore interface {
	UpsertMedia(ctx context.Context, chatID int64, title string, messageID int64, chatTitle string, ts int64) error
}

type Indexer struct {
	store  MediaStore
	logger *slog.Logger
	now    func() time.Time
}

func New(store MediaStore, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{store: store, logger: logger, now: time.Now}
}

// HandleMessage indexes one inbound message if it qualifies. Caption edits on
// an already-qualifying media type go through the same path, which keys on
// chat+new-title: a retitle may create a second record rather than rename the
// first.
func (ix *Indexer) HandleMessage(ctx context.Context, msg *telegram.Message) {
	if msg == nil || msg.Chat == nil || !msg.Chat.IsGroup() {
		return
	}
	title, ok := DeriveTitle(msg)
	if !ok {
		return
	}
	err := ix.store.UpsertMedia(ctx, msg.Chat.ID, title, msg.MessageID, msg.Chat.Title, ix.now().Unix())
	if err != nil {
		ix.logger.Warn("index_upsert_error", "chat_id", msg.Chat.ID, "message_id", msg.MessageID, "error", err.Error())
		return
	}
	ix.logger.Info("index_upsert", "chat_id", msg.Chat.ID, "message_id", msg.MessageID, "title", title)
}

// DeriveTitle extracts the index title for a message: the caption when
// present, otherwise the file name minus its last extension. It reports false
// when the message carries no qualifying video payload or no usable text.
func DeriveTitle(msg *telegram.Message) (string, bool) {
	if msg == nil {
		return "", false
	}
	fileName := ""
	switch {
	case msg.Video != nil:
		fileName = msg.Video.FileName
	case msg.Document != nil && strings.HasPrefix(strings.ToLower(strings.TrimSpace(msg.Document.MimeType)), "video/"):
		fileName = msg.Document.FileName
	default:
		return "", false
	}

	if title := strutil.CollapseWhitespace(msg.Caption); title != "" {
		return title, true
	}
	if title := strutil.CollapseWhitespace(stripExtension(fileName)); title != "" {
		return title, true
	}
	return "", false
}

// stripExtension drops the last extension segment of a file name, keeping
// earlier dots: "a.b.mp4" becomes "a.b".
func stripExtension(name string) string {
	name = strings.TrimSpace(name)
	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return name
	}
	return name[:i]
}
