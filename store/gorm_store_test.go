package store

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/quailyquaily/clipshelf/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&models.MediaItem{}, &models.Membership{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(gdb)
}

func TestUpsertMedia_ReplaceOnSameTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertMedia(ctx, 10, "Algebra Basics", 100, "Math Club", 1000); err != nil {
		t.Fatalf("UpsertMedia() error = %v", err)
	}
	if err := s.UpsertMedia(ctx, 10, "algebra basics", 200, "Math Club", 2000); err != nil {
		t.Fatalf("UpsertMedia() error = %v", err)
	}

	row, ok, err := s.GetExact(ctx, 10, "ALGEBRA BASICS")
	if err != nil {
		t.Fatalf("GetExact() error = %v", err)
	}
	if !ok {
		t.Fatalf("expected a record")
	}
	if row.MessageID != 200 {
		t.Fatalf("message_id mismatch: got %d want 200", row.MessageID)
	}
	if row.Title != "algebra basics" {
		t.Fatalf("title mismatch: got %q", row.Title)
	}
	if row.UpdatedAt != 2000 {
		t.Fatalf("updated_at mismatch: got %d", row.UpdatedAt)
	}

	n, err := s.CountMedia(ctx, 10)
	if err != nil {
		t.Fatalf("CountMedia() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("count mismatch: got %d want 1", n)
	}
}

func TestUpsertMedia_SameTitleDifferentChats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertMedia(ctx, 1, "intro", 11, "A", 1000); err != nil {
		t.Fatalf("UpsertMedia() error = %v", err)
	}
	if err := s.UpsertMedia(ctx, 2, "intro", 22, "B", 1000); err != nil {
		t.Fatalf("UpsertMedia() error = %v", err)
	}

	rowA, ok, err := s.GetExact(ctx, 1, "intro")
	if err != nil || !ok {
		t.Fatalf("GetExact(chat 1) = %v, %v", ok, err)
	}
	rowB, ok, err := s.GetExact(ctx, 2, "intro")
	if err != nil || !ok {
		t.Fatalf("GetExact(chat 2) = %v, %v", ok, err)
	}
	if rowA.MessageID != 11 || rowB.MessageID != 22 {
		t.Fatalf("message ids mismatch: got %d, %d", rowA.MessageID, rowB.MessageID)
	}
}

func TestUpsertMedia_EmptyTitleIgnored(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertMedia(ctx, 1, "   ", 11, "A", 1000); err != nil {
		t.Fatalf("UpsertMedia() error = %v", err)
	}
	n, err := s.CountMedia(ctx, 1)
	if err != nil {
		t.Fatalf("CountMedia() error = %v", err)
	}
	if n != 0 {
		t.Fatalf("count mismatch: got %d want 0", n)
	}
}

func TestGetExact_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.GetExact(context.Background(), 1, "missing")
	if err != nil {
		t.Fatalf("GetExact() error = %v", err)
	}
	if ok {
		t.Fatalf("expected no record")
	}
}

func TestSearchFuzzy_CapAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	titles := []string{"go talk 1", "go talk 2", "go talk 3", "go talk 4", "go talk 5", "go talk 6", "go talk 7"}
	for i, title := range titles {
		if err := s.UpsertMedia(ctx, 1, title, int64(100+i), "A", int64(1000+i)); err != nil {
			t.Fatalf("UpsertMedia(%q) error = %v", title, err)
		}
	}

	rows, err := s.SearchFuzzy(ctx, 1, "GO TALK", 0)
	if err != nil {
		t.Fatalf("SearchFuzzy() error = %v", err)
	}
	if len(rows) != FuzzyLimit {
		t.Fatalf("row count mismatch: got %d want %d", len(rows), FuzzyLimit)
	}
	// Newest first.
	if rows[0].Title != "go talk 7" {
		t.Fatalf("first row mismatch: got %q", rows[0].Title)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].UpdatedAt > rows[i-1].UpdatedAt {
			t.Fatalf("rows not ordered newest first at %d", i)
		}
	}
}

func TestSearchFuzzy_NoMatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertMedia(ctx, 1, "calculus", 1, "A", 1000); err != nil {
		t.Fatalf("UpsertMedia() error = %v", err)
	}
	rows, err := s.SearchFuzzy(ctx, 1, "algebra", 5)
	if err != nil {
		t.Fatalf("SearchFuzzy() error = %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestSearchFuzzy_LiteralMetacharacters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertMedia(ctx, 1, "algebra basics", 1, "A", 1000); err != nil {
		t.Fatalf("UpsertMedia() error = %v", err)
	}
	if err := s.UpsertMedia(ctx, 1, "100% pure", 2, "A", 1001); err != nil {
		t.Fatalf("UpsertMedia() error = %v", err)
	}
	if err := s.UpsertMedia(ctx, 1, "snake_case", 3, "A", 1002); err != nil {
		t.Fatalf("UpsertMedia() error = %v", err)
	}
	if err := s.UpsertMedia(ctx, 1, "snakeycase", 4, "A", 1003); err != nil {
		t.Fatalf("UpsertMedia() error = %v", err)
	}

	// Wildcards in the query must not match across characters.
	rows, err := s.SearchFuzzy(ctx, 1, "a%s", 5)
	if err != nil {
		t.Fatalf("SearchFuzzy() error = %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("wildcard query matched %d rows", len(rows))
	}

	// An underscore in the query only matches a literal underscore.
	rows, err = s.SearchFuzzy(ctx, 1, "snake_case", 5)
	if err != nil {
		t.Fatalf("SearchFuzzy() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Title != "snake_case" {
		t.Fatalf("underscore query mismatch: got %+v", rows)
	}

	// Titles containing metacharacters stay findable literally.
	rows, err = s.SearchFuzzy(ctx, 1, "100%", 5)
	if err != nil {
		t.Fatalf("SearchFuzzy() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Title != "100% pure" {
		t.Fatalf("literal %% query mismatch: got %+v", rows)
	}
}

func TestListMedia_Pagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		title := "clip " + string(rune('a'+i))
		if err := s.UpsertMedia(ctx, 1, title, int64(i), "A", int64(1000+i)); err != nil {
			t.Fatalf("UpsertMedia() error = %v", err)
		}
	}

	first, err := s.ListMedia(ctx, 1, 10, 0)
	if err != nil {
		t.Fatalf("ListMedia() error = %v", err)
	}
	if len(first) != 10 {
		t.Fatalf("page size mismatch: got %d want 10", len(first))
	}
	second, err := s.ListMedia(ctx, 1, 10, 10)
	if err != nil {
		t.Fatalf("ListMedia() error = %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("second page mismatch: got %d want 2", len(second))
	}
	if first[0].UpdatedAt < second[0].UpdatedAt {
		t.Fatalf("pages not ordered newest first")
	}
}

func TestUpsertMembership_MonotonicLastSeen(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertMembership(ctx, 7, 1, 2000, "Math Club"); err != nil {
		t.Fatalf("UpsertMembership() error = %v", err)
	}
	// An older observation must not move last_seen_at backwards.
	if err := s.UpsertMembership(ctx, 7, 1, 1500, "Math Club"); err != nil {
		t.Fatalf("UpsertMembership() error = %v", err)
	}

	chats, err := s.ListChatsForUser(ctx, 7)
	if err != nil {
		t.Fatalf("ListChatsForUser() error = %v", err)
	}
	if len(chats) != 1 {
		t.Fatalf("chat count mismatch: got %d want 1", len(chats))
	}
	if chats[0].LastSeenAt != 2000 {
		t.Fatalf("last_seen_at mismatch: got %d want 2000", chats[0].LastSeenAt)
	}
}

func TestUpsertMembership_KeepsTitleWhenEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertMembership(ctx, 7, 1, 1000, "Math Club"); err != nil {
		t.Fatalf("UpsertMembership() error = %v", err)
	}
	if err := s.UpsertMembership(ctx, 7, 1, 2000, ""); err != nil {
		t.Fatalf("UpsertMembership() error = %v", err)
	}

	chats, err := s.ListChatsForUser(ctx, 7)
	if err != nil {
		t.Fatalf("ListChatsForUser() error = %v", err)
	}
	if chats[0].ChatTitle != "Math Club" {
		t.Fatalf("chat_title mismatch: got %q", chats[0].ChatTitle)
	}
	if chats[0].LastSeenAt != 2000 {
		t.Fatalf("last_seen_at mismatch: got %d", chats[0].LastSeenAt)
	}
}

func TestListChatsForUser_RecentFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertMembership(ctx, 7, 1, 1000, "A"); err != nil {
		t.Fatalf("UpsertMembership() error = %v", err)
	}
	if err := s.UpsertMembership(ctx, 7, 2, 3000, "B"); err != nil {
		t.Fatalf("UpsertMembership() error = %v", err)
	}
	if err := s.UpsertMembership(ctx, 7, 3, 2000, "C"); err != nil {
		t.Fatalf("UpsertMembership() error = %v", err)
	}

	chats, err := s.ListChatsForUser(ctx, 7)
	if err != nil {
		t.Fatalf("ListChatsForUser() error = %v", err)
	}
	if len(chats) != 3 {
		t.Fatalf("chat count mismatch: got %d", len(chats))
	}
	if chats[0].ChatID != 2 || chats[1].ChatID != 3 || chats[2].ChatID != 1 {
		t.Fatalf("order mismatch: got %d, %d, %d", chats[0].ChatID, chats[1].ChatID, chats[2].ChatID)
	}
}

func TestListMediaForUser_ScopedByMembership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertMedia(ctx, 1, "visible", 10, "A", 1000); err != nil {
		t.Fatalf("UpsertMedia() error = %v", err)
	}
	if err := s.UpsertMedia(ctx, 2, "hidden", 20, "B", 2000); err != nil {
		t.Fatalf("UpsertMedia() error = %v", err)
	}
	if err := s.UpsertMembership(ctx, 7, 1, 1000, "A"); err != nil {
		t.Fatalf("UpsertMembership() error = %v", err)
	}

	rows, err := s.ListMediaForUser(ctx, 7, 10, 0)
	if err != nil {
		t.Fatalf("ListMediaForUser() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("row count mismatch: got %d want 1", len(rows))
	}
	if rows[0].Title != "visible" {
		t.Fatalf("title mismatch: got %q", rows[0].Title)
	}

	n, err := s.CountMediaForUser(ctx, 7)
	if err != nil {
		t.Fatalf("CountMediaForUser() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("count mismatch: got %d want 1", n)
	}
}
