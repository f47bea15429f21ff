// Package resolve turns a free-text query into a disposition: a unique
// forwardable hit, a disambiguation list, or one of the guiding outcomes.
// Resolution is two-phase: case-insensitive exact match first, substring
// containment only when the exact phase comes up empty. It produces no
// side effects; delivery is the caller's concern.
package resolve

import (
	"context"
	"strconv"
	"strings"

	"github.com/quailyquaily/clipshelf/db/models"
	"github.com/quailyquaily/clipshelf/internal/strutil"
	"github.com/quailyquaily/clipshelf/store"
)

type Kind string

const (
	KindResolved  Kind = "resolved"
	KindAmbiguous Kind = "ambiguous"
	KindNotFound  Kind = "not_found"
	KindUsage     Kind = "usage"
	KindNoScope   Kind = "no_scope"
)

type Phase string

const (
	PhaseExact Phase = "exact"
	PhaseFuzzy Phase = "fuzzy"
)

const (
	// poolStop ends further per-chat fuzzy queries once the pooled hit
	// count can no longer resolve uniquely.
	poolStop = 6
	// MaxShown caps how many candidates a disambiguation list displays.
	MaxShown = 10
)

type Target struct {
	ChatID    int64
	MessageID int64
}

type Candidate struct {
	ChatTitle string
	Title     string
}

type Disposition struct {
	Kind       Kind
	Phase      Phase
	Target     Target
	Candidates []Candidate
	// Omitted is how many ambiguous hits fell past the MaxShown cap.
	Omitted int
}

type Request struct {
	Query   string
	UserID  int64
	ChatID  int64
	Private bool
}

type Store interface {
	GetExact(ctx context.Context, chatID int64, title string) (models.MediaItem, bool, error)
	SearchFuzzy(ctx context.Context, chatID int64, substring string, limit int) ([]models.MediaItem, error)
	ListChatsForUser(ctx context.Context, userID int64) ([]store.ChatRef, error)
}

type Resolver struct {
	store Store
}

func New(s Store) *Resolver {
	return &Resolver{store: s}
}

// CleanQuery strips one surrounding pair of double quotes (an exact-phrase
// hint; exact match runs first regardless) and collapses whitespace.
func CleanQuery(q string) string {
	q = strings.TrimSpace(q)
	if len(q) >= 2 && strings.HasPrefix(q, `"`) && strings.HasSuffix(q, `"`) {
		q = q[1 : len(q)-1]
	}
	return strutil.CollapseWhitespace(q)
}

func (r *Resolver) Resolve(ctx context.Context, req Request) (Disposition, error) {
	query := CleanQuery(req.Query)
	if query == "" {
		return Disposition{Kind: KindUsage}, nil
	}

	var chatIDs []int64
	if req.Private {
		chats, err := r.store.ListChatsForUser(ctx, req.UserID)
		if err != nil {
			return Disposition{}, err
		}
		if len(chats) == 0 {
			return Disposition{Kind: KindNoScope}, nil
		}
		for _, c := range chats {
			chatIDs = append(chatIDs, c.ChatID)
		}
	} else {
		chatIDs = []int64{req.ChatID}
	}

	var hits []models.MediaItem
	for _, chatID := range chatIDs {
		item, found, err := r.store.GetExact(ctx, chatID, query)
		if err != nil {
			return Disposition{}, err
		}
		if found {
			hits = append(hits, item)
		}
	}
	if len(hits) > 0 {
		return disposition(PhaseExact, hits), nil
	}

	for _, chatID := range chatIDs {
		items, err := r.store.SearchFuzzy(ctx, chatID, query, store.FuzzyLimit)
		if err != nil {
			return Disposition{}, err
		}
		hits = append(hits, items...)
		if len(hits) >= poolStop {
			break
		}
	}
	if len(hits) > 0 {
		return disposition(PhaseFuzzy, hits), nil
	}
	return Disposition{Kind: KindNotFound}, nil
}

func disposition(phase Phase, hits []models.MediaItem) Disposition {
	if len(hits) == 1 {
		return Disposition{
			Kind:   KindResolved,
			Phase:  phase,
			Target: Target{ChatID: hits[0].ChatID, MessageID: hits[0].MessageID},
		}
	}
	d := Disposition{Kind: KindAmbiguous, Phase: phase}
	for _, h := range hits {
		if len(d.Candidates) >= MaxShown {
			d.Omitted = len(hits) - MaxShown
			break
		}
		d.Candidates = append(d.Candidates, Candidate{
			ChatTitle: chatLabel(h),
			Title:     h.Title,
		})
	}
	return d
}

func chatLabel(item models.MediaItem) string {
	if t := strings.TrimSpace(item.ChatTitle); t != "" {
		return t
	}
	return "chat " + strconv.FormatInt(item.ChatID, 10)
}
