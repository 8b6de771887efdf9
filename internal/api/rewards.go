package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bookwormhq/bookworm-go-server/internal/db"
	"github.com/bookwormhq/bookworm-go-server/internal/model"
	"github.com/bookwormhq/bookworm-go-server/internal/progress"
)

// RewardsHandler serves the ledger and its summary. It keeps a per-user
// summary cache and registers itself as the refresh-signal subscriber, so
// every ledger-affecting mutation elsewhere drops the cache.
type RewardsHandler struct {
	DB     *db.DB
	Signal *progress.Signal

	mu    sync.Mutex
	cache map[uuid.UUID]*model.RewardSummary
}

func NewRewardsHandler(database *db.DB, signal *progress.Signal) *RewardsHandler {
	h := &RewardsHandler{
		DB:     database,
		Signal: signal,
		cache:  make(map[uuid.UUID]*model.RewardSummary),
	}
	signal.Register(h.invalidate)
	return h
}

func (h *RewardsHandler) invalidate() {
	h.mu.Lock()
	h.cache = make(map[uuid.UUID]*model.RewardSummary)
	h.mu.Unlock()
}

type RewardEntry struct {
	model.Reward
	// Chapter is filled for EARN entries so the rewards screen can show
	// what the credit was for.
	Chapter   *model.Chapter `json:"chapter,omitempty"`
	BookTitle *string        `json:"bookTitle,omitempty"`
}

func (h *RewardsHandler) ListRewards(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserID(r)

	rewards, err := h.DB.ListRewardsByUser(userID)
	if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}

	chapterReads, err := h.DB.ListChapterReadsByUser(userID)
	if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}
	readIndex := make(map[uuid.UUID]uuid.UUID, len(chapterReads))
	for _, cr := range chapterReads {
		readIndex[cr.ID] = cr.ChapterID
	}

	entries := make([]RewardEntry, 0, len(rewards))
	for _, reward := range rewards {
		entry := RewardEntry{Reward: reward}
		if reward.Kind == model.RewardEarn && reward.ChapterReadID != nil {
			if chapterID, ok := readIndex[*reward.ChapterReadID]; ok {
				if chapter, err := h.DB.GetChapter(chapterID); err == nil {
					entry.Chapter = chapter
					if book, err := h.DB.GetBook(chapter.BookOLID); err == nil {
						entry.BookTitle = &book.Title
					}
				}
			}
		}
		entries = append(entries, entry)
	}

	JSON(w, http.StatusOK, entries)
}

func (h *RewardsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserID(r)

	summary, err := h.summaryFor(userID)
	if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}
	JSON(w, http.StatusOK, summary)
}

func (h *RewardsHandler) summaryFor(userID uuid.UUID) (*model.RewardSummary, error) {
	h.mu.Lock()
	cached, ok := h.cache[userID]
	h.mu.Unlock()
	if ok {
		return cached, nil
	}

	summary, err := h.DB.GetRewardSummary(userID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.cache[userID] = summary
	h.mu.Unlock()
	return summary, nil
}

// Credits keeps the original earnings-badge shape: cents plus dollars.
func (h *RewardsHandler) Credits(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserID(r)

	summary, err := h.summaryFor(userID)
	if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"cents":   summary.CurrentBalance,
		"dollars": float64(summary.CurrentBalance) / 100,
	})
}

type LedgerRequest struct {
	AmountCents int64  `json:"amountCents"`
	Note        string `json:"note"`
}

func (h *RewardsHandler) Spend(w http.ResponseWriter, r *http.Request) {
	h.appendEntry(w, r, model.RewardSpend)
}

func (h *RewardsHandler) Payout(w http.ResponseWriter, r *http.Request) {
	h.appendEntry(w, r, model.RewardPayout)
}

func (h *RewardsHandler) appendEntry(w http.ResponseWriter, r *http.Request, kind string) {
	userID, _ := GetUserID(r)

	var req LedgerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.AmountCents <= 0 {
		JSONError(w, "Amount must be positive", http.StatusBadRequest)
		return
	}

	summary, err := h.summaryFor(userID)
	if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}
	if req.AmountCents > summary.CurrentBalance {
		JSONError(w, "Amount exceeds current balance", http.StatusBadRequest)
		return
	}

	reward := &model.Reward{
		ID:          uuid.New(),
		Kind:        kind,
		UserID:      userID,
		AmountCents: req.AmountCents,
		CreatedAt:   time.Now().UnixMilli(),
	}
	if req.Note != "" {
		reward.Note = &req.Note
	}
	if err := h.DB.InsertReward(reward); err != nil {
		JSONError(w, "Failed to record entry", http.StatusInternalServerError)
		return
	}

	h.Signal.Notify()
	JSON(w, http.StatusCreated, reward)
}
