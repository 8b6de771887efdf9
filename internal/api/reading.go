package api

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bookwormhq/bookworm-go-server/internal/db"
	"github.com/bookwormhq/bookworm-go-server/internal/model"
	"github.com/bookwormhq/bookworm-go-server/internal/progress"
)

// ReadingHandler serves the reading-list screen: in-progress sessions, the
// mark/undo protocol, session finish, and history. The progress package's
// derivation runs here too, so an out-of-order mark or undo is rejected at
// the authority instead of trusting the client's view.
type ReadingHandler struct {
	DB *db.DB
	// Signal pokes the reward summary watcher after ledger-affecting
	// mutations.
	Signal *progress.Signal
	// EarnCents is the ledger credit for one completed chapter.
	EarnCents int64
}

// ListInProgress returns every in-progress session for the user, each with
// its book info, pass count, and completed chapter ids.
func (h *ReadingHandler) ListInProgress(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserID(r)

	reads, err := h.DB.ListInProgressBookReads(userID)
	if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}

	result := make([]model.BookReadProgress, 0, len(reads))
	for i := range reads {
		read := &reads[i]
		book, err := h.DB.GetBook(read.BookOLID)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		} else if err != nil {
			JSONError(w, "Database error", http.StatusInternalServerError)
			return
		}
		readCount, err := h.DB.CountBookReads(userID, read.BookOLID)
		if err != nil {
			JSONError(w, "Database error", http.StatusInternalServerError)
			return
		}
		chapterIDs, err := h.DB.ListReadChapterIDs(read.ID)
		if err != nil {
			JSONError(w, "Database error", http.StatusInternalServerError)
			return
		}
		if chapterIDs == nil {
			chapterIDs = []uuid.UUID{}
		}
		result = append(result, model.BookReadProgress{
			ID:             read.ID,
			BookOLID:       read.BookOLID,
			Title:          book.Title,
			Authors:        book.Authors,
			StartDate:      read.StartDate,
			ReadCount:      readCount,
			ReadChapterIDs: chapterIDs,
		})
	}

	JSON(w, http.StatusOK, result)
}

// loadSession fetches the session and checks ownership. Sessions of other
// users read as not found.
func (h *ReadingHandler) loadSession(w http.ResponseWriter, r *http.Request) (*model.BookRead, bool) {
	readID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		JSONError(w, "Invalid session id", http.StatusBadRequest)
		return nil, false
	}
	read, err := h.DB.GetBookRead(readID)
	if errors.Is(err, sql.ErrNoRows) {
		JSONError(w, "Session not found", http.StatusNotFound)
		return nil, false
	} else if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return nil, false
	}
	userID, _ := GetUserID(r)
	if read.UserID != userID {
		JSONError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return read, true
}

func (h *ReadingHandler) sessionState(read *model.BookRead) ([]model.Chapter, map[uuid.UUID]bool, error) {
	chapters, err := h.DB.ListChapters(read.BookOLID)
	if err != nil {
		return nil, nil, err
	}
	completedIDs, err := h.DB.ListReadChapterIDs(read.ID)
	if err != nil {
		return nil, nil, err
	}
	completed := make(map[uuid.UUID]bool, len(completedIDs))
	for _, id := range completedIDs {
		completed[id] = true
	}
	return chapters, completed, nil
}

type MarkReadResponse struct {
	ChapterReadID  uuid.UUID `json:"chapterReadId"`
	CompletionDate int64     `json:"completionDate"`
	// Completed flags that this mark filled the session's chapter set, so
	// the client can offer the finish confirmation.
	Completed bool `json:"completed"`
}

// MarkChapterRead records a completion of the session's current chapter and
// its EARN ledger entry. Marking any chapter but the derived current one is
// rejected with 409.
func (h *ReadingHandler) MarkChapterRead(w http.ResponseWriter, r *http.Request) {
	read, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	chapterID, err := uuid.Parse(r.PathValue("chapterID"))
	if err != nil {
		JSONError(w, "Invalid chapter id", http.StatusBadRequest)
		return
	}

	if !read.InProgress() {
		JSONError(w, "Session is already finished", http.StatusConflict)
		return
	}

	chapters, completed, err := h.sessionState(read)
	if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}

	view := progress.DeriveView(chapters, completed)
	if view.CurrentChapterID == nil || *view.CurrentChapterID != chapterID {
		JSONError(w, "Chapter is not the current chapter", http.StatusConflict)
		return
	}

	chapterRead := &model.ChapterRead{
		ID:             uuid.New(),
		BookReadID:     read.ID,
		ChapterID:      chapterID,
		UserID:         read.UserID,
		CompletionDate: time.Now().UnixMilli(),
	}
	if err := h.DB.RecordChapterRead(r.Context(), chapterRead, h.EarnCents); err != nil {
		JSONError(w, "Failed to record chapter read", http.StatusInternalServerError)
		return
	}

	h.Signal.Notify()

	completed[chapterID] = true
	JSON(w, http.StatusOK, MarkReadResponse{
		ChapterReadID:  chapterRead.ID,
		CompletionDate: chapterRead.CompletionDate,
		Completed:      progress.Complete(chapters, completed),
	})
}

// UndoChapterRead removes the session's most recent completion and its EARN
// ledger rows. Undoing anything else, or touching a fully-read session, is
// rejected with 409.
func (h *ReadingHandler) UndoChapterRead(w http.ResponseWriter, r *http.Request) {
	read, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	chapterID, err := uuid.Parse(r.PathValue("chapterID"))
	if err != nil {
		JSONError(w, "Invalid chapter id", http.StatusBadRequest)
		return
	}

	chapters, completed, err := h.sessionState(read)
	if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}

	if progress.Complete(chapters, completed) {
		JSONError(w, "Session is fully read; finish it instead", http.StatusConflict)
		return
	}
	view := progress.DeriveView(chapters, completed)
	if view.MostRecentCompletedID == nil || *view.MostRecentCompletedID != chapterID {
		JSONError(w, "Chapter is not the most recent completion", http.StatusConflict)
		return
	}

	if err := h.DB.DeleteChapterRead(r.Context(), read.ID, chapterID); errors.Is(err, sql.ErrNoRows) {
		JSONError(w, "Completion not found", http.StatusNotFound)
		return
	} else if err != nil {
		JSONError(w, "Failed to undo chapter read", http.StatusInternalServerError)
		return
	}

	h.Signal.Notify()
	w.WriteHeader(http.StatusOK)
}

// FinishSession closes an in-progress session, enabling reread.
func (h *ReadingHandler) FinishSession(w http.ResponseWriter, r *http.Request) {
	read, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	finished, err := h.DB.FinishBookRead(read.ID, time.Now().UnixMilli())
	if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}
	if !finished {
		JSONError(w, "Session is already finished", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// ListChapterReads returns the per-session completion records.
func (h *ReadingHandler) ListChapterReads(w http.ResponseWriter, r *http.Request) {
	read, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	completedIDs, err := h.DB.ListReadChapterIDs(read.ID)
	if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}
	if completedIDs == nil {
		completedIDs = []uuid.UUID{}
	}
	JSON(w, http.StatusOK, completedIDs)
}

type HistoryEntry struct {
	ID        uuid.UUID `json:"id"`
	BookOLID  string    `json:"bookOlid"`
	Title     string    `json:"title"`
	Authors   []string  `json:"authors"`
	StartDate int64     `json:"startDate"`
	EndDate   int64     `json:"endDate"`
	ReadCount int       `json:"readCount"`
}

// History lists finished sessions, most recent first, for the history
// screen and its scroll-to-completed-book behavior.
func (h *ReadingHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserID(r)

	reads, err := h.DB.ListFinishedBookReads(userID)
	if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}

	entries := make([]HistoryEntry, 0, len(reads))
	for i := range reads {
		read := &reads[i]
		book, err := h.DB.GetBook(read.BookOLID)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		} else if err != nil {
			JSONError(w, "Database error", http.StatusInternalServerError)
			return
		}
		readCount, err := h.DB.CountBookReads(userID, read.BookOLID)
		if err != nil {
			JSONError(w, "Database error", http.StatusInternalServerError)
			return
		}
		entries = append(entries, HistoryEntry{
			ID:        read.ID,
			BookOLID:  read.BookOLID,
			Title:     book.Title,
			Authors:   book.Authors,
			StartDate: read.StartDate,
			EndDate:   *read.EndDate,
			ReadCount: readCount,
		})
	}

	JSON(w, http.StatusOK, entries)
}
