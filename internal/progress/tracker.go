package progress

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bookwormhq/bookworm-go-server/internal/model"
)

var (
	// ErrUnknownSession: the tracker has no loaded state for the session.
	ErrUnknownSession = errors.New("unknown reading session")
	// ErrNotCurrent: only the derived current chapter may be marked read.
	ErrNotCurrent = errors.New("chapter is not the current chapter")
	// ErrNotMostRecent: only the most recent completion may be undone.
	ErrNotMostRecent = errors.New("chapter is not the most recent completion")
	// ErrPending: the chapter already has a request in flight.
	ErrPending = errors.New("chapter update already in flight")
	// ErrSessionComplete: a fully-read session only accepts finishing.
	ErrSessionComplete = errors.New("session is fully read; finish it instead")
	// ErrStaleSession: the session was reloaded while the request was in
	// flight, so the store's answer was discarded.
	ErrStaleSession = errors.New("session state reloaded during request")
)

// Store is the mutating backend the tracker talks to. MarkChapterRead may
// return zero when the backend omits a completion timestamp.
type Store interface {
	MarkChapterRead(ctx context.Context, sessionID, chapterID uuid.UUID) (completionDate int64, err error)
	UndoChapterRead(ctx context.Context, sessionID, chapterID uuid.UUID) error
	FinishSession(ctx context.Context, sessionID uuid.UUID) error
}

// Confirmer gates the destructive steps: undoing a completion and marking a
// whole session finished.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(prompt string) bool

func (f ConfirmerFunc) Confirm(prompt string) bool { return f(prompt) }

// readAtLayout is the long-form display date recorded next to a completion.
const readAtLayout = "January 2, 2006"

type sessionState struct {
	chapters  []model.Chapter
	completed map[uuid.UUID]bool
	readAt    map[uuid.UUID]string
	pending   map[uuid.UUID]bool
	finished  bool
}

// Tracker owns the local interactive state of the in-progress sessions and
// applies the mark/undo protocol against the Store: defensive precondition
// checks, per-chapter in-flight gating, completion detection, and refresh
// signalling after every ledger-affecting success.
type Tracker struct {
	store     Store
	signal    *Signal
	confirmer Confirmer

	mu       sync.Mutex
	sessions map[uuid.UUID]*sessionState
}

func NewTracker(store Store, signal *Signal, confirmer Confirmer) *Tracker {
	return &Tracker{
		store:     store,
		signal:    signal,
		confirmer: confirmer,
		sessions:  make(map[uuid.UUID]*sessionState),
	}
}

// LoadSession installs (or replaces) the local state for one session.
// Completion state is keyed strictly by session id: two sessions of the same
// book never share a completed set.
func (t *Tracker) LoadSession(sessionID uuid.UUID, chapters []model.Chapter, completedIDs []uuid.UUID) {
	completed := make(map[uuid.UUID]bool, len(completedIDs))
	for _, id := range completedIDs {
		completed[id] = true
	}
	t.mu.Lock()
	t.sessions[sessionID] = &sessionState{
		chapters:  chapters,
		completed: completed,
		readAt:    make(map[uuid.UUID]string),
		pending:   make(map[uuid.UUID]bool),
	}
	t.mu.Unlock()
}

// View derives the actionable chapters for a loaded session.
func (t *Tracker) View(sessionID uuid.UUID) (View, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, ok := t.sessions[sessionID]
	if !ok {
		return View{}, ErrUnknownSession
	}
	return DeriveView(sess.chapters, sess.completed), nil
}

// ChapterState classifies one chapter of a loaded session.
func (t *Tracker) ChapterState(sessionID, chapterID uuid.UUID) (State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, ok := t.sessions[sessionID]
	if !ok {
		return Unread, ErrUnknownSession
	}
	return ChapterState(sess.chapters, sess.completed, chapterID), nil
}

// ReadAt returns the display date recorded for a completion, if any.
func (t *Tracker) ReadAt(sessionID, chapterID uuid.UUID) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, ok := t.sessions[sessionID]
	if !ok {
		return "", false
	}
	date, ok := sess.readAt[chapterID]
	return date, ok
}

// MarkResult reports what a successful mark did.
type MarkResult struct {
	// ReadAt is the long-form display date of the completion.
	ReadAt string
	// Completed is true when this mark filled the session's chapter set.
	Completed bool
	// Finished is true when the user confirmed finishing the session.
	Finished bool
}

// MarkChapterRead records a completion of the session's current chapter.
// Marking any other chapter is rejected without touching the store, as is a
// chapter with a request already in flight. On store failure no local state
// changes and no refresh fires. On success the completed set, the display
// date, and the refresh signal are applied together; if the session is now
// fully read the finish confirmation runs once, and a confirmed finish
// closes the session in the store.
func (t *Tracker) MarkChapterRead(ctx context.Context, sessionID, chapterID uuid.UUID) (MarkResult, error) {
	t.mu.Lock()
	sess, ok := t.sessions[sessionID]
	if !ok {
		t.mu.Unlock()
		return MarkResult{}, ErrUnknownSession
	}
	if sess.pending[chapterID] {
		t.mu.Unlock()
		return MarkResult{}, ErrPending
	}
	view := DeriveView(sess.chapters, sess.completed)
	if view.CurrentChapterID == nil || *view.CurrentChapterID != chapterID {
		t.mu.Unlock()
		return MarkResult{}, ErrNotCurrent
	}
	sess.pending[chapterID] = true
	t.mu.Unlock()

	completionDate, err := t.store.MarkChapterRead(ctx, sessionID, chapterID)

	t.mu.Lock()
	delete(sess.pending, chapterID)
	if t.sessions[sessionID] != sess {
		// Session state was reloaded while the request was in flight;
		// the response no longer applies to anything.
		t.mu.Unlock()
		if err != nil {
			return MarkResult{}, err
		}
		return MarkResult{}, ErrStaleSession
	}
	if err != nil {
		t.mu.Unlock()
		return MarkResult{}, err
	}

	readAt := formatReadAt(completionDate)
	sess.completed[chapterID] = true
	sess.readAt[chapterID] = readAt
	completed := Complete(sess.chapters, sess.completed)
	t.mu.Unlock()

	t.signal.Notify()

	result := MarkResult{ReadAt: readAt, Completed: completed}
	if completed && t.confirm("You finished the book! Mark it finished and allow rereading?") {
		if err := t.finish(ctx, sessionID); err != nil {
			return result, err
		}
		result.Finished = true
	}
	return result, nil
}

// UndoMostRecentRead removes the session's most recent completion. Undoing
// any other chapter is rejected without touching the store. The destructive
// step requires confirmation; a declined confirmation is a quiet no-op.
func (t *Tracker) UndoMostRecentRead(ctx context.Context, sessionID, chapterID uuid.UUID) (bool, error) {
	t.mu.Lock()
	sess, ok := t.sessions[sessionID]
	if !ok {
		t.mu.Unlock()
		return false, ErrUnknownSession
	}
	if sess.pending[chapterID] {
		t.mu.Unlock()
		return false, ErrPending
	}
	if Complete(sess.chapters, sess.completed) {
		t.mu.Unlock()
		return false, ErrSessionComplete
	}
	view := DeriveView(sess.chapters, sess.completed)
	if view.MostRecentCompletedID == nil || *view.MostRecentCompletedID != chapterID {
		t.mu.Unlock()
		return false, ErrNotMostRecent
	}
	sess.pending[chapterID] = true
	t.mu.Unlock()

	undo := t.confirm("Undo the most recent read for this chapter?")
	var err error
	if undo {
		err = t.store.UndoChapterRead(ctx, sessionID, chapterID)
	}

	t.mu.Lock()
	delete(sess.pending, chapterID)
	if !undo || err != nil {
		t.mu.Unlock()
		return false, err
	}
	if t.sessions[sessionID] != sess {
		t.mu.Unlock()
		return false, ErrStaleSession
	}
	delete(sess.completed, chapterID)
	delete(sess.readAt, chapterID)
	t.mu.Unlock()

	t.signal.Notify()
	return true, nil
}

// FinishSession closes a fully-read session after confirmation. This is the
// explicit path for a session left in progress after a declined prompt.
func (t *Tracker) FinishSession(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	t.mu.Lock()
	_, ok := t.sessions[sessionID]
	t.mu.Unlock()
	if !ok {
		return false, ErrUnknownSession
	}
	if !t.confirm("Mark this book finished and allow rereading?") {
		return false, nil
	}
	if err := t.finish(ctx, sessionID); err != nil {
		return false, err
	}
	return true, nil
}

func (t *Tracker) finish(ctx context.Context, sessionID uuid.UUID) error {
	if err := t.store.FinishSession(ctx, sessionID); err != nil {
		return err
	}
	t.mu.Lock()
	if sess, ok := t.sessions[sessionID]; ok {
		sess.finished = true
	}
	t.mu.Unlock()
	return nil
}

func (t *Tracker) confirm(prompt string) bool {
	if t.confirmer == nil {
		return false
	}
	return t.confirmer.Confirm(prompt)
}

func formatReadAt(completionDate int64) string {
	if completionDate <= 0 {
		return time.Now().Format(readAtLayout)
	}
	return time.UnixMilli(completionDate).Format(readAtLayout)
}
