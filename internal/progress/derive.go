// Package progress implements the chapter-level reading progress model:
// which chapter of a session is checkable next, which completion can still
// be undone, and when a session counts as finished.
package progress

import (
	"github.com/google/uuid"

	"github.com/bookwormhq/bookworm-go-server/internal/model"
)

// View is the interactive state derived for one reading session. At most two
// chapters are ever actionable: the current (first unread) one and the most
// recently completed one.
type View struct {
	CurrentChapterID      *uuid.UUID
	MostRecentCompletedID *uuid.UUID
}

// DeriveView computes the actionable chapters for a session from its chapter
// list and completed set. Chapter index order is authoritative: the current
// chapter is the lowest-indexed unread one, the most recent completion the
// highest-indexed completed one. Pure function, safe on every request.
func DeriveView(chapters []model.Chapter, completed map[uuid.UUID]bool) View {
	var view View
	var currentIndex, recentIndex int
	for i := range chapters {
		c := &chapters[i]
		if completed[c.ID] {
			if view.MostRecentCompletedID == nil || c.ChapterIndex > recentIndex {
				id := c.ID
				view.MostRecentCompletedID = &id
				recentIndex = c.ChapterIndex
			}
		} else {
			if view.CurrentChapterID == nil || c.ChapterIndex < currentIndex {
				id := c.ID
				view.CurrentChapterID = &id
				currentIndex = c.ChapterIndex
			}
		}
	}
	return view
}

// ScrollAnchor returns the chapter the reading list should scroll to: the
// current chapter, or the last chapter once everything is completed. Nil for
// an empty chapter list.
func ScrollAnchor(chapters []model.Chapter, completed map[uuid.UUID]bool) *model.Chapter {
	if len(chapters) == 0 {
		return nil
	}
	view := DeriveView(chapters, completed)
	if view.CurrentChapterID != nil {
		for i := range chapters {
			if chapters[i].ID == *view.CurrentChapterID {
				return &chapters[i]
			}
		}
	}
	last := &chapters[0]
	for i := range chapters {
		if chapters[i].ChapterIndex > last.ChapterIndex {
			last = &chapters[i]
		}
	}
	return last
}

// Complete reports whether the completed set covers the whole chapter list.
// An empty chapter list is never complete.
func Complete(chapters []model.Chapter, completed map[uuid.UUID]bool) bool {
	if len(chapters) == 0 {
		return false
	}
	for i := range chapters {
		if !completed[chapters[i].ID] {
			return false
		}
	}
	return true
}

// State is the per-chapter position in the session's interaction lifecycle.
type State int

const (
	// Unread: not completed and not next in line.
	Unread State = iota
	// CurrentActionable: the first unread chapter, eligible for marking.
	CurrentActionable
	// CompletedActionable: the most recent completion, eligible for undo.
	CompletedActionable
	// CompletedLocked: completed history, not editable.
	CompletedLocked
)

func (s State) String() string {
	switch s {
	case CurrentActionable:
		return "current"
	case CompletedActionable:
		return "completed-undoable"
	case CompletedLocked:
		return "completed"
	default:
		return "unread"
	}
}

// ChapterState classifies one chapter within the derived view. Once the
// session is fully read every completion locks: the only move left is
// finishing the session, not editing its history.
func ChapterState(chapters []model.Chapter, completed map[uuid.UUID]bool, chapterID uuid.UUID) State {
	view := DeriveView(chapters, completed)
	if completed[chapterID] {
		if Complete(chapters, completed) {
			return CompletedLocked
		}
		if view.MostRecentCompletedID != nil && *view.MostRecentCompletedID == chapterID {
			return CompletedActionable
		}
		return CompletedLocked
	}
	if view.CurrentChapterID != nil && *view.CurrentChapterID == chapterID {
		return CurrentActionable
	}
	return Unread
}
