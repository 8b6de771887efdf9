package model

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

const (
	RoleParent = "PARENT"
	RoleChild  = "CHILD"
)

const (
	StatusUnverified = "UNVERIFIED"
	StatusVerified   = "VERIFIED"
)

type User struct {
	ID                    uuid.UUID  `json:"id" db:"id"`
	Role                  string     `json:"role" db:"role"`
	ParentID              *uuid.UUID `json:"parentId" db:"parent_id"`
	Email                 *string    `json:"email" db:"email"`
	Username              string     `json:"username" db:"username"`
	FirstName             *string    `json:"firstName" db:"first_name"`
	PasswordHash          string     `json:"-" db:"password_hash"`
	Status                string     `json:"status" db:"status"`
	VerificationTokenHash *string    `json:"-" db:"verification_token_hash"`
	CreatedAt             int64      `json:"createdAt" db:"created_at"`
}

// Book is keyed by its OpenLibrary work id. Authors are stored as a single
// JSON-encoded column but exposed as a list.
type Book struct {
	OLID         string   `json:"olid" db:"olid"`
	Title        string   `json:"title" db:"title"`
	Authors      []string `json:"authors" db:"-"`
	Description  *string  `json:"description" db:"description"`
	ThumbnailURL *string  `json:"thumbnailUrl" db:"thumbnail_url"`
	CreatedAt    int64    `json:"createdAt" db:"created_at"`
}

// JoinAuthors encodes an author list for the column. JSON keeps names with
// commas ("Smith, Jr.") intact.
func JoinAuthors(authors []string) string {
	if len(authors) == 0 {
		return "[]"
	}
	encoded, err := json.Marshal(authors)
	if err != nil {
		return "[]"
	}
	return string(encoded)
}

// SplitAuthors decodes the column. Plain comma-joined values from before
// the column was JSON still split correctly.
func SplitAuthors(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		var authors []string
		if err := json.Unmarshal([]byte(s), &authors); err == nil {
			return authors
		}
	}
	parts := strings.Split(s, ",")
	authors := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			authors = append(authors, p)
		}
	}
	return authors
}

type Chapter struct {
	ID           uuid.UUID `json:"id" db:"id"`
	BookOLID     string    `json:"bookOlid" db:"book_olid"`
	ChapterIndex int       `json:"chapterIndex" db:"chapter_index"`
	Name         string    `json:"name" db:"name"`
}

// BookRead is one reading session: a single pass through a book. A user may
// have several for the same book; each keeps its own completion state.
type BookRead struct {
	ID        uuid.UUID `json:"id" db:"id"`
	BookOLID  string    `json:"bookOlid" db:"book_olid"`
	UserID    uuid.UUID `json:"userId" db:"user_id"`
	StartDate int64     `json:"startDate" db:"start_date"`
	EndDate   *int64    `json:"endDate" db:"end_date"`
}

func (br *BookRead) InProgress() bool {
	return br.EndDate == nil
}

type ChapterRead struct {
	ID             uuid.UUID `json:"id" db:"id"`
	BookReadID     uuid.UUID `json:"bookReadId" db:"book_read_id"`
	ChapterID      uuid.UUID `json:"chapterId" db:"chapter_id"`
	UserID         uuid.UUID `json:"userId" db:"user_id"`
	CompletionDate int64     `json:"completionDate" db:"completion_date"`
}

const (
	RewardEarn   = "EARN"
	RewardPayout = "PAYOUT"
	RewardSpend  = "SPEND"
)

// Reward is one entry in the append-only ledger. AmountCents is always
// positive; the kind determines the sign in balance arithmetic.
type Reward struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Kind          string     `json:"kind" db:"kind"`
	UserID        uuid.UUID  `json:"userId" db:"user_id"`
	ChapterReadID *uuid.UUID `json:"chapterReadId" db:"chapter_read_id"`
	Note          *string    `json:"note" db:"note"`
	AmountCents   int64      `json:"amountCents" db:"amount_cents"`
	CreatedAt     int64      `json:"createdAt" db:"created_at"`
}

type RewardSummary struct {
	TotalEarned    int64 `json:"totalEarned"`
	TotalPaidOut   int64 `json:"totalPaidOut"`
	TotalSpent     int64 `json:"totalSpent"`
	CurrentBalance int64 `json:"currentBalance"`
}

// BookReadProgress is the session summary the reading-list screen consumes:
// the session, its book, how many passes the user has made at the book, and
// which chapters this pass has completed.
type BookReadProgress struct {
	ID             uuid.UUID   `json:"id"`
	BookOLID       string      `json:"bookOlid"`
	Title          string      `json:"title"`
	Authors        []string    `json:"authors"`
	StartDate      int64       `json:"startDate"`
	ReadCount      int         `json:"readCount"`
	ReadChapterIDs []uuid.UUID `json:"readChapterIds"`
}

// BookSummary rolls all of a user's sessions for one book into a single row.
type BookSummary struct {
	OLID       string   `json:"olid"`
	Title      string   `json:"title"`
	Authors    []string `json:"authors"`
	ReadCount  int      `json:"readCount"`
	InProgress bool     `json:"inProgress"`
}
