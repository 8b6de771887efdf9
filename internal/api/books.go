package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bookwormhq/bookworm-go-server/internal/db"
	"github.com/bookwormhq/bookworm-go-server/internal/googlebooks"
	"github.com/bookwormhq/bookworm-go-server/internal/model"
	"github.com/bookwormhq/bookworm-go-server/internal/openlibrary"
)

// WorkSearcher is the OpenLibrary surface the handler needs; the concrete
// client satisfies it, tests swap in a fake.
type WorkSearcher interface {
	Search(ctx context.Context, query string) ([]openlibrary.WorkSummary, error)
	LookupISBN(ctx context.Context, isbn string) (*openlibrary.WorkSummary, error)
	GetWork(ctx context.Context, olid string) (*openlibrary.WorkDetail, error)
}

// VolumeSearcher is the Google Books surface the handler needs.
type VolumeSearcher interface {
	Search(ctx context.Context, title, author, isbn string) ([]googlebooks.VolumeSummary, error)
}

type BookHandler struct {
	DB          *db.DB
	OpenLibrary WorkSearcher
	GoogleBooks VolumeSearcher
}

func (h *BookHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		JSONError(w, "Missing query", http.StatusBadRequest)
		return
	}

	works, err := h.OpenLibrary.Search(r.Context(), query)
	if err != nil {
		JSONError(w, "Search failed", http.StatusBadGateway)
		return
	}
	JSON(w, http.StatusOK, works)
}

func (h *BookHandler) SearchVolumes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	title, author, isbn := q.Get("title"), q.Get("author"), q.Get("isbn")
	if title == "" && author == "" && isbn == "" {
		JSONError(w, "Missing query", http.StatusBadRequest)
		return
	}

	volumes, err := h.GoogleBooks.Search(r.Context(), title, author, isbn)
	if err != nil {
		JSONError(w, "Search failed", http.StatusBadGateway)
		return
	}
	JSON(w, http.StatusOK, volumes)
}

func (h *BookHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	isbn := strings.TrimSpace(r.URL.Query().Get("isbn"))
	if isbn == "" {
		JSONError(w, "Missing isbn", http.StatusBadRequest)
		return
	}

	summary, err := h.OpenLibrary.LookupISBN(r.Context(), isbn)
	if errors.Is(err, openlibrary.ErrNotFound) {
		JSONError(w, "Book not found", http.StatusNotFound)
		return
	} else if err != nil {
		JSONError(w, "Lookup failed", http.StatusBadGateway)
		return
	}
	JSON(w, http.StatusOK, summary)
}

func (h *BookHandler) GetWork(w http.ResponseWriter, r *http.Request) {
	olid := r.PathValue("olid")

	detail, err := h.OpenLibrary.GetWork(r.Context(), olid)
	if errors.Is(err, openlibrary.ErrNotFound) {
		JSONError(w, "Work not found", http.StatusNotFound)
		return
	} else if err != nil {
		JSONError(w, "Lookup failed", http.StatusBadGateway)
		return
	}
	JSON(w, http.StatusOK, detail)
}

// ListBooks rolls all of the user's sessions into one row per book.
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserID(r)

	reads, err := h.DB.ListBookReadsByUser(userID)
	if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}

	summaries := make([]model.BookSummary, 0)
	index := make(map[string]int)
	for i := range reads {
		read := &reads[i]
		pos, seen := index[read.BookOLID]
		if !seen {
			book, err := h.DB.GetBook(read.BookOLID)
			if errors.Is(err, sql.ErrNoRows) {
				continue
			} else if err != nil {
				JSONError(w, "Database error", http.StatusInternalServerError)
				return
			}
			index[read.BookOLID] = len(summaries)
			pos = len(summaries)
			summaries = append(summaries, model.BookSummary{
				OLID:    book.OLID,
				Title:   book.Title,
				Authors: book.Authors,
			})
		}
		summaries[pos].ReadCount++
		if read.InProgress() {
			summaries[pos].InProgress = true
		}
	}

	JSON(w, http.StatusOK, summaries)
}

type SaveBookRequest struct {
	OLID         string   `json:"olid"`
	Title        string   `json:"title"`
	Authors      []string `json:"authors"`
	Description  *string  `json:"description"`
	ThumbnailURL *string  `json:"thumbnailUrl"`
}

// SaveBook stores a picked search result and opens the first reading session
// for it.
func (h *BookHandler) SaveBook(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserID(r)

	var req SaveBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.OLID == "" || req.Title == "" {
		JSONError(w, "olid and title are required", http.StatusBadRequest)
		return
	}

	now := time.Now().UnixMilli()
	book := &model.Book{
		OLID:         req.OLID,
		Title:        req.Title,
		Authors:      req.Authors,
		Description:  req.Description,
		ThumbnailURL: req.ThumbnailURL,
		CreatedAt:    now,
	}
	if err := h.DB.UpsertBook(book); err != nil {
		JSONError(w, "Failed to save book", http.StatusInternalServerError)
		return
	}

	read := &model.BookRead{
		ID:        uuid.New(),
		BookOLID:  req.OLID,
		UserID:    userID,
		StartDate: now,
	}
	if err := h.DB.CreateBookRead(read); err != nil {
		JSONError(w, "Failed to start reading session", http.StatusInternalServerError)
		return
	}

	JSON(w, http.StatusCreated, map[string]any{"book": book, "bookRead": read})
}

// Reread opens a fresh session for an already-known book.
func (h *BookHandler) Reread(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserID(r)
	olid := r.PathValue("olid")

	if _, err := h.DB.GetBook(olid); errors.Is(err, sql.ErrNoRows) {
		JSONError(w, "Book not found", http.StatusNotFound)
		return
	} else if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}

	read := &model.BookRead{
		ID:        uuid.New(),
		BookOLID:  olid,
		UserID:    userID,
		StartDate: time.Now().UnixMilli(),
	}
	if err := h.DB.CreateBookRead(read); err != nil {
		JSONError(w, "Failed to start reading session", http.StatusInternalServerError)
		return
	}

	JSON(w, http.StatusOK, read)
}

func (h *BookHandler) ListChapters(w http.ResponseWriter, r *http.Request) {
	chapters, err := h.DB.ListChapters(r.PathValue("olid"))
	if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}
	if chapters == nil {
		chapters = []model.Chapter{}
	}
	JSON(w, http.StatusOK, chapters)
}

type SaveChapterRequest struct {
	ChapterIndex int    `json:"chapterIndex"`
	Name         string `json:"name"`
}

// SaveChapters replaces the book's table of contents.
func (h *BookHandler) SaveChapters(w http.ResponseWriter, r *http.Request) {
	olid := r.PathValue("olid")

	if _, err := h.DB.GetBook(olid); errors.Is(err, sql.ErrNoRows) {
		JSONError(w, "Book not found", http.StatusNotFound)
		return
	} else if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}

	var reqs []SaveChapterRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		JSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	chapters := make([]model.Chapter, 0, len(reqs))
	for _, req := range reqs {
		if req.Name == "" {
			JSONError(w, "Chapter name is required", http.StatusBadRequest)
			return
		}
		chapters = append(chapters, model.Chapter{
			ID:           uuid.New(),
			BookOLID:     olid,
			ChapterIndex: req.ChapterIndex,
			Name:         req.Name,
		})
	}

	if err := h.DB.ReplaceChapters(r.Context(), olid, chapters); err != nil {
		JSONError(w, "Failed to save chapters", http.StatusInternalServerError)
		return
	}
	JSON(w, http.StatusOK, chapters)
}

func (h *BookHandler) RenameChapter(w http.ResponseWriter, r *http.Request) {
	chapterID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		JSONError(w, "Invalid chapter id", http.StatusBadRequest)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		JSONError(w, "Name is required", http.StatusBadRequest)
		return
	}

	renamed, err := h.DB.RenameChapter(chapterID, name)
	if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}
	if !renamed {
		JSONError(w, "Chapter not found", http.StatusNotFound)
		return
	}

	chapter, err := h.DB.GetChapter(chapterID)
	if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}
	JSON(w, http.StatusOK, chapter)
}
