package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bookwormhq/bookworm-go-server/internal/auth"
	"github.com/bookwormhq/bookworm-go-server/internal/db"
	"github.com/bookwormhq/bookworm-go-server/internal/model"
)

func TestHealth(t *testing.T) {
	req, err := http.NewRequest("GET", "/", nil)
	if err != nil {
		t.Fatal(err)
	}
	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(Health)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	expected := "Alive"
	if rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}

// authedRequest builds a request with the user already in context, the way
// the Auth middleware would leave it.
func authedRequest(method, target string, body io.Reader, userID uuid.UUID, role string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	ctx := context.WithValue(req.Context(), UserIDKey, userID)
	ctx = context.WithValue(ctx, RoleKey, role)
	return req.WithContext(ctx)
}

func seedParent(t *testing.T, database *db.DB, username string) *model.User {
	t.Helper()
	email := username + "@example.com"
	user := &model.User{
		ID:           uuid.New(),
		Role:         model.RoleParent,
		Email:        &email,
		Username:     username,
		PasswordHash: "dummyhash",
		Status:       model.StatusVerified,
		CreatedAt:    time.Now().UnixMilli(),
	}
	if err := database.CreateUser(user); err != nil {
		t.Fatalf("Failed to seed parent: %v", err)
	}
	return user
}

func seedChild(t *testing.T, database *db.DB, parentID uuid.UUID, username string) *model.User {
	t.Helper()
	firstName := "Kid"
	user := &model.User{
		ID:           uuid.New(),
		Role:         model.RoleChild,
		ParentID:     &parentID,
		Username:     username,
		FirstName:    &firstName,
		PasswordHash: "dummyhash",
		Status:       model.StatusVerified,
		CreatedAt:    time.Now().UnixMilli(),
	}
	if err := database.CreateUser(user); err != nil {
		t.Fatalf("Failed to seed child: %v", err)
	}
	return user
}

// seedBook stores a book with n chapters and returns the chapters in index
// order.
func seedBook(t *testing.T, database *db.DB, olid string, n int) []model.Chapter {
	t.Helper()
	book := &model.Book{
		OLID:      olid,
		Title:     "Test Book " + olid,
		Authors:   []string{"Test Author"},
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := database.UpsertBook(book); err != nil {
		t.Fatalf("Failed to seed book: %v", err)
	}
	chapters := make([]model.Chapter, 0, n)
	for i := 0; i < n; i++ {
		chapters = append(chapters, model.Chapter{
			ID:           uuid.New(),
			BookOLID:     olid,
			ChapterIndex: i,
			Name:         fmt.Sprintf("Chapter %d", i+1),
		})
	}
	if err := database.ReplaceChapters(context.Background(), olid, chapters); err != nil {
		t.Fatalf("Failed to seed chapters: %v", err)
	}
	return chapters
}

func seedBookRead(t *testing.T, database *db.DB, userID uuid.UUID, olid string) *model.BookRead {
	t.Helper()
	read := &model.BookRead{
		ID:        uuid.New(),
		BookOLID:  olid,
		UserID:    userID,
		StartDate: time.Now().UnixMilli(),
	}
	if err := database.CreateBookRead(read); err != nil {
		t.Fatalf("Failed to seed book read: %v", err)
	}
	return read
}

func init() {
	auth.Init("test-secret")
}
