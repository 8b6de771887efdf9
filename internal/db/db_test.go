package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bookwormhq/bookworm-go-server/internal/model"
)

func setupDB(t *testing.T) *DB {
	database, err := New("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to init in-memory db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func insertUser(t *testing.T, database *DB, username string) *model.User {
	t.Helper()
	email := username + "@example.com"
	user := &model.User{
		ID:           uuid.New(),
		Role:         model.RoleParent,
		Email:        &email,
		Username:     username,
		PasswordHash: "hash",
		Status:       model.StatusVerified,
		CreatedAt:    time.Now().UnixMilli(),
	}
	if err := database.CreateUser(user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

func insertBookWithChapters(t *testing.T, database *DB, olid string, n int) []model.Chapter {
	t.Helper()
	book := &model.Book{
		OLID:      olid,
		Title:     "Book " + olid,
		Authors:   []string{"Author One", "Author Two"},
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := database.UpsertBook(book); err != nil {
		t.Fatalf("UpsertBook failed: %v", err)
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
		t.Fatalf("ReplaceChapters failed: %v", err)
	}
	return chapters
}

func TestBookRoundTrip(t *testing.T) {
	database := setupDB(t)

	insertBookWithChapters(t, database, "OL5001W", 2)

	book, err := database.GetBook("OL5001W")
	if err != nil {
		t.Fatal(err)
	}
	if len(book.Authors) != 2 || book.Authors[1] != "Author Two" {
		t.Errorf("Authors did not round-trip: %v", book.Authors)
	}

	// Upsert updates in place.
	book.Title = "Renamed"
	if err := database.UpsertBook(book); err != nil {
		t.Fatal(err)
	}
	again, err := database.GetBook("OL5001W")
	if err != nil {
		t.Fatal(err)
	}
	if again.Title != "Renamed" {
		t.Errorf("Upsert did not update title: %s", again.Title)
	}

	chapters, err := database.ListChapters("OL5001W")
	if err != nil {
		t.Fatal(err)
	}
	if len(chapters) != 2 || chapters[0].ChapterIndex != 0 || chapters[1].ChapterIndex != 1 {
		t.Errorf("Chapters not in index order: %+v", chapters)
	}
}

func TestRecordChapterReadWritesEarnRow(t *testing.T) {
	database := setupDB(t)

	user := insertUser(t, database, "recorduser")
	chapters := insertBookWithChapters(t, database, "OL5002W", 2)

	read := &model.BookRead{
		ID:        uuid.New(),
		BookOLID:  "OL5002W",
		UserID:    user.ID,
		StartDate: time.Now().UnixMilli(),
	}
	if err := database.CreateBookRead(read); err != nil {
		t.Fatal(err)
	}

	chapterRead := &model.ChapterRead{
		ID:             uuid.New(),
		BookReadID:     read.ID,
		ChapterID:      chapters[0].ID,
		UserID:         user.ID,
		CompletionDate: time.Now().UnixMilli(),
	}
	if err := database.RecordChapterRead(context.Background(), chapterRead, 100); err != nil {
		t.Fatalf("RecordChapterRead failed: %v", err)
	}

	summary, err := database.GetRewardSummary(user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalEarned != 100 || summary.CurrentBalance != 100 {
		t.Errorf("EARN row missing: %+v", summary)
	}

	// Same chapter in the same session violates the unique constraint;
	// the reward must not land either.
	dup := &model.ChapterRead{
		ID:             uuid.New(),
		BookReadID:     read.ID,
		ChapterID:      chapters[0].ID,
		UserID:         user.ID,
		CompletionDate: time.Now().UnixMilli(),
	}
	if err := database.RecordChapterRead(context.Background(), dup, 100); err == nil {
		t.Fatal("Expected duplicate chapter read to fail")
	}
	summary, err = database.GetRewardSummary(user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalEarned != 100 {
		t.Errorf("Failed insert leaked a reward: %+v", summary)
	}
}

func TestDeleteChapterReadRemovesReward(t *testing.T) {
	database := setupDB(t)

	user := insertUser(t, database, "deleteuser")
	chapters := insertBookWithChapters(t, database, "OL5003W", 1)

	read := &model.BookRead{
		ID:        uuid.New(),
		BookOLID:  "OL5003W",
		UserID:    user.ID,
		StartDate: time.Now().UnixMilli(),
	}
	if err := database.CreateBookRead(read); err != nil {
		t.Fatal(err)
	}
	chapterRead := &model.ChapterRead{
		ID:             uuid.New(),
		BookReadID:     read.ID,
		ChapterID:      chapters[0].ID,
		UserID:         user.ID,
		CompletionDate: time.Now().UnixMilli(),
	}
	if err := database.RecordChapterRead(context.Background(), chapterRead, 100); err != nil {
		t.Fatal(err)
	}

	if err := database.DeleteChapterRead(context.Background(), read.ID, chapters[0].ID); err != nil {
		t.Fatalf("DeleteChapterRead failed: %v", err)
	}

	summary, err := database.GetRewardSummary(user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalEarned != 0 {
		t.Errorf("Reward survived the undo: %+v", summary)
	}
	ids, err := database.ListReadChapterIDs(read.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("Chapter read survived the undo: %v", ids)
	}

	// Deleting again reports not found.
	err = database.DeleteChapterRead(context.Background(), read.ID, chapters[0].ID)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Expected sql.ErrNoRows, got %v", err)
	}
}

func TestReplaceChaptersAfterEarnedReward(t *testing.T) {
	database := setupDB(t)

	user := insertUser(t, database, "resaveuser")
	chapters := insertBookWithChapters(t, database, "OL5005W", 2)

	read := &model.BookRead{
		ID:        uuid.New(),
		BookOLID:  "OL5005W",
		UserID:    user.ID,
		StartDate: time.Now().UnixMilli(),
	}
	if err := database.CreateBookRead(read); err != nil {
		t.Fatal(err)
	}
	chapterRead := &model.ChapterRead{
		ID:             uuid.New(),
		BookReadID:     read.ID,
		ChapterID:      chapters[0].ID,
		UserID:         user.ID,
		CompletionDate: time.Now().UnixMilli(),
	}
	if err := database.RecordChapterRead(context.Background(), chapterRead, 100); err != nil {
		t.Fatal(err)
	}

	// Re-saving the table of contents must work with an earned reward on
	// the books: the completion cascades away, the ledger row survives.
	replacement := []model.Chapter{
		{ID: uuid.New(), BookOLID: "OL5005W", ChapterIndex: 0, Name: "Chapter One, Revised"},
		{ID: uuid.New(), BookOLID: "OL5005W", ChapterIndex: 1, Name: "Chapter Two, Revised"},
		{ID: uuid.New(), BookOLID: "OL5005W", ChapterIndex: 2, Name: "Chapter Three, New"},
	}
	if err := database.ReplaceChapters(context.Background(), "OL5005W", replacement); err != nil {
		t.Fatalf("ReplaceChapters after an earned reward failed: %v", err)
	}

	ids, err := database.ListReadChapterIDs(read.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("Completions should cascade with their chapters, got %v", ids)
	}

	summary, err := database.GetRewardSummary(user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalEarned != 100 {
		t.Errorf("EARN row should survive a chapter re-save, got %+v", summary)
	}

	rewards, err := database.ListRewardsByUser(user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rewards) != 1 || rewards[0].ChapterReadID != nil {
		t.Errorf("Expected one reward with cleared chapter reference, got %+v", rewards)
	}
}

func TestFinishBookReadOnce(t *testing.T) {
	database := setupDB(t)

	user := insertUser(t, database, "finishuser")
	insertBookWithChapters(t, database, "OL5004W", 1)

	read := &model.BookRead{
		ID:        uuid.New(),
		BookOLID:  "OL5004W",
		UserID:    user.ID,
		StartDate: time.Now().UnixMilli(),
	}
	if err := database.CreateBookRead(read); err != nil {
		t.Fatal(err)
	}

	finished, err := database.FinishBookRead(read.ID, read.StartDate+1000)
	if err != nil {
		t.Fatal(err)
	}
	if !finished {
		t.Fatal("Expected first finish to succeed")
	}

	finished, err = database.FinishBookRead(read.ID, read.StartDate+2000)
	if err != nil {
		t.Fatal(err)
	}
	if finished {
		t.Error("Second finish should be a no-op")
	}

	got, err := database.GetBookRead(read.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.EndDate == nil || *got.EndDate != read.StartDate+1000 {
		t.Errorf("End date overwritten: %v", got.EndDate)
	}
}

func TestRewardSummaryArithmetic(t *testing.T) {
	database := setupDB(t)

	user := insertUser(t, database, "summaryuser")
	now := time.Now().UnixMilli()
	for _, r := range []struct {
		kind  string
		cents int64
	}{
		{model.RewardEarn, 300},
		{model.RewardEarn, 200},
		{model.RewardSpend, 150},
		{model.RewardPayout, 100},
	} {
		reward := &model.Reward{
			ID:          uuid.New(),
			Kind:        r.kind,
			UserID:      user.ID,
			AmountCents: r.cents,
			CreatedAt:   now,
		}
		if err := database.InsertReward(reward); err != nil {
			t.Fatal(err)
		}
	}

	summary, err := database.GetRewardSummary(user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalEarned != 500 || summary.TotalSpent != 150 || summary.TotalPaidOut != 100 {
		t.Errorf("Unexpected totals: %+v", summary)
	}
	if summary.CurrentBalance != 250 {
		t.Errorf("Expected balance 250, got %d", summary.CurrentBalance)
	}
}

func TestListChildren(t *testing.T) {
	database := setupDB(t)

	parent := insertUser(t, database, "treeparent")
	other := insertUser(t, database, "treeother")

	kid := &model.User{
		ID:           uuid.New(),
		Role:         model.RoleChild,
		ParentID:     &parent.ID,
		Username:     "treekid",
		PasswordHash: "hash",
		Status:       model.StatusVerified,
		CreatedAt:    time.Now().UnixMilli(),
	}
	if err := database.CreateUser(kid); err != nil {
		t.Fatal(err)
	}

	kids, err := database.ListChildren(parent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(kids) != 1 || kids[0].ID != kid.ID {
		t.Errorf("Expected the one child, got %+v", kids)
	}

	none, err := database.ListChildren(other.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("Expected no children, got %+v", none)
	}
}
