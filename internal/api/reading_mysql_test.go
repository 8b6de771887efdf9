//go:build integration

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bookwormhq/bookworm-go-server/internal/model"
	"github.com/bookwormhq/bookworm-go-server/internal/progress"
	"github.com/bookwormhq/bookworm-go-server/internal/testutil"
)

func TestMarkAndUndoChapterReadMySQL(t *testing.T) {
	database := testutil.SetupMySQLTestDB(t)

	parent := seedParent(t, database, "mysqlmarkparent")
	chapters := seedBook(t, database, "OL6001W", 2)
	read := seedBookRead(t, database, parent.ID, "OL6001W")

	handler := &ReadingHandler{DB: database, Signal: progress.NewSignal(), EarnCents: 100}

	mark := func(chapterID string) *httptest.ResponseRecorder {
		req := authedRequest("POST", "/x", nil, parent.ID, model.RoleParent)
		req.SetPathValue("id", read.ID.String())
		req.SetPathValue("chapterID", chapterID)
		rr := httptest.NewRecorder()
		handler.MarkChapterRead(rr, req)
		return rr
	}

	if rr := mark(chapters[1].ID.String()); rr.Code != http.StatusConflict {
		t.Fatalf("Out-of-order mark should be Conflict, got %v", rr.Code)
	}
	if rr := mark(chapters[0].ID.String()); rr.Code != http.StatusOK {
		t.Fatalf("Mark failed, got %v: %s", rr.Code, rr.Body.String())
	}

	summary, err := database.GetRewardSummary(parent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalEarned != 100 {
		t.Fatalf("Expected 100 cents earned, got %d", summary.TotalEarned)
	}

	req := authedRequest("DELETE", "/x", nil, parent.ID, model.RoleParent)
	req.SetPathValue("id", read.ID.String())
	req.SetPathValue("chapterID", chapters[0].ID.String())
	rr := httptest.NewRecorder()
	handler.UndoChapterRead(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Undo failed, got %v: %s", rr.Code, rr.Body.String())
	}

	summary, err = database.GetRewardSummary(parent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalEarned != 0 {
		t.Fatalf("Reward survived the undo: %+v", summary)
	}
}
