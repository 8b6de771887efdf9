package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bookwormhq/bookworm-go-server/internal/auth"
	"github.com/bookwormhq/bookworm-go-server/internal/db"
	"github.com/bookwormhq/bookworm-go-server/internal/model"
)

// ParentHandler manages child accounts. All routes are parent-gated by the
// RequireParent middleware.
type ParentHandler struct {
	DB *db.DB
}

type KidResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FirstName *string   `json:"firstName"`
}

func (h *ParentHandler) ListKids(w http.ResponseWriter, r *http.Request) {
	parentID, _ := GetUserID(r)

	children, err := h.DB.ListChildren(parentID)
	if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}

	kids := make([]KidResponse, 0, len(children))
	for i := range children {
		kids = append(kids, KidResponse{
			ID:        children[i].ID,
			Username:  children[i].Username,
			FirstName: children[i].FirstName,
		})
	}
	JSON(w, http.StatusOK, kids)
}

type AddKidRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	Password  string `json:"password"`
}

// AddKid creates a child account under the authenticated parent. Children
// have no email and are born verified.
func (h *ParentHandler) AddKid(w http.ResponseWriter, r *http.Request) {
	parentID, _ := GetUserID(r)

	var req AddKidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.FirstName == "" || req.Password == "" {
		JSONError(w, "Missing required fields", http.StatusBadRequest)
		return
	}
	if _, err := h.DB.GetUserByUsername(req.Username); err == nil {
		JSONError(w, "Username already taken", http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		JSONError(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	kid := &model.User{
		ID:           uuid.New(),
		Role:         model.RoleChild,
		ParentID:     &parentID,
		Username:     req.Username,
		FirstName:    &req.FirstName,
		PasswordHash: hash,
		Status:       model.StatusVerified,
		CreatedAt:    time.Now().UnixMilli(),
	}
	if err := h.DB.CreateUser(kid); err != nil {
		JSONError(w, "Failed to create child account", http.StatusInternalServerError)
		return
	}

	JSON(w, http.StatusCreated, KidResponse{
		ID:        kid.ID,
		Username:  kid.Username,
		FirstName: kid.FirstName,
	})
}

type ResetChildPasswordRequest struct {
	ChildUsername string `json:"childUsername"`
	NewPassword   string `json:"newPassword"`
}

func (h *ParentHandler) ResetChildPassword(w http.ResponseWriter, r *http.Request) {
	parentID, _ := GetUserID(r)

	var req ResetChildPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ChildUsername == "" || req.NewPassword == "" {
		JSONError(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	child, err := h.DB.GetUserByUsername(req.ChildUsername)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && (child.ParentID == nil || *child.ParentID != parentID)) {
		JSONError(w, "Child not found", http.StatusNotFound)
		return
	} else if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		JSONError(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}
	if err := h.DB.UpdatePassword(child.ID, hash); err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}

	JSON(w, http.StatusOK, map[string]string{"message": "Child password reset"})
}

type KidSummaryResponse struct {
	Kid           KidResponse          `json:"kid"`
	Rewards       *model.RewardSummary `json:"rewards"`
	BooksRead     int                  `json:"booksRead"`
	BooksFinished int                  `json:"booksFinished"`
}

// KidSummary gives the parent dashboard one child's reward totals and book
// counts. Only the parent's own children resolve.
func (h *ParentHandler) KidSummary(w http.ResponseWriter, r *http.Request) {
	parentID, _ := GetUserID(r)

	kidID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		JSONError(w, "Invalid child id", http.StatusBadRequest)
		return
	}

	kid, err := h.DB.GetUserByID(kidID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && (kid.ParentID == nil || *kid.ParentID != parentID)) {
		JSONError(w, "Child not found", http.StatusNotFound)
		return
	} else if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}

	rewards, err := h.DB.GetRewardSummary(kid.ID)
	if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}

	reads, err := h.DB.ListBookReadsByUser(kid.ID)
	if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}
	finished := 0
	for i := range reads {
		if !reads[i].InProgress() {
			finished++
		}
	}

	JSON(w, http.StatusOK, KidSummaryResponse{
		Kid: KidResponse{
			ID:        kid.ID,
			Username:  kid.Username,
			FirstName: kid.FirstName,
		},
		Rewards:       rewards,
		BooksRead:     len(reads),
		BooksFinished: finished,
	})
}
