package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/bookwormhq/bookworm-go-server/internal/db"
)

type UserHandler struct {
	DB *db.DB
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Username  string    `json:"username"`
	Email     *string   `json:"email"`
	FirstName *string   `json:"firstName"`
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r)
	if !ok {
		JSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.DB.GetUserByID(userID)
	if err != nil {
		JSONError(w, "User not found", http.StatusNotFound)
		return
	}

	JSON(w, http.StatusOK, UserResponse{
		ID:        user.ID,
		Role:      user.Role,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
	})
}
