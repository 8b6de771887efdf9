package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bookwormhq/bookworm-go-server/internal/auth"
	"github.com/bookwormhq/bookworm-go-server/internal/db"
	"github.com/bookwormhq/bookworm-go-server/internal/mail"
	"github.com/bookwormhq/bookworm-go-server/internal/model"
	"github.com/bookwormhq/bookworm-go-server/internal/templates"
)

type AuthHandler struct {
	DB        *db.DB
	Mailer    mail.MailSender
	Templates *templates.Manager
	BaseURL   string
}

type SignupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string    `json:"token"`
	ID       uuid.UUID `json:"id"`
	Role     string    `json:"role"`
	Username string    `json:"username"`
	Email    *string   `json:"email"`
}

// Signup registers a parent account and sends the verification email.
// Children are never created here; they come from the parent endpoints.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Username == "" || req.Password == "" {
		JSONError(w, "Email, username, and password are required", http.StatusBadRequest)
		return
	}

	if _, err := h.DB.GetUserByEmail(req.Email); err == nil {
		JSONError(w, "Email already in use", http.StatusBadRequest)
		return
	}
	if _, err := h.DB.GetUserByUsername(req.Username); err == nil {
		JSONError(w, "Username already in use", http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		JSONError(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	token, tokenHash, err := auth.GenerateVerificationToken()
	if err != nil {
		JSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	user := &model.User{
		ID:                    uuid.New(),
		Role:                  model.RoleParent,
		Email:                 &req.Email,
		Username:              req.Username,
		PasswordHash:          hash,
		Status:                model.StatusUnverified,
		VerificationTokenHash: &tokenHash,
		CreatedAt:             time.Now().UnixMilli(),
	}
	if err := h.DB.CreateUser(user); err != nil {
		JSONError(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	h.sendVerificationEmail(req.Email, token)

	JSON(w, http.StatusCreated, map[string]any{
		"id":       user.ID,
		"email":    req.Email,
		"username": user.Username,
		"role":     user.Role,
	})
}

func (h *AuthHandler) sendVerificationEmail(email, token string) {
	link := fmt.Sprintf("%s/api/auth/verify?token=%s", h.BaseURL, token)

	htmlBody, err := h.Templates.Render("mail/verify-email.html", map[string]string{"VerifyLink": link})
	if err != nil {
		log.Printf("Template render error: %v", err)
	}

	if err := h.Mailer.Send(email, "Verify your email", "Verification link: "+link, htmlBody); err != nil {
		log.Printf("Mail send error: %v", err)
	}
}

// Verify consumes a verification token from the signup email.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		JSONError(w, "Missing token", http.StatusBadRequest)
		return
	}

	user, err := h.DB.GetUserByVerificationToken(auth.HashToken(token))
	if err != nil {
		JSONError(w, "Invalid or expired token", http.StatusBadRequest)
		return
	}

	if err := h.DB.MarkUserVerified(user.ID); err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}

	JSON(w, http.StatusOK, map[string]string{"message": "Email verified"})
}

// Login accepts either email (parents) or username (children) plus password.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var user *model.User
	var err error
	switch {
	case req.Email != "":
		user, err = h.DB.GetUserByEmail(req.Email)
	case req.Username != "":
		user, err = h.DB.GetUserByUsername(req.Username)
	default:
		JSONError(w, "Email or username is required", http.StatusBadRequest)
		return
	}
	if errors.Is(err, sql.ErrNoRows) {
		JSONError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	} else if err != nil {
		JSONError(w, "Database error", http.StatusInternalServerError)
		return
	}

	match, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		JSONError(w, "Error verifying password", http.StatusInternalServerError)
		return
	}
	if !match {
		JSONError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if user.Role == model.RoleParent && user.Status != model.StatusVerified {
		JSONError(w, "Email not verified", http.StatusForbidden)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		JSONError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	JSON(w, http.StatusOK, LoginResponse{
		Token:    token,
		ID:       user.ID,
		Role:     user.Role,
		Username: user.Username,
		Email:    user.Email,
	})
}
