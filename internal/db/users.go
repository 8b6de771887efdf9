package db

import (
	"github.com/google/uuid"

	"github.com/bookwormhq/bookworm-go-server/internal/model"
)

const userColumns = `id, role, parent_id, email, username, first_name, password_hash, status, verification_token_hash, created_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var user model.User
	var parentID uuid.NullUUID
	err := row.Scan(
		&user.ID, &user.Role, &parentID, &user.Email, &user.Username,
		&user.FirstName, &user.PasswordHash, &user.Status,
		&user.VerificationTokenHash, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		user.ParentID = &parentID.UUID
	}
	return &user, nil
}

func (db *DB) CreateUser(user *model.User) error {
	parentID := uuid.NullUUID{}
	if user.ParentID != nil {
		parentID = uuid.NullUUID{UUID: *user.ParentID, Valid: true}
	}
	_, err := db.Exec(
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Role, parentID, user.Email, user.Username,
		user.FirstName, user.PasswordHash, user.Status,
		user.VerificationTokenHash, user.CreatedAt,
	)
	return err
}

func (db *DB) GetUserByID(id uuid.UUID) (*model.User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (db *DB) GetUserByEmail(email string) (*model.User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (db *DB) GetUserByUsername(username string) (*model.User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
}

func (db *DB) GetUserByVerificationToken(tokenHash string) (*model.User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE verification_token_hash = ?`, tokenHash))
}

func (db *DB) UserExists(id uuid.UUID) (bool, error) {
	var exists bool
	err := db.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (db *DB) MarkUserVerified(id uuid.UUID) error {
	_, err := db.Exec(`UPDATE users SET status = ?, verification_token_hash = NULL WHERE id = ?`, model.StatusVerified, id)
	return err
}

func (db *DB) UpdatePassword(id uuid.UUID, passwordHash string) error {
	_, err := db.Exec(`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	return err
}

func (db *DB) ListChildren(parentID uuid.UUID) ([]model.User, error) {
	rows, err := db.Query(`SELECT `+userColumns+` FROM users WHERE parent_id = ? ORDER BY created_at`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var children []model.User
	for rows.Next() {
		child, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		children = append(children, *child)
	}
	return children, rows.Err()
}
