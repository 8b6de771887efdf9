package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/bookwormhq/bookworm-go-server/internal/model"
)

func (db *DB) CreateBookRead(read *model.BookRead) error {
	_, err := db.Exec(
		`INSERT INTO book_reads (id, book_olid, user_id, start_date, end_date) VALUES (?, ?, ?, ?, ?)`,
		read.ID, read.BookOLID, read.UserID, read.StartDate, read.EndDate,
	)
	return err
}

func (db *DB) GetBookRead(id uuid.UUID) (*model.BookRead, error) {
	var read model.BookRead
	row := db.QueryRow(`SELECT id, book_olid, user_id, start_date, end_date FROM book_reads WHERE id = ?`, id)
	if err := row.Scan(&read.ID, &read.BookOLID, &read.UserID, &read.StartDate, &read.EndDate); err != nil {
		return nil, err
	}
	return &read, nil
}

func (db *DB) ListBookReadsByUser(userID uuid.UUID) ([]model.BookRead, error) {
	return db.listBookReads(`SELECT id, book_olid, user_id, start_date, end_date FROM book_reads WHERE user_id = ? ORDER BY start_date`, userID)
}

func (db *DB) ListInProgressBookReads(userID uuid.UUID) ([]model.BookRead, error) {
	return db.listBookReads(`SELECT id, book_olid, user_id, start_date, end_date FROM book_reads WHERE user_id = ? AND end_date IS NULL ORDER BY start_date`, userID)
}

func (db *DB) ListFinishedBookReads(userID uuid.UUID) ([]model.BookRead, error) {
	return db.listBookReads(`SELECT id, book_olid, user_id, start_date, end_date FROM book_reads WHERE user_id = ? AND end_date IS NOT NULL ORDER BY end_date DESC`, userID)
}

func (db *DB) listBookReads(query string, args ...any) ([]model.BookRead, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reads []model.BookRead
	for rows.Next() {
		var read model.BookRead
		if err := rows.Scan(&read.ID, &read.BookOLID, &read.UserID, &read.StartDate, &read.EndDate); err != nil {
			return nil, err
		}
		reads = append(reads, read)
	}
	return reads, rows.Err()
}

func (db *DB) CountBookReads(userID uuid.UUID, olid string) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM book_reads WHERE user_id = ? AND book_olid = ?`, userID, olid).Scan(&count)
	return count, err
}

func (db *DB) ListReadChapterIDs(bookReadID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := db.Query(`SELECT chapter_id FROM chapter_reads WHERE book_read_id = ?`, bookReadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (db *DB) ListChapterReadsByUser(userID uuid.UUID) ([]model.ChapterRead, error) {
	rows, err := db.Query(
		`SELECT id, book_read_id, chapter_id, user_id, completion_date FROM chapter_reads WHERE user_id = ? ORDER BY completion_date DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reads []model.ChapterRead
	for rows.Next() {
		var cr model.ChapterRead
		if err := rows.Scan(&cr.ID, &cr.BookReadID, &cr.ChapterID, &cr.UserID, &cr.CompletionDate); err != nil {
			return nil, err
		}
		reads = append(reads, cr)
	}
	return reads, rows.Err()
}

// RecordChapterRead stores a chapter completion and its EARN ledger entry in
// one transaction. The unique (book_read_id, chapter_id) constraint rejects
// a duplicate completion of the same chapter within a session.
func (db *DB) RecordChapterRead(ctx context.Context, read *model.ChapterRead, earnCents int64) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`INSERT INTO chapter_reads (id, book_read_id, chapter_id, user_id, completion_date) VALUES (?, ?, ?, ?, ?)`,
			read.ID, read.BookReadID, read.ChapterID, read.UserID, read.CompletionDate,
		); err != nil {
			return err
		}
		_, err := tx.Exec(
			`INSERT INTO rewards (id, kind, user_id, chapter_read_id, note, amount_cents, created_at) VALUES (?, ?, ?, ?, NULL, ?, ?)`,
			uuid.New(), model.RewardEarn, read.UserID, read.ID, earnCents, read.CompletionDate,
		)
		return err
	})
}

// DeleteChapterRead undoes one completion: its EARN ledger rows go first so
// the foreign key holds, then the completion itself. Returns sql.ErrNoRows
// when the session has no such completion.
func (db *DB) DeleteChapterRead(ctx context.Context, bookReadID, chapterID uuid.UUID) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		var readID uuid.UUID
		row := tx.QueryRow(`SELECT id FROM chapter_reads WHERE book_read_id = ? AND chapter_id = ?`, bookReadID, chapterID)
		if err := row.Scan(&readID); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM rewards WHERE chapter_read_id = ?`, readID); err != nil {
			return err
		}
		_, err := tx.Exec(`DELETE FROM chapter_reads WHERE id = ?`, readID)
		return err
	})
}

// FinishBookRead closes a session. Reports whether an in-progress session
// was actually closed.
func (db *DB) FinishBookRead(id uuid.UUID, endDate int64) (bool, error) {
	res, err := db.Exec(`UPDATE book_reads SET end_date = ? WHERE id = ? AND end_date IS NULL`, endDate, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
