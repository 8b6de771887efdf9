package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/bookwormhq/bookworm-go-server/internal/model"
)

func (db *DB) UpsertBook(book *model.Book) error {
	_, err := db.Exec(
		`INSERT INTO books (olid, title, authors, description, thumbnail_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(olid) DO UPDATE SET
		 title=excluded.title, authors=excluded.authors, description=excluded.description, thumbnail_url=excluded.thumbnail_url`,
		book.OLID, book.Title, model.JoinAuthors(book.Authors),
		book.Description, book.ThumbnailURL, book.CreatedAt,
	)
	return err
}

func (db *DB) GetBook(olid string) (*model.Book, error) {
	var book model.Book
	var authors string
	row := db.QueryRow(`SELECT olid, title, authors, description, thumbnail_url, created_at FROM books WHERE olid = ?`, olid)
	err := row.Scan(&book.OLID, &book.Title, &authors, &book.Description, &book.ThumbnailURL, &book.CreatedAt)
	if err != nil {
		return nil, err
	}
	book.Authors = model.SplitAuthors(authors)
	return &book, nil
}

// ReplaceChapters swaps the full chapter list for a book. Chapter edits
// resubmit the whole table of contents, so the write is replace-all.
// Completions of dropped chapters cascade away; their EARN rows stay in
// the ledger with the chapter reference cleared.
func (db *DB) ReplaceChapters(ctx context.Context, olid string, chapters []model.Chapter) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM chapters WHERE book_olid = ?`, olid); err != nil {
			return err
		}
		for i := range chapters {
			c := &chapters[i]
			if _, err := tx.Exec(
				`INSERT INTO chapters (id, book_olid, chapter_index, name) VALUES (?, ?, ?, ?)`,
				c.ID, olid, c.ChapterIndex, c.Name,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *DB) ListChapters(olid string) ([]model.Chapter, error) {
	rows, err := db.Query(`SELECT id, book_olid, chapter_index, name FROM chapters WHERE book_olid = ? ORDER BY chapter_index`, olid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chapters []model.Chapter
	for rows.Next() {
		var c model.Chapter
		if err := rows.Scan(&c.ID, &c.BookOLID, &c.ChapterIndex, &c.Name); err != nil {
			return nil, err
		}
		chapters = append(chapters, c)
	}
	return chapters, rows.Err()
}

func (db *DB) GetChapter(id uuid.UUID) (*model.Chapter, error) {
	var c model.Chapter
	row := db.QueryRow(`SELECT id, book_olid, chapter_index, name FROM chapters WHERE id = ?`, id)
	if err := row.Scan(&c.ID, &c.BookOLID, &c.ChapterIndex, &c.Name); err != nil {
		return nil, err
	}
	return &c, nil
}

func (db *DB) RenameChapter(id uuid.UUID, name string) (bool, error) {
	res, err := db.Exec(`UPDATE chapters SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
