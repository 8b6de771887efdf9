package db

import (
	"github.com/google/uuid"

	"github.com/bookwormhq/bookworm-go-server/internal/model"
)

func (db *DB) InsertReward(reward *model.Reward) error {
	chapterReadID := uuid.NullUUID{}
	if reward.ChapterReadID != nil {
		chapterReadID = uuid.NullUUID{UUID: *reward.ChapterReadID, Valid: true}
	}
	_, err := db.Exec(
		`INSERT INTO rewards (id, kind, user_id, chapter_read_id, note, amount_cents, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		reward.ID, reward.Kind, reward.UserID, chapterReadID, reward.Note, reward.AmountCents, reward.CreatedAt,
	)
	return err
}

func (db *DB) ListRewardsByUser(userID uuid.UUID) ([]model.Reward, error) {
	rows, err := db.Query(
		`SELECT id, kind, user_id, chapter_read_id, note, amount_cents, created_at FROM rewards WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		var reward model.Reward
		var chapterReadID uuid.NullUUID
		if err := rows.Scan(&reward.ID, &reward.Kind, &reward.UserID, &chapterReadID, &reward.Note, &reward.AmountCents, &reward.CreatedAt); err != nil {
			return nil, err
		}
		if chapterReadID.Valid {
			reward.ChapterReadID = &chapterReadID.UUID
		}
		rewards = append(rewards, reward)
	}
	return rewards, rows.Err()
}

// GetRewardSummary aggregates the ledger for one user. Balance is derived,
// never stored.
func (db *DB) GetRewardSummary(userID uuid.UUID) (*model.RewardSummary, error) {
	var summary model.RewardSummary
	err := db.QueryRow(
		`SELECT
			COALESCE(SUM(CASE WHEN kind = 'EARN' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = 'PAYOUT' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = 'SPEND' THEN amount_cents ELSE 0 END), 0)
		 FROM rewards WHERE user_id = ?`,
		userID,
	).Scan(&summary.TotalEarned, &summary.TotalPaidOut, &summary.TotalSpent)
	if err != nil {
		return nil, err
	}
	summary.CurrentBalance = summary.TotalEarned - summary.TotalPaidOut - summary.TotalSpent
	return &summary, nil
}
