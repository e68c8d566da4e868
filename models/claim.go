package models

import "time"

// Claim фиксирует единственную выплату пользователю по турниру.
// Запись создаётся ровно один раз и никогда не изменяется.
type Claim struct {
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	UserID       int       `json:"user_id" db:"user_id"`
	Amount       int64     `json:"amount" db:"amount"`
	ClaimedAt    time.Time `json:"claimed_at" db:"claimed_at"`
}
