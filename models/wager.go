package models

// Wager - накопленная ставка одного пользователя на одного участника
// в одном турнире. Повторные ставки на того же участника суммируются.
type Wager struct {
	TournamentID int   `json:"tournament_id" db:"tournament_id"`
	UserID       int   `json:"user_id" db:"user_id"`
	EntrantID    int   `json:"entrant_id" db:"entrant_id"`
	Staked       int64 `json:"staked" db:"staked"`
}
