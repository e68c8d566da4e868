package models

// EntrantPool - суммарная ставка на одного участника турнира.
// Создаётся при первой ставке, только растёт, никогда не удаляется.
type EntrantPool struct {
	TournamentID int   `json:"tournament_id" db:"tournament_id"`
	EntrantID    int   `json:"entrant_id" db:"entrant_id"`
	StakedTotal  int64 `json:"staked_total" db:"staked_total"`
}
