package models

import "time"

// TournamentPhase - производная фаза жизненного цикла турнира.
type TournamentPhase string

const (
	PhaseActive    TournamentPhase = "active"
	PhaseClosed    TournamentPhase = "closed"
	PhaseSettled   TournamentPhase = "settled"
	PhaseCancelled TournamentPhase = "cancelled"
)

// CancelledEntrant is the winning_entrant sentinel for a cancelled tournament.
const CancelledEntrant = 0

// Tournament представляет один раунд ставок с фиксированным числом участников.
// TotalPool хранится в минимальных единицах и только растёт, пока active=true.
type Tournament struct {
	ID             int       `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	EntrantCount   int       `json:"entrant_count" db:"entrant_count"`
	Active         bool      `json:"active" db:"active"`
	Settled        bool      `json:"settled" db:"settled"`
	WinningEntrant int       `json:"winning_entrant" db:"winning_entrant"`
	TotalPool      int64     `json:"total_pool" db:"total_pool"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`

	// Заполняется сервисом, в БД не хранится.
	Phase TournamentPhase `json:"phase,omitempty" db:"-"`
}

// CurrentPhase derives the lifecycle phase from the stored flags.
func (t *Tournament) CurrentPhase() TournamentPhase {
	switch {
	case t.Settled && t.WinningEntrant == CancelledEntrant:
		return PhaseCancelled
	case t.Settled:
		return PhaseSettled
	case t.Active:
		return PhaseActive
	default:
		return PhaseClosed
	}
}
