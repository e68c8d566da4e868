package models

import "time"

// UserRole - роль учётной записи.
type UserRole string

const (
	RoleAuthority   UserRole = "authority"
	RoleParticipant UserRole = "participant"
)

// User представляет участника или администратора (authority) системы.
// Balance хранится в минимальных единицах (minor units).
type User struct {
	ID           int       `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role"`
	Balance      int64     `json:"balance" db:"balance"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
