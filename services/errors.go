package services

import "errors"

// Ошибки сервисного слоя. Каждый случай отказа - отдельная именованная
// ошибка, чтобы HTTP-слой и вызывающие UI могли показать точную причину.
var (
	// Авторизация
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	// Не найдено
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrUserNotFound       = errors.New("user not found")

	// Реестр турниров
	ErrInvalidEntrantCount   = errors.New("entrant count must be between 2 and 100")
	ErrWageringAlreadyClosed = errors.New("wagering is already closed")
	ErrBettingStillActive    = errors.New("wagering must be closed before settlement")
	ErrAlreadySettled        = errors.New("tournament is already settled")
	ErrNoBetsPlaced          = errors.New("cannot settle a tournament with an empty pool")
	ErrInvalidEntrantID      = errors.New("entrant id is out of range for this tournament")
	ErrInvalidRecipient      = errors.New("invalid fee recipient")

	// Ставки
	ErrTournamentNotActive = errors.New("tournament is not accepting wagers")
	ErrWagerBelowMinimum   = errors.New("wager amount is below the minimum")
	ErrInsufficientFunds   = errors.New("insufficient funds")

	// Выплаты
	ErrTournamentNotSettled = errors.New("tournament is not settled yet")
	ErrAlreadyClaimed       = errors.New("payout already claimed")
	ErrNoWinningBets        = errors.New("no winning bets to claim")
	ErrNothingToClaim       = errors.New("nothing to claim")

	// Переводы ценности
	ErrFeeTransferFailed = errors.New("fee transfer failed")
	ErrTransferFailed    = errors.New("payout transfer failed")

	// Аутентификация
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
	ErrPasswordTooShort       = errors.New("password is too short")
)
