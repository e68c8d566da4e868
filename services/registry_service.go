package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arenapool/wager-system/live"
	"github.com/arenapool/wager-system/models"
	"github.com/arenapool/wager-system/repositories"
)

const (
	minEntrantCount = 2
	maxEntrantCount = 100
)

type CreateTournamentInput struct {
	Name         string `json:"name"`
	EntrantCount int    `json:"entrant_count"`
}

// RegistryService владеет жизненным циклом турниров:
// Active → Closed → Settled, либо Active/Closed → Cancelled.
// Закрытие и расчёт - два отдельных действия authority, чтобы закрытие
// окна ставок было аудируемо независимо от объявления победителя.
type RegistryService interface {
	CreateTournament(ctx context.Context, callerID int, input CreateTournamentInput) (*models.Tournament, error)
	CloseWagering(ctx context.Context, callerID, tournamentID int) (*models.Tournament, error)
	Settle(ctx context.Context, callerID, tournamentID, winningEntrant int) (*models.Tournament, error)
	Cancel(ctx context.Context, callerID, tournamentID int) (*models.Tournament, error)
	SetFeeRecipient(ctx context.Context, callerID, recipientID int) error

	GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
}

type registryService struct {
	txManager      repositories.TxManager
	tournamentRepo repositories.TournamentRepository
	poolRepo       repositories.PoolRepository
	settingsRepo   repositories.SettingsRepository
	balanceRepo    repositories.BalanceRepository
	userRepo       repositories.UserRepository
	archiver       *SettlementArchiver
	notifier       notifier
	logger         *slog.Logger
}

func NewRegistryService(
	txManager repositories.TxManager,
	tournamentRepo repositories.TournamentRepository,
	poolRepo repositories.PoolRepository,
	settingsRepo repositories.SettingsRepository,
	balanceRepo repositories.BalanceRepository,
	userRepo repositories.UserRepository,
	archiver *SettlementArchiver,
	hub EventBroadcaster,
	publisher EventPublisher,
	logger *slog.Logger,
) RegistryService {
	return &registryService{
		txManager:      txManager,
		tournamentRepo: tournamentRepo,
		poolRepo:       poolRepo,
		settingsRepo:   settingsRepo,
		balanceRepo:    balanceRepo,
		userRepo:       userRepo,
		archiver:       archiver,
		notifier:       notifier{hub: hub, publisher: publisher, logger: logger},
		logger:         logger,
	}
}

// requireAuthority проверяет, что вызывающий пользователь - authority.
func (s *registryService) requireAuthority(ctx context.Context, callerID int) error {
	user, err := s.userRepo.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrForbiddenOperation
		}
		return fmt.Errorf("failed to load caller %d: %w", callerID, err)
	}
	if user.Role != models.RoleAuthority {
		return ErrForbiddenOperation
	}
	return nil
}

func (s *registryService) CreateTournament(ctx context.Context, callerID int, input CreateTournamentInput) (*models.Tournament, error) {
	if err := s.requireAuthority(ctx, callerID); err != nil {
		return nil, err
	}
	if input.EntrantCount < minEntrantCount || input.EntrantCount > maxEntrantCount {
		return nil, ErrInvalidEntrantCount
	}

	tournament := &models.Tournament{
		Name:           input.Name,
		EntrantCount:   input.EntrantCount,
		Active:         true,
		Settled:        false,
		WinningEntrant: models.CancelledEntrant,
		TotalPool:      0,
	}
	if err := s.tournamentRepo.Create(ctx, nil, tournament); err != nil {
		return nil, err
	}
	tournament.Phase = tournament.CurrentPhase()

	s.notifier.emit(ctx, tournament.ID, live.EventTournamentCreated, TournamentCreatedEvent{
		TournamentID: tournament.ID,
		Name:         tournament.Name,
		EntrantCount: tournament.EntrantCount,
	})
	return tournament, nil
}

func (s *registryService) CloseWagering(ctx context.Context, callerID, tournamentID int) (*models.Tournament, error) {
	if err := s.requireAuthority(ctx, callerID); err != nil {
		return nil, err
	}

	var tournament *models.Tournament
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.LockByID(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		// Повторное закрытие - ошибка, не no-op.
		if !t.Active {
			return ErrWageringAlreadyClosed
		}
		if err := s.tournamentRepo.Close(ctx, exec, tournamentID); err != nil {
			return err
		}
		t.Active = false
		tournament = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	tournament.Phase = tournament.CurrentPhase()

	s.notifier.emit(ctx, tournamentID, live.EventWageringClosed, WageringClosedEvent{TournamentID: tournamentID})
	return tournament, nil
}

func (s *registryService) Settle(ctx context.Context, callerID, tournamentID, winningEntrant int) (*models.Tournament, error) {
	if err := s.requireAuthority(ctx, callerID); err != nil {
		return nil, err
	}

	var (
		tournament *models.Tournament
		fee        int64
	)
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.LockByID(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if t.Active {
			return ErrBettingStillActive
		}
		if t.Settled {
			return ErrAlreadySettled
		}
		if t.TotalPool == 0 {
			return ErrNoBetsPlaced
		}
		if !validEntrant(winningEntrant, t.EntrantCount) {
			return ErrInvalidEntrantID
		}

		// Комиссия переводится в той же транзакции: неудача перевода
		// откатывает расчёт целиком.
		fee = feeOf(t.TotalPool)
		if fee > 0 {
			recipientID, err := s.settingsRepo.GetFeeRecipient(ctx, exec)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrFeeTransferFailed, err)
			}
			if recipientID == 0 {
				return fmt.Errorf("%w: fee recipient is not configured", ErrFeeTransferFailed)
			}
			if err := s.balanceRepo.Credit(ctx, exec, recipientID, fee); err != nil {
				return fmt.Errorf("%w: %v", ErrFeeTransferFailed, err)
			}
		}

		if err := s.tournamentRepo.MarkSettled(ctx, exec, tournamentID, winningEntrant); err != nil {
			return err
		}
		t.Settled = true
		t.WinningEntrant = winningEntrant
		tournament = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	tournament.Phase = tournament.CurrentPhase()

	s.notifier.emit(ctx, tournamentID, live.EventTournamentSettled, TournamentSettledEvent{
		TournamentID:   tournamentID,
		WinningEntrant: winningEntrant,
		TotalPool:      tournament.TotalPool,
		Fee:            fee,
	})
	s.archiveReport(ctx, tournament, fee)
	return tournament, nil
}

func (s *registryService) Cancel(ctx context.Context, callerID, tournamentID int) (*models.Tournament, error) {
	if err := s.requireAuthority(ctx, callerID); err != nil {
		return nil, err
	}

	var tournament *models.Tournament
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.LockByID(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		// Отмена допустима и для уже закрытого, но нерассчитанного турнира.
		if t.Settled {
			return ErrAlreadySettled
		}
		if err := s.tournamentRepo.MarkSettled(ctx, exec, tournamentID, models.CancelledEntrant); err != nil {
			return err
		}
		t.Active = false
		t.Settled = true
		t.WinningEntrant = models.CancelledEntrant
		tournament = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	tournament.Phase = tournament.CurrentPhase()

	s.notifier.emit(ctx, tournamentID, live.EventTournamentCancelled, TournamentCancelledEvent{TournamentID: tournamentID})
	s.archiveReport(ctx, tournament, 0)
	return tournament, nil
}

func (s *registryService) SetFeeRecipient(ctx context.Context, callerID, recipientID int) error {
	if err := s.requireAuthority(ctx, callerID); err != nil {
		return err
	}
	if recipientID <= 0 {
		return ErrInvalidRecipient
	}
	if _, err := s.userRepo.GetByID(ctx, recipientID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrInvalidRecipient
		}
		return err
	}
	return s.settingsRepo.SetFeeRecipient(ctx, nil, recipientID)
}

func (s *registryService) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	tournament.Phase = tournament.CurrentPhase()
	return tournament, nil
}

func (s *registryService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		tournaments[i].Phase = tournaments[i].CurrentPhase()
	}
	return tournaments, nil
}

// archiveReport выгружает итоговый отчёт в объектное хранилище.
// Отчёт - справочный артефакт; ошибка выгрузки не влияет на расчёт.
func (s *registryService) archiveReport(ctx context.Context, t *models.Tournament, fee int64) {
	if s.archiver == nil {
		return
	}
	pools, err := s.poolRepo.ListByTournament(ctx, t.ID)
	if err != nil {
		logWarn(ctx, s.logger, "failed to load pools for settlement report",
			slog.Int("tournament_id", t.ID), slog.Any("error", err))
		return
	}
	if err := s.archiver.Archive(ctx, t, pools, fee); err != nil {
		logWarn(ctx, s.logger, "failed to archive settlement report",
			slog.Int("tournament_id", t.ID), slog.Any("error", err))
	}
}
