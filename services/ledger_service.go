package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arenapool/wager-system/live"
	"github.com/arenapool/wager-system/models"
	"github.com/arenapool/wager-system/repositories"
	"golang.org/x/sync/errgroup"
)

// MinWagerAmount - минимальная ставка в минимальных единицах.
const MinWagerAmount int64 = 100

// ClaimStatus - статус выплаты участника по турниру плюс неизменяющий
// предрасчёт суммы (для опроса из UI).
type ClaimStatus struct {
	Claimed       bool          `json:"claimed"`
	Claim         *models.Claim `json:"claim,omitempty"`
	PreviewPayout int64         `json:"preview_payout"`
}

// TournamentSummary - агрегированный снимок для страницы турнира.
type TournamentSummary struct {
	Tournament *models.Tournament   `json:"tournament"`
	Pools      []models.EntrantPool `json:"pools"`
	Odds       map[int]int64        `json:"odds"`
}

// LedgerService ведёт ставки и выплаты: накопление ставок по участникам,
// расчёт коэффициентов и выплат, однократность выплат и возвраты при
// отмене. Все изменяющие операции атомарны на уровне транзакции БД,
// сериализованной блокировкой строки турнира.
type LedgerService interface {
	PlaceWager(ctx context.Context, userID, tournamentID, entrantID int, amount int64) (*models.Wager, error)
	Claim(ctx context.Context, userID, tournamentID int) (*models.Claim, error)

	CurrentOdds(ctx context.Context, tournamentID, entrantID int) (int64, error)
	PreviewPayout(ctx context.Context, userID, tournamentID int) (int64, error)
	ClaimStatus(ctx context.Context, userID, tournamentID int) (*ClaimStatus, error)
	ListUserWagers(ctx context.Context, userID, tournamentID int) ([]models.Wager, error)
	ListEntrantPools(ctx context.Context, tournamentID int) ([]models.EntrantPool, error)
	GetTournamentSummary(ctx context.Context, tournamentID int) (*TournamentSummary, error)
	GetBalance(ctx context.Context, userID int) (int64, error)
}

type ledgerService struct {
	txManager      repositories.TxManager
	tournamentRepo repositories.TournamentRepository
	poolRepo       repositories.PoolRepository
	wagerRepo      repositories.WagerRepository
	claimRepo      repositories.ClaimRepository
	balanceRepo    repositories.BalanceRepository
	notifier       notifier
	logger         *slog.Logger
}

func NewLedgerService(
	txManager repositories.TxManager,
	tournamentRepo repositories.TournamentRepository,
	poolRepo repositories.PoolRepository,
	wagerRepo repositories.WagerRepository,
	claimRepo repositories.ClaimRepository,
	balanceRepo repositories.BalanceRepository,
	hub EventBroadcaster,
	publisher EventPublisher,
	logger *slog.Logger,
) LedgerService {
	return &ledgerService{
		txManager:      txManager,
		tournamentRepo: tournamentRepo,
		poolRepo:       poolRepo,
		wagerRepo:      wagerRepo,
		claimRepo:      claimRepo,
		balanceRepo:    balanceRepo,
		notifier:       notifier{hub: hub, publisher: publisher, logger: logger},
		logger:         logger,
	}
}

func (s *ledgerService) PlaceWager(ctx context.Context, userID, tournamentID, entrantID int, amount int64) (*models.Wager, error) {
	var wager *models.Wager
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.LockByID(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if !t.Active {
			return ErrTournamentNotActive
		}
		if amount < MinWagerAmount {
			return ErrWagerBelowMinimum
		}
		if !validEntrant(entrantID, t.EntrantCount) {
			return ErrInvalidEntrantID
		}

		// Ставка списывается с баланса участника в той же транзакции,
		// что и рост пулов: либо применяется всё, либо ничего.
		if err := s.balanceRepo.Debit(ctx, exec, userID, amount); err != nil {
			switch {
			case errors.Is(err, repositories.ErrInsufficientFunds):
				return ErrInsufficientFunds
			case errors.Is(err, repositories.ErrUserNotFound):
				return ErrUserNotFound
			}
			return err
		}
		if err := s.tournamentRepo.AddToPool(ctx, exec, tournamentID, amount); err != nil {
			return err
		}
		if err := s.poolRepo.AddStake(ctx, exec, tournamentID, entrantID, amount); err != nil {
			return err
		}
		if err := s.wagerRepo.AddStake(ctx, exec, tournamentID, userID, entrantID, amount); err != nil {
			return err
		}

		staked, err := s.wagerRepo.GetStake(ctx, exec, tournamentID, userID, entrantID)
		if err != nil {
			return err
		}
		wager = &models.Wager{
			TournamentID: tournamentID,
			UserID:       userID,
			EntrantID:    entrantID,
			Staked:       staked,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.emit(ctx, tournamentID, live.EventWagerPlaced, WagerPlacedEvent{
		UserID:       userID,
		TournamentID: tournamentID,
		EntrantID:    entrantID,
		Amount:       amount,
	})
	return wager, nil
}

// payoutWithinTx считает причитающуюся сумму для выплаты. Используется
// и самой выплатой, и её неизменяющим предпросмотром.
func (s *ledgerService) payoutWithinTx(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, userID int) (int64, error) {
	if t.WinningEntrant == models.CancelledEntrant {
		// Отмена: полный возврат всех ставок участника, без комиссии.
		return s.wagerRepo.SumByUser(ctx, exec, t.ID, userID)
	}

	userStake, err := s.wagerRepo.GetStake(ctx, exec, t.ID, userID, t.WinningEntrant)
	if err != nil {
		return 0, err
	}
	if userStake == 0 {
		return 0, ErrNoWinningBets
	}
	winnerPool, err := s.poolRepo.GetStake(ctx, exec, t.ID, t.WinningEntrant)
	if err != nil {
		return 0, err
	}
	// Остаток от целочисленного деления никому не распределяется и
	// остаётся в записях как невостребованный.
	return mulDiv(userStake, distributableOf(t.TotalPool), winnerPool), nil
}

func (s *ledgerService) Claim(ctx context.Context, userID, tournamentID int) (*models.Claim, error) {
	var claim *models.Claim
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.LockByID(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if !t.Settled {
			return ErrTournamentNotSettled
		}
		claimed, err := s.claimRepo.HasClaimed(ctx, exec, tournamentID, userID)
		if err != nil {
			return err
		}
		if claimed {
			return ErrAlreadyClaimed
		}

		payout, err := s.payoutWithinTx(ctx, exec, t, userID)
		if err != nil {
			return err
		}
		if payout == 0 {
			return ErrNothingToClaim
		}

		// Запись о выплате фиксируется до перевода средств; неудавшийся
		// перевод откатывает транзакцию, и выплата не считается
		// использованной.
		claim = &models.Claim{TournamentID: tournamentID, UserID: userID, Amount: payout}
		if err := s.claimRepo.Create(ctx, exec, claim); err != nil {
			if errors.Is(err, repositories.ErrClaimConflict) {
				return ErrAlreadyClaimed
			}
			return err
		}
		if err := s.balanceRepo.Credit(ctx, exec, userID, payout); err != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.emit(ctx, tournamentID, live.EventPayoutClaimed, PayoutClaimedEvent{
		TournamentID: tournamentID,
		UserID:       userID,
		Amount:       claim.Amount,
	})
	return claim, nil
}

func (s *ledgerService) CurrentOdds(ctx context.Context, tournamentID, entrantID int) (int64, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return 0, ErrTournamentNotFound
		}
		return 0, err
	}
	if !validEntrant(entrantID, t.EntrantCount) {
		return 0, ErrInvalidEntrantID
	}
	return s.oddsFor(ctx, t, entrantID, nil)
}

// oddsFor - коэффициент в базисных пунктах на единицу ставки.
// pools передаётся, когда пулы уже загружены (сводка турнира).
func (s *ledgerService) oddsFor(ctx context.Context, t *models.Tournament, entrantID int, pools []models.EntrantPool) (int64, error) {
	if t.TotalPool == 0 {
		return NeutralOdds, nil
	}

	var entrantPool int64
	if pools != nil {
		for _, p := range pools {
			if p.EntrantID == entrantID {
				entrantPool = p.StakedTotal
				break
			}
		}
	} else {
		var err error
		entrantPool, err = s.poolRepo.GetStake(ctx, nil, t.ID, entrantID)
		if err != nil {
			return 0, err
		}
	}
	if entrantPool == 0 {
		// На участника никто не ставил - коэффициента нет.
		return 0, nil
	}

	winnerPoolIfThisWon := mulDiv(t.TotalPool, BasisPointScale-FeeBasisPoints, BasisPointScale)
	return mulDiv(winnerPoolIfThisWon, BasisPointScale, entrantPool), nil
}

func (s *ledgerService) PreviewPayout(ctx context.Context, userID, tournamentID int) (int64, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return 0, ErrTournamentNotFound
		}
		return 0, err
	}
	// Неизменяющий вариант Claim: вместо отказов возвращает 0.
	if !t.Settled {
		return 0, nil
	}
	claimed, err := s.claimRepo.HasClaimed(ctx, nil, tournamentID, userID)
	if err != nil {
		return 0, err
	}
	if claimed {
		return 0, nil
	}
	payout, err := s.payoutWithinTx(ctx, nil, t, userID)
	if err != nil {
		if errors.Is(err, ErrNoWinningBets) {
			return 0, nil
		}
		return 0, err
	}
	return payout, nil
}

func (s *ledgerService) ClaimStatus(ctx context.Context, userID, tournamentID int) (*ClaimStatus, error) {
	claim, err := s.claimRepo.Get(ctx, nil, tournamentID, userID)
	if err != nil {
		return nil, err
	}
	if claim != nil {
		return &ClaimStatus{Claimed: true, Claim: claim}, nil
	}
	preview, err := s.PreviewPayout(ctx, userID, tournamentID)
	if err != nil {
		return nil, err
	}
	return &ClaimStatus{Claimed: false, PreviewPayout: preview}, nil
}

func (s *ledgerService) ListUserWagers(ctx context.Context, userID, tournamentID int) ([]models.Wager, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return s.wagerRepo.ListByUser(ctx, tournamentID, userID)
}

func (s *ledgerService) ListEntrantPools(ctx context.Context, tournamentID int) ([]models.EntrantPool, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return s.poolRepo.ListByTournament(ctx, tournamentID)
}

func (s *ledgerService) GetTournamentSummary(ctx context.Context, tournamentID int) (*TournamentSummary, error) {
	var (
		tournament *models.Tournament
		pools      []models.EntrantPool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.tournamentRepo.GetByID(gctx, nil, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		t.Phase = t.CurrentPhase()
		tournament = t
		return nil
	})
	g.Go(func() error {
		p, err := s.poolRepo.ListByTournament(gctx, tournamentID)
		if err != nil {
			return err
		}
		pools = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	odds := make(map[int]int64, tournament.EntrantCount)
	for entrantID := 1; entrantID <= tournament.EntrantCount; entrantID++ {
		o, err := s.oddsFor(ctx, tournament, entrantID, pools)
		if err != nil {
			return nil, err
		}
		odds[entrantID] = o
	}

	return &TournamentSummary{Tournament: tournament, Pools: pools, Odds: odds}, nil
}

func (s *ledgerService) GetBalance(ctx context.Context, userID int) (int64, error) {
	balance, err := s.balanceRepo.GetBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return balance, nil
}
