package services

import (
	"context"
	"errors"
	"testing"

	"github.com/arenapool/wager-system/live"
	"github.com/arenapool/wager-system/models"
)

func TestCreateTournamentRequiresAuthority(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	participantID := env.store.addUser(models.RoleParticipant, 0)

	_, err := env.registry.CreateTournament(ctx, participantID, CreateTournamentInput{Name: "Spring Cup", EntrantCount: 4})
	if !errors.Is(err, ErrForbiddenOperation) {
		t.Fatalf("expected ErrForbiddenOperation, got %v", err)
	}

	_, err = env.registry.CreateTournament(ctx, 999, CreateTournamentInput{Name: "Spring Cup", EntrantCount: 4})
	if !errors.Is(err, ErrForbiddenOperation) {
		t.Fatalf("expected ErrForbiddenOperation for unknown caller, got %v", err)
	}
}

func TestCreateTournamentValidatesEntrantCount(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	authorityID := env.store.addUser(models.RoleAuthority, 0)

	for _, count := range []int{-1, 0, 1, 101} {
		_, err := env.registry.CreateTournament(ctx, authorityID, CreateTournamentInput{Name: "Bad", EntrantCount: count})
		if !errors.Is(err, ErrInvalidEntrantCount) {
			t.Fatalf("entrant count %d: expected ErrInvalidEntrantCount, got %v", count, err)
		}
	}
}

func TestCreateTournamentStartsActive(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	authorityID := env.store.addUser(models.RoleAuthority, 0)

	tournament, err := env.registry.CreateTournament(ctx, authorityID, CreateTournamentInput{Name: "Spring Cup", EntrantCount: 4})
	if err != nil {
		t.Fatalf("create tournament: %v", err)
	}
	if tournament.ID == 0 {
		t.Fatal("expected assigned tournament ID")
	}
	if !tournament.Active || tournament.Settled {
		t.Fatalf("expected active unsettled tournament, got active=%v settled=%v", tournament.Active, tournament.Settled)
	}
	if tournament.TotalPool != 0 {
		t.Fatalf("expected empty pool, got %d", tournament.TotalPool)
	}
	if tournament.Phase != models.PhaseActive {
		t.Fatalf("expected phase active, got %q", tournament.Phase)
	}
	if env.hub.lastEventType() != live.EventTournamentCreated {
		t.Fatalf("expected tournament created event, got %q", env.hub.lastEventType())
	}
}

func TestCloseWageringIsNotIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	authorityID := env.store.addUser(models.RoleAuthority, 0)
	tournamentID := env.store.addTournament("Spring Cup", 4)

	tournament, err := env.registry.CloseWagering(ctx, authorityID, tournamentID)
	if err != nil {
		t.Fatalf("close wagering: %v", err)
	}
	if tournament.Active {
		t.Fatal("expected tournament inactive after close")
	}
	if tournament.Phase != models.PhaseClosed {
		t.Fatalf("expected phase closed, got %q", tournament.Phase)
	}

	_, err = env.registry.CloseWagering(ctx, authorityID, tournamentID)
	if !errors.Is(err, ErrWageringAlreadyClosed) {
		t.Fatalf("expected ErrWageringAlreadyClosed, got %v", err)
	}
}

func TestSettleRequiresClosedWagering(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	authorityID := env.store.addUser(models.RoleAuthority, 0)
	tournamentID := env.store.addTournament("Spring Cup", 4)

	_, err := env.registry.Settle(ctx, authorityID, tournamentID, 1)
	if !errors.Is(err, ErrBettingStillActive) {
		t.Fatalf("expected ErrBettingStillActive, got %v", err)
	}
}

func TestSettleRejectsEmptyPool(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	authorityID := env.store.addUser(models.RoleAuthority, 0)
	tournamentID := env.store.addTournament("Spring Cup", 4)

	if _, err := env.registry.CloseWagering(ctx, authorityID, tournamentID); err != nil {
		t.Fatalf("close wagering: %v", err)
	}
	_, err := env.registry.Settle(ctx, authorityID, tournamentID, 1)
	if !errors.Is(err, ErrNoBetsPlaced) {
		t.Fatalf("expected ErrNoBetsPlaced, got %v", err)
	}
}

func TestSettleValidatesWinningEntrant(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	authorityID := env.store.addUser(models.RoleAuthority, 0)
	userID := env.store.addUser(models.RoleParticipant, 1_000)
	tournamentID := env.store.addTournament("Spring Cup", 4)

	if _, err := env.ledger.PlaceWager(ctx, userID, tournamentID, 1, 500); err != nil {
		t.Fatalf("place wager: %v", err)
	}
	if _, err := env.registry.CloseWagering(ctx, authorityID, tournamentID); err != nil {
		t.Fatalf("close wagering: %v", err)
	}

	for _, winner := range []int{0, -1, 5} {
		_, err := env.registry.Settle(ctx, authorityID, tournamentID, winner)
		if !errors.Is(err, ErrInvalidEntrantID) {
			t.Fatalf("winner %d: expected ErrInvalidEntrantID, got %v", winner, err)
		}
	}
}

func TestSettleExtractsFeeExactlyOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	authorityID := env.store.addUser(models.RoleAuthority, 0)
	recipientID := env.store.addUser(models.RoleParticipant, 0)
	userID := env.store.addUser(models.RoleParticipant, 10_000)
	tournamentID := env.store.addTournament("Spring Cup", 4)

	if err := env.registry.SetFeeRecipient(ctx, authorityID, recipientID); err != nil {
		t.Fatalf("set fee recipient: %v", err)
	}
	if _, err := env.ledger.PlaceWager(ctx, userID, tournamentID, 1, 800); err != nil {
		t.Fatalf("place wager: %v", err)
	}
	if _, err := env.registry.CloseWagering(ctx, authorityID, tournamentID); err != nil {
		t.Fatalf("close wagering: %v", err)
	}

	tournament, err := env.registry.Settle(ctx, authorityID, tournamentID, 1)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if tournament.Phase != models.PhaseSettled {
		t.Fatalf("expected phase settled, got %q", tournament.Phase)
	}
	if tournament.WinningEntrant != 1 {
		t.Fatalf("expected winning entrant 1, got %d", tournament.WinningEntrant)
	}

	// 800 * 500 / 10000 = 40
	recipientBalance, err := env.ledger.GetBalance(ctx, recipientID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if recipientBalance != 40 {
		t.Fatalf("expected fee 40 credited, got %d", recipientBalance)
	}

	_, err = env.registry.Settle(ctx, authorityID, tournamentID, 1)
	if !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("expected ErrAlreadySettled, got %v", err)
	}
	recipientBalance, _ = env.ledger.GetBalance(ctx, recipientID)
	if recipientBalance != 40 {
		t.Fatalf("fee credited twice: balance %d", recipientBalance)
	}
}

func TestSettleAbortsWhenFeeRecipientNotConfigured(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	authorityID := env.store.addUser(models.RoleAuthority, 0)
	userID := env.store.addUser(models.RoleParticipant, 10_000)
	tournamentID := env.store.addTournament("Spring Cup", 4)

	if _, err := env.ledger.PlaceWager(ctx, userID, tournamentID, 1, 800); err != nil {
		t.Fatalf("place wager: %v", err)
	}
	if _, err := env.registry.CloseWagering(ctx, authorityID, tournamentID); err != nil {
		t.Fatalf("close wagering: %v", err)
	}

	_, err := env.registry.Settle(ctx, authorityID, tournamentID, 1)
	if !errors.Is(err, ErrFeeTransferFailed) {
		t.Fatalf("expected ErrFeeTransferFailed, got %v", err)
	}

	tournament, err := env.registry.GetTournamentByID(ctx, tournamentID)
	if err != nil {
		t.Fatalf("get tournament: %v", err)
	}
	if tournament.Settled {
		t.Fatal("settlement must not persist after failed fee transfer")
	}
}

func TestSettleAbortsWhenFeeTransferFails(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	authorityID := env.store.addUser(models.RoleAuthority, 0)
	recipientID := env.store.addUser(models.RoleParticipant, 0)
	userID := env.store.addUser(models.RoleParticipant, 10_000)
	tournamentID := env.store.addTournament("Spring Cup", 4)

	if err := env.registry.SetFeeRecipient(ctx, authorityID, recipientID); err != nil {
		t.Fatalf("set fee recipient: %v", err)
	}
	if _, err := env.ledger.PlaceWager(ctx, userID, tournamentID, 1, 800); err != nil {
		t.Fatalf("place wager: %v", err)
	}
	if _, err := env.registry.CloseWagering(ctx, authorityID, tournamentID); err != nil {
		t.Fatalf("close wagering: %v", err)
	}

	env.balances.creditErr = errors.New("ledger unavailable")
	_, err := env.registry.Settle(ctx, authorityID, tournamentID, 1)
	if !errors.Is(err, ErrFeeTransferFailed) {
		t.Fatalf("expected ErrFeeTransferFailed, got %v", err)
	}

	tournament, err := env.registry.GetTournamentByID(ctx, tournamentID)
	if err != nil {
		t.Fatalf("get tournament: %v", err)
	}
	if tournament.Settled {
		t.Fatal("settlement must not persist after failed fee transfer")
	}

	// После восстановления перевода расчёт проходит.
	env.balances.creditErr = nil
	if _, err := env.registry.Settle(ctx, authorityID, tournamentID, 1); err != nil {
		t.Fatalf("settle after recovery: %v", err)
	}
}

func TestCancelAllowedUntilSettled(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	authorityID := env.store.addUser(models.RoleAuthority, 0)

	// Отмена активного турнира.
	activeID := env.store.addTournament("Active Cup", 4)
	tournament, err := env.registry.Cancel(ctx, authorityID, activeID)
	if err != nil {
		t.Fatalf("cancel active: %v", err)
	}
	if tournament.Phase != models.PhaseCancelled {
		t.Fatalf("expected phase cancelled, got %q", tournament.Phase)
	}
	if tournament.WinningEntrant != models.CancelledEntrant {
		t.Fatalf("expected cancelled sentinel, got %d", tournament.WinningEntrant)
	}

	// Отмена закрытого, но нерассчитанного турнира.
	closedID := env.store.addTournament("Closed Cup", 4)
	if _, err := env.registry.CloseWagering(ctx, authorityID, closedID); err != nil {
		t.Fatalf("close wagering: %v", err)
	}
	if _, err := env.registry.Cancel(ctx, authorityID, closedID); err != nil {
		t.Fatalf("cancel closed: %v", err)
	}

	// Повторная отмена и отмена рассчитанного - ошибка.
	if _, err := env.registry.Cancel(ctx, authorityID, closedID); !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("expected ErrAlreadySettled, got %v", err)
	}
}

func TestSetFeeRecipientValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	authorityID := env.store.addUser(models.RoleAuthority, 0)
	participantID := env.store.addUser(models.RoleParticipant, 0)

	if err := env.registry.SetFeeRecipient(ctx, participantID, authorityID); !errors.Is(err, ErrForbiddenOperation) {
		t.Fatalf("expected ErrForbiddenOperation, got %v", err)
	}
	if err := env.registry.SetFeeRecipient(ctx, authorityID, 0); !errors.Is(err, ErrInvalidRecipient) {
		t.Fatalf("expected ErrInvalidRecipient for zero, got %v", err)
	}
	if err := env.registry.SetFeeRecipient(ctx, authorityID, 999); !errors.Is(err, ErrInvalidRecipient) {
		t.Fatalf("expected ErrInvalidRecipient for unknown user, got %v", err)
	}
	if err := env.registry.SetFeeRecipient(ctx, authorityID, participantID); err != nil {
		t.Fatalf("set fee recipient: %v", err)
	}
}

func TestListTournamentsFilters(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	authorityID := env.store.addUser(models.RoleAuthority, 0)

	activeID := env.store.addTournament("Active Cup", 2)
	closedID := env.store.addTournament("Closed Cup", 2)
	if _, err := env.registry.CloseWagering(ctx, authorityID, closedID); err != nil {
		t.Fatalf("close wagering: %v", err)
	}

	active := true
	tournaments, err := env.registry.ListTournaments(ctx, listFilterActive(active))
	if err != nil {
		t.Fatalf("list tournaments: %v", err)
	}
	if len(tournaments) != 1 || tournaments[0].ID != activeID {
		t.Fatalf("expected only active tournament %d, got %+v", activeID, tournaments)
	}
	if tournaments[0].Phase != models.PhaseActive {
		t.Fatalf("expected phase active, got %q", tournaments[0].Phase)
	}
}
