package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/arenapool/wager-system/live"
	"github.com/arenapool/wager-system/models"
	"github.com/arenapool/wager-system/repositories"
)

type poolKey struct {
	tournamentID int
	entrantID    int
}

type wagerKey struct {
	tournamentID int
	userID       int
	entrantID    int
}

type claimKey struct {
	tournamentID int
	userID       int
}

// memStore - общее состояние in-memory репозиториев одного теста.
type memStore struct {
	nextTournamentID int
	nextUserID       int

	tournaments  map[int]models.Tournament
	pools        map[poolKey]int64
	wagers       map[wagerKey]int64
	claims       map[claimKey]models.Claim
	users        map[int]models.User
	feeRecipient int
}

func newMemStore() *memStore {
	return &memStore{
		nextTournamentID: 1,
		nextUserID:       1,
		tournaments:      make(map[int]models.Tournament),
		pools:            make(map[poolKey]int64),
		wagers:           make(map[wagerKey]int64),
		claims:           make(map[claimKey]models.Claim),
		users:            make(map[int]models.User),
	}
}

func (s *memStore) snapshot() *memStore {
	c := newMemStore()
	c.nextTournamentID = s.nextTournamentID
	c.nextUserID = s.nextUserID
	c.feeRecipient = s.feeRecipient
	for k, v := range s.tournaments {
		c.tournaments[k] = v
	}
	for k, v := range s.pools {
		c.pools[k] = v
	}
	for k, v := range s.wagers {
		c.wagers[k] = v
	}
	for k, v := range s.claims {
		c.claims[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

func (s *memStore) restore(from *memStore) {
	s.nextTournamentID = from.nextTournamentID
	s.nextUserID = from.nextUserID
	s.feeRecipient = from.feeRecipient
	s.tournaments = from.tournaments
	s.pools = from.pools
	s.wagers = from.wagers
	s.claims = from.claims
	s.users = from.users
}

func (s *memStore) addUser(role models.UserRole, balance int64) int {
	id := s.nextUserID
	s.nextUserID++
	s.users[id] = models.User{
		ID:        id,
		Email:     fmt.Sprintf("user%d@example.com", id),
		Role:      role,
		Balance:   balance,
		CreatedAt: time.Now(),
	}
	return id
}

func (s *memStore) addTournament(name string, entrantCount int) int {
	id := s.nextTournamentID
	s.nextTournamentID++
	s.tournaments[id] = models.Tournament{
		ID:             id,
		Name:           name,
		EntrantCount:   entrantCount,
		Active:         true,
		WinningEntrant: models.CancelledEntrant,
		CreatedAt:      time.Now(),
	}
	return id
}

// fakeTxManager откатывает состояние in-memory хранилища при ошибке,
// повторяя транзакционную семантику настоящего TxManager.
type fakeTxManager struct {
	s *memStore
}

func (m *fakeTxManager) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	saved := m.s.snapshot()
	if err := fn(nil); err != nil {
		m.s.restore(saved)
		return err
	}
	return nil
}

type fakeTournamentRepo struct {
	s *memStore
}

func (r *fakeTournamentRepo) Create(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament) error {
	tournament.ID = r.s.nextTournamentID
	r.s.nextTournamentID++
	tournament.CreatedAt = time.Now()
	r.s.tournaments[tournament.ID] = *tournament
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return &t, nil
}

func (r *fakeTournamentRepo) LockByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	ids := make([]int, 0, len(r.s.tournaments))
	for id := range r.s.tournaments {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var out []models.Tournament
	for _, id := range ids {
		t := r.s.tournaments[id]
		if filter.Active != nil && t.Active != *filter.Active {
			continue
		}
		if filter.Settled != nil && t.Settled != *filter.Settled {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *fakeTournamentRepo) Close(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	t, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Active = false
	r.s.tournaments[id] = t
	return nil
}

func (r *fakeTournamentRepo) MarkSettled(ctx context.Context, exec repositories.SQLExecutor, id int, winningEntrant int) error {
	t, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Active = false
	t.Settled = true
	t.WinningEntrant = winningEntrant
	r.s.tournaments[id] = t
	return nil
}

func (r *fakeTournamentRepo) AddToPool(ctx context.Context, exec repositories.SQLExecutor, id int, amount int64) error {
	t, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.TotalPool += amount
	r.s.tournaments[id] = t
	return nil
}

type fakePoolRepo struct {
	s *memStore
}

func (r *fakePoolRepo) AddStake(ctx context.Context, exec repositories.SQLExecutor, tournamentID, entrantID int, amount int64) error {
	r.s.pools[poolKey{tournamentID, entrantID}] += amount
	return nil
}

func (r *fakePoolRepo) GetStake(ctx context.Context, exec repositories.SQLExecutor, tournamentID, entrantID int) (int64, error) {
	return r.s.pools[poolKey{tournamentID, entrantID}], nil
}

func (r *fakePoolRepo) ListByTournament(ctx context.Context, tournamentID int) ([]models.EntrantPool, error) {
	var out []models.EntrantPool
	for k, staked := range r.s.pools {
		if k.tournamentID != tournamentID {
			continue
		}
		out = append(out, models.EntrantPool{
			TournamentID: k.tournamentID,
			EntrantID:    k.entrantID,
			StakedTotal:  staked,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntrantID < out[j].EntrantID })
	return out, nil
}

type fakeWagerRepo struct {
	s *memStore
}

func (r *fakeWagerRepo) AddStake(ctx context.Context, exec repositories.SQLExecutor, tournamentID, userID, entrantID int, amount int64) error {
	r.s.wagers[wagerKey{tournamentID, userID, entrantID}] += amount
	return nil
}

func (r *fakeWagerRepo) GetStake(ctx context.Context, exec repositories.SQLExecutor, tournamentID, userID, entrantID int) (int64, error) {
	return r.s.wagers[wagerKey{tournamentID, userID, entrantID}], nil
}

func (r *fakeWagerRepo) SumByUser(ctx context.Context, exec repositories.SQLExecutor, tournamentID, userID int) (int64, error) {
	var sum int64
	for k, staked := range r.s.wagers {
		if k.tournamentID == tournamentID && k.userID == userID {
			sum += staked
		}
	}
	return sum, nil
}

func (r *fakeWagerRepo) ListByUser(ctx context.Context, tournamentID, userID int) ([]models.Wager, error) {
	var out []models.Wager
	for k, staked := range r.s.wagers {
		if k.tournamentID != tournamentID || k.userID != userID {
			continue
		}
		out = append(out, models.Wager{
			TournamentID: k.tournamentID,
			UserID:       k.userID,
			EntrantID:    k.entrantID,
			Staked:       staked,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntrantID < out[j].EntrantID })
	return out, nil
}

type fakeClaimRepo struct {
	s *memStore
}

func (r *fakeClaimRepo) Create(ctx context.Context, exec repositories.SQLExecutor, claim *models.Claim) error {
	key := claimKey{claim.TournamentID, claim.UserID}
	if _, ok := r.s.claims[key]; ok {
		return repositories.ErrClaimConflict
	}
	claim.ClaimedAt = time.Now()
	r.s.claims[key] = *claim
	return nil
}

func (r *fakeClaimRepo) Get(ctx context.Context, exec repositories.SQLExecutor, tournamentID, userID int) (*models.Claim, error) {
	c, ok := r.s.claims[claimKey{tournamentID, userID}]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *fakeClaimRepo) HasClaimed(ctx context.Context, exec repositories.SQLExecutor, tournamentID, userID int) (bool, error) {
	_, ok := r.s.claims[claimKey{tournamentID, userID}]
	return ok, nil
}

type fakeBalanceRepo struct {
	s *memStore

	// Инъекция отказа перевода для проверки отката.
	creditErr error
}

func (r *fakeBalanceRepo) Credit(ctx context.Context, exec repositories.SQLExecutor, userID int, amount int64) error {
	if r.creditErr != nil {
		return r.creditErr
	}
	u, ok := r.s.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.Balance += amount
	r.s.users[userID] = u
	return nil
}

func (r *fakeBalanceRepo) Debit(ctx context.Context, exec repositories.SQLExecutor, userID int, amount int64) error {
	u, ok := r.s.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	if u.Balance < amount {
		return repositories.ErrInsufficientFunds
	}
	u.Balance -= amount
	r.s.users[userID] = u
	return nil
}

func (r *fakeBalanceRepo) GetBalance(ctx context.Context, userID int) (int64, error) {
	u, ok := r.s.users[userID]
	if !ok {
		return 0, repositories.ErrUserNotFound
	}
	return u.Balance, nil
}

type fakeUserRepo struct {
	s *memStore
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	user.ID = r.s.nextUserID
	r.s.nextUserID++
	user.CreatedAt = time.Now()
	r.s.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

type fakeSettingsRepo struct {
	s *memStore
}

func (r *fakeSettingsRepo) GetFeeRecipient(ctx context.Context, exec repositories.SQLExecutor) (int, error) {
	return r.s.feeRecipient, nil
}

func (r *fakeSettingsRepo) SetFeeRecipient(ctx context.Context, exec repositories.SQLExecutor, userID int) error {
	r.s.feeRecipient = userID
	return nil
}

func listFilterActive(active bool) repositories.ListTournamentsFilter {
	return repositories.ListTournamentsFilter{Active: &active}
}

// recordingHub запоминает разосланные события.
type recordingHub struct {
	messages []live.Message
}

func (h *recordingHub) BroadcastToRoom(roomID string, message interface{}) {
	if m, ok := message.(live.Message); ok {
		h.messages = append(h.messages, m)
	}
}

func (h *recordingHub) lastEventType() string {
	if len(h.messages) == 0 {
		return ""
	}
	return h.messages[len(h.messages)-1].Type
}

// testEnv собирает сервисы поверх общего in-memory хранилища.
type testEnv struct {
	store    *memStore
	balances *fakeBalanceRepo
	hub      *recordingHub

	registry RegistryService
	ledger   LedgerService
	auth     AuthService
}

func newTestEnv() *testEnv {
	store := newMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	txManager := &fakeTxManager{s: store}
	tournamentRepo := &fakeTournamentRepo{s: store}
	poolRepo := &fakePoolRepo{s: store}
	wagerRepo := &fakeWagerRepo{s: store}
	claimRepo := &fakeClaimRepo{s: store}
	balanceRepo := &fakeBalanceRepo{s: store}
	userRepo := &fakeUserRepo{s: store}
	settingsRepo := &fakeSettingsRepo{s: store}
	hub := &recordingHub{}

	return &testEnv{
		store:    store,
		balances: balanceRepo,
		hub:      hub,
		registry: NewRegistryService(txManager, tournamentRepo, poolRepo, settingsRepo, balanceRepo, userRepo, nil, hub, nil, logger),
		ledger:   NewLedgerService(txManager, tournamentRepo, poolRepo, wagerRepo, claimRepo, balanceRepo, hub, nil, logger),
		auth:     NewAuthService(userRepo, logger),
	}
}
