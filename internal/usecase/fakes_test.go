package usecase

import (
	"context"
	"sort"
	"testing"
	"time"

	"finance-service/internal/domain"
	"finance-service/internal/service"
	"finance-service/internal/xerrors"
	"finance-service/pkg/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// The fakes below back the usecase tests with in-memory state. Writes apply
// immediately; fakeTx only records that commit or rollback ran, which is
// enough because every usecase path that mutates state commits before
// returning success.

// ===============================
// FAKE PGX TRANSACTION
// ===============================

type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }

func (t *fakeTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (t *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }

func (t *fakeTx) Conn() *pgx.Conn { return nil }

// ===============================
// FAKE WALLET REPO
// ===============================

type fakeWalletRepo struct {
	wallets map[string]domain.Wallet
	byAgent map[string]string
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{
		wallets: map[string]domain.Wallet{},
		byAgent: map[string]string{},
	}
}

func (f *fakeWalletRepo) GetOrCreate(ctx context.Context, wallet *domain.Wallet) (*domain.Wallet, error) {
	if id, ok := f.byAgent[wallet.AgentID]; ok {
		w := f.wallets[id]
		return &w, nil
	}

	now := time.Now()
	stored := *wallet
	stored.CreatedAt = now
	stored.UpdatedAt = now
	f.wallets[stored.ID] = stored
	f.byAgent[stored.AgentID] = stored.ID

	w := stored
	return &w, nil
}

func (f *fakeWalletRepo) GetByID(ctx context.Context, id string) (*domain.Wallet, error) {
	w, ok := f.wallets[id]
	if !ok {
		return nil, xerrors.ErrWalletNotFound
	}
	return &w, nil
}

func (f *fakeWalletRepo) GetByAgentID(ctx context.Context, agentID string) (*domain.Wallet, error) {
	id, ok := f.byAgent[agentID]
	if !ok {
		return nil, xerrors.ErrWalletNotFound
	}
	return f.GetByID(ctx, id)
}

func (f *fakeWalletRepo) GetByIDWithLock(ctx context.Context, tx pgx.Tx, id string) (*domain.Wallet, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeWalletRepo) GetByAgentIDWithLock(ctx context.Context, tx pgx.Tx, agentID string) (*domain.Wallet, error) {
	return f.GetByAgentID(ctx, agentID)
}

func (f *fakeWalletRepo) UpdateBalances(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error {
	stored, ok := f.wallets[wallet.ID]
	if !ok {
		return xerrors.ErrWalletNotFound
	}
	stored.AvailableBalance = wallet.AvailableBalance
	stored.PendingBalance = wallet.PendingBalance
	stored.TotalEarned = wallet.TotalEarned
	stored.TotalWithdrawn = wallet.TotalWithdrawn
	stored.TotalFees = wallet.TotalFees
	stored.UpdatedAt = time.Now()
	f.wallets[wallet.ID] = stored
	return nil
}

func (f *fakeWalletRepo) UpdateSettings(ctx context.Context, wallet *domain.Wallet) error {
	stored, ok := f.wallets[wallet.ID]
	if !ok {
		return xerrors.ErrWalletNotFound
	}
	stored.AutoWithdrawEnabled = wallet.AutoWithdrawEnabled
	stored.AutoWithdrawThreshold = wallet.AutoWithdrawThreshold
	stored.PreferredWithdrawalMethod = wallet.PreferredWithdrawalMethod
	stored.WithdrawalDetails = wallet.WithdrawalDetails
	stored.UpdatedAt = time.Now()
	f.wallets[wallet.ID] = stored
	return nil
}

func (f *fakeWalletRepo) ListAutoWithdrawCandidates(ctx context.Context) ([]*domain.Wallet, error) {
	var out []*domain.Wallet
	for _, w := range f.wallets {
		if w.AutoWithdrawEnabled && w.AvailableBalance.GreaterThanOrEqual(w.AutoWithdrawThreshold) {
			c := w
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out, nil
}

func (f *fakeWalletRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return &fakeTx{}, nil
}

// ===============================
// FAKE TRANSACTION REPO
// ===============================

type fakeTransactionRepo struct {
	txns  map[string]domain.Transaction
	order []string
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{txns: map[string]domain.Transaction{}}
}

func platformKey(platform, platformTxID string) string {
	return platform + "|" + platformTxID
}

func (f *fakeTransactionRepo) Create(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error {
	if txn.Platform != nil && txn.PlatformTransactionID != nil {
		key := platformKey(*txn.Platform, *txn.PlatformTransactionID)
		for _, existing := range f.txns {
			if existing.Platform != nil && existing.PlatformTransactionID != nil &&
				platformKey(*existing.Platform, *existing.PlatformTransactionID) == key {
				return xerrors.ErrDuplicateTransaction
			}
		}
	}

	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}
	f.txns[txn.ID] = *txn
	f.order = append(f.order, txn.ID)
	return nil
}

// UpdateStatus persists only the columns the real repository writes
func (f *fakeTransactionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error {
	stored, ok := f.txns[txn.ID]
	if !ok {
		return xerrors.ErrTransactionNotFound
	}
	stored.Status = txn.Status
	stored.Notes = txn.Notes
	stored.PlatformTransactionID = txn.PlatformTransactionID
	stored.Metadata = txn.Metadata
	stored.ProcessedAt = txn.ProcessedAt
	stored.CompletedAt = txn.CompletedAt
	f.txns[txn.ID] = stored
	return nil
}

func (f *fakeTransactionRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	t, ok := f.txns[id]
	if !ok {
		return nil, xerrors.ErrTransactionNotFound
	}
	return &t, nil
}

func (f *fakeTransactionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Transaction, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeTransactionRepo) GetByPlatformTxID(ctx context.Context, platform, platformTxID string) (*domain.Transaction, error) {
	key := platformKey(platform, platformTxID)
	for _, id := range f.order {
		t := f.txns[id]
		if t.Platform != nil && t.PlatformTransactionID != nil &&
			platformKey(*t.Platform, *t.PlatformTransactionID) == key {
			return &t, nil
		}
	}
	return nil, xerrors.ErrTransactionNotFound
}

func (f *fakeTransactionRepo) GetLatestEarningByJob(ctx context.Context, jobID string) (*domain.Transaction, error) {
	var latest *domain.Transaction
	for _, id := range f.order {
		t := f.txns[id]
		if t.Type != domain.TransactionTypeEarning || t.JobID == nil || *t.JobID != jobID {
			continue
		}
		if latest == nil || !t.CreatedAt.Before(latest.CreatedAt) {
			c := t
			latest = &c
		}
	}
	if latest == nil {
		return nil, xerrors.ErrTransactionNotFound
	}
	return latest, nil
}

func (f *fakeTransactionRepo) ListByWallet(ctx context.Context, walletID string, filter *domain.TransactionFilter) ([]*domain.Transaction, error) {
	var matched []*domain.Transaction
	for i := len(f.order) - 1; i >= 0; i-- {
		t := f.txns[f.order[i]]
		if t.WalletID != walletID {
			continue
		}
		if filter != nil {
			if filter.Type != nil && t.Type != *filter.Type {
				continue
			}
			if filter.Status != nil && t.Status != *filter.Status {
				continue
			}
			if filter.Platform != nil && (t.Platform == nil || *t.Platform != *filter.Platform) {
				continue
			}
			if filter.StartDate != nil && t.CreatedAt.Before(*filter.StartDate) {
				continue
			}
			if filter.EndDate != nil && t.CreatedAt.After(*filter.EndDate) {
				continue
			}
		}
		c := t
		matched = append(matched, &c)
	}

	limit := domain.DefaultTransactionLimit
	offset := 0
	if filter != nil {
		if filter.Limit > 0 {
			limit = filter.Limit
		}
		if filter.Offset > 0 {
			offset = filter.Offset
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (f *fakeTransactionRepo) ListByJob(ctx context.Context, jobID string) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for _, id := range f.order {
		t := f.txns[id]
		if t.JobID != nil && *t.JobID == jobID {
			c := t
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeTransactionRepo) ListByPlatform(ctx context.Context, platform string, since *time.Time) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for _, id := range f.order {
		t := f.txns[id]
		if t.Platform == nil || *t.Platform != platform {
			continue
		}
		if since != nil && t.CreatedAt.Before(*since) {
			continue
		}
		c := t
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeTransactionRepo) ListPending(ctx context.Context, olderThan *time.Time) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for _, id := range f.order {
		t := f.txns[id]
		if t.Status != domain.TransactionStatusPending {
			continue
		}
		if olderThan != nil && !t.CreatedAt.Before(*olderThan) {
			continue
		}
		c := t
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeTransactionRepo) ListPendingEarnings(ctx context.Context, platform string, olderThan time.Time) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for _, id := range f.order {
		t := f.txns[id]
		if t.Type == domain.TransactionTypeEarning &&
			t.Status == domain.TransactionStatusPending &&
			t.Platform != nil && *t.Platform == platform &&
			t.CreatedAt.Before(olderThan) {
			c := t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeTransactionRepo) CountPendingByPlatform(ctx context.Context) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, t := range f.txns {
		if t.Type == domain.TransactionTypeEarning && t.Status == domain.TransactionStatusPending {
			platform := ""
			if t.Platform != nil {
				platform = *t.Platform
			}
			counts[platform]++
		}
	}
	return counts, nil
}

func (f *fakeTransactionRepo) GetPendingStats(ctx context.Context, oldCutoff time.Time) (int64, int64, *time.Time, error) {
	var total, old int64
	var oldest *time.Time
	for _, t := range f.txns {
		if t.Status != domain.TransactionStatusPending {
			continue
		}
		total++
		if t.CreatedAt.Before(oldCutoff) {
			old++
		}
		if oldest == nil || t.CreatedAt.Before(*oldest) {
			c := t.CreatedAt
			oldest = &c
		}
	}
	return total, old, oldest, nil
}

func (f *fakeTransactionRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return &fakeTx{}, nil
}

// ===============================
// FAKE PAYMENT METHOD REPO
// ===============================

type fakePaymentMethodRepo struct {
	methods map[string]domain.PaymentMethod
	order   []string
}

func newFakePaymentMethodRepo() *fakePaymentMethodRepo {
	return &fakePaymentMethodRepo{methods: map[string]domain.PaymentMethod{}}
}

func (f *fakePaymentMethodRepo) Create(ctx context.Context, pm *domain.PaymentMethod) error {
	first := true
	for _, existing := range f.methods {
		if existing.AgentID == pm.AgentID {
			first = false
			break
		}
	}
	pm.IsDefault = first
	now := time.Now()
	pm.CreatedAt = now
	pm.UpdatedAt = now
	f.methods[pm.ID] = *pm
	f.order = append(f.order, pm.ID)
	return nil
}

func (f *fakePaymentMethodRepo) GetByID(ctx context.Context, id string) (*domain.PaymentMethod, error) {
	pm, ok := f.methods[id]
	if !ok {
		return nil, xerrors.ErrPaymentMethodNotFound
	}
	return &pm, nil
}

func (f *fakePaymentMethodRepo) ListByAgent(ctx context.Context, agentID string) ([]*domain.PaymentMethod, error) {
	var out []*domain.PaymentMethod
	for _, id := range f.order {
		pm := f.methods[id]
		if pm.AgentID == agentID {
			c := pm
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].IsDefault && !out[j].IsDefault })
	return out, nil
}

func (f *fakePaymentMethodRepo) GetDefaultVerified(ctx context.Context, agentID string) (*domain.PaymentMethod, error) {
	for _, id := range f.order {
		pm := f.methods[id]
		if pm.AgentID == agentID && pm.IsDefault && pm.IsVerified {
			c := pm
			return &c, nil
		}
	}
	return nil, xerrors.ErrPaymentMethodNotFound
}

func (f *fakePaymentMethodRepo) SetDefault(ctx context.Context, agentID, id string) error {
	target, ok := f.methods[id]
	if !ok || target.AgentID != agentID {
		return xerrors.ErrPaymentMethodNotFound
	}
	for mid, pm := range f.methods {
		if pm.AgentID == agentID {
			pm.IsDefault = mid == id
			f.methods[mid] = pm
		}
	}
	return nil
}

func (f *fakePaymentMethodRepo) MarkVerified(ctx context.Context, id string) error {
	pm, ok := f.methods[id]
	if !ok {
		return xerrors.ErrPaymentMethodNotFound
	}
	pm.IsVerified = true
	f.methods[id] = pm
	return nil
}

func (f *fakePaymentMethodRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.methods[id]; !ok {
		return xerrors.ErrPaymentMethodNotFound
	}
	delete(f.methods, id)
	for i, mid := range f.order {
		if mid == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

// ===============================
// FAKE COLLABORATORS
// ===============================

type fakeEnqueuer struct {
	enqueued []string
	err      error
}

func (f *fakeEnqueuer) EnqueueWithdrawal(ctx context.Context, transactionID string) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, transactionID)
	return nil
}

type fakeFeedClient struct {
	records map[string][]domain.ExternalTransaction
	err     error
}

func (f *fakeFeedClient) FetchTransactions(ctx context.Context, platform string, since time.Time) ([]domain.ExternalTransaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records[platform], nil
}

// ===============================
// TEST ENVIRONMENT
// ===============================

type testEnv struct {
	wallets  *fakeWalletRepo
	txns     *fakeTransactionRepo
	methods  *fakePaymentMethodRepo
	enqueuer *fakeEnqueuer
	feed     *fakeFeedClient

	walletUC *WalletUsecase
	txUC     *TransactionUsecase
	reconUC  *ReconciliationUsecase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	wallets := newFakeWalletRepo()
	txns := newFakeTransactionRepo()
	methods := newFakePaymentMethodRepo()
	enqueuer := &fakeEnqueuer{}
	feed := &fakeFeedClient{records: map[string][]domain.ExternalTransaction{}}

	logger := zap.NewNop()
	idGen := utils.NewIDGenerator()
	feeCalc := service.NewFeeCalculator(nil)
	rails := service.NewRailRegistry()

	walletUC := NewWalletUsecase(wallets, txns, methods, feeCalc, rails, idGen, nil, nil, enqueuer, logger)
	txUC := NewTransactionUsecase(txns, wallets, nil, nil, logger)
	reconUC := NewReconciliationUsecase(txns, wallets, walletUC, feeCalc, feed, idGen, nil, nil, logger)

	return &testEnv{
		wallets:  wallets,
		txns:     txns,
		methods:  methods,
		enqueuer: enqueuer,
		feed:     feed,
		walletUC: walletUC,
		txUC:     txUC,
		reconUC:  reconUC,
	}
}

// seedWallet creates a wallet for the agent and puts funds straight into
// the store, bypassing the earning flow
func (e *testEnv) seedWallet(t *testing.T, agentID, available, pending string) domain.Wallet {
	t.Helper()

	w, err := e.walletUC.GetOrCreateWallet(context.Background(), agentID)
	if err != nil {
		t.Fatalf("seed wallet for %s: %v", agentID, err)
	}

	stored := e.wallets.wallets[w.ID]
	stored.AvailableBalance = dec(available)
	stored.PendingBalance = dec(pending)
	e.wallets.wallets[w.ID] = stored
	return stored
}

// wallet fetches the agent's current wallet state from the store
func (e *testEnv) wallet(t *testing.T, agentID string) domain.Wallet {
	t.Helper()

	id, ok := e.wallets.byAgent[agentID]
	if !ok {
		t.Fatalf("no wallet stored for agent %s", agentID)
	}
	return e.wallets.wallets[id]
}

// addEarning records an earning and fails the test on error
func (e *testEnv) addEarning(t *testing.T, req *domain.EarningRequest) *domain.Transaction {
	t.Helper()

	txn, err := e.walletUC.AddEarnings(context.Background(), req)
	if err != nil {
		t.Fatalf("AddEarnings: %v", err)
	}
	return txn
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func checkMoney(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("%s = %s, want %s", label, got, want)
	}
}

func boolPtr(b bool) *bool { return &b }

func methodPtr(m domain.WithdrawalMethod) *domain.WithdrawalMethod { return &m }

func backdate(t *testing.T, f *fakeTransactionRepo, txnID string, days int) {
	t.Helper()
	stored, ok := f.txns[txnID]
	if !ok {
		t.Fatalf("no transaction %s to backdate", txnID)
	}
	stored.CreatedAt = time.Now().AddDate(0, 0, -days)
	f.txns[txnID] = stored
}
