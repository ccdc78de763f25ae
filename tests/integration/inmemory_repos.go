package integration

import (
	"context"
	"sort"
	"sync"
	"time"

	"campus-wallet/internal/core/domain"
	"campus-wallet/internal/core/ports"
	"campus-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// In-memory repository fakes for integration tests. They honor the same
// contracts as the postgres adapters: nil-nil reads for optional lookups,
// apperror codes where the real repo maps SQL outcomes, non-negative balance
// enforcement in ApplyDelta, and PENDING-only status transitions.

// --- In-Memory User Repo ---

type inMemoryUserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *inMemoryUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (r *inMemoryUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *inMemoryUserRepo) Count(ctx context.Context, role domain.Role) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, u := range r.users {
		if u.Role == role {
			count++
		}
	}
	return count, nil
}

// --- In-Memory Vendor Repo ---

type inMemoryVendorRepo struct {
	mu      sync.RWMutex
	vendors map[uuid.UUID]*domain.Vendor
}

func newInMemoryVendorRepo() *inMemoryVendorRepo {
	return &inMemoryVendorRepo{vendors: make(map[uuid.UUID]*domain.Vendor)}
}

func (r *inMemoryVendorRepo) Create(ctx context.Context, vendor *domain.Vendor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vendors[vendor.ID] = vendor
	return nil
}

func (r *inMemoryVendorRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Vendor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vendors[id]
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (r *inMemoryVendorRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Vendor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, v := range r.vendors {
		if v.UserID == userID {
			return v, nil
		}
	}
	return nil, nil
}

func (r *inMemoryVendorRepo) List(ctx context.Context, approvedOnly bool) ([]domain.Vendor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.Vendor, 0, len(r.vendors))
	for _, v := range r.vendors {
		if approvedOnly && !v.Approved {
			continue
		}
		result = append(result, *v)
	}
	return result, nil
}

func (r *inMemoryVendorRepo) SetApproved(ctx context.Context, id uuid.UUID, approved bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vendors[id]
	if !ok {
		return apperror.ErrNotFound("vendor")
	}
	v.Approved = approved
	return nil
}

// --- In-Memory Student Repo ---

type inMemoryStudentRepo struct {
	mu       sync.RWMutex
	students map[uuid.UUID]*domain.Student
}

func newInMemoryStudentRepo() *inMemoryStudentRepo {
	return &inMemoryStudentRepo{students: make(map[uuid.UUID]*domain.Student)}
}

func (r *inMemoryStudentRepo) Create(ctx context.Context, tx pgx.Tx, student *domain.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.students[student.ID] = student
	recordUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.students, student.ID)
	})
	return nil
}

func (r *inMemoryStudentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.students[id]
	if !ok {
		return nil, apperror.ErrNotFound("student")
	}
	return s, nil
}

func (r *inMemoryStudentRepo) GetByExternalID(ctx context.Context, externalID string) (*domain.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.students {
		if s.ExternalID == externalID {
			return s, nil
		}
	}
	return nil, apperror.ErrNotFound("student")
}

func (r *inMemoryStudentRepo) ListByGuardian(ctx context.Context, guardianID uuid.UUID) ([]domain.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.Student, 0)
	for _, s := range r.students {
		if s.GuardianID == guardianID {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (r *inMemoryStudentRepo) ListAll(ctx context.Context) ([]domain.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.Student, 0, len(r.students))
	for _, s := range r.students {
		result = append(result, *s)
	}
	return result, nil
}

func (r *inMemoryStudentRepo) UpdatePINHash(ctx context.Context, id uuid.UUID, pinHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[id]
	if !ok {
		return apperror.ErrNotFound("student")
	}
	s.PINHash = pinHash
	return nil
}

func (r *inMemoryStudentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.StudentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[id]
	if !ok {
		return apperror.ErrNotFound("student")
	}
	s.Status = status
	return nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, wallet *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets[wallet.ID] = wallet
	return nil
}

func (r *inMemoryWalletRepo) CreateInTx(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error {
	if err := r.Create(ctx, wallet); err != nil {
		return err
	}
	recordUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.wallets, wallet.ID)
	})
	return nil
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByUser(ctx context.Context, userID uuid.UUID, kind domain.WalletKind) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.OwnerUserID != nil && *w.OwnerUserID == userID && w.Kind == kind {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) GetByStudent(ctx context.Context, studentID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.OwnerStudentID != nil && *w.OwnerStudentID == studentID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, apperror.ErrNotFound("wallet")
	}
	cp := *w
	return &cp, nil
}

// ApplyDelta is the single atomic balance mutation. Like the SQL version it
// refuses to drive a balance negative, which is what keeps concurrent
// overdraws out even without real row locks.
func (r *inMemoryWalletRepo) ApplyDelta(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return decimal.Zero, apperror.ErrInsufficientFunds()
	}
	next := w.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, apperror.ErrInsufficientFunds()
	}
	w.Balance = next
	recordUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if w, ok := r.wallets[walletID]; ok {
			w.Balance = w.Balance.Sub(delta)
		}
	})
	return next, nil
}

func (r *inMemoryWalletRepo) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := decimal.Zero
	for _, w := range r.wallets {
		total = total.Add(w.Balance)
	}
	return total, nil
}

func (r *inMemoryWalletRepo) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.wallets)), nil
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu           sync.RWMutex
	transactions map[uuid.UUID]*domain.Transaction
	items        map[uuid.UUID][]domain.TransactionItem
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{
		transactions: make(map[uuid.UUID]*domain.Transaction),
		items:        make(map[uuid.UUID][]domain.TransactionItem),
	}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *txn
	r.transactions[txn.ID] = &cp
	recordUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.transactions, txn.ID)
	})
	return nil
}

func (r *inMemoryTransactionRepo) CreateItems(ctx context.Context, tx pgx.Tx, items []domain.TransactionItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prior := make(map[uuid.UUID]int)
	for _, item := range items {
		if _, seen := prior[item.TransactionID]; !seen {
			prior[item.TransactionID] = len(r.items[item.TransactionID])
		}
		r.items[item.TransactionID] = append(r.items[item.TransactionID], item)
	}
	recordUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for id, n := range prior {
			r.items[id] = r.items[id][:n]
		}
	})
	return nil
}

func (r *inMemoryTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transactions[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *inMemoryTransactionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transactions[id]
	if !ok {
		return nil, apperror.ErrNotFound("transaction")
	}
	cp := *t
	return &cp, nil
}

func (r *inMemoryTransactionRepo) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.transactions {
		if t.Reference != nil && *t.Reference == reference {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryTransactionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransactionStatus, annotation string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[id]
	if !ok || t.Status != domain.TransactionStatusPending {
		return apperror.ErrConflict()
	}
	prevStatus, prevDesc := t.Status, t.Description
	t.Status = status
	t.Description = t.Description + " (" + annotation + ")"
	recordUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if t, ok := r.transactions[id]; ok {
			t.Status = prevStatus
			t.Description = prevDesc
		}
	})
	return nil
}

func (r *inMemoryTransactionRepo) SumCompletedPayments(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := decimal.Zero
	for _, t := range r.transactions {
		if t.FromWalletID == nil || *t.FromWalletID != walletID {
			continue
		}
		if t.Type != domain.TransactionTypePayment || t.Status != domain.TransactionStatusCompleted {
			continue
		}
		if t.CreatedAt.Before(from) || !t.CreatedAt.Before(to) {
			continue
		}
		total = total.Add(t.Amount)
	}
	return total, nil
}

func (r *inMemoryTransactionRepo) ItemsForTransaction(ctx context.Context, txnID uuid.UUID) ([]domain.TransactionItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.TransactionItem(nil), r.items[txnID]...), nil
}

func (r *inMemoryTransactionRepo) List(ctx context.Context, filter ports.TransactionFilter) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.Transaction, 0)
	for _, t := range r.transactions {
		if filter.WalletID != nil {
			from := t.FromWalletID != nil && *t.FromWalletID == *filter.WalletID
			to := t.ToWalletID != nil && *t.ToWalletID == *filter.WalletID
			if !from && !to {
				continue
			}
		}
		if filter.Type != nil && t.Type != *filter.Type {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.From != nil && t.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !t.CreatedAt.Before(*filter.To) {
			continue
		}
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r *inMemoryTransactionRepo) Stats(ctx context.Context) (*ports.LedgerStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &ports.LedgerStats{Volume: decimal.Zero}
	for _, t := range r.transactions {
		stats.Total++
		switch t.Status {
		case domain.TransactionStatusCompleted:
			stats.Completed++
			stats.Volume = stats.Volume.Add(t.Amount)
		case domain.TransactionStatusPending:
			stats.Pending++
		case domain.TransactionStatusFailed:
			stats.Failed++
		}
		switch t.Type {
		case domain.TransactionTypeDeposit:
			stats.Deposits++
		case domain.TransactionTypeTransfer:
			stats.Transfers++
		case domain.TransactionTypePayment:
			stats.Payments++
		case domain.TransactionTypeWithdrawal:
			stats.Withdrawals++
		}
	}
	return stats, nil
}

// --- In-Memory Rule Repo ---

type inMemoryRuleRepo struct {
	mu    sync.RWMutex
	rules map[uuid.UUID]*domain.SpendingRule // keyed by wallet ID
}

func newInMemoryRuleRepo() *inMemoryRuleRepo {
	return &inMemoryRuleRepo{rules: make(map[uuid.UUID]*domain.SpendingRule)}
}

func (r *inMemoryRuleRepo) Upsert(ctx context.Context, rule *domain.SpendingRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rule
	r.rules[rule.WalletID] = &cp
	return nil
}

func (r *inMemoryRuleRepo) GetByWallet(ctx context.Context, walletID uuid.UUID) (*domain.SpendingRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[walletID]
	if !ok {
		return nil, nil
	}
	cp := *rule
	return &cp, nil
}

func (r *inMemoryRuleRepo) GetActiveByWallet(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (*domain.SpendingRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[walletID]
	if !ok || !rule.Active {
		return nil, nil
	}
	cp := *rule
	return &cp, nil
}

// --- In-Memory Request Repo ---

type inMemoryRequestRepo struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]*domain.MoneyRequest
	students *inMemoryStudentRepo // for the guardian join in ListByGuardian
}

func newInMemoryRequestRepo(students *inMemoryStudentRepo) *inMemoryRequestRepo {
	return &inMemoryRequestRepo{
		requests: make(map[uuid.UUID]*domain.MoneyRequest),
		students: students,
	}
}

func (r *inMemoryRequestRepo) Create(ctx context.Context, request *domain.MoneyRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *request
	r.requests[request.ID] = &cp
	return nil
}

func (r *inMemoryRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.MoneyRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (r *inMemoryRequestRepo) Resolve(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.RequestStatus, reviewerID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.Status != domain.RequestStatusPending {
		return false, nil
	}
	prevReviewed := req.ReviewedBy
	req.Status = status
	req.ReviewedBy = &reviewerID
	recordUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if req, ok := r.requests[id]; ok {
			req.Status = domain.RequestStatusPending
			req.ReviewedBy = prevReviewed
		}
	})
	return true, nil
}

func (r *inMemoryRequestRepo) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]domain.MoneyRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.MoneyRequest, 0)
	for _, req := range r.requests {
		if req.StudentID == studentID {
			result = append(result, *req)
		}
	}
	return result, nil
}

func (r *inMemoryRequestRepo) ListByGuardian(ctx context.Context, guardianID uuid.UUID) ([]domain.MoneyRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.MoneyRequest, 0)
	for _, req := range r.requests {
		student, err := r.students.GetByID(ctx, req.StudentID)
		if err != nil {
			continue
		}
		if student.GuardianID == guardianID {
			result = append(result, *req)
		}
	}
	return result, nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *inMemoryAuditRepo) Query(ctx context.Context, filter ports.AuditFilter) ([]domain.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.AuditEntry, 0)
	for _, e := range r.entries {
		if filter.ActorID != nil && e.ActorID != *filter.ActorID {
			continue
		}
		if filter.Action != nil && e.Action != *filter.Action {
			continue
		}
		if filter.EntityType != nil && e.EntityType != *filter.EntityType {
			continue
		}
		if filter.From != nil && e.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !e.CreatedAt.Before(*filter.To) {
			continue
		}
		result = append(result, e)
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// --- In-Memory Transactor (journaling tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &journalTx{}, nil
}

// journalTx gives the fakes real rollback semantics. Tx-scoped repo
// mutations record their inverse here; Rollback replays the inverses
// newest-first and Commit discards them. Services that mutate and then
// fail, like an approval resolved before the funds check, see the same
// undo postgres would give them.
type journalTx struct {
	mu    sync.Mutex
	done  bool
	undos []func()
}

// recordUndo registers an inverse op on tx when it is a journalTx.
func recordUndo(tx pgx.Tx, undo func()) {
	if j, ok := tx.(*journalTx); ok {
		j.mu.Lock()
		defer j.mu.Unlock()
		if !j.done {
			j.undos = append(j.undos, undo)
		}
	}
}

func (t *journalTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }

func (t *journalTx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	t.undos = nil
	return nil
}

func (t *journalTx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	for i := len(t.undos) - 1; i >= 0; i-- {
		t.undos[i]()
	}
	t.undos = nil
	return nil
}

func (t *journalTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *journalTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *journalTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *journalTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *journalTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *journalTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *journalTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *journalTx) Conn() *pgx.Conn { return nil }
