// Package ledger owns PASO credit balances.  Every balance change is written
// together with its points_history row, and the signup bonus is credited at
// most once per account, on a verified sign-in.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/elpasoverse/portal/internal/fraud"
	"github.com/elpasoverse/portal/internal/identity"
	"github.com/elpasoverse/portal/internal/metrics"
	"github.com/elpasoverse/portal/internal/model"
	"github.com/elpasoverse/portal/internal/queue"
	"github.com/elpasoverse/portal/internal/repository"
)

var (
	ErrNotConfigured       = errors.New("ledger is not configured")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrAccountNotFound     = errors.New("account not found")
	ErrNoIdentity          = errors.New("no signed-in identity")
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200

	defaultDisplayName = "Pioneer"
	bonusDescription   = "Welcome bonus for joining El Paso Verse"
)

// Store is the account persistence the ledger needs.
type Store interface {
	Get(ctx context.Context, id string) (model.Account, error)
	CreateIfAbsent(ctx context.Context, a model.Account) (bool, error)
	GrantSignupBonus(ctx context.Context, entry model.Transaction) (bool, error)
	ApplyDelta(ctx context.Context, entry model.Transaction) (bool, error)
	History(ctx context.Context, accountID string, limit int) ([]model.Transaction, error)
	HistorySum(ctx context.Context, accountID string) (int64, error)
}

// Service applies ledger operations.  A nil store puts it in demo mode:
// reads return zero values and writes fail with ErrNotConfigured.
type Service struct {
	store  Store
	events queue.Emitter
	bonus  int64
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	claims map[string]struct{}
}

func NewService(store Store, events queue.Emitter, bonus int64, logger *slog.Logger) *Service {
	if events == nil {
		events = queue.Discard{}
	}
	if bonus <= 0 {
		bonus = 25
	}
	return &Service{
		store:  store,
		events: events,
		bonus:  bonus,
		logger: logger.With("component", "ledger"),
		now:    time.Now,
		claims: make(map[string]struct{}),
	}
}

// Configured reports whether a store is attached.
func (s *Service) Configured() bool { return s.store != nil }

// BonusAmount is the credit granted by the signup bonus.
func (s *Service) BonusAmount() int64 { return s.bonus }

// claim marks id as being created by this process.  It returns false when
// another caller already holds the claim.
func (s *Service) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.claims[id]; busy {
		return false
	}
	s.claims[id] = struct{}{}
	return true
}

func (s *Service) release(id string) {
	s.mu.Lock()
	delete(s.claims, id)
	s.mu.Unlock()
}

// CreateAccount creates the account for identityID if it does not exist.
// A concurrent call for the same id returns false without writing, as does
// a call for an account that already exists.  The new account starts at zero
// with the verdict's bonus eligibility and fingerprint; the bonus itself is
// only credited by GrantBonusIfEligible.
func (s *Service) CreateAccount(ctx context.Context, identityID, email, displayName string, v fraud.Verdict) (bool, error) {
	if s.store == nil {
		return false, ErrNotConfigured
	}
	if !s.claim(identityID) {
		metrics.LedgerOperations.WithLabelValues("create", "in_flight").Inc()
		return false, nil
	}
	defer s.release(identityID)

	if _, err := s.store.Get(ctx, identityID); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("lookup account: %w", err)
	}

	if strings.TrimSpace(displayName) == "" {
		displayName = defaultDisplayName
	}
	now := s.now().UTC()
	a := model.Account{
		ID:              identityID,
		Email:           email,
		NormalizedEmail: strings.ToLower(strings.TrimSpace(email)),
		DisplayName:     displayName,
		BonusEligible:   v.BonusEligible,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if v.Fingerprint != "" {
		fp := v.Fingerprint
		a.DeviceFingerprint = &fp
	}
	created, err := s.store.CreateIfAbsent(ctx, a)
	if err != nil {
		metrics.LedgerOperations.WithLabelValues("create", "error").Inc()
		return false, fmt.Errorf("create account: %w", err)
	}
	if !created {
		return false, nil
	}
	metrics.LedgerOperations.WithLabelValues("create", "ok").Inc()
	s.logger.Info("account created", "account", identityID, "bonus_eligible", a.BonusEligible)
	s.events.Emit(queue.NewEvent(queue.SheetUsers, map[string]any{
		"userId":         identityID,
		"email":          orUnknown(email),
		"displayName":    displayName,
		"bonusEligible":  a.BonusEligible,
		"initialBalance": 0,
		"signupDate":     now.Format(time.RFC3339),
	}))
	return true, nil
}

// GrantBonusIfEligible credits the signup bonus to a verified identity's
// account.  It returns false when there is no identity, the identity is not
// verified, the account is missing or ineligible, or the bonus was already
// granted.
func (s *Service) GrantBonusIfEligible(ctx context.Context, id *identity.Identity) (bool, error) {
	if s.store == nil {
		return false, ErrNotConfigured
	}
	if !id.Verified() {
		return false, nil
	}
	entry := s.entry(id.ID, s.bonus, model.ReasonSignupBonus, bonusDescription)
	ok, err := s.store.GrantSignupBonus(ctx, entry)
	if err != nil {
		metrics.LedgerOperations.WithLabelValues("bonus", "error").Inc()
		return false, fmt.Errorf("grant signup bonus: %w", err)
	}
	if !ok {
		metrics.LedgerOperations.WithLabelValues("bonus", "skipped").Inc()
		return false, nil
	}
	metrics.LedgerOperations.WithLabelValues("bonus", "ok").Inc()
	metrics.CreditsMoved.WithLabelValues(string(model.ReasonSignupBonus)).Add(float64(s.bonus))
	s.logger.Info("signup bonus granted", "account", id.ID, "amount", s.bonus)
	s.emitTransaction(ctx, "signup_bonus", id.Email, entry)
	return true, nil
}

// Grant adds amount credits and returns the new balance.
func (s *Service) Grant(ctx context.Context, accountID string, amount int64, reason, description string) (int64, error) {
	return s.apply(ctx, "grant", accountID, amount, reasonOr(reason, model.ReasonGrant), description)
}

// Deduct removes amount credits and returns the new balance.  It fails with
// ErrInsufficientBalance, writing nothing, when the balance is too low.
func (s *Service) Deduct(ctx context.Context, accountID string, amount int64, reason, description string) (int64, error) {
	return s.apply(ctx, "deduct", accountID, -amount, reasonOr(reason, model.ReasonDeduct), description)
}

func (s *Service) apply(ctx context.Context, op, accountID string, delta int64, reason model.ReasonCode, description string) (int64, error) {
	if s.store == nil {
		return 0, ErrNotConfigured
	}
	if delta == 0 || (op == "grant") != (delta > 0) {
		return 0, ErrInvalidAmount
	}
	entry := s.entry(accountID, delta, reason, description)
	ok, err := s.store.ApplyDelta(ctx, entry)
	if err != nil {
		metrics.LedgerOperations.WithLabelValues(op, "error").Inc()
		return 0, fmt.Errorf("%s credits: %w", op, err)
	}
	a, getErr := s.store.Get(ctx, accountID)
	if !ok {
		metrics.LedgerOperations.WithLabelValues(op, "rejected").Inc()
		switch {
		case errors.Is(getErr, repository.ErrNotFound):
			return 0, ErrAccountNotFound
		case getErr != nil:
			return 0, fmt.Errorf("lookup account: %w", getErr)
		}
		return a.CreditBalance, ErrInsufficientBalance
	}
	metrics.LedgerOperations.WithLabelValues(op, "ok").Inc()
	if delta > 0 {
		metrics.CreditsMoved.WithLabelValues(string(reason)).Add(float64(delta))
	} else {
		metrics.CreditsMoved.WithLabelValues(string(reason)).Add(float64(-delta))
	}
	s.emitTransaction(ctx, op, a.Email, entry)
	if getErr != nil {
		return 0, fmt.Errorf("lookup account: %w", getErr)
	}
	return a.CreditBalance, nil
}

// GetBalance returns the caller's balance.  An identity without an account
// predates the ledger; its account is created on the spot with a default,
// bonus-ineligible verdict.
func (s *Service) GetBalance(ctx context.Context, id *identity.Identity) (int64, error) {
	if s.store == nil {
		return 0, nil
	}
	if id == nil {
		return 0, ErrNoIdentity
	}
	a, err := s.store.Get(ctx, id.ID)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Info("repairing missing account", "account", id.ID)
		if _, err := s.CreateAccount(ctx, id.ID, id.Email, "", fraud.DefaultVerdict()); err != nil {
			return 0, err
		}
		a, err = s.store.Get(ctx, id.ID)
		if errors.Is(err, repository.ErrNotFound) {
			// a concurrent repair holds the claim and has not written yet
			return 0, nil
		}
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return a.CreditBalance, nil
}

// Account returns the account record without repair.
func (s *Service) Account(ctx context.Context, accountID string) (model.Account, error) {
	if s.store == nil {
		return model.Account{}, ErrNotConfigured
	}
	a, err := s.store.Get(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Account{}, ErrAccountNotFound
	}
	return a, err
}

// History returns the newest transactions first.  limit is clamped to
// [1, MaxHistoryLimit]; zero or negative means DefaultHistoryLimit.
func (s *Service) History(ctx context.Context, accountID string, limit int) ([]model.Transaction, error) {
	if s.store == nil {
		return []model.Transaction{}, nil
	}
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	h, err := s.store.History(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if h == nil {
		h = []model.Transaction{}
	}
	return h, nil
}

// Reconciliation compares a balance with the sum of its history.
type Reconciliation struct {
	AccountID  string `json:"account_id"`
	Balance    int64  `json:"balance"`
	HistorySum int64  `json:"history_sum"`
	Consistent bool   `json:"consistent"`
}

// Reconcile checks that the balance equals the sum of logged amounts.
func (s *Service) Reconcile(ctx context.Context, accountID string) (Reconciliation, error) {
	a, err := s.Account(ctx, accountID)
	if err != nil {
		return Reconciliation{}, err
	}
	sum, err := s.store.HistorySum(ctx, accountID)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("sum history: %w", err)
	}
	r := Reconciliation{AccountID: accountID, Balance: a.CreditBalance, HistorySum: sum, Consistent: sum == a.CreditBalance}
	if !r.Consistent {
		s.logger.Error("balance does not match history", "account", accountID, "balance", a.CreditBalance, "history_sum", sum)
	}
	return r, nil
}

func (s *Service) entry(accountID string, amount int64, reason model.ReasonCode, description string) model.Transaction {
	return model.Transaction{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Amount:      amount,
		Reason:      reason,
		Description: description,
		Timestamp:   s.now().UTC(),
	}
}

func (s *Service) emitTransaction(ctx context.Context, kind, email string, t model.Transaction) {
	data := map[string]any{
		"userId":          t.AccountID,
		"email":           orUnknown(email),
		"type":            kind,
		"amount":          t.Amount,
		"reason":          string(t.Reason),
		"description":     t.Description,
		"transactionDate": t.Timestamp.Format(time.RFC3339),
	}
	if a, err := s.store.Get(ctx, t.AccountID); err == nil {
		data["balanceAfter"] = a.CreditBalance
	}
	s.events.Emit(queue.NewEvent(queue.SheetTransactions, data))
}

func reasonOr(reason string, def model.ReasonCode) model.ReasonCode {
	if r := strings.TrimSpace(reason); r != "" {
		return model.ReasonCode(r)
	}
	return def
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
