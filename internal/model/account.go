package model

import "time"

// Account is the per-identity credit ledger record.  ID equals the identity
// id issued by the identity provider.
type Account struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	NormalizedEmail    string    `json:"-"`
	DisplayName        string    `json:"display_name"`
	CreditBalance      int64     `json:"credit_balance"`
	SignupBonusGranted bool      `json:"signup_bonus_granted"`
	BonusEligible      bool      `json:"bonus_eligible"`
	DeviceFingerprint  *string   `json:"-"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ReasonCode classifies a ledger transaction.
type ReasonCode string

const (
	ReasonSignupBonus ReasonCode = "signup_bonus"
	ReasonGrant       ReasonCode = "grant"
	ReasonDeduct      ReasonCode = "deduct"
)

// Transaction is an append-only row of `points_history`.  Amount is signed:
// deductions are stored negative.
type Transaction struct {
	ID          string     `json:"id"`
	AccountID   string     `json:"account_id"`
	Amount      int64      `json:"amount"`
	Reason      ReasonCode `json:"reason"`
	Description string     `json:"description"`
	Timestamp   time.Time  `json:"timestamp"`
}
