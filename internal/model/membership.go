package model

import "time"

type MembershipStatus string

const (
	MembershipStatusActive    MembershipStatus = "active"
	MembershipStatusInactive  MembershipStatus = "inactive"
	MembershipStatusCancelled MembershipStatus = "cancelled"
	MembershipStatusExpired   MembershipStatus = "expired"
)

const MembershipTierFree = "free"

type Membership struct {
	Base
	UserID           int64            `db:"user_id" json:"user"`
	Tier             string           `db:"tier" json:"tier"`
	Status           MembershipStatus `db:"status" json:"status"`
	StartDate        time.Time        `db:"start_date" json:"start_date"`
	EndDate          *time.Time       `db:"end_date" json:"end_date,omitempty"`
	PaymentReference *string          `db:"payment_reference" json:"-"`
}

// MembershipActivation overwrites tier and validity for a user. Applying the
// same activation twice leaves the row unchanged.
type MembershipActivation struct {
	UserID           int64
	Tier             string
	StartDate        time.Time
	EndDate          time.Time
	PaymentReference string
}
