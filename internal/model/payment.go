package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeBooking    TransactionType = "booking"
	TransactionTypeMembership TransactionType = "membership"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusComplete  TransactionStatus = "complete"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// PaymentTransaction is the append-only audit record of one inbound gateway
// callback, kept whether or not its signature verified.
type PaymentTransaction struct {
	ID              uuid.UUID         `db:"id" json:"id"`
	UserID          *int64            `db:"user_id" json:"user,omitempty"`
	Amount          decimal.Decimal   `db:"amount" json:"amount"`
	Status          TransactionStatus `db:"status" json:"status"`
	TransactionType *TransactionType  `db:"transaction_type" json:"transaction_type,omitempty"`
	Reference       string            `db:"reference" json:"reference"`
	Description     string            `db:"description" json:"description"`
	SignatureValid  bool              `db:"signature_valid" json:"signature_valid"`
	Metadata        JSONMap           `db:"metadata" json:"metadata"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
}

type TransactionFilters struct {
	UserID int64
	Pagination
}

// CheckoutForm is the signed field set a client posts to the gateway.
type CheckoutForm struct {
	ProcessURL string            `json:"process_url"`
	Fields     map[string]string `json:"fields"`
}

type MembershipCheckoutRequest struct {
	Plan string `json:"plan" binding:"required"`
}
