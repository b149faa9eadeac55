package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medmap/scheduling-api/internal/model"
)

func (r *paymentRepository) Create(ctx context.Context, tx *model.PaymentTransaction) error {
	query := `
		INSERT INTO payment_transactions (
			id, user_id, amount, status, transaction_type,
			reference, description, signature_valid, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		tx.ID,
		tx.UserID,
		tx.Amount,
		tx.Status,
		tx.TransactionType,
		tx.Reference,
		tx.Description,
		tx.SignatureValid,
		tx.Metadata,
		tx.CreatedAt,
	)
	if err != nil {
		return translate(err, "payment transaction", "create payment transaction")
	}
	return nil
}

func (r *paymentRepository) List(ctx context.Context, filters *model.TransactionFilters) ([]*model.PaymentTransaction, error) {
	query := `
		SELECT id, user_id, amount, status, transaction_type, reference,
			   description, signature_valid, metadata, created_at
		FROM payment_transactions
		WHERE ($1::bigint = 0 OR user_id = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	page := filters.Pagination.Normalize()

	txs := []*model.PaymentTransaction{}
	if err := r.db.SelectContext(ctx, &txs, query, filters.UserID, page.PageSize, page.Offset()); err != nil {
		return nil, fmt.Errorf("failed to list payment transactions: %w", err)
	}
	return txs, nil
}
