package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/medmap/scheduling-api/internal/model"
)

const membershipColumns = `id, user_id, tier, status, start_date, end_date, payment_reference, created_at, updated_at`

func (r *membershipRepository) GetByUser(ctx context.Context, userID int64) (*model.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE user_id = $1`

	var membership model.Membership
	if err := sqlx.GetContext(ctx, r.conn(ctx), &membership, query, userID); err != nil {
		return nil, translate(err, "membership", "get membership")
	}
	return &membership, nil
}

// Activate upserts on user_id. The conflict branch is skipped when the stored
// payment reference already equals the incoming one, so replays return no row.
func (r *membershipRepository) Activate(ctx context.Context, a *model.MembershipActivation) (*model.Membership, bool, error) {
	query := `
		INSERT INTO memberships (
			user_id, tier, status, start_date, end_date, payment_reference, created_at, updated_at
		) VALUES ($1, $2, 'active', $3, $4, $5, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET tier = EXCLUDED.tier,
			status = 'active',
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			payment_reference = EXCLUDED.payment_reference,
			updated_at = NOW()
		WHERE memberships.payment_reference IS DISTINCT FROM EXCLUDED.payment_reference
		RETURNING ` + membershipColumns

	var membership model.Membership
	err := sqlx.GetContext(ctx, r.conn(ctx), &membership, query,
		a.UserID, a.Tier, a.StartDate, a.EndDate, a.PaymentReference)
	if err == nil {
		return &membership, true, nil
	}
	if !isNoRows(err) {
		return nil, false, translate(err, "membership", "activate membership")
	}

	current, getErr := r.GetByUser(ctx, a.UserID)
	if getErr != nil {
		return nil, false, getErr
	}
	return current, false, nil
}
