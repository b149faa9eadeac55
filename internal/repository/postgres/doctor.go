package postgres

import (
	"context"

	"github.com/medmap/scheduling-api/internal/model"
)

func (r *doctorRepository) Get(ctx context.Context, id int64) (*model.Doctor, error) {
	query := `SELECT id, user_id, price, is_available FROM doctors WHERE id = $1`

	var doctor model.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, id); err != nil {
		return nil, translate(err, "doctor", "get doctor")
	}
	return &doctor, nil
}

func (r *contactRepository) Get(ctx context.Context, userID int64) (*model.Contact, error) {
	query := `SELECT id, email, first_name, last_name FROM users WHERE id = $1`

	var contact model.Contact
	if err := r.db.GetContext(ctx, &contact, query, userID); err != nil {
		return nil, translate(err, "user", "get contact")
	}
	return &contact, nil
}
