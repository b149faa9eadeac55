package model

import "github.com/shopspring/decimal"

// Identity is the caller as vouched for by the identity collaborator.
type Identity struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	IsPatient bool   `json:"is_patient"`
	IsDoctor  bool   `json:"is_doctor"`
	IsAdmin   bool   `json:"is_admin"`
	// DoctorID is set when the caller owns a doctor profile.
	DoctorID int64 `json:"doctor_id,omitempty"`
}

func (i *Identity) IsStaff() bool {
	return i != nil && i.IsAdmin
}

// OwnsDoctor reports whether the caller is the doctor behind the profile.
func (i *Identity) OwnsDoctor(d *Doctor) bool {
	return i != nil && d != nil && d.UserID == i.UserID
}

// Doctor is the slice of a doctor profile this service reads.
type Doctor struct {
	ID          int64           `db:"id" json:"id"`
	UserID      int64           `db:"user_id" json:"user"`
	Price       decimal.Decimal `db:"price" json:"price"`
	IsAvailable bool            `db:"is_available" json:"is_available"`
}

// Contact is what the notifier needs to reach a user.
type Contact struct {
	UserID    int64  `db:"id"`
	Email     string `db:"email"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
}
