package memory

import (
	"context"

	"github.com/medmap/scheduling-api/internal/model"
	"github.com/medmap/scheduling-api/pkg/errors"
)

type DoctorRepository struct {
	s *Store
}

func (r *DoctorRepository) Get(ctx context.Context, id int64) (*model.Doctor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.doctors[id]
	if !ok {
		return nil, errors.NotFound("doctor", nil)
	}
	cp := *d
	return &cp, nil
}

type ContactRepository struct {
	s *Store
}

func (r *ContactRepository) Get(ctx context.Context, userID int64) (*model.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.contacts[userID]
	if !ok {
		return nil, errors.NotFound("user", nil)
	}
	cp := *c
	return &cp, nil
}
