package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/medmap/scheduling-api/internal/model"
	"github.com/medmap/scheduling-api/pkg/errors"
)

type PaymentRepository struct {
	s *Store
}

func (r *PaymentRepository) Create(ctx context.Context, tx *model.PaymentTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if tx.UserID != nil {
		if _, ok := r.s.contacts[*tx.UserID]; !ok {
			return errors.NotFound("user", nil)
		}
	}
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	cp := *tx
	r.s.payments = append(r.s.payments, &cp)
	return nil
}

func (r *PaymentRepository) List(ctx context.Context, filters *model.TransactionFilters) ([]*model.PaymentTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	txs := []*model.PaymentTransaction{}
	for _, tx := range r.s.payments {
		if filters.UserID != 0 && (tx.UserID == nil || *tx.UserID != filters.UserID) {
			continue
		}
		cp := *tx
		txs = append(txs, &cp)
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].CreatedAt.After(txs[j].CreatedAt) })
	return paginate(txs, filters.Pagination), nil
}

type MembershipRepository struct {
	s *Store
}

func (r *MembershipRepository) GetByUser(ctx context.Context, userID int64) (*model.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.memberships[userID]
	if !ok {
		return nil, errors.NotFound("membership", nil)
	}
	cp := *m
	return &cp, nil
}

func (r *MembershipRepository) Activate(ctx context.Context, a *model.MembershipActivation) (*model.Membership, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now().UTC()
	m, ok := r.s.memberships[a.UserID]
	if ok && m.PaymentReference != nil && *m.PaymentReference == a.PaymentReference {
		cp := *m
		return &cp, false, nil
	}
	if !ok {
		m = &model.Membership{UserID: a.UserID}
		m.ID = r.s.id()
		m.CreatedAt = now
		r.s.memberships[a.UserID] = m
	}

	ref := a.PaymentReference
	end := a.EndDate
	m.Tier = a.Tier
	m.Status = model.MembershipStatusActive
	m.StartDate = a.StartDate
	m.EndDate = &end
	m.PaymentReference = &ref
	m.UpdatedAt = now
	cp := *m
	return &cp, true, nil
}
