// Package memory holds process-local repository implementations. Every write
// runs under one mutex so uniqueness checks and inserts are atomic, matching
// the guarantees the Postgres constraints give.
package memory

import (
	"context"
	"sync"

	"github.com/medmap/scheduling-api/internal/model"
	"github.com/medmap/scheduling-api/internal/repository"
)

var (
	_ repository.Transactor           = (*Store)(nil)
	_ repository.ScheduleRepository   = (*ScheduleRepository)(nil)
	_ repository.BookingRepository    = (*BookingRepository)(nil)
	_ repository.DoctorRepository     = (*DoctorRepository)(nil)
	_ repository.ContactRepository    = (*ContactRepository)(nil)
	_ repository.PaymentRepository    = (*PaymentRepository)(nil)
	_ repository.MembershipRepository = (*MembershipRepository)(nil)
	_ repository.OutboxRepository     = (*OutboxRepository)(nil)
)

type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex // serializes WithinTx so a rollback never drops another transaction's writes

	nextID      int64
	windows     map[int64]*model.WeeklyAvailabilityWindow
	bookings    map[int64]*model.Booking
	doctors     map[int64]*model.Doctor
	contacts    map[int64]*model.Contact
	payments    []*model.PaymentTransaction
	memberships map[int64]*model.Membership
	outbox      []*model.OutboxEvent
}

func NewStore() *Store {
	return &Store{
		windows:     make(map[int64]*model.WeeklyAvailabilityWindow),
		bookings:    make(map[int64]*model.Booking),
		doctors:     make(map[int64]*model.Doctor),
		contacts:    make(map[int64]*model.Contact),
		memberships: make(map[int64]*model.Membership),
	}
}

type txKey struct{}

// WithinTx runs fn and restores every booking, window, payment, membership
// and outbox write it made when it fails. Nested calls join the outer one.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	saved := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(saved)
		return err
	}
	return nil
}

type snapshot struct {
	nextID      int64
	windows     map[int64]model.WeeklyAvailabilityWindow
	bookings    map[int64]model.Booking
	payments    []*model.PaymentTransaction
	memberships map[int64]model.Membership
	outbox      []model.OutboxEvent
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		nextID:      s.nextID,
		windows:     make(map[int64]model.WeeklyAvailabilityWindow, len(s.windows)),
		bookings:    make(map[int64]model.Booking, len(s.bookings)),
		payments:    append([]*model.PaymentTransaction(nil), s.payments...),
		memberships: make(map[int64]model.Membership, len(s.memberships)),
		outbox:      make([]model.OutboxEvent, len(s.outbox)),
	}
	for id, w := range s.windows {
		snap.windows[id] = *w
	}
	for id, b := range s.bookings {
		snap.bookings[id] = *b
	}
	for id, m := range s.memberships {
		snap.memberships[id] = *m
	}
	for i, e := range s.outbox {
		snap.outbox[i] = *e
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID = snap.nextID
	s.windows = make(map[int64]*model.WeeklyAvailabilityWindow, len(snap.windows))
	for id, w := range snap.windows {
		w := w
		s.windows[id] = &w
	}
	s.bookings = make(map[int64]*model.Booking, len(snap.bookings))
	for id, b := range snap.bookings {
		b := b
		s.bookings[id] = &b
	}
	s.payments = snap.payments
	s.memberships = make(map[int64]*model.Membership, len(snap.memberships))
	for id, m := range snap.memberships {
		m := m
		s.memberships[id] = &m
	}
	s.outbox = make([]*model.OutboxEvent, len(snap.outbox))
	for i := range snap.outbox {
		e := snap.outbox[i]
		s.outbox[i] = &e
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// PutDoctor seeds a doctor profile.
func (s *Store) PutDoctor(d *model.Doctor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.doctors[d.ID] = &cp
}

// PutContact seeds a user's contact details.
func (s *Store) PutContact(c *model.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.contacts[c.UserID] = &cp
}

func (s *Store) Schedules() *ScheduleRepository { return &ScheduleRepository{s} }
func (s *Store) Bookings() *BookingRepository { return &BookingRepository{s} }
func (s *Store) Doctors() *DoctorRepository { return &DoctorRepository{s} }
func (s *Store) Contacts() *ContactRepository { return &ContactRepository{s} }
func (s *Store) Payments() *PaymentRepository { return &PaymentRepository{s} }
func (s *Store) Memberships() *MembershipRepository { return &MembershipRepository{s} }
func (s *Store) Outbox() *OutboxRepository { return &OutboxRepository{s} }

func paginate[T any](items []T, p model.Pagination) []T {
	p = p.Normalize()
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
