package membership

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/medmap/scheduling-api/internal/config"
	"github.com/medmap/scheduling-api/internal/model"
	"github.com/medmap/scheduling-api/internal/repository"
	"github.com/medmap/scheduling-api/internal/service/event"
	"github.com/medmap/scheduling-api/pkg/errors"
	"github.com/medmap/scheduling-api/pkg/logger"
)

// DefaultValidity applies to tiers without a configured plan.
const DefaultValidity = 30 * 24 * time.Hour

type Plan struct {
	Name     string
	Amount   decimal.Decimal
	ItemName string
	Validity time.Duration
}

// PlansFromConfig parses the configured membership plans.
func PlansFromConfig(cfg config.MembershipConfig) (map[string]Plan, error) {
	plans := make(map[string]Plan, len(cfg.Plans))
	for name, p := range cfg.Plans {
		amount, err := decimal.NewFromString(p.Amount)
		if err != nil {
			return nil, fmt.Errorf("invalid amount for membership plan %q: %w", name, err)
		}
		validity := DefaultValidity
		if p.ValidityDays > 0 {
			validity = time.Duration(p.ValidityDays) * 24 * time.Hour
		}
		plans[name] = Plan{
			Name:     name,
			Amount:   amount,
			ItemName: p.ItemName,
			Validity: validity,
		}
	}
	return plans, nil
}

type Service struct {
	repo   repository.MembershipRepository
	tx     repository.Transactor
	events event.Emitter
	plans  map[string]Plan
	logger *logger.Logger
	now    func() time.Time
}

func NewService(repo repository.MembershipRepository, tx repository.Transactor, events event.Emitter, plans map[string]Plan, logger *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		tx:     tx,
		events: events,
		plans:  plans,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the wall clock. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Plan(name string) (Plan, bool) {
	p, ok := s.plans[name]
	return p, ok
}

// Activate sets the user's tier and validity from now. The values are
// overwritten, never extended, and a reference that was already applied
// leaves the membership untouched.
func (s *Service) Activate(ctx context.Context, userID int64, tier, reference string) (*model.Membership, bool, error) {
	if userID <= 0 || tier == "" {
		return nil, false, errors.Validation("user and tier are required", nil)
	}

	validity := DefaultValidity
	if plan, ok := s.plans[tier]; ok {
		validity = plan.Validity
	} else {
		s.logger.Warn("activating membership tier without a configured plan", "tier", tier, "user_id", userID)
	}

	start := s.now().UTC()
	var (
		m       *model.Membership
		changed bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		m, changed, err = s.repo.Activate(ctx, &model.MembershipActivation{
			UserID:           userID,
			Tier:             tier,
			StartDate:        start,
			EndDate:          start.Add(validity),
			PaymentReference: reference,
		})
		if err != nil || !changed {
			return err
		}

		evt := model.MembershipEvent{UserID: userID, Tier: tier, OccurredAt: start}
		if m.EndDate != nil {
			evt.EndDate = *m.EndDate
		}
		if err := s.events.Emit(ctx, model.EventMembershipActivated, evt); err != nil {
			return fmt.Errorf("failed to queue %s: %w", model.EventMembershipActivated, err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return m, false, nil
	}

	s.logger.Info("membership activated", "user_id", userID, "tier", tier, "reference", reference)
	return m, true, nil
}

// Get returns the user's membership, or a free tier view when none exists.
func (s *Service) Get(ctx context.Context, requester *model.Identity) (*model.Membership, error) {
	if requester == nil {
		return nil, errors.Unauthorized(nil)
	}
	m, err := s.repo.GetByUser(ctx, requester.UserID)
	if errors.IsNotFound(err) {
		return &model.Membership{
			UserID: requester.UserID,
			Tier:   model.MembershipTierFree,
			Status: model.MembershipStatusActive,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	if m.EndDate != nil && m.EndDate.Before(s.now()) && m.Status == model.MembershipStatusActive {
		m.Status = model.MembershipStatusExpired
	}
	return m, nil
}
