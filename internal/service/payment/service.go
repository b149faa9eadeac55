package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/medmap/scheduling-api/internal/model"
	"github.com/medmap/scheduling-api/internal/repository"
	"github.com/medmap/scheduling-api/internal/service/membership"
	"github.com/medmap/scheduling-api/pkg/errors"
	"github.com/medmap/scheduling-api/pkg/logger"
	"github.com/medmap/scheduling-api/pkg/metrics"
)

// Gateway payment_status values.
const (
	StatusComplete  = "COMPLETE"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

// Reconciliation outcomes, also used as metric labels.
const (
	OutcomeApplied    = "applied"
	OutcomeNoop       = "noop"
	OutcomeDuplicate  = "duplicate"
	OutcomeUnresolved = "unresolved"
	OutcomeRejected   = "rejected"
	OutcomeError      = "error"
	OutcomeIgnored    = "ignored"
)

type BookingConfirmer interface {
	ConfirmBooking(ctx context.Context, id int64) (*model.Booking, bool, error)
	GetBooking(ctx context.Context, requester *model.Identity, id int64) (*model.Booking, error)
}

type MembershipActivator interface {
	Activate(ctx context.Context, userID int64, tier, reference string) (*model.Membership, bool, error)
	Plan(name string) (membership.Plan, bool)
}

// Result describes what one callback did. The webhook answers OK regardless.
type Result struct {
	SignatureValid bool
	Token          Token
	Outcome        string
	RecordID       string
}

type Service struct {
	payments    repository.PaymentRepository
	bookingRepo repository.BookingRepository
	contacts    repository.ContactRepository
	bookings    BookingConfirmer
	memberships MembershipActivator
	gateway     GatewayConfig
	seen        *cache.Cache
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

func NewService(
	payments repository.PaymentRepository,
	bookingRepo repository.BookingRepository,
	contacts repository.ContactRepository,
	bookings BookingConfirmer,
	memberships MembershipActivator,
	gateway GatewayConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		payments:    payments,
		bookingRepo: bookingRepo,
		contacts:    contacts,
		bookings:    bookings,
		memberships: memberships,
		gateway:     gateway,
		seen:        cache.New(gateway.DedupTTL, 2*gateway.DedupTTL),
		logger:      logger,
		metrics:     metrics,
	}
}

// HandleCallback verifies, records and reconciles one gateway notification.
// Signature mismatches and unknown tokens are logged and counted, never fatal.
func (s *Service) HandleCallback(ctx context.Context, fields map[string]string) (*Result, error) {
	status := strings.ToUpper(strings.TrimSpace(fields["payment_status"]))
	reference := strings.TrimSpace(fields["pf_payment_id"])
	token := ParseToken(fields["custom_str1"])
	s.metrics.PaymentCallbacks.WithLabelValues(status).Inc()

	result := &Result{
		SignatureValid: Verify(fields, s.gateway.Passphrase),
		Token:          token,
	}
	if !result.SignatureValid {
		s.metrics.SignatureMismatches.Inc()
		s.logger.Warn("payment callback signature mismatch",
			"reference", reference,
			"token", token.Raw,
			"payment_status", status)
	}

	record := s.buildRecord(ctx, fields, status, reference, token, result.SignatureValid)
	if err := s.persist(ctx, record); err != nil {
		s.logger.Error(err, "failed to persist payment callback", "reference", reference)
	} else {
		result.RecordID = record.ID.String()
	}

	switch status {
	case StatusComplete:
		result.Outcome = s.reconcile(ctx, token, reference)
	case StatusFailed, StatusCancelled:
		// No automatic cancellation; the booking stays pending for the patient to retry.
		s.metrics.PaymentFailures.Inc()
		s.logger.Warn("payment not completed",
			"reference", reference,
			"token", token.Raw,
			"payment_status", status)
		result.Outcome = OutcomeIgnored
	default:
		result.Outcome = OutcomeIgnored
	}
	return result, nil
}

// persist stores the callback record. A user that vanished between lookup and
// insert drops the link instead of the record.
func (s *Service) persist(ctx context.Context, record *model.PaymentTransaction) error {
	err := s.payments.Create(ctx, record)
	if err == nil || record.UserID == nil || !errors.IsNotFound(err) {
		return err
	}
	s.logger.Warn("payment callback names an unknown user, recording without it",
		"reference", record.Reference,
		"user_id", *record.UserID)
	record.UserID = nil
	return s.payments.Create(ctx, record)
}

func (s *Service) reconcile(ctx context.Context, token Token, reference string) string {
	kind := token.Kind.String()
	if token.Kind == TokenUnknown {
		s.metrics.UnresolvedCorrelations.Inc()
		s.logger.Warn("unresolvable payment correlation token", "token", token.Raw, "reference", reference)
		return OutcomeUnresolved
	}

	key := kind + ":" + reference
	if reference != "" {
		if _, dup := s.seen.Get(key); dup {
			s.metrics.DuplicateCallbacks.Inc()
			s.metrics.Reconciliations.WithLabelValues(kind, OutcomeDuplicate).Inc()
			return OutcomeDuplicate
		}
	}

	var (
		changed bool
		err     error
	)
	switch token.Kind {
	case TokenBooking:
		_, changed, err = s.bookings.ConfirmBooking(ctx, token.ID)
	case TokenMembership:
		_, changed, err = s.memberships.Activate(ctx, token.ID, token.Tier, reference)
	}

	outcome := OutcomeApplied
	switch {
	case errors.IsNotFound(err):
		s.metrics.UnresolvedCorrelations.Inc()
		s.logger.Warn("payment correlation token references a missing entity", "token", token.Raw, "reference", reference)
		outcome = OutcomeUnresolved
	case errors.IsConflict(err):
		s.logger.Warn("payment for an entity that can no longer be confirmed", "token", token.Raw, "reference", reference)
		outcome = OutcomeRejected
	case err != nil:
		s.logger.Error(err, "failed to reconcile payment", "token", token.Raw, "reference", reference)
		outcome = OutcomeError
	case !changed:
		outcome = OutcomeNoop
	}

	if err == nil && reference != "" {
		s.seen.SetDefault(key, struct{}{})
	}
	s.metrics.Reconciliations.WithLabelValues(kind, outcome).Inc()
	if outcome == OutcomeApplied {
		s.logger.Info("payment reconciled", "token", token.Raw, "reference", reference)
	}
	return outcome
}

func (s *Service) buildRecord(ctx context.Context, fields map[string]string, status, reference string, token Token, valid bool) *model.PaymentTransaction {
	amount, err := decimal.NewFromString(strings.TrimSpace(fields["amount_gross"]))
	if err != nil {
		amount = decimal.Zero
	}

	metadata := make(model.JSONMap, len(fields))
	for k, v := range fields {
		metadata[k] = v
	}

	record := &model.PaymentTransaction{
		UserID:         s.resolveUser(ctx, token),
		Amount:         amount,
		Status:         recordStatus(status),
		Reference:      reference,
		Description:    fields["item_name"],
		SignatureValid: valid,
		Metadata:       metadata,
	}
	switch token.Kind {
	case TokenBooking:
		t := model.TransactionTypeBooking
		record.TransactionType = &t
	case TokenMembership:
		t := model.TransactionTypeMembership
		record.TransactionType = &t
	}
	return record
}

// resolveUser maps a token onto an existing paying user, or nil when it
// cannot. Membership tokens carry the user id straight from the payload.
func (s *Service) resolveUser(ctx context.Context, token Token) *int64 {
	var id int64
	switch token.Kind {
	case TokenMembership:
		id = token.ID
	case TokenBooking:
		b, err := s.bookingRepo.Get(ctx, token.ID)
		if err != nil {
			return nil
		}
		id = b.PatientID
	default:
		return nil
	}
	if _, err := s.contacts.Get(ctx, id); err != nil {
		return nil
	}
	return &id
}

func recordStatus(status string) model.TransactionStatus {
	switch status {
	case StatusComplete:
		return model.TransactionStatusComplete
	case StatusFailed:
		return model.TransactionStatusFailed
	case StatusCancelled:
		return model.TransactionStatusCancelled
	default:
		return model.TransactionStatusPending
	}
}

// BookingCheckout builds the signed form that sends the patient to the gateway.
func (s *Service) BookingCheckout(ctx context.Context, requester *model.Identity, bookingID int64) (*model.CheckoutForm, error) {
	b, err := s.bookings.GetBooking(ctx, requester, bookingID)
	if err != nil {
		return nil, err
	}
	if b.PatientID != requester.UserID && !requester.IsStaff() {
		return nil, errors.Permission("only the patient can pay for this booking")
	}
	if b.Status != model.BookingStatusPending || b.PaymentStatus == model.PaymentStatusComplete {
		return nil, errors.Conflict(errors.ReasonInvalidState,
			fmt.Sprintf("a %s booking cannot be paid", b.Status), nil)
	}

	fields := s.baseFields(ctx, b.PatientID, requester)
	fields["return_url"] = s.gateway.ReturnURL
	fields["cancel_url"] = s.gateway.CancelURL
	fields["amount"] = b.TotalAmount.StringFixed(2)
	fields["item_name"] = fmt.Sprintf("Consultation booking #%d", b.ID)
	fields["custom_str1"] = BookingToken(b.ID)
	return s.form(fields), nil
}

// MembershipCheckout builds the signed form for buying a membership plan.
func (s *Service) MembershipCheckout(ctx context.Context, requester *model.Identity, planName string) (*model.CheckoutForm, error) {
	if requester == nil {
		return nil, errors.Unauthorized(nil)
	}
	plan, ok := s.memberships.Plan(planName)
	if !ok {
		return nil, errors.Validation(fmt.Sprintf("unknown membership plan %q", planName), nil)
	}

	fields := s.baseFields(ctx, requester.UserID, requester)
	fields["return_url"] = s.gateway.MembershipReturnURL
	fields["cancel_url"] = s.gateway.MembershipCancelURL
	fields["amount"] = plan.Amount.StringFixed(2)
	fields["item_name"] = plan.ItemName
	fields["custom_str1"] = MembershipToken(requester.UserID, plan.Name)
	return s.form(fields), nil
}

func (s *Service) baseFields(ctx context.Context, payerID int64, requester *model.Identity) map[string]string {
	fields := map[string]string{
		"merchant_id":  s.gateway.MerchantID,
		"merchant_key": s.gateway.MerchantKey,
		"notify_url":   s.gateway.NotifyURL,
	}
	if payerID == requester.UserID {
		fields["email_address"] = requester.Email
	}
	if contact, err := s.contacts.Get(ctx, payerID); err == nil {
		if fields["email_address"] == "" {
			fields["email_address"] = contact.Email
		}
		fields["name_first"] = contact.FirstName
		fields["name_last"] = contact.LastName
	}
	return fields
}

// form drops empty fields and signs what remains.
func (s *Service) form(fields map[string]string) *model.CheckoutForm {
	for k, v := range fields {
		if strings.TrimSpace(v) == "" {
			delete(fields, k)
		}
	}
	fields[signatureField] = Sign(fields, s.gateway.Passphrase)
	return &model.CheckoutForm{
		ProcessURL: s.gateway.ProcessURL(),
		Fields:     fields,
	}
}

// ListTransactions returns the requester's callback records, or all of them for staff.
func (s *Service) ListTransactions(ctx context.Context, requester *model.Identity, page model.Pagination) ([]*model.PaymentTransaction, error) {
	if requester == nil {
		return nil, errors.Unauthorized(nil)
	}
	filters := &model.TransactionFilters{Pagination: page.Normalize()}
	if !requester.IsStaff() {
		filters.UserID = requester.UserID
	}
	return s.payments.List(ctx, filters)
}
