package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/medmap/scheduling-api/internal/model"
	"github.com/medmap/scheduling-api/internal/repository"
	"github.com/medmap/scheduling-api/pkg/errors"
	"github.com/medmap/scheduling-api/pkg/logger"
	"github.com/medmap/scheduling-api/pkg/messaging"
	"github.com/medmap/scheduling-api/pkg/metrics"
)

type email struct {
	to      string
	subject string
	body    string
}

// Notifier turns domain events into emails for the patient and the doctor.
type Notifier struct {
	contacts repository.ContactRepository
	doctors  repository.DoctorRepository
	mailer   Mailer
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewNotifier(contacts repository.ContactRepository, doctors repository.DoctorRepository, mailer Mailer, logger *logger.Logger, metrics *metrics.Metrics) *Notifier {
	return &Notifier{
		contacts: contacts,
		doctors:  doctors,
		mailer:   mailer,
		logger:   logger,
		metrics:  metrics,
	}
}

// Channels lists the event channels the notifier subscribes to.
func (n *Notifier) Channels() []string {
	return append(append([]string{}, model.BookingEventTypes...), model.EventMembershipActivated)
}

// Handle is a messaging.Handler.
func (n *Notifier) Handle(ctx context.Context, msg messaging.Message) error {
	var (
		emails []email
		err    error
	)
	if msg.Channel == model.EventMembershipActivated {
		emails, err = n.membershipEmails(ctx, msg.Payload)
	} else {
		emails, err = n.bookingEmails(ctx, msg.Channel, msg.Payload)
	}
	if err != nil {
		n.metrics.NotificationsSent.WithLabelValues(msg.Channel, "error").Inc()
		return err
	}

	var firstErr error
	for _, e := range emails {
		if err := n.mailer.Send(ctx, e.to, e.subject, e.body); err != nil {
			n.metrics.NotificationsSent.WithLabelValues(msg.Channel, "error").Inc()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		n.metrics.NotificationsSent.WithLabelValues(msg.Channel, "sent").Inc()
	}
	return firstErr
}

func (n *Notifier) bookingEmails(ctx context.Context, eventType string, payload []byte) ([]email, error) {
	var evt model.BookingEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("failed to decode %s event: %w", eventType, err)
	}

	patient, err := n.contacts.Get(ctx, evt.PatientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load patient contact: %w", err)
	}
	doctor, err := n.doctorContact(ctx, evt.DoctorID)
	if err != nil {
		return nil, err
	}
	when := fmt.Sprintf("%s at %s", evt.AppointmentDate, evt.AppointmentTime)

	var out []email
	switch eventType {
	case model.EventBookingCreated:
		out = append(out,
			email{doctor.Email, "New Booking Request",
				fmt.Sprintf("New booking from %s on %s.", fullName(patient), when)},
			email{patient.Email, "Booking Confirmation",
				fmt.Sprintf("Your booking with Dr. %s on %s is pending approval.", doctor.LastName, when)})
	case model.EventBookingConfirmed:
		out = append(out,
			email{patient.Email, "Booking Confirmed",
				fmt.Sprintf("Your booking with Dr. %s on %s has been confirmed.", doctor.LastName, when)})
	case model.EventBookingCancelled:
		out = append(out,
			email{patient.Email, "Booking Cancelled",
				fmt.Sprintf("Your booking with Dr. %s on %s was cancelled.", doctor.LastName, when)},
			email{doctor.Email, "Booking Cancelled",
				fmt.Sprintf("Booking with %s on %s was cancelled.", fullName(patient), when)})
	case model.EventBookingCompleted:
		out = append(out,
			email{patient.Email, "Consultation Completed",
				fmt.Sprintf("Your consultation with Dr. %s on %s is complete.", doctor.LastName, when)})
	default:
		n.logger.Debug("ignoring event", "event_type", eventType)
	}
	return skipBlank(out), nil
}

func (n *Notifier) membershipEmails(ctx context.Context, payload []byte) ([]email, error) {
	var evt model.MembershipEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("failed to decode membership event: %w", err)
	}
	user, err := n.contacts.Get(ctx, evt.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load member contact: %w", err)
	}
	return skipBlank([]email{{
		to:      user.Email,
		subject: "Membership Activated",
		body: fmt.Sprintf("Your %s membership is active until %s.",
			evt.Tier, evt.EndDate.Format("2 January 2006")),
	}}), nil
}

func (n *Notifier) doctorContact(ctx context.Context, doctorID int64) (*model.Contact, error) {
	d, err := n.doctors.Get(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load doctor: %w", err)
	}
	c, err := n.contacts.Get(ctx, d.UserID)
	if errors.IsNotFound(err) {
		return &model.Contact{UserID: d.UserID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load doctor contact: %w", err)
	}
	return c, nil
}

func fullName(c *model.Contact) string {
	name := c.FirstName
	if c.LastName != "" {
		if name != "" {
			name += " "
		}
		name += c.LastName
	}
	if name == "" {
		return c.Email
	}
	return name
}

// skipBlank drops messages for users without an address.
func skipBlank(in []email) []email {
	out := in[:0]
	for _, e := range in {
		if e.to != "" {
			out = append(out, e)
		}
	}
	return out
}
