package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medmap/scheduling-api/internal/model"
	"github.com/medmap/scheduling-api/internal/repository/memory"
	"github.com/medmap/scheduling-api/pkg/logger"
	"github.com/medmap/scheduling-api/pkg/messaging"
	"github.com/medmap/scheduling-api/pkg/metrics"
)

type sent struct {
	to, subject, body string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sent{to, subject, body})
	return nil
}

func newNotifier(t *testing.T) (*Notifier, *recordingMailer) {
	t.Helper()
	store := memory.NewStore()
	store.PutDoctor(&model.Doctor{ID: 1, UserID: 10, Price: decimal.RequireFromString("500.00")})
	store.PutContact(&model.Contact{UserID: 10, Email: "dr.dlamini@example.com", FirstName: "Sipho", LastName: "Dlamini"})
	store.PutContact(&model.Contact{UserID: 3, Email: "thabo@example.com", FirstName: "Thabo", LastName: "Nkosi"})
	mailer := &recordingMailer{}
	return NewNotifier(store.Contacts(), store.Doctors(), mailer, logger.Nop(), metrics.NewTestMetrics()), mailer
}

func bookingMessage(t *testing.T, eventType string) messaging.Message {
	t.Helper()
	payload, err := json.Marshal(model.BookingEvent{
		BookingID:       7,
		PatientID:       3,
		DoctorID:        1,
		AppointmentDate: model.NewDate(2025, time.January, 6),
		AppointmentTime: model.NewTimeOfDay(9, 30),
		Status:          model.BookingStatusPending,
	})
	require.NoError(t, err)
	return messaging.Message{Channel: eventType, Payload: payload}
}

func TestHandle_BookingEvents(t *testing.T) {
	tests := []struct {
		eventType string
		want      []sent
	}{
		{model.EventBookingCreated, []sent{
			{"dr.dlamini@example.com", "New Booking Request", "New booking from Thabo Nkosi on 2025-01-06 at 09:30."},
			{"thabo@example.com", "Booking Confirmation", "Your booking with Dr. Dlamini on 2025-01-06 at 09:30 is pending approval."},
		}},
		{model.EventBookingConfirmed, []sent{
			{"thabo@example.com", "Booking Confirmed", "Your booking with Dr. Dlamini on 2025-01-06 at 09:30 has been confirmed."},
		}},
		{model.EventBookingCancelled, []sent{
			{"thabo@example.com", "Booking Cancelled", "Your booking with Dr. Dlamini on 2025-01-06 at 09:30 was cancelled."},
			{"dr.dlamini@example.com", "Booking Cancelled", "Booking with Thabo Nkosi on 2025-01-06 at 09:30 was cancelled."},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			n, mailer := newNotifier(t)
			require.NoError(t, n.Handle(context.Background(), bookingMessage(t, tt.eventType)))
			assert.Equal(t, tt.want, mailer.sent)
		})
	}
}

func TestHandle_MembershipActivated(t *testing.T) {
	n, mailer := newNotifier(t)
	payload, err := json.Marshal(model.MembershipEvent{
		UserID:  3,
		Tier:    "premium",
		EndDate: time.Date(2025, time.April, 1, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NoError(t, n.Handle(context.Background(), messaging.Message{Channel: model.EventMembershipActivated, Payload: payload}))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Your premium membership is active until 1 April 2025.", mailer.sent[0].body)
}

func TestHandle_Errors(t *testing.T) {
	n, mailer := newNotifier(t)

	err := n.Handle(context.Background(), messaging.Message{Channel: model.EventBookingCreated, Payload: []byte("{")})
	assert.Error(t, err)

	mailer.err = errors.New("smtp down")
	err = n.Handle(context.Background(), bookingMessage(t, model.EventBookingConfirmed))
	assert.EqualError(t, err, "smtp down")
}

func TestChannels(t *testing.T) {
	n, _ := newNotifier(t)
	assert.ElementsMatch(t, []string{
		model.EventBookingCreated,
		model.EventBookingConfirmed,
		model.EventBookingCancelled,
		model.EventBookingCompleted,
		model.EventMembershipActivated,
	}, n.Channels())
}
