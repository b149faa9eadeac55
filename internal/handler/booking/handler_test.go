package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medmap/scheduling-api/internal/middleware"
	"github.com/medmap/scheduling-api/internal/model"
	"github.com/medmap/scheduling-api/internal/repository/memory"
	"github.com/medmap/scheduling-api/internal/service/booking"
	"github.com/medmap/scheduling-api/internal/service/event"
	"github.com/medmap/scheduling-api/pkg/auth"
	"github.com/medmap/scheduling-api/pkg/logger"
	"github.com/medmap/scheduling-api/pkg/metrics"
)

var (
	patient = &model.Identity{UserID: 3, IsPatient: true}
	other   = &model.Identity{UserID: 4, IsPatient: true}
	doctor  = &model.Identity{UserID: 10, IsDoctor: true, DoctorID: 1}
)

type response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.RegisterValidators(); err != nil {
		panic(err)
	}
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	store := memory.NewStore()
	store.PutDoctor(&model.Doctor{ID: 1, UserID: 10, Price: decimal.RequireFromString("500.00"), IsAvailable: true})
	require.NoError(t, store.Schedules().Create(context.Background(), &model.WeeklyAvailabilityWindow{
		DoctorID:    1,
		DayOfWeek:   time.Monday,
		StartTime:   model.NewTimeOfDay(9, 0),
		EndTime:     model.NewTimeOfDay(17, 0),
		IsAvailable: true,
	}))

	svc := booking.NewService(store.Bookings(), store.Doctors(), store.Schedules(), store, &event.Recorder{}, booking.Config{
		BookingFee:      decimal.RequireFromString("10.00"),
		SlotGranularity: 30 * time.Minute,
	}, logger.Nop(), metrics.NewTestMetrics()).
		WithClock(func() time.Time { return time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC) })

	jwt := auth.NewJWTService("secret", "medmap")
	authMW := middleware.NewAuthMiddleware(jwt)
	r := gin.New()
	api := r.Group("/api/v1", authMW.Authenticate())
	NewHandler(svc, authMW).RegisterRoutes(api)
	return r
}

func do(t *testing.T, r *gin.Engine, who *model.Identity, method, path string, body interface{}) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if who != nil {
		token, err := auth.NewJWTService("secret", "medmap").GenerateAccessToken(who, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func createBody(at string) gin.H {
	return gin.H{"doctor": 1, "appointment_date": "2025-01-06", "appointment_time": at}
}

func TestCreateBooking(t *testing.T) {
	r := newRouter(t)

	w, resp := do(t, r, patient, http.MethodPost, "/api/v1/bookings", createBody("09:00"))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "success", resp.Status)

	var b model.Booking
	require.NoError(t, json.Unmarshal(resp.Data, &b))
	assert.Equal(t, model.BookingStatusPending, b.Status)
	assert.Equal(t, "510", b.TotalAmount.String())
	assert.Equal(t, "09:00", b.AppointmentTime.String())
}

func TestCreateBooking_SlotTakenIsDistinguishable(t *testing.T) {
	r := newRouter(t)

	w, _ := do(t, r, patient, http.MethodPost, "/api/v1/bookings", createBody("09:00"))
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp := do(t, r, other, http.MethodPost, "/api/v1/bookings", createBody("09:00"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "slot_taken", resp.Code)
}

func TestCreateBooking_Validation(t *testing.T) {
	r := newRouter(t)

	tests := []struct {
		name string
		body gin.H
		code string
	}{
		{"missing doctor", gin.H{"appointment_date": "2025-01-06", "appointment_time": "09:00"}, ""},
		{"bad date", gin.H{"doctor": 1, "appointment_date": "06/01/2025", "appointment_time": "09:00"}, ""},
		{"bad time", gin.H{"doctor": 1, "appointment_date": "2025-01-06", "appointment_time": "9am"}, ""},
		{"outside schedule", createBody("18:00"), "outside_schedule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := do(t, r, patient, http.MethodPost, "/api/v1/bookings", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestRequiresAuthentication(t *testing.T) {
	r := newRouter(t)

	w, resp := do(t, r, nil, http.MethodGet, "/api/v1/bookings", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "missing authorization header", resp.Message)
}

func TestBookingLifecycle(t *testing.T) {
	r := newRouter(t)

	_, resp := do(t, r, patient, http.MethodPost, "/api/v1/bookings", createBody("10:00"))
	var b model.Booking
	require.NoError(t, json.Unmarshal(resp.Data, &b))
	path := "/api/v1/bookings/" + jsonID(b.ID)

	w, _ := do(t, r, other, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = do(t, r, patient, http.MethodPost, path+"/confirm", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = do(t, r, doctor, http.MethodPost, path+"/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &b))
	assert.Equal(t, model.BookingStatusConfirmed, b.Status)

	w, resp = do(t, r, doctor, http.MethodPost, path+"/complete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &b))
	assert.Equal(t, model.BookingStatusCompleted, b.Status)

	w, resp = do(t, r, patient, http.MethodPost, path+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_transition", resp.Code)
}

func TestCancelReleasesSlot(t *testing.T) {
	r := newRouter(t)

	_, resp := do(t, r, patient, http.MethodPost, "/api/v1/bookings", createBody("11:00"))
	var b model.Booking
	require.NoError(t, json.Unmarshal(resp.Data, &b))

	w, _ := do(t, r, patient, http.MethodPost, "/api/v1/bookings/"+jsonID(b.ID)+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, other, http.MethodPost, "/api/v1/bookings", createBody("11:00"))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestListAndUpdate(t *testing.T) {
	r := newRouter(t)
	do(t, r, patient, http.MethodPost, "/api/v1/bookings", createBody("09:00"))
	_, resp := do(t, r, other, http.MethodPost, "/api/v1/bookings", createBody("09:30"))
	var b model.Booking
	require.NoError(t, json.Unmarshal(resp.Data, &b))

	_, resp = do(t, r, patient, http.MethodGet, "/api/v1/bookings", nil)
	var mine []model.Booking
	require.NoError(t, json.Unmarshal(resp.Data, &mine))
	assert.Len(t, mine, 1)

	_, resp = do(t, r, doctor, http.MethodGet, "/api/v1/bookings?status=pending", nil)
	var all []model.Booking
	require.NoError(t, json.Unmarshal(resp.Data, &all))
	assert.Len(t, all, 2)

	w, _ := do(t, r, patient, http.MethodGet, "/api/v1/bookings?status=lost", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = do(t, r, other, http.MethodPatch, "/api/v1/bookings/"+jsonID(b.ID), gin.H{"appointment_time": "09:00"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "slot_taken", resp.Code)

	w, resp = do(t, r, other, http.MethodPatch, "/api/v1/bookings/"+jsonID(b.ID), gin.H{"appointment_time": "14:00", "notes": "first visit"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &b))
	assert.Equal(t, "14:00", b.AppointmentTime.String())
	require.NotNil(t, b.Notes)
	assert.Equal(t, "first visit", *b.Notes)
}

func TestInvalidID(t *testing.T) {
	r := newRouter(t)
	w, _ := do(t, r, patient, http.MethodGet, "/api/v1/bookings/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
