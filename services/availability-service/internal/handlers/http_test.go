package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/busy"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/profile"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pid = "7d1c2b3a-4e5f-4a6b-8c7d-9e0f1a2b3c4d"

type downBusy struct{}

func (downBusy) Events(context.Context, string) ([]model.BusyEvent, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func newMux(b busy.Source) *http.ServeMux {
	profiles := profile.StaticSource{pid: {
		ID: pid,
		Schedule: model.Schedule{
			Timezone: "UTC",
			Rules: []model.WeeklyRule{
				{DayOfWeek: 1, IsAvailable: true, Start: civil.Time{Hour: 9}, End: civil.Time{Hour: 11}},
			},
		},
		Policy: model.DefaultBookingPolicy(),
	}}
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	calc := availability.New(availability.DefaultConfig(), availability.WithClock(func() time.Time { return now }))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mux := http.NewServeMux()
	New(service.New(profiles, b, calc, logger), logger).Register(mux)
	return mux
}

func get(t *testing.T, mux http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestSlotsEndpoint(t *testing.T) {
	mux := newMux(busy.StaticSource{pid: {{
		Start: model.ParseMoment("2025-06-16T09:30:00Z"),
		End:   model.ParseMoment("2025-06-16T10:00:00Z"),
	}}})

	rr := get(t, mux, "/api/v1/public/slots?profile_id="+pid+"&date=2025-06-16")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body []slotResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body, 3)
	assert.Equal(t, slotResponse{Label: "9:00 AM", StartTime: "2025-06-16T09:00:00Z", EndTime: "2025-06-16T09:30:00Z"}, body[0])
	assert.Equal(t, "10:00 AM", body[1].Label)
	assert.Equal(t, "10:30 AM", body[2].Label)

	rr = get(t, mux, "/api/v1/public/slots?profile_id="+pid+"&date=2025-06-16&timezone=Asia/Tokyo&duration=1h")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, slotResponse{Label: "7:00 PM", StartTime: "2025-06-16T19:00:00+09:00", EndTime: "2025-06-16T20:00:00+09:00"}, body[0])
}

func TestSlotsEndpointEmptyIsArray(t *testing.T) {
	rr := get(t, newMux(busy.StaticSource{}), "/api/v1/public/slots?profile_id="+pid+"&date=2025-06-17")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		mux    *http.ServeMux
		target string
		want   int
	}{
		{"bad profile id", newMux(busy.StaticSource{}), "/api/v1/public/slots?profile_id=x&date=2025-06-16", http.StatusBadRequest},
		{"unknown profile", newMux(busy.StaticSource{}), "/api/v1/public/slots?profile_id=8d1c2b3a-4e5f-4a6b-8c7d-9e0f1a2b3c4d&date=2025-06-16", http.StatusNotFound},
		{"missing date", newMux(busy.StaticSource{}), "/api/v1/public/slots?profile_id=" + pid, http.StatusBadRequest},
		{"busy store down", newMux(downBusy{}), "/api/v1/public/slots?profile_id=" + pid + "&date=2025-06-16", http.StatusServiceUnavailable},
		{"month without year", newMux(busy.StaticSource{}), "/api/v1/public/month?profile_id=" + pid + "&month=6", http.StatusBadRequest},
		{"month out of range", newMux(busy.StaticSource{}), "/api/v1/public/month?profile_id=" + pid + "&year=2025&month=13", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, get(t, tc.mux, tc.target).Code)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux := newMux(busy.StaticSource{})
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/public/slots", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	assert.Equal(t, http.StatusMethodNotAllowed, get(t, mux, "/api/v1/public/validate").Code)
}

func TestMonthEndpoint(t *testing.T) {
	rr := get(t, newMux(busy.StaticSource{}), "/api/v1/public/month?profile_id="+pid+"&year=2025&month=6")
	require.Equal(t, http.StatusOK, rr.Code)

	var days map[string]bool
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &days))
	assert.Len(t, days, 30)
	assert.True(t, days["2025-06-16"])
	assert.False(t, days["2025-06-17"])
}

func TestCalendarEndpoint(t *testing.T) {
	rr := get(t, newMux(busy.StaticSource{}), "/api/v1/public/calendar?profile_id="+pid+"&year=2025&month=6")
	require.Equal(t, http.StatusOK, rr.Code)

	var days []struct {
		Date         string `json:"date"`
		Today        bool   `json:"today"`
		CurrentMonth bool   `json:"current_month"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &days))
	require.Len(t, days, availability.GridDays)
	assert.Equal(t, "2025-05-26", days[0].Date)
	assert.False(t, days[0].CurrentMonth)
	assert.True(t, days[6].Today)
}

func TestValidateEndpoint(t *testing.T) {
	mux := newMux(busy.StaticSource{})
	post := func(body string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/public/validate", strings.NewReader(body)))
		return rr
	}

	assert.Equal(t, http.StatusNoContent, post(`{"profile_id":"`+pid+`","date":"2025-06-16","time":"9:30 AM"}`).Code)
	assert.Equal(t, http.StatusNoContent, post(`{"profile_id":"`+pid+`","date":"2025-06-16","time":"10:00 AM","duration":"1 hour"}`).Code)

	rr := post(`{"profile_id":"` + pid + `","date":"2025-06-16","time":"11:00 AM"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), availability.ErrSlotUnavailable.Error())

	assert.Equal(t, http.StatusUnprocessableEntity, post(`{"profile_id":"`+pid+`","date":"2025-06-16"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{`).Code)
	assert.Equal(t, http.StatusNotFound, post(`{"profile_id":"8d1c2b3a-4e5f-4a6b-8c7d-9e0f1a2b3c4d","date":"2025-06-16","time":"9:00 AM"}`).Code)
}
