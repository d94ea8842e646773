package status

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRecord_TalliesByClass(t *testing.T) {
	rec := NewRecorder()
	rec.Record(200)
	rec.Record(204)
	rec.Record(404)
	rec.Record(500)

	day := time.Now().Format(dayFormat)
	rec.mu.Lock()
	d := rec.days[day]
	rec.mu.Unlock()

	if d == nil {
		t.Fatal("no stats recorded for today")
	}
	if d.Requests != 4 {
		t.Errorf("Requests = %d, want 4", d.Requests)
	}
	if d.ClientErrs != 1 {
		t.Errorf("ClientErrs = %d, want 1", d.ClientErrs)
	}
	if d.ServerErrs != 1 {
		t.Errorf("ServerErrs = %d, want 1", d.ServerErrs)
	}
}

func TestMiddleware_RecordsStatus(t *testing.T) {
	rec := NewRecorder()
	handler := rec.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))

	day := time.Now().Format(dayFormat)
	rec.mu.Lock()
	d := rec.days[day]
	rec.mu.Unlock()

	if d == nil || d.ClientErrs != 1 {
		t.Fatalf("expected one client error tallied, got %+v", d)
	}
}

func TestHandler_RendersTable(t *testing.T) {
	rec := NewRecorder()
	rec.Record(200)
	rec.Record(503)

	w := httptest.NewRecorder()
	rec.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/status", nil))

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, time.Now().Format(dayFormat)) {
		t.Errorf("status page missing today's row: %q", body)
	}
	if !strings.Contains(body, "Up since") {
		t.Errorf("status page missing uptime: %q", body)
	}
}

func TestTrim_BoundsHistory(t *testing.T) {
	rec := NewRecorder()

	rec.mu.Lock()
	for i := 0; i < maxDays+5; i++ {
		day := time.Now().AddDate(0, 0, -i).Format(dayFormat)
		rec.days[day] = &DayStats{Requests: 1}
	}
	rec.trimLocked()
	got := len(rec.days)
	rec.mu.Unlock()

	if got != maxDays {
		t.Errorf("days retained = %d, want %d", got, maxDays)
	}
}
