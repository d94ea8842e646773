// Package status aggregates per-day request tallies and renders them
// as a plain status page. It keeps a small in-memory table fed by an
// HTTP middleware hook; the history starts fresh on every restart.
package status

import (
	"html/template"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"
)

// dayFormat keys the per-day table.
const dayFormat = "2006-01-02"

// maxDays bounds the table; the oldest day is dropped past it.
const maxDays = 31

// DayStats holds one day's tallies.
type DayStats struct {
	Requests   int
	ClientErrs int
	ServerErrs int
}

// Recorder accumulates request tallies by day.
type Recorder struct {
	started time.Time

	mu   sync.Mutex
	days map[string]*DayStats
}

// NewRecorder creates an empty recorder starting now.
func NewRecorder() *Recorder {
	return &Recorder{
		started: time.Now(),
		days:    make(map[string]*DayStats),
	}
}

// Record tallies one completed request by its response status.
func (rec *Recorder) Record(status int) {
	day := time.Now().Format(dayFormat)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	d, ok := rec.days[day]
	if !ok {
		d = &DayStats{}
		rec.days[day] = d
		rec.trimLocked()
	}
	d.Requests++
	switch {
	case status >= 500:
		d.ServerErrs++
	case status >= 400:
		d.ClientErrs++
	}
}

// trimLocked drops the oldest days past the bound. Caller holds the lock.
func (rec *Recorder) trimLocked() {
	for len(rec.days) > maxDays {
		oldest := ""
		for day := range rec.days {
			if oldest == "" || day < oldest {
				oldest = day
			}
		}
		delete(rec.days, oldest)
	}
}

// Middleware feeds the recorder from completed requests.
func (rec *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(cw, r)
		rec.Record(cw.status)
	})
}

// captureWriter records the response status code.
type captureWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *captureWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// statusTemplate renders the status page.
var statusTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
<head><title>Server status</title></head>
<body>
<h1>Server status</h1>
<p>Up since {{.Started}} ({{.Uptime}})</p>
<table border="1">
<tr><th>Day</th><th>Requests</th><th>4xx</th><th>5xx</th></tr>
{{range .Days}}<tr><td>{{.Day}}</td><td>{{.Requests}}</td><td>{{.ClientErrs}}</td><td>{{.ServerErrs}}</td></tr>
{{end}}</table>
</body>
</html>
`))

type dayRow struct {
	Day string
	DayStats
}

// Handler renders the status page.
func (rec *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rows := make([]dayRow, 0, len(rec.days))
		for day, d := range rec.days {
			rows = append(rows, dayRow{Day: day, DayStats: *d})
		}
		rec.mu.Unlock()

		// Newest first.
		sort.Slice(rows, func(i, j int) bool { return rows[i].Day > rows[j].Day })

		data := struct {
			Started string
			Uptime  time.Duration
			Days    []dayRow
		}{
			Started: rec.started.Format(time.RFC1123),
			Uptime:  time.Since(rec.started).Round(time.Second),
			Days:    rows,
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := statusTemplate.Execute(w, data); err != nil {
			slog.Error("rendering status page", "error", err)
		}
	})
}
