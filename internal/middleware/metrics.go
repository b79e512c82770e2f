package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics stores application metrics
type Metrics struct {
	RequestsTotal         uint64
	RequestsInProgress    uint64
	RequestsSuccess       uint64
	RequestsFailed        uint64
	InvestigationsTotal   uint64
	InvestigationsRunning uint64
	InvestigationsFailed  uint64
	FilesReceived         uint64
	EventsExtracted       uint64
	StartTime             time.Time
}

var globalMetrics = &Metrics{
	StartTime: time.Now(),
}

func IncrementRequests() {
	atomic.AddUint64(&globalMetrics.RequestsTotal, 1)
}

func IncrementInProgress() {
	atomic.AddUint64(&globalMetrics.RequestsInProgress, 1)
}

func DecrementInProgress() {
	atomic.AddUint64(&globalMetrics.RequestsInProgress, ^uint64(0))
}

func IncrementSuccess() {
	atomic.AddUint64(&globalMetrics.RequestsSuccess, 1)
}

func IncrementFailed() {
	atomic.AddUint64(&globalMetrics.RequestsFailed, 1)
}

// InvestigationStarted counts a submitted batch and marks it running.
func InvestigationStarted(files int) {
	atomic.AddUint64(&globalMetrics.InvestigationsTotal, 1)
	atomic.AddUint64(&globalMetrics.InvestigationsRunning, 1)
	atomic.AddUint64(&globalMetrics.FilesReceived, uint64(files))
}

// InvestigationFinished clears the running mark and records the outcome.
func InvestigationFinished(events int, failed bool) {
	atomic.AddUint64(&globalMetrics.InvestigationsRunning, ^uint64(0))
	atomic.AddUint64(&globalMetrics.EventsExtracted, uint64(events))
	if failed {
		atomic.AddUint64(&globalMetrics.InvestigationsFailed, 1)
	}
}

// GetMetrics returns current metrics
func GetMetrics() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"requests_total":         atomic.LoadUint64(&globalMetrics.RequestsTotal),
		"requests_in_progress":   atomic.LoadUint64(&globalMetrics.RequestsInProgress),
		"requests_success":       atomic.LoadUint64(&globalMetrics.RequestsSuccess),
		"requests_failed":        atomic.LoadUint64(&globalMetrics.RequestsFailed),
		"investigations_total":   atomic.LoadUint64(&globalMetrics.InvestigationsTotal),
		"investigations_running": atomic.LoadUint64(&globalMetrics.InvestigationsRunning),
		"investigations_failed":  atomic.LoadUint64(&globalMetrics.InvestigationsFailed),
		"files_received":         atomic.LoadUint64(&globalMetrics.FilesReceived),
		"events_extracted":       atomic.LoadUint64(&globalMetrics.EventsExtracted),
		"uptime_seconds":         time.Since(globalMetrics.StartTime).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes":       m.Alloc,
			"total_alloc_bytes": m.TotalAlloc,
			"sys_bytes":         m.Sys,
			"num_gc":            m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		IncrementRequests()
		IncrementInProgress()
		defer DecrementInProgress()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			IncrementSuccess()
		} else {
			IncrementFailed()
		}
	})
}

// MetricsHandler returns metrics as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GetMetrics())
}
