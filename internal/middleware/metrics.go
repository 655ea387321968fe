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
	RequestsTotal      uint64
	RequestsInProgress uint64
	RequestsSuccess    uint64
	RequestsFailed     uint64
	DiagnosesTotal     uint64
	DiagnosesRunning   uint64
	DiagnosesFailed    uint64
	StartTime          time.Time
}

var globalMetrics = Metrics{StartTime: time.Now()}

func IncrementRequests()   { atomic.AddUint64(&globalMetrics.RequestsTotal, 1) }
func IncrementInProgress() { atomic.AddUint64(&globalMetrics.RequestsInProgress, 1) }
func DecrementInProgress() { atomic.AddUint64(&globalMetrics.RequestsInProgress, ^uint64(0)) }
func IncrementSuccess()    { atomic.AddUint64(&globalMetrics.RequestsSuccess, 1) }
func IncrementFailed()     { atomic.AddUint64(&globalMetrics.RequestsFailed, 1) }

// IncrementDiagnosesTotal increments the submitted diagnoses counter
func IncrementDiagnosesTotal() { atomic.AddUint64(&globalMetrics.DiagnosesTotal, 1) }

// IncrementDiagnosesRunning increments the running diagnoses counter
func IncrementDiagnosesRunning() { atomic.AddUint64(&globalMetrics.DiagnosesRunning, 1) }

// DecrementDiagnosesRunning decrements the running diagnoses counter
func DecrementDiagnosesRunning() { atomic.AddUint64(&globalMetrics.DiagnosesRunning, ^uint64(0)) }

// IncrementDiagnosesFailed increments the failed diagnoses counter
func IncrementDiagnosesFailed() { atomic.AddUint64(&globalMetrics.DiagnosesFailed, 1) }

// GetMetrics returns current metrics
func GetMetrics() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"requests_total":       atomic.LoadUint64(&globalMetrics.RequestsTotal),
		"requests_in_progress": atomic.LoadUint64(&globalMetrics.RequestsInProgress),
		"requests_success":     atomic.LoadUint64(&globalMetrics.RequestsSuccess),
		"requests_failed":      atomic.LoadUint64(&globalMetrics.RequestsFailed),
		"diagnoses_total":      atomic.LoadUint64(&globalMetrics.DiagnosesTotal),
		"diagnoses_running":    atomic.LoadUint64(&globalMetrics.DiagnosesRunning),
		"diagnoses_failed":     atomic.LoadUint64(&globalMetrics.DiagnosesFailed),
		"uptime_seconds":       time.Since(globalMetrics.StartTime).Seconds(),
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
func MetricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(GetMetrics())
	}
}
