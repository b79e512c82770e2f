package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

// HealthChecker is a dependency the service cannot analyze evidence without.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// DatabaseHealthChecker pings the investigation store.
type DatabaseHealthChecker struct {
	DB *sql.DB
}

func (d *DatabaseHealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return d.DB.PingContext(ctx)
}

// CheckFunc adapts a function to HealthChecker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// HealthStatus is the /health body.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
}

// CheckStatus is the outcome of one dependency check.
type CheckStatus struct {
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// runChecks checks every dependency within a shared deadline.
func runChecks(ctx context.Context, checkers map[string]HealthChecker) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health := HealthStatus{
		Status:    statusHealthy,
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]CheckStatus, len(checkers)),
	}
	for name, checker := range checkers {
		start := time.Now()
		err := checker.Check(ctx)
		cs := CheckStatus{Status: statusHealthy, DurationMS: time.Since(start).Milliseconds()}
		if err != nil {
			health.Status = statusUnhealthy
			cs.Status = statusUnhealthy
			cs.Message = err.Error()
		}
		health.Checks[name] = cs
	}
	return health
}

func writeStatus(w http.ResponseWriter, healthy bool, body any) {
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// HealthHandler reports every dependency with its latency. Any failure
// turns the response into a 503.
func HealthHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := runChecks(r.Context(), checkers)
		writeStatus(w, health.Status == statusHealthy, health)
	}
}

// ReadinessStatus is the /ready body. Failing lists the checks that keep the
// service from accepting evidence.
type ReadinessStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Failing   []string  `json:"failing,omitempty"`
}

// ReadinessHandler runs the same checks as HealthHandler but only reports
// whether uploads can be accepted.
func ReadinessHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := runChecks(r.Context(), checkers)
		ready := ReadinessStatus{Status: "ready", Timestamp: health.Timestamp}
		for name, cs := range health.Checks {
			if cs.Status != statusHealthy {
				ready.Failing = append(ready.Failing, name)
			}
		}
		if len(ready.Failing) > 0 {
			sort.Strings(ready.Failing)
			ready.Status = "not_ready"
		}
		writeStatus(w, len(ready.Failing) == 0, ready)
	}
}

// LivenessHandler only proves the process is serving.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
