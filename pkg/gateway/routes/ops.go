package routes

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/clerapp/platform/pkg/common/httpx"
	"github.com/clerapp/platform/pkg/common/logger"
	"github.com/clerapp/platform/pkg/observability/metrics"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

type DependencyStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type ReadinessReport struct {
	Status       string             `json:"status"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

type OpsHandler struct {
	checks  map[string]Check
	timeout time.Duration
}

func NewOpsHandler() *OpsHandler {
	return &OpsHandler{checks: make(map[string]Check), timeout: 2 * time.Second}
}

func (h *OpsHandler) AddCheck(name string, check Check) *OpsHandler {
	h.checks[name] = check
	return h
}

func DatabaseCheck(db *gorm.DB) Check {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

func RedisCheck(client *redis.Client) Check {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

func (h *OpsHandler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", h.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
}

func (h *OpsHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *OpsHandler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	report := ReadinessReport{Status: "ready", Dependencies: make([]DependencyStatus, 0, len(names))}
	status := http.StatusOK
	for _, name := range names {
		dep := DependencyStatus{Name: name, Status: "up"}
		if err := h.checks[name](ctx); err != nil {
			logger.Log.WithError(err).WithField("dependency", name).Warn("readiness check failed")
			dep.Status = "down"
			dep.Error = err.Error()
			report.Status = "not ready"
			status = http.StatusServiceUnavailable
		}
		report.Dependencies = append(report.Dependencies, dep)
	}
	httpx.WriteJSON(w, status, report)
}
