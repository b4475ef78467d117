package server

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DefaultPendingThreshold is the queued-record count above which health reports a warning.
const DefaultPendingThreshold = 1000

type HealthStatus struct {
	Healthy        bool     `json:"healthy"`
	StoreConnected bool     `json:"store_connected"`
	NATSConnected  bool     `json:"nats_connected"`
	PendingRecords int64    `json:"pending_records"`
	Errors         []string `json:"errors"`
}

// StoreProbe is satisfied by *outbox.App.
type StoreProbe interface {
	Ping(ctx context.Context) error
	PendingCount(ctx context.Context) (int64, error)
}

// NATSProbe is satisfied by *nats.Conn.
type NATSProbe interface {
	IsConnected() bool
}

type HealthChecker struct {
	store            StoreProbe
	nats             NATSProbe
	pendingThreshold int64
}

// NewHealthChecker builds a checker. nats may be nil when the bus is disabled.
func NewHealthChecker(store StoreProbe, nats NATSProbe, pendingThreshold int64) *HealthChecker {
	if pendingThreshold <= 0 {
		pendingThreshold = DefaultPendingThreshold
	}
	return &HealthChecker{
		store:            store,
		nats:             nats,
		pendingThreshold: pendingThreshold,
	}
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy: true,
		Errors:  []string{},
	}

	if err := h.store.Ping(ctx); err != nil {
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("store ping failed: %v", err))
	} else {
		status.StoreConnected = true
	}

	if h.nats != nil {
		status.NATSConnected = h.nats.IsConnected()
		if !status.NATSConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	if status.StoreConnected {
		pending, err := h.store.PendingCount(ctx)
		if err != nil {
			status.Errors = append(status.Errors, fmt.Sprintf("failed to count pending records: %v", err))
		} else {
			status.PendingRecords = pending
			// queued records are never retried, so a large backlog means sends are stuck
			if pending > h.pendingThreshold {
				status.Errors = append(status.Errors, fmt.Sprintf("high pending record count: %d", pending))
			}
		}
	}

	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}
