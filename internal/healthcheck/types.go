package healthcheck

import (
	"context"
	"time"
)

// Status is the outcome of a single liveness check.
type Status string

const (
	StatusPassing  Status = "passing"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// Check describes one gRPC health probe the keeper issues against a
// backend's HealthAddr.
type Check struct {
	GRPC       string        `json:"grpc"`
	GRPCUseTLS bool          `json:"grpc_use_tls,omitempty"`
	Timeout    time.Duration `json:"timeout"`
}

// Checker is the contract GRPCChecker satisfies, narrow enough that the
// keeper could substitute a fake in tests.
type Checker interface {
	Check(ctx context.Context, check *Check) (Status, string, error)
}
