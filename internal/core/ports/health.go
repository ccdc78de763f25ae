package ports

import "context"

// HealthChecker is implemented by each external dependency the API
// reports on from /health.
type HealthChecker interface {
	// Ping returns nil when the dependency is reachable and serving.
	Ping(ctx context.Context) error
	// Name identifies the dependency in the health response.
	Name() string
}
