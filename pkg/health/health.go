package health

import (
	"context"
	"time"
)

// CheckType identifies the kind of probe a Checker performs.
type CheckType string

const (
	CheckTypeHTTP CheckType = "http"
)

// Result is the outcome of a single health check.
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker performs a single probe and reports its outcome. The cluster's
// health monitor (pkg/registry) uses a single failed Check to declare a
// worker dead; there is no retry or grace-period bookkeeping here.
type Checker interface {
	Check(ctx context.Context) Result
	Type() CheckType
}
