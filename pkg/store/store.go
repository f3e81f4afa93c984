// Package store provides a namespaced view over a shared key-value backend
// (spec §4.1, C1): typed read/write/delete helpers for job inputs, partials,
// and results, keyed the way spec §3 names them.
package store

import "context"

// Store is the namespaced KV contract the orchestrator and workers share.
// Implementations return backend errors as they come; callers treat any
// of them as store unavailability and answer HTTP 500 (see
// internal/apperr.StoreUnavailable).
type Store interface {
	// PutInput persists job-scoped matrix input under matrices_input:{job}.
	PutInput(ctx context.Context, job string, payload []byte) error
	// GetInput reads matrices_input:{job}.
	GetInput(ctx context.Context, job string) ([]byte, error)

	// PutResult persists the aggregated matrix under matrices_output:{job}.
	PutResult(ctx context.Context, job string, payload []byte) error

	// PutMatrixPartial writes matrix:{job}:{row},{column}.
	PutMatrixPartial(ctx context.Context, job string, row, column int, payload []byte) error
	// GetAllMatrixPartials reads every matrix:{job}:* key.
	GetAllMatrixPartials(ctx context.Context, job string) ([][]byte, error)

	// PutCountPartial writes count:{file}:{part}.
	PutCountPartial(ctx context.Context, file string, part int, count int) error
	// GetAllCountPartials reads every count:{file}:* key.
	GetAllCountPartials(ctx context.Context, file string) ([]int, error)
	// DeleteCountPartials removes every count:{file}:* key.
	DeleteCountPartials(ctx context.Context, file string) error
	// PutCountResult writes count:{file}.
	PutCountResult(ctx context.Context, file string, total int) error

	// ClearJob removes every key under matrices_input:{job},
	// matrix:{job}:*, and matrices_output:{job}.
	ClearJob(ctx context.Context, job string) error

	Close() error
}
