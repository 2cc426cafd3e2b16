package shared

import (
	"context"
	"time"
)

// IdempotencyRecord is the stored outcome of a request made with an
// Idempotency-Key. A record with StatusCode 0 is still in flight.
type IdempotencyRecord struct {
	RequestHash string    `json:"request_hash"`
	StatusCode  int       `json:"status_code"`
	ContentType string    `json:"content_type,omitempty"`
	Body        []byte    `json:"body,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Completed reports whether the response has been recorded
func (r *IdempotencyRecord) Completed() bool {
	return r != nil && r.StatusCode != 0
}

// IdempotencyStore keeps request outcomes keyed by idempotency key
type IdempotencyStore interface {
	// Reserve claims key for a new request with the given body hash.
	// Returns false if the key is already claimed or completed.
	Reserve(ctx context.Context, key, requestHash string, ttl time.Duration) (bool, error)

	// Get returns the record for key, or nil if there is none
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)

	// Complete stores the final response for a reserved key
	Complete(ctx context.Context, key string, record *IdempotencyRecord, ttl time.Duration) error

	// Release drops a reservation so the request can be retried
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a recorded response is replayed
	// Default: 24 hours
	TTL time.Duration

	// Enabled determines whether Idempotency-Key headers are honoured
	// Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
