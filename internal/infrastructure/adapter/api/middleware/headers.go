package middleware

// HTTP headers understood by the API
const (
	// RequestIDHeader carries the request correlation id
	RequestIDHeader = "X-Request-ID"
	// IdempotencyKeyHeader lets a payer retry a redemption without paying twice
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyReplayHeader is set on responses that return an earlier attempt
	IdempotencyReplayHeader = "X-Idempotency-Replay"
)
