package models

import "time"

// EndpointClass partitions requests into independent rate-limit policies.
type EndpointClass string

const (
	EndpointClassAuth   EndpointClass = "auth"
	EndpointClassAPI    EndpointClass = "api"
	EndpointClassUpload EndpointClass = "upload"
)

// RateLimitWindow is one fixed window row keyed by (ip_address, endpoint).
type RateLimitWindow struct {
	IPAddress    string    `db:"ip_address"`
	Endpoint     string    `db:"endpoint"`
	RequestCount int       `db:"request_count"`
	WindowStart  time.Time `db:"window_start"`
}

// RateLimitDecision is the outcome of a single limiter check.
type RateLimitDecision struct {
	Allowed    bool `json:"allowed"`
	Remaining  int  `json:"remaining"`
	RetryAfter int  `json:"retry_after,omitempty"` // seconds until the window resets
}
