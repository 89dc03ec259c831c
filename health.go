package stripe

// HealthStatus reports the client's view of the Service. Without a circuit
// breaker the client is always healthy and Status is "disabled".
type HealthStatus struct {
	// Healthy is false only while the circuit breaker is open.
	Healthy bool `json:"healthy"`

	// Status is the breaker state ("closed", "half-open", "open") or "disabled".
	Status string `json:"status"`

	// Requests is the total number of requests in the current breaker interval.
	Requests uint32 `json:"requests"`

	// TotalSuccesses is the total number of successful requests.
	TotalSuccesses uint32 `json:"total_successes"`

	// TotalFailures is the total number of failed requests.
	TotalFailures uint32 `json:"total_failures"`

	// ConsecutiveFailures is the number of consecutive failures.
	ConsecutiveFailures uint32 `json:"consecutive_failures"`

	// ConsecutiveSuccesses is the number of consecutive successes.
	ConsecutiveSuccesses uint32 `json:"consecutive_successes"`
}
