package response

// ErrorResponse is the body of every error the proxy produces itself.
// Upstream errors are passed through untouched.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports the proxy and its optional dependencies.
type HealthResponse struct {
	Status   string `json:"status"` // "ok" or "degraded"
	Upstream string `json:"upstream"`
	Redis    string `json:"redis,omitempty"` // "healthy", "unhealthy"; absent when rate limiting is off
}
