// Package handlers defines the HTTP-layer error codes used across all
// endpoints. Codes are lowercase snake_case and stable: clients branch on
// them programmatically, while the accompanying message is display text.
package handlers

const (
	ErrCodeValidation       = "validation_error"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeUpstream         = "upstream_error"
	ErrCodeInternal         = "internal_error"
)
