// Package types defines the core types shared across the couchnode management client
package types

import (
	"time"
)

// HTTP methods used against the management endpoint
const (
	MethodGet    = "GET"
	MethodPut    = "PUT"
	MethodDelete = "DELETE"
)

// Content types for request bodies
const (
	ContentTypeForm = "application/x-www-form-urlencoded"
	ContentTypeJSON = "application/json"
)

// RequestSpec describes a single request to the management endpoint.
// It is the unit of work handed to the transport collaborator.
type RequestSpec struct {
	Method      string        `json:"method"`
	Path        string        `json:"path"`
	Body        string        `json:"body,omitempty"`
	ContentType string        `json:"content_type,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
}

// Response is the raw response a transport hands back.
// Body is raw text, JSON-parseable when StatusCode is 200.
type Response struct {
	StatusCode int    `json:"status_code"`
	Body       []byte `json:"body"`
}

// Error types for better error handling
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeTransport  ErrorType = "transport"
)
