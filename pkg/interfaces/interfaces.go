// Package interfaces defines the core interfaces for the management client components
package interfaces

import (
	"context"

	"github.com/camelspeed/couchnode/pkg/types"
)

// HTTPExecutor is the transport collaborator behind every management operation.
// Implementations own connection management, authentication headers, retries
// and protocol-level concerns; the facade only builds RequestSpec values and
// maps the returned status codes.
type HTTPExecutor interface {
	// Execute performs a single round trip against the management endpoint
	Execute(ctx context.Context, spec types.RequestSpec) (*types.Response, error)
}

// Logger defines the interface for logging
type Logger interface {
	// Debug logs debug level messages
	Debug(msg string, fields ...map[string]interface{})

	// Info logs info level messages
	Info(msg string, fields ...map[string]interface{})

	// Warn logs warning level messages
	Warn(msg string, fields ...map[string]interface{})

	// Error logs error level messages
	Error(msg string, err error, fields ...map[string]interface{})

	// Fatal logs fatal level messages and exits
	Fatal(msg string, err error, fields ...map[string]interface{})

	// WithFields returns a logger with additional fields
	WithFields(fields map[string]interface{}) Logger
}
