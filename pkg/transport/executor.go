// Package transport provides the HTTP executor behind the management facade
package transport

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/camelspeed/couchnode/pkg/config"
	"github.com/camelspeed/couchnode/pkg/errors"
	"github.com/camelspeed/couchnode/pkg/interfaces"
	"github.com/camelspeed/couchnode/pkg/types"
)

// Executor performs management requests over HTTP.
// It owns authentication, retries and connection handling; status codes are
// passed through untouched for the facade to interpret.
type Executor struct {
	client        *resty.Client
	logger        interfaces.Logger
	endpoint      string
	retryAttempts uint
	retryWait     time.Duration
}

// NewExecutor creates an executor for the configured management endpoint
func NewExecutor(cfg *config.ClientConfig, log interfaces.Logger) (*Executor, error) {
	if cfg == nil {
		return nil, errors.NewConfigError("client configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.Endpoint, "/"))
	client.SetTimeout(cfg.RequestTimeout)
	client.SetBasicAuth(cfg.Username, cfg.Password)
	client.SetHeader("User-Agent", "couchnode/1.0")
	if cfg.TLSSkipVerify {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	return &Executor{
		client:        client,
		logger:        log,
		endpoint:      cfg.Endpoint,
		retryAttempts: uint(cfg.RetryCount) + 1,
		retryWait:     cfg.RetryWaitTime,
	}, nil
}

// Execute performs a single round trip described by spec.
// A non-2xx status is not an error at this level; the response is returned
// as-is. Only transport-level failures produce an error.
func (e *Executor) Execute(ctx context.Context, spec types.RequestSpec) (*types.Response, error) {
	if spec.Method == "" || spec.Path == "" {
		return nil, errors.NewInvalidInputError("request method and path are required")
	}

	requestID := uuid.New().String()

	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	e.logger.Debug("executing management request", map[string]interface{}{
		"method":     spec.Method,
		"path":       spec.Path,
		"request_id": requestID,
	})

	var resp *resty.Response
	err := retry.Do(
		func() error {
			req := e.client.R().
				SetContext(ctx).
				SetHeader("X-Client-Context-Id", requestID)
			if spec.Body != "" {
				contentType := spec.ContentType
				if contentType == "" {
					contentType = types.ContentTypeForm
				}
				req.SetHeader("Content-Type", contentType)
				req.SetBody(spec.Body)
			}

			var reqErr error
			resp, reqErr = req.Execute(spec.Method, spec.Path)
			return reqErr
		},
		retry.Attempts(e.retryAttempts),
		retry.Delay(e.retryWait),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			// Context expiry is final; only transient network failures retry.
			return ctx.Err() == nil && isNetworkError(err)
		}),
	)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewTimeoutError(
				fmt.Sprintf("%s %s", spec.Method, spec.Path), err).WithRequestID(requestID)
		}
		return nil, errors.NewConnectionFailedError(e.endpoint, err).WithRequestID(requestID)
	}

	e.logger.Debug("management request completed", map[string]interface{}{
		"method":     spec.Method,
		"path":       spec.Path,
		"status":     resp.StatusCode(),
		"request_id": requestID,
	})

	return &types.Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
	}, nil
}

// isNetworkError reports whether err is a network-class failure worth
// another attempt. Anything else fails immediately.
func isNetworkError(err error) bool {
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return stderrors.As(err, &urlErr)
}
