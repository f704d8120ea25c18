package helpers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"stock-forecast/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type ForecastError struct {
	Message string
	Cause   error
}

func (e *ForecastError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ForecastError) Unwrap() error {
	return e.Cause
}

// Distinct error kinds for errors.As checks
type ConfigurationError struct{ ForecastError }
type NetworkError struct {
	ForecastError
	StatusCode int // 0 when the request never got a response
}
type DataSourceError struct{ ForecastError }
type DatabaseError struct{ ForecastError }
type ValidationError struct{ ForecastError }

func NewConfigurationError(message string, cause error) *ConfigurationError {
	return &ConfigurationError{ForecastError{Message: message, Cause: cause}}
}

func NewNetworkError(message string, status int, cause error) *NetworkError {
	return &NetworkError{ForecastError: ForecastError{Message: message, Cause: cause}, StatusCode: status}
}

func NewDataSourceError(message string, cause error) *DataSourceError {
	return &DataSourceError{ForecastError{Message: message, Cause: cause}}
}

func NewDatabaseError(message string, cause error) *DatabaseError {
	return &DatabaseError{ForecastError{Message: message, Cause: cause}}
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{ForecastError{Message: message}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// IsRetryable reports whether another attempt could succeed. Validation
// errors and client-side HTTP statuses (other than 429) are final.
func IsRetryable(err error) bool {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return false
	}
	var nErr *NetworkError
	if errors.As(err, &nErr) && nErr.StatusCode >= 400 && nErr.StatusCode < 500 && nErr.StatusCode != 429 {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

// -----------------------------------------------------------------------------

// RetryWithBackoff runs fn up to maxRetries+1 times, doubling baseDelay between
// attempts. Non-retryable errors end the loop early. The wait honors ctx.
func RetryWithBackoff[T any](ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if !IsRetryable(err) || attempt == maxRetries {
			break
		}

		delay := baseDelay * (1 << attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

type ErrorHandler struct {
	Logger    *logger.Logger
	BaseDelay time.Duration

	mu         sync.Mutex
	errorCount int
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	return &ErrorHandler{
		Logger:    log,
		BaseDelay: time.Second,
	}
}

// -----------------------------------------------------------------------------

// ErrorCount is the net number of recent failures seen by Execute.
func (e *ErrorHandler) ErrorCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errorCount
}

// -----------------------------------------------------------------------------

// Execute runs fn with retries and categorizes the final failure by the
// operation name.
func (e *ErrorHandler) Execute(ctx context.Context, operation string, maxRetries int, fn func(context.Context) error) error {
	attempt := 0
	_, err := RetryWithBackoff(ctx, maxRetries, e.BaseDelay, func(ctx context.Context) (struct{}, error) {
		attempt++
		err := fn(ctx)
		if err != nil && attempt <= maxRetries {
			e.Logger.Warning("%s failed (attempt %d/%d): %v", operation, attempt, maxRetries+1, err)
		}
		return struct{}{}, err
	})
	if err == nil {
		e.mu.Lock()
		if e.errorCount > 0 {
			e.errorCount--
		}
		e.mu.Unlock()
		return nil
	}

	e.mu.Lock()
	e.errorCount++
	e.mu.Unlock()
	e.Logger.Error("%s failed: %v", operation, err)

	// Already typed errors pass through untouched
	if isTyped(err) {
		return err
	}

	lowerOp := strings.ToLower(operation)
	switch {
	case strings.Contains(lowerOp, "network") || strings.Contains(lowerOp, "fetch"):
		return NewNetworkError(fmt.Sprintf("%s failed", operation), 0, err)
	case strings.Contains(lowerOp, "database") || strings.Contains(lowerOp, "save"):
		return NewDatabaseError(fmt.Sprintf("%s failed", operation), err)
	default:
		return &ForecastError{Message: fmt.Sprintf("%s failed", operation), Cause: err}
	}
}

// -----------------------------------------------------------------------------

// Handle logs a failure that does not change the outcome of the caller.
func (e *ErrorHandler) Handle(err error, context string) {
	if err != nil {
		e.Logger.Error("Error in %s: %v", context, err)
	}
}

// -----------------------------------------------------------------------------

func isTyped(err error) bool {
	var n *NetworkError
	var d *DataSourceError
	var db *DatabaseError
	var v *ValidationError
	var c *ConfigurationError
	return errors.As(err, &n) || errors.As(err, &d) || errors.As(err, &db) || errors.As(err, &v) || errors.As(err, &c)
}
