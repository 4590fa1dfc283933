package backoff

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
)

// ErrThrottled marks a provider rate-limit rejection. Providers that do not
// speak the AWS error model wrap it to opt into retries.
var ErrThrottled = errors.New("throttled")

// ErrRetryExhausted matches any RetryExhaustedError.
var ErrRetryExhausted = errors.New("retry exhausted")

// RetryExhaustedError is returned when every attempt was throttled.
type RetryExhaustedError struct {
	Operation string
	Attempts  int
	Err       error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s: gave up after %d throttled attempts: %v", e.Operation, e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrRetryExhausted) match.
func (e *RetryExhaustedError) Is(target error) bool {
	return target == ErrRetryExhausted
}

var throttleCodes = retry.ThrottleErrorCode{Codes: retry.DefaultThrottleErrorCodes}

// IsThrottling reports whether err is a retryable rate-limit rejection.
func IsThrottling(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrThrottled) {
		return true
	}
	return throttleCodes.IsErrorThrottle(err) == aws.TrueTernary
}
