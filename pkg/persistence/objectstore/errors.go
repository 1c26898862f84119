package objectstore

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// ErrorKind is the closed set of object-store error categories from the
// persistence design: operations always return one of these, never a
// bare SDK error, so callers can apply policy without inspecting AWS
// error codes themselves.
type ErrorKind int

const (
	KindAuthentication ErrorKind = iota
	KindNotFound
	KindThrottling
	KindNetwork
	KindConfiguration
	KindOther
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthentication:
		return "Authentication"
	case KindNotFound:
		return "NotFound"
	case KindThrottling:
		return "Throttling"
	case KindNetwork:
		return "Network"
	case KindConfiguration:
		return "Configuration"
	default:
		return "Other"
	}
}

// Retryable reports whether Throttling/Network errors should be retried
// upstream, per the persistence design's error-categorization table.
func (k ErrorKind) Retryable() bool {
	return k == KindThrottling || k == KindNetwork
}

// Fatal reports whether the error should abort the surrounding task
// rather than be retried.
func (k ErrorKind) Fatal() bool {
	return k == KindAuthentication || k == KindConfiguration
}

// Error wraps an object-store operation failure with its category and
// the underlying AWS SDK error as Source.
type Error struct {
	Kind   ErrorKind
	Op     string
	Key    string
	Source error
}

func (e *Error) Error() string {
	return fmt.Sprintf("objectstore: %s %s: %s: %v", e.Op, e.Key, e.Kind, e.Source)
}

func (e *Error) Unwrap() error {
	return e.Source
}

// classify maps an AWS SDK error onto an ErrorKind, per the
// persistence design's categorization table.
func classify(op, key string, err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return &Error{Kind: KindNotFound, Op: op, Key: key, Source: err}
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return &Error{Kind: KindAuthentication, Op: op, Key: key, Source: err}
		case "SlowDown", "RequestLimitExceeded", "TooManyRequests", "ThrottlingException":
			return &Error{Kind: KindThrottling, Op: op, Key: key, Source: err}
		}
	}

	var opErr smithy.OperationError
	if errors.As(err, &opErr) {
		return &Error{Kind: KindNetwork, Op: op, Key: key, Source: err}
	}

	return &Error{Kind: KindOther, Op: op, Key: key, Source: err}
}

// IsNotFound reports whether err is an object-store Error categorized
// as NotFound. A NotFound read is not itself an error condition at the
// Store.Get call site — it returns (nil, false, nil) — but classify and
// IsNotFound stay available for callers that went through raw SDK calls.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindNotFound
}
