package awssig

import (
	"errors"
)

var (
	// Configuration errors, raised at BucketConfig construction.
	ErrMissingCredentials = errors.New("required credentials not provided")
	ErrMissingBucket      = errors.New("required bucket info not provided")
	ErrMissingRegion      = errors.New("required bucket region not provided")
	ErrBucketHostMismatch = errors.New("bucket host mismatch")

	// ErrExpiresOutOfRange is returned for expiration times outside
	// the supported [1s, 604800s] window.
	ErrExpiresOutOfRange = errors.New("expiration time out of range")

	// Presigned POST form data errors.
	ErrUnsupportedFormField = errors.New("unsupported form data field")
	ErrMissingFormDataKey   = errors.New("missing required form data field")
	ErrFormDataKeyType      = errors.New("incorrect data type for form data field")
)
