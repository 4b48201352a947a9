package awssig

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Expiration bounds for presigned requests, in seconds. The maximum is the
// documented AWS limit of seven days.
const (
	minExpires = 1
	maxExpires = 604800
)

// Presigner generates presigned requests for one bucket. It performs pure,
// CPU-bound computation with no I/O or shared state, so a single Presigner
// is safe for concurrent use.
type Presigner struct {
	config  *BucketConfig
	service string

	// now is captured exactly once per call so the date stamp, credential
	// scope, and signature always agree, even across a UTC midnight.
	now func() time.Time
}

// NewPresigner returns a Presigner for the given bucket configuration.
func NewPresigner(config *BucketConfig) *Presigner {
	return &Presigner{config: config, service: defaultService, now: time.Now}
}

// PresignURL generates a presigned URL authorizing one request for expires
// seconds. Presigned URLs carry their authentication in query parameters,
// so the returned URL is self-contained: no additional headers are needed
// by whoever performs the request.
//
// method is typically GET or PUT; for POST support see PresignPOST.
//
// https://docs.aws.amazon.com/AmazonS3/latest/API/sigv4-query-string-auth.html
func (p *Presigner) PresignURL(method, bucketPath string, expires int) (*url.URL, error) {
	if expires < minExpires {
		return nil, fmt.Errorf("%w: expiration time %d is below the minimum of one second", ErrExpiresOutOfRange, expires)
	}
	if expires > maxExpires {
		return nil, fmt.Errorf("%w: expiration time %d is above the maximum of one week (%d seconds)", ErrExpiresOutOfRange, expires, maxExpires)
	}
	key := bucketPath
	if len(key) == 0 || key[0] != '/' {
		key = "/" + key
	}

	now := p.now().UTC()
	amzDate := now.Format("20060102T150405Z")
	dateStamp := now.Format("20060102")
	scope := credentialScope(dateStamp, p.config.bucketRegion, p.service)

	params := []queryParam{
		{"X-Amz-Algorithm", signingAlgorithm},
		{"X-Amz-Credential", p.config.accessKey + "/" + scope},
		{"X-Amz-Date", amzDate},
		{"X-Amz-Expires", strconv.Itoa(expires)},
	}
	if p.config.sessionToken != "" {
		params = append(params, queryParam{"X-Amz-Security-Token", p.config.sessionToken})
	}
	params = append(params, queryParam{"X-Amz-SignedHeaders", "host"})

	headers := map[string]string{"host": p.config.bucketHost}
	request := canonicalRequest(method, key, params, headers, unsignedPayload)
	toSign := stringToSign(amzDate, scope, request)
	key4 := signingKey(p.config.secretKey, dateStamp, p.config.bucketRegion, p.service)
	params = append(params, queryParam{"X-Amz-Signature", signature(key4, toSign)})

	return &url.URL{
		Scheme:   "https",
		Host:     p.config.bucketHost,
		Path:     key,
		RawQuery: canonicalQueryString(params),
	}, nil
}
