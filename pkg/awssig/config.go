// Package awssig implements AWS Signature Version 4 request signing for
// S3-compatible object storage, covering both presigned URLs (query-string
// authentication) and presigned POSTs (policy-document authentication).
//
// AWS S3 and Backblaze B2 are directly supported. Buckets are addressed in
// virtual-hosted style, like <BUCKET_NAME>.s3.<REGION>.amazonaws.com for
// AWS S3 or <BUCKET_NAME>.s3.<REGION>.backblazeb2.com for Backblaze B2.
//
// https://docs.aws.amazon.com/general/latest/gr/signature-version-4.html
// https://docs.aws.amazon.com/AmazonS3/latest/userguide/VirtualHosting.html
package awssig

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables consulted when Params fields are left empty,
// matching the defaults used by the AWS CLI and SDKs. Region is resolved
// from the region variables in the order listed.
const (
	envAccessKey    = "AWS_ACCESS_KEY_ID"
	envSecretKey    = "AWS_SECRET_ACCESS_KEY"
	envSessionToken = "AWS_SESSION_TOKEN"
)

var envRegion = []string{"AWS_S3_REGION", "AWS_REGION", "AWS_DEFAULT_REGION"}

// defaultRegion is applied only when FallbackToDefaultRegion is set.
const defaultRegion = "us-east-1"

// bucketHostSuffixes are the provider domains for which a bucket name can be
// safely parsed out of a virtual-hosted-style bucket host. Other providers
// (Cloudflare R2, DigitalOcean Spaces, ...) do not reliably encode the
// bucket name in the host, so no guess is made for them.
var bucketHostSuffixes = []string{".amazonaws.com", ".backblazeb2.com"}

// Params supplies the inputs for New. Every string field falls back to the
// corresponding AWS environment variable when empty.
type Params struct {
	AccessKey    string
	SecretKey    string
	BucketHost   string
	BucketName   string
	BucketRegion string

	// SessionToken distinguishes three states: nil falls back to
	// AWS_SESSION_TOKEN, a pointer to an empty string disables token use
	// even if the environment variable is set, and a pointer to a
	// non-empty string is used as given.
	SessionToken *string

	// FallbackToDefaultRegion makes New default the region to us-east-1
	// when neither Params nor the environment provide one. This matches
	// the behavior of API-style credential configuration; the stricter
	// object-storage configuration (the default) requires an explicit
	// region. The asymmetry is intentional.
	FallbackToDefaultRegion bool
}

// BucketConfig is a validated, immutable bucket and credential
// configuration. Construct it with New.
type BucketConfig struct {
	accessKey    string
	secretKey    string
	sessionToken string
	bucketHost   string
	bucketName   string
	bucketRegion string
}

// New validates Params, fills in environment fallbacks, and returns an
// immutable BucketConfig. Validation failures report the exact field that
// was missing or inconsistent.
func New(p Params) (*BucketConfig, error) {
	accessKey := p.AccessKey
	if accessKey == "" {
		accessKey = os.Getenv(envAccessKey)
	}
	secretKey := p.SecretKey
	if secretKey == "" {
		secretKey = os.Getenv(envSecretKey)
	}
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("%w: set AccessKey and SecretKey or the %s and %s environment variables",
			ErrMissingCredentials, envAccessKey, envSecretKey)
	}

	host := p.BucketHost
	name := p.BucketName
	if host == "" && name == "" {
		return nil, fmt.Errorf("%w: provide a bucket like <BUCKET_NAME>.s3.<REGION>.amazonaws.com for AWS S3 "+
			"or <BUCKET_NAME>.s3.<REGION>.backblazeb2.com for Backblaze B2", ErrMissingBucket)
	}
	if host != "" && name == "" {
		name = inferBucketName(host)
	}

	region := p.BucketRegion
	for _, env := range envRegion {
		if region != "" {
			break
		}
		region = os.Getenv(env)
	}
	if region == "" && p.FallbackToDefaultRegion {
		region = defaultRegion
	}
	if region == "" {
		return nil, fmt.Errorf("%w: set BucketRegion or one of the %s environment variables",
			ErrMissingRegion, strings.Join(envRegion, ", "))
	}

	if host == "" {
		host = fmt.Sprintf("%s.s3.%s.amazonaws.com", name, region)
	}
	if name != "" && !strings.Contains(host, name) {
		return nil, fmt.Errorf("%w: bucket host %s does not include bucket name %s",
			ErrBucketHostMismatch, host, name)
	}
	if !strings.Contains(host, region) {
		return nil, fmt.Errorf("%w: bucket host %s does not include bucket region %s",
			ErrBucketHostMismatch, host, region)
	}

	token := ""
	if p.SessionToken != nil {
		token = *p.SessionToken
	} else {
		token = os.Getenv(envSessionToken)
	}

	return &BucketConfig{
		accessKey:    accessKey,
		secretKey:    secretKey,
		sessionToken: token,
		bucketHost:   host,
		bucketName:   name,
		bucketRegion: region,
	}, nil
}

// inferBucketName parses a bucket name out of a virtual-hosted-style bucket
// host. The name is the substring before the literal ".s3." marker, and is
// only derived for hosts ending in a recognized provider suffix; for any
// other provider the name stays empty rather than guessed.
func inferBucketName(host string) string {
	recognized := false
	for _, suffix := range bucketHostSuffixes {
		if strings.HasSuffix(host, suffix) {
			recognized = true
			break
		}
	}
	if !recognized {
		return ""
	}
	name, _, found := strings.Cut(host, ".s3.")
	if !found {
		return ""
	}
	return name
}

func (c *BucketConfig) AccessKey() string    { return c.accessKey }
func (c *BucketConfig) BucketHost() string   { return c.bucketHost }
func (c *BucketConfig) BucketName() string   { return c.bucketName }
func (c *BucketConfig) BucketRegion() string { return c.bucketRegion }

// HasSessionToken reports whether a session token is in use.
func (c *BucketConfig) HasSessionToken() bool { return c.sessionToken != "" }

// String describes the configuration without exposing the secret key or
// session token.
func (c *BucketConfig) String() string {
	return fmt.Sprintf("BucketConfig{access_key: %s, bucket_host: %s, bucket_name: %s, bucket_region: %s}",
		c.accessKey, c.bucketHost, c.bucketName, c.bucketRegion)
}
