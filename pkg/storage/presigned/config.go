package presigned

// Config holds presigned backend configuration. Credentials and bucket
// fields left empty fall back to the AWS_* environment variables.
type Config struct {
	AccessKey    string `json:"access_key"`
	SecretKey    string `json:"secret_key"`
	BucketHost   string `json:"bucket_host"`
	BucketName   string `json:"bucket_name"`
	BucketRegion string `json:"bucket_region"`
	Prefix       string `json:"prefix"`

	// Expires is the lifetime of each generated presigned request in
	// seconds. Requests are performed immediately, so the default is
	// deliberately short.
	Expires int `json:"expires"`

	// Endpoint optionally redirects requests to a different server while
	// still signing for the bucket host, for S3-compatible test targets.
	Endpoint string `json:"endpoint"`
}
