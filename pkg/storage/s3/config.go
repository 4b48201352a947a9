package s3

// Config holds S3 configuration
type Config struct {
	Endpoint        string `json:"endpoint"` // Optional: for MinIO / localstack
	Region          string `json:"region"`   // AWS region
	Bucket          string `json:"bucket"`   // S3 bucket name
	Prefix          string `json:"prefix"`   // Object key prefix
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token"`    // Optional: temporary credentials
	ForcePathStyle  bool   `json:"force_path_style"` // For MinIO / localstack
}
