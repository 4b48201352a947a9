package awssig

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// signingAlgorithm names the SigV4 algorithm in query parameters, policy
// conditions, and the string to sign.
const signingAlgorithm = "AWS4-HMAC-SHA256"

// defaultService is the service component of the credential scope.
const defaultService = "s3"

func hmacSHA256(key []byte, message string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return mac.Sum(nil)
}

// signingKey derives the SigV4 signing key through four chained HMAC-SHA256
// operations: "AWS4"+secret keys the date stamp (YYYYMMDD), whose digest
// keys the region, then the service, then the literal "aws4_request".
//
// https://docs.aws.amazon.com/general/latest/gr/signature-v4-examples.html
func signingKey(secretKey, dateStamp, region, service string) []byte {
	dateKey := hmacSHA256([]byte("AWS4"+secretKey), dateStamp)
	dateRegionKey := hmacSHA256(dateKey, region)
	dateRegionServiceKey := hmacSHA256(dateRegionKey, service)
	return hmacSHA256(dateRegionServiceKey, "aws4_request")
}

// signature computes a single HMAC-SHA256 over stringToSign with the derived
// signing key, hex-encoded in lowercase.
func signature(key []byte, stringToSign string) string {
	return hex.EncodeToString(hmacSHA256(key, stringToSign))
}

// credentialScope binds a signature to a date, region, and service.
func credentialScope(dateStamp, region, service string) string {
	return dateStamp + "/" + region + "/" + service + "/aws4_request"
}

// stringToSign builds the query-authentication string to sign: algorithm,
// request timestamp, credential scope, and the hex SHA-256 of the canonical
// request, joined by newlines. For POST-policy authentication the string to
// sign is the base64-encoded policy document itself, not a digest.
//
// https://docs.aws.amazon.com/general/latest/gr/sigv4-create-string-to-sign.html
func stringToSign(amzDate, scope, canonicalRequest string) string {
	digest := sha256.Sum256([]byte(canonicalRequest))
	parts := []string{
		signingAlgorithm,
		amzDate,
		scope,
		hex.EncodeToString(digest[:]),
	}
	return strings.Join(parts, "\n")
}
