package awssig

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresignPOST(t *testing.T) {
	p := frozenPresigner(exampleConfig(), time.Date(2015, 12, 29, 0, 0, 0, 0, time.UTC))

	u, formData, err := p.PresignPOST("uploads/.env", 3600, PostOptions{
		ContentLength: 42,
		ContentType:   "text/plain",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://examplebucket.s3.amazonaws.com/", u.String())

	assert.Equal(t, "uploads/.env", formData["key"])
	assert.Equal(t, `attachment; filename=".env"`, formData["content-disposition"])
	assert.Equal(t, "text/plain", formData["content-type"])
	assert.Equal(t, "AWS4-HMAC-SHA256", formData["x-amz-algorithm"])
	assert.Equal(t, testAccessKey+"/20151229/us-east-1/s3/aws4_request", formData["x-amz-credential"])
	assert.Equal(t, "20151229T000000Z", formData["x-amz-date"])
	assert.NotContains(t, formData, "x-amz-security-token")

	policy := decodePolicy(t, formData["policy"])
	assert.Equal(t, "2015-12-29T01:00:00.000Z", policy.Expiration)

	key4 := signingKey(testSecretKey, "20151229", "us-east-1", "s3")
	assert.Equal(t, signature(key4, formData["policy"]), formData["x-amz-signature"])
}

func TestPresignPOSTPolicyConditions(t *testing.T) {
	p := frozenPresigner(exampleConfig(), time.Date(2015, 12, 29, 0, 0, 0, 0, time.UTC))

	_, formData, err := p.PresignPOST("uploads/.env", 3600, PostOptions{
		ContentLength:        42,
		ContentType:          "text/plain",
		ServerSideEncryption: "AES256",
	})
	require.NoError(t, err)

	policy := decodePolicy(t, formData["policy"])
	assert.Contains(t, policy.Conditions, json.RawMessage(`{"bucket":"examplebucket"}`))
	assert.Contains(t, policy.Conditions, json.RawMessage(`{"key":"uploads/.env"}`))
	assert.Contains(t, policy.Conditions, json.RawMessage(`["content-length-range",42,42]`))
	assert.Contains(t, policy.Conditions, json.RawMessage(`{"content-type":"text/plain"}`))
	assert.Contains(t, policy.Conditions, json.RawMessage(`{"x-amz-server-side-encryption":"AES256"}`))
	assert.Equal(t, "AES256", formData["x-amz-server-side-encryption"])
}

func TestPresignPOSTSessionToken(t *testing.T) {
	config := exampleConfig()
	config.sessionToken = testSessionToken
	p := frozenPresigner(config, time.Date(2015, 12, 29, 0, 0, 0, 0, time.UTC))

	_, formData, err := p.PresignPOST("uploads/.env", 3600, PostOptions{})
	require.NoError(t, err)

	assert.Equal(t, testSessionToken, formData["x-amz-security-token"])
	policy := decodePolicy(t, formData["policy"])
	tokenCount := 0
	for _, condition := range policy.Conditions {
		if string(condition) == `{"x-amz-security-token":"`+testSessionToken+`"}` {
			tokenCount++
		}
	}
	// Added once as a required condition and once alongside the encryption
	// settings, then deduplicated.
	assert.Equal(t, 1, tokenCount)
}

func TestPresignPOSTFilenameTemplate(t *testing.T) {
	p := frozenPresigner(exampleConfig(), time.Date(2015, 12, 29, 0, 0, 0, 0, time.UTC))

	_, formData, err := p.PresignPOST("user/user1/${filename}", 3600, PostOptions{})
	require.NoError(t, err)

	assert.Equal(t, "user/user1/${filename}", formData["key"])
	assert.NotContains(t, formData, "content-disposition")

	policy := decodePolicy(t, formData["policy"])
	assert.Contains(t, policy.Conditions, json.RawMessage(`["starts-with","$key","user/user1/"]`))
	for _, condition := range policy.Conditions {
		assert.NotContains(t, string(condition), `{"key":`)
	}
}

func TestPresignPOSTDisableContentDisposition(t *testing.T) {
	p := frozenPresigner(exampleConfig(), time.Date(2015, 12, 29, 0, 0, 0, 0, time.UTC))

	_, formData, err := p.PresignPOST("uploads/.env", 3600, PostOptions{DisableContentDisposition: true})
	require.NoError(t, err)
	assert.NotContains(t, formData, "content-disposition")
}

func TestPresignPOSTExtraConditionsAndFormData(t *testing.T) {
	p := frozenPresigner(exampleConfig(), time.Date(2015, 12, 29, 0, 0, 0, 0, time.UTC))

	_, formData, err := p.PresignPOST("uploads/.env", 3600, PostOptions{
		ExtraConditions: []Condition{Exact("X-Amz-Meta-UUID", "14365123651274")},
		ExtraFormData:   map[string]string{"acl": "private"},
	})
	require.NoError(t, err)

	assert.Equal(t, "14365123651274", formData["x-amz-meta-uuid"])
	assert.Equal(t, "private", formData["acl"])
}

func TestPresignPOSTUnsupportedFormField(t *testing.T) {
	p := frozenPresigner(exampleConfig(), time.Date(2015, 12, 29, 0, 0, 0, 0, time.UTC))

	_, _, err := p.PresignPOST("uploads/.env", 3600, PostOptions{
		ExtraFormData: map[string]string{"foobar": "baz"},
	})
	assert.ErrorIs(t, err, ErrUnsupportedFormField)
	assert.ErrorContains(t, err, "foobar")
}

func TestFormDataFromPolicyMissingKey(t *testing.T) {
	policy := UploadPolicy{
		Expiration: "2015-12-30T12:00:00.000Z",
		Conditions: []Condition{Exact("bucket", "examplebucket")},
	}
	_, err := formDataFromPolicy(policy, nil)
	assert.ErrorIs(t, err, ErrMissingFormDataKey)
}

func TestFormDataFromPolicyKeyType(t *testing.T) {
	policy := UploadPolicy{
		Expiration: "2015-12-30T12:00:00.000Z",
		Conditions: []Condition{Exact("key", true)},
	}
	_, err := formDataFromPolicy(policy, nil)
	assert.ErrorIs(t, err, ErrFormDataKeyType)
}

func TestFormDataFromPolicyKeySynthesis(t *testing.T) {
	policy := UploadPolicy{
		Expiration: "2015-12-30T12:00:00.000Z",
		Conditions: []Condition{Match("starts-with", "$key", "user/user1/")},
	}
	fields, err := formDataFromPolicy(policy, nil)
	require.NoError(t, err)
	assert.Equal(t, "user/user1/${filename}", fields["key"])

	// A prefix not ending in "/" cannot produce a usable key template.
	policy.Conditions = []Condition{Match("starts-with", "$key", "user/user1")}
	_, err = formDataFromPolicy(policy, nil)
	assert.ErrorIs(t, err, ErrMissingFormDataKey)
}

// decodePolicy base64-decodes a policy and returns its expiration and raw
// condition documents for structural assertions.
func decodePolicy(t *testing.T, encoded string) struct {
	Expiration string            `json:"expiration"`
	Conditions []json.RawMessage `json:"conditions"`
} {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	var policy struct {
		Expiration string            `json:"expiration"`
		Conditions []json.RawMessage `json:"conditions"`
	}
	require.NoError(t, json.Unmarshal(raw, &policy))
	return policy
}
