package awssig

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// supportedFormFields are the form data field names S3 accepts in a
// presigned POST, beyond the x-amz-meta-* user metadata prefix.
var supportedFormFields = map[string]struct{}{
	"acl":                          {},
	"cache-control":                {},
	"content-disposition":          {},
	"content-encoding":             {},
	"content-type":                 {},
	"expires":                      {},
	"key":                          {},
	"redirect":                     {},
	"success_action_redirect":      {},
	"success_action_status":        {},
	"x-amz-algorithm":              {},
	"x-amz-credential":             {},
	"x-amz-date":                   {},
	"x-amz-security-token":         {},
	"x-amz-server-side-encryption": {},
}

func supportedFormField(name string) bool {
	if _, ok := supportedFormFields[name]; ok {
		return true
	}
	return strings.HasPrefix(name, "x-amz-meta-")
}

// PostOptions adjusts the policy conditions and form data of a presigned
// POST. The zero value is valid.
type PostOptions struct {
	// ContentLength pins the upload to an exact size in bytes via a
	// content-length-range condition with min == max. Zero omits the
	// condition.
	ContentLength int64

	// ContentType of the uploaded object. Empty omits the condition.
	ContentType string

	// ServerSideEncryption names an encryption algorithm the storage
	// platform should apply, like "AES256" ("SSE-S3" on AWS, "SSE-B2" on
	// Backblaze). Empty omits the condition.
	ServerSideEncryption string

	// DisableContentDisposition suppresses the content-disposition
	// condition that is otherwise derived from the last path segment.
	DisableContentDisposition bool

	// ExtraConditions are appended to the policy after the standard ones.
	ExtraConditions []Condition

	// ExtraFormData is merged over the form fields recovered from the
	// policy. Field names must be supported form fields.
	ExtraFormData map[string]string
}

// PresignPOST generates the URL and form fields authorizing one multipart
// POST upload for expires seconds. Unlike presigned URLs, the object key
// travels as the "key" form field rather than in the URL path, so the
// returned URL targets the bucket root. The caller must submit all returned
// fields as form data, with the file content as a "file" part placed last.
//
// bucketPath may contain a "${filename}" placeholder, in which case the
// policy constrains the key by prefix ("starts-with") and the uploader
// supplies the final name.
//
// https://docs.aws.amazon.com/AmazonS3/latest/API/sigv4-authentication-HTTPPOST.html
// https://docs.aws.amazon.com/AmazonS3/latest/API/sigv4-post-example.html
func (p *Presigner) PresignPOST(bucketPath string, expires int, opts PostOptions) (*url.URL, map[string]string, error) {
	key := strings.TrimPrefix(bucketPath, "/")

	now := p.now().UTC()
	amzDate := now.Format("20060102T150405Z")
	dateStamp := now.Format("20060102")
	expiration := now.Add(time.Duration(expires) * time.Second).Format("2006-01-02T15:04:05.000Z")
	scope := credentialScope(dateStamp, p.config.bucketRegion, p.service)

	required := []Condition{
		Exact("X-Amz-Algorithm", signingAlgorithm),
		Exact("X-Amz-Credential", p.config.accessKey+"/"+scope),
		Exact("X-Amz-Date", amzDate),
	}
	if p.config.sessionToken != "" {
		required = append(required, Exact("X-Amz-Security-Token", p.config.sessionToken))
	}

	policy := p.buildUploadPolicy(expiration, required, key, opts)
	raw, err := json.Marshal(policy)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal upload policy: %w", err)
	}
	encodedPolicy := base64.StdEncoding.EncodeToString(raw)

	key4 := signingKey(p.config.secretKey, dateStamp, p.config.bucketRegion, p.service)
	sig := signature(key4, encodedPolicy)

	fields, err := formDataFromPolicy(policy, opts.ExtraFormData)
	if err != nil {
		return nil, nil, err
	}
	formData := make(map[string]string, len(fields)+2)
	formData["policy"] = encodedPolicy
	for name, value := range fields {
		formData[name] = value
	}
	formData["x-amz-signature"] = sig

	postURL := &url.URL{Scheme: "https", Host: p.config.bucketHost, Path: "/"}
	return postURL, formData, nil
}

// buildUploadPolicy assembles the policy conditions in canonical order:
// the required conditions first, then bucket, key matching,
// content-disposition, content-length-range, content-type, security token,
// server-side encryption, and finally any caller-supplied extras. Keys are
// lowercased and duplicates dropped, keeping first occurrences.
func (p *Presigner) buildUploadPolicy(expiration string, required []Condition, key string, opts PostOptions) UploadPolicy {
	conditions := make([]Condition, 0, len(required)+len(opts.ExtraConditions)+7)
	conditions = append(conditions, required...)

	if p.config.bucketName != "" {
		conditions = append(conditions, Exact("bucket", p.config.bucketName))
	}
	if key != "" && strings.Contains(key, "${filename}") {
		prefix, _, _ := strings.Cut(key, "${filename}")
		conditions = append(conditions, Match("starts-with", "$key", prefix))
	} else if key != "" {
		conditions = append(conditions, Exact("key", key))
	}
	if !opts.DisableContentDisposition {
		segments := strings.Split(key, "/")
		if filename := segments[len(segments)-1]; filename != "" && filename != "${filename}" {
			conditions = append(conditions, Exact("content-disposition", fmt.Sprintf("attachment; filename=%q", filename)))
		}
	}
	if opts.ContentLength > 0 {
		conditions = append(conditions, ContentLengthRange(opts.ContentLength, opts.ContentLength))
	}
	if opts.ContentType != "" {
		conditions = append(conditions, Exact("content-type", opts.ContentType))
	}
	if p.config.sessionToken != "" {
		conditions = append(conditions, Exact("x-amz-security-token", p.config.sessionToken))
	}
	if opts.ServerSideEncryption != "" {
		conditions = append(conditions, Exact("x-amz-server-side-encryption", opts.ServerSideEncryption))
	}
	conditions = append(conditions, opts.ExtraConditions...)

	return UploadPolicy{Expiration: expiration, Conditions: normalizeConditions(conditions)}
}

// formDataFromPolicy recovers the form fields a POST must carry from the
// policy conditions: every exact-match condition on a supported field (or
// an x-amz-meta-* field) becomes a form field. extra is merged afterward,
// overriding recovered values, and the merged result is validated against
// the supported field set.
//
// A "key" field is mandatory in the output even though policies do not
// always pin the key exactly. When the policy only constrains the key by
// prefix, the field is synthesized as the prefix followed by the
// "${filename}" template, which tells the uploader to fill in a name.
func formDataFromPolicy(policy UploadPolicy, extra map[string]string) (map[string]string, error) {
	recovered := make(map[string]any)
	for _, condition := range policy.Conditions {
		exact, ok := condition.(ExactCondition)
		if !ok {
			continue
		}
		name := strings.ToLower(exact.Field)
		if supportedFormField(name) {
			recovered[name] = exact.Value
		}
	}
	for name, value := range extra {
		recovered[strings.ToLower(name)] = value
	}
	for name := range recovered {
		if !supportedFormField(name) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormField, name)
		}
	}

	if value, ok := recovered["key"]; ok {
		if _, isString := value.(string); !isString {
			return nil, fmt.Errorf("%w: key has type %T, expected string", ErrFormDataKeyType, value)
		}
	} else {
		prefix, found := keyPrefixFromConditions(policy.Conditions)
		if !found {
			return nil, fmt.Errorf("%w: key", ErrMissingFormDataKey)
		}
		recovered["key"] = prefix + "${filename}"
	}

	fields := make(map[string]string, len(recovered))
	for name, value := range recovered {
		if s, ok := value.(string); ok {
			fields[name] = s
		}
	}
	return fields, nil
}

// keyPrefixFromConditions finds the first starts-with condition on $key
// whose prefix ends in "/", the only shape from which a usable key template
// can be synthesized.
func keyPrefixFromConditions(conditions []Condition) (string, bool) {
	for _, condition := range conditions {
		match, ok := condition.(MatchCondition)
		if !ok || match.Op != "starts-with" || len(match.Args) != 2 {
			continue
		}
		if field, ok := match.Args[0].(string); !ok || field != "$key" {
			continue
		}
		prefix, ok := match.Args[1].(string)
		if !ok || !strings.HasSuffix(prefix, "/") {
			continue
		}
		return prefix, true
	}
	return "", false
}
