package awssig

import (
	"sort"
	"strings"
)

// unsignedPayload is the payload hash sentinel for presigned requests,
// which never sign the request body.
const unsignedPayload = "UNSIGNED-PAYLOAD"

type queryParam struct {
	name  string
	value string
}

// uriEncode percent-encodes a string following the SigV4 rules: unreserved
// characters (A-Z, a-z, 0-9, '-', '.', '_', '~') pass through, everything
// else becomes %XX with uppercase hex. Spaces encode as %20, never '+'.
// Path encoding keeps '/' literal; query encoding does not.
func uriEncode(s string, encodeSlash bool) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z',
			c >= 'A' && c <= 'Z',
			c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		case c == '/' && !encodeSlash:
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0xf])
		}
	}
	return b.String()
}

// canonicalQueryString encodes and sorts query parameters into the form
// required for a canonical request: key=value pairs joined by '&', ordered
// alphabetically by encoded key, using query (not path) encoding rules.
func canonicalQueryString(params []queryParam) string {
	encoded := make([]string, len(params))
	for i, p := range params {
		encoded[i] = uriEncode(p.name, true) + "=" + uriEncode(p.value, true)
	}
	sort.Strings(encoded)
	return strings.Join(encoded, "&")
}

// canonicalRequest assembles the canonical request string for query-string
// authentication. Headers are emitted as "lowercase-name:value\n" in name
// order; because each header line carries its own trailing newline, the
// final join produces the two consecutive newlines that must separate the
// headers block from the signed-headers line.
//
// https://docs.aws.amazon.com/general/latest/gr/sigv4-create-canonical-request.html
func canonicalRequest(method, path string, params []queryParam, headers map[string]string, payloadHash string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	lowered := make(map[string]string, len(headers))
	names := make([]string, 0, len(headers))
	for name, value := range headers {
		name = strings.ToLower(name)
		lowered[name] = value
		names = append(names, name)
	}
	sort.Strings(names)

	var canonicalHeaders strings.Builder
	for _, name := range names {
		canonicalHeaders.WriteString(name)
		canonicalHeaders.WriteByte(':')
		canonicalHeaders.WriteString(lowered[name])
		canonicalHeaders.WriteByte('\n')
	}
	signedHeaders := strings.Join(names, ";")

	parts := []string{
		method,
		uriEncode(path, false),
		canonicalQueryString(params),
		canonicalHeaders.String(),
		signedHeaders,
		payloadHash,
	}
	return strings.Join(parts, "\n")
}
