package awssig

import (
	"encoding/json"
	"reflect"
	"strings"
)

// Condition is one clause of an upload policy, restricting the acceptable
// values of a form field in a presigned POST. Conditions come in two shapes:
// an exact-match mapping like {"acl": "public-read"} or an operator triple
// like ["starts-with", "$key", "user/user1/"].
//
// https://docs.aws.amazon.com/AmazonS3/latest/API/sigv4-HTTPPOSTConstructPolicy.html
type Condition interface {
	json.Marshaler
	// lower returns a copy with the condition key (exact field name or
	// operator) folded to lowercase, the canonical policy form.
	lower() Condition
}

// ExactCondition requires a form field to equal Value exactly. It marshals
// as a single-entry JSON object.
type ExactCondition struct {
	Field string
	Value any
}

// Exact builds an exact-match condition.
func Exact(field string, value any) ExactCondition {
	return ExactCondition{Field: field, Value: value}
}

func (c ExactCondition) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{c.Field: c.Value})
}

func (c ExactCondition) lower() Condition {
	c.Field = strings.ToLower(c.Field)
	return c
}

// MatchCondition is an operator condition, marshaled as a JSON array of the
// operator followed by its operands.
type MatchCondition struct {
	Op   string
	Args []any
}

// Match builds an operator condition such as a "starts-with" prefix match.
// The field operand keeps the "$" prefix AWS uses for form-field references.
func Match(op, field string, value any) MatchCondition {
	return MatchCondition{Op: op, Args: []any{field, value}}
}

// ContentLengthRange limits the upload size to [min, max] bytes. Callers in
// this module only ever pin an exact size (min == max); the true range form
// is accepted for completeness.
func ContentLengthRange(min, max int64) MatchCondition {
	return MatchCondition{Op: "content-length-range", Args: []any{min, max}}
}

func (c MatchCondition) MarshalJSON() ([]byte, error) {
	parts := make([]any, 0, len(c.Args)+1)
	parts = append(parts, c.Op)
	parts = append(parts, c.Args...)
	return json.Marshal(parts)
}

func (c MatchCondition) lower() Condition {
	c.Op = strings.ToLower(c.Op)
	return c
}

// UploadPolicy is the canonical policy document for a presigned POST:
// an expiration timestamp (ISO-8601 with millisecond precision, ending in
// "Z") and an ordered list of conditions.
type UploadPolicy struct {
	Expiration string      `json:"expiration"`
	Conditions []Condition `json:"conditions"`
}

// normalizeConditions lowercases condition keys and removes structural
// duplicates, keeping the first occurrence of each. It returns a fresh
// slice and never mutates its input, so condition lists can be reused
// safely across calls.
func normalizeConditions(conditions []Condition) []Condition {
	normalized := make([]Condition, 0, len(conditions))
	for _, condition := range conditions {
		lowered := condition.lower()
		duplicate := false
		for _, seen := range normalized {
			if reflect.DeepEqual(seen, lowered) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			normalized = append(normalized, lowered)
		}
	}
	return normalized
}
