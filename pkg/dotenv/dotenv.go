// Package dotenv models ".env" files as an ordered set of environment
// variables. Every mutation is mirrored into the process environment, so a
// DotEnv loaded at startup behaves like variables exported by the shell.
package dotenv

import (
	"errors"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

var ErrVariableNotSet = errors.New("variable not set")

// DotEnv holds environment variables in insertion order. Keys are
// normalized to uppercase with surrounding whitespace removed, values have
// surrounding whitespace and quote characters removed.
//
// DotEnv is not safe for concurrent mutation.
type DotEnv struct {
	keys   []string
	values map[string]string
}

// New returns an empty DotEnv, optionally populated from "KEY=value"
// assignment strings. Arguments that fail to parse are skipped.
func New(assignments ...string) *DotEnv {
	d := &DotEnv{values: make(map[string]string)}
	for _, assignment := range assignments {
		key, value, ok := strings.Cut(assignment, "=")
		if !ok {
			continue
		}
		_ = d.Set(key, value)
	}
	return d
}

// Parse reads variables from dotenv file content and returns a DotEnv
// populated with them. Variables are inserted in sorted key order, since
// the underlying parser does not preserve source order.
func Parse(content string) (*DotEnv, error) {
	parsed, err := godotenv.Unmarshal(content)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(parsed))
	for key := range parsed {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	d := New()
	for _, key := range keys {
		if err := d.Set(key, parsed[key]); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func normalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

func normalizeValue(value string) string {
	return strings.Trim(value, " \"'")
}

// Set stores the variable and exports it to the process environment.
func (d *DotEnv) Set(key, value string) error {
	key = normalizeKey(key)
	value = normalizeValue(value)
	if err := os.Setenv(key, value); err != nil {
		return err
	}
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
	return nil
}

// Get returns the value for key, normalized the same way Set normalizes it.
func (d *DotEnv) Get(key string) (string, bool) {
	value, ok := d.values[normalizeKey(key)]
	return value, ok
}

// Delete removes the variable from the model and unsets it in the process
// environment. Deleting an absent key returns ErrVariableNotSet.
func (d *DotEnv) Delete(key string) error {
	key = normalizeKey(key)
	if _, exists := d.values[key]; !exists {
		return ErrVariableNotSet
	}
	if err := os.Unsetenv(key); err != nil {
		return err
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of variables.
func (d *DotEnv) Len() int {
	return len(d.keys)
}

// Keys returns the variable names in insertion order.
func (d *DotEnv) Keys() []string {
	keys := make([]string, len(d.keys))
	copy(keys, d.keys)
	return keys
}

// Values returns a copy of the variables as a plain map.
func (d *DotEnv) Values() map[string]string {
	values := make(map[string]string, len(d.values))
	for key, value := range d.values {
		values[key] = value
	}
	return values
}

// Merge copies every variable from other into d, overwriting existing
// values and exporting each to the process environment.
func (d *DotEnv) Merge(other *DotEnv) error {
	for _, key := range other.keys {
		if err := d.Set(key, other.values[key]); err != nil {
			return err
		}
	}
	return nil
}

// String serializes the variables as newline-terminated "KEY=value" lines
// in insertion order, the format Dump writes to disk.
func (d *DotEnv) String() string {
	var b strings.Builder
	for _, key := range d.keys {
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(d.values[key])
		b.WriteByte('\n')
	}
	return b.String()
}
