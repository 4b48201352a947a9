package dotenv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrFileNotFound = errors.New("dotenv file not found")

// Load reads the dotenv file at path into a DotEnv, exporting its
// variables to the process environment.
func Load(path string) (*DotEnv, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load dotenv file %s: %w", path, err)
	}
	d, err := Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("load dotenv file %s: %w", path, err)
	}
	return d, nil
}

// Dump writes the DotEnv to path. Files are created with mode 0600 since
// dotenv files routinely hold credentials.
func Dump(d *DotEnv, path string) error {
	if err := os.WriteFile(path, []byte(d.String()), 0o600); err != nil {
		return fmt.Errorf("dump dotenv file %s: %w", path, err)
	}
	return nil
}

// Find walks from the starting directory up to the filesystem root looking
// for a file with the given name and returns its path. An empty start
// means the current working directory.
func Find(name, start string) (string, error) {
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		start = wd
	}
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: %s (searched from %s)", ErrFileNotFound, name, start)
		}
		dir = parent
	}
}
