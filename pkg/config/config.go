package config

import (
	"github.com/envkeeper/envkeeper/pkg/storage"
)

// Profile defines one storage target a dotenv file is synced with
type Profile struct {
	Name    string                 `json:"name"`
	Type    string                 `json:"type"` // presigned, s3, backblaze, sftp, local
	Enabled *bool                  `json:"enabled,omitempty"`
	BaseDir string                 `json:"base_dir,omitempty"` // prefix for objects in this profile
	Options map[string]interface{} `json:"options,omitempty"`  // backend-specific options
}

// IsEnabled returns whether the profile is active (defaults to true)
func (p *Profile) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Storage converts the profile into a backend configuration
func (p *Profile) Storage() storage.Config {
	return storage.Config{
		Name:    p.Name,
		Type:    p.Type,
		Enabled: p.IsEnabled(),
		BaseDir: p.BaseDir,
		Options: p.Options,
	}
}

// Config is the root configuration structure
type Config struct {
	EnvFile             string    `json:"env_file,omitempty"`              // default dotenv file to push (default: .env)
	MaxConcurrentPushes int       `json:"max_concurrent_pushes,omitempty"` // default: 4
	SnapshotKeep        int       `json:"snapshot_keep,omitempty"`         // snapshots kept by prune (default: 10)
	LogLevel            string    `json:"log_level,omitempty"`             // debug, info, warn, error (default: info)
	LogFormat           string    `json:"log_format,omitempty"`            // json, console (default: json)
	Profiles            []Profile `json:"profiles"`
}

// EnabledProfiles returns the active profiles as backend configurations
func (c *Config) EnabledProfiles() []storage.Config {
	var configs []storage.Config
	for i := range c.Profiles {
		if c.Profiles[i].IsEnabled() {
			configs = append(configs, c.Profiles[i].Storage())
		}
	}
	return configs
}

// FindProfile returns the profile with the given name, or nil
func (c *Config) FindProfile(name string) *Profile {
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			return &c.Profiles[i]
		}
	}
	return nil
}

// GetEnvFile returns the dotenv file to sync (defaults to .env)
func (c *Config) GetEnvFile() string {
	if c.EnvFile != "" {
		return c.EnvFile
	}
	return ".env"
}

// GetMaxConcurrentPushes returns the max concurrent pushes (defaults to 4)
func (c *Config) GetMaxConcurrentPushes() int {
	if c.MaxConcurrentPushes > 0 {
		return c.MaxConcurrentPushes
	}
	return 4
}

// GetSnapshotKeep returns how many snapshots prune retains (defaults to 10)
func (c *Config) GetSnapshotKeep() int {
	if c.SnapshotKeep > 0 {
		return c.SnapshotKeep
	}
	return 10
}

// GetLogLevel returns the log level (defaults to info)
func (c *Config) GetLogLevel() string {
	if c.LogLevel != "" {
		return c.LogLevel
	}
	return "info"
}

// GetLogFormat returns the log format (defaults to json)
func (c *Config) GetLogFormat() string {
	if c.LogFormat != "" {
		return c.LogFormat
	}
	return "json"
}
