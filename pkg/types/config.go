package types

import (
	"errors"
	"time"
)

// Config holds the resolved runtime settings for stu. It is produced by the
// config package and consumed by the CLI when wiring components together.
type Config struct {
	DataDir     string        `mapstructure:"data_dir" yaml:"data_dir,omitempty"`
	DBFile      string        `mapstructure:"db_file" yaml:"db_file"`
	AssetDir    string        `mapstructure:"asset_dir" yaml:"asset_dir,omitempty"`
	AssetPrefix string        `mapstructure:"asset_prefix" yaml:"asset_prefix"`
	ListenAddr  string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	Log         LogConfig     `mapstructure:"log" yaml:"log"`
	Favicon     FaviconConfig `mapstructure:"favicon" yaml:"favicon"`
	Restore     RestoreConfig `mapstructure:"restore" yaml:"restore"`
}

// LogConfig selects log level, format and an optional rotating log file.
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file,omitempty"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// FaviconConfig bounds outbound favicon fetches.
type FaviconConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRedirects int           `mapstructure:"max_redirects" yaml:"max_redirects"`
	UserAgent    string        `mapstructure:"user_agent" yaml:"user_agent"`
}

// MarshalYAML writes Timeout in duration notation, e.g. "5s".
func (f FaviconConfig) MarshalYAML() (any, error) {
	return struct {
		Timeout      string `yaml:"timeout"`
		MaxRedirects int    `yaml:"max_redirects"`
		UserAgent    string `yaml:"user_agent"`
	}{f.Timeout.String(), f.MaxRedirects, f.UserAgent}, nil
}

// RestoreConfig toggles the transactional restore variant and caps the
// bytes extracted from an archive. A MaxBytes of 0 disables the cap.
type RestoreConfig struct {
	Atomic   bool  `mapstructure:"atomic" yaml:"atomic"`
	MaxBytes int64 `mapstructure:"max_bytes" yaml:"max_bytes"`
}

// Config validation errors.
var (
	ErrDataDirEmpty     = errors.New("data directory must not be empty")
	ErrDBFileEmpty      = errors.New("database file name must not be empty")
	ErrTimeoutInvalid   = errors.New("favicon timeout must be positive")
	ErrRedirectsInvalid = errors.New("favicon max redirects must not be negative")
	ErrLogFormatUnknown = errors.New("unknown log format")
	ErrRestoreLimit     = errors.New("restore max bytes must not be negative")
)

// Validate checks that the Config is well-formed.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return ErrDataDirEmpty
	}
	if c.DBFile == "" {
		return ErrDBFileEmpty
	}
	if c.Favicon.Timeout <= 0 {
		return ErrTimeoutInvalid
	}
	if c.Favicon.MaxRedirects < 0 {
		return ErrRedirectsInvalid
	}
	if c.Restore.MaxBytes < 0 {
		return ErrRestoreLimit
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return ErrLogFormatUnknown
	}
	return nil
}
