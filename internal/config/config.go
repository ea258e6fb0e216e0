// Package config loads stu settings from config.yaml, STU_* environment
// variables and command-line overrides, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/stu/internal/paths"
	"github.com/mesh-intelligence/stu/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "STU"
)

// Config keys.
const (
	KeyDataDir     = "data_dir"
	KeyDBFile      = "db_file"
	KeyAssetDir    = "asset_dir"
	KeyAssetPrefix = "asset_prefix"
	KeyListenAddr  = "listen_addr"
)

const defaultAssetDir = "public/favicon"

// Defaults returns the built-in settings. DataDir and AssetDir are left
// empty; they are resolved relative to the working directory at load time.
func Defaults() types.Config {
	return types.Config{
		DBFile:      "projects.db",
		AssetPrefix: "/favicon/",
		ListenAddr:  ":8080",
		Log: types.LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Favicon: types.FaviconConfig{
			Timeout:      5 * time.Second,
			MaxRedirects: 3,
			UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		},
		Restore: types.RestoreConfig{MaxBytes: 256 << 20},
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault(KeyDataDir, "")
	v.SetDefault(KeyDBFile, d.DBFile)
	v.SetDefault(KeyAssetDir, "")
	v.SetDefault(KeyAssetPrefix, d.AssetPrefix)
	v.SetDefault(KeyListenAddr, d.ListenAddr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("favicon.timeout", d.Favicon.Timeout)
	v.SetDefault("favicon.max_redirects", d.Favicon.MaxRedirects)
	v.SetDefault("favicon.user_agent", d.Favicon.UserAgent)
	v.SetDefault("restore.atomic", false)
	v.SetDefault("restore.max_bytes", d.Restore.MaxBytes)
}

// Overrides are values supplied on the command line.
type Overrides struct {
	DataDir    string
	ListenAddr string
}

// Load reads config.yaml from configDir, applies STU_* environment
// variables and overrides, and returns the validated settings with
// absolute directories. A missing config.yaml is not an error.
func Load(configDir string, o Overrides) (types.Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	// data_dir from the file ranks above STU_DATA_DIR, so read it before
	// the environment is bound.
	fileDataDir := v.GetString(KeyDataDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decode config: %w", err)
	}

	dataDir, err := paths.ResolveDataDir(o.DataDir, fileDataDir)
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg.DataDir = dataDir
	cfg.AssetDir = paths.Under(dataDir, cfg.AssetDir, defaultAssetDir)
	if cfg.Log.File != "" {
		cfg.Log.File = paths.Under(dataDir, cfg.Log.File, "")
	}
	if o.ListenAddr != "" {
		cfg.ListenAddr = o.ListenAddr
	}

	if err := cfg.Validate(); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// DBPath returns the database file path for cfg.
func DBPath(cfg types.Config) string {
	return paths.Under(cfg.DataDir, cfg.DBFile, "projects.db")
}

// WriteDefault creates configDir and a config.yaml holding the default
// settings. An existing file is left untouched. It returns the file path.
func WriteDefault(configDir, dataDir string) (string, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}

	path := filepath.Join(configDir, configFileExt)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat config file: %w", err)
	}

	cfg := Defaults()
	cfg.DataDir = dataDir
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# stu configuration\n# Environment variables STU_<KEY> override these values.\n\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}
