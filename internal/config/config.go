// Package config loads pennywise settings from viper and exposes the
// configured owner to the core.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
)

// DefaultDatabasePath is used when database.path is unset.
const DefaultDatabasePath = "$HOME/.local/share/pennywise/pennywise.db"

// Config holds every setting the CLI reads.
type Config struct {
	Location *time.Location
	Database struct {
		Path string
	}
	Logging struct {
		Level  string
		Format string
	}
	Owner    model.OwnerID
	Locale   string
	Timezone string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("locale", "en")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads the configuration from v. The database path is expanded and
// the timezone resolved. An empty owner is allowed here; commands that
// touch data resolve it through StaticOwner.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Owner:    model.OwnerID(strings.TrimSpace(v.GetString("owner"))),
		Locale:   v.GetString("locale"),
		Timezone: v.GetString("timezone"),
	}
	cfg.Database.Path = ExpandPath(v.GetString("database.path"))
	if cfg.Database.Path == "" {
		cfg.Database.Path = ExpandPath(DefaultDatabasePath)
	}
	cfg.Logging.Level = v.GetString("logging.level")
	cfg.Logging.Format = v.GetString("logging.format")

	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", common.ErrInvalidConfig, cfg.Timezone, err)
	}
	cfg.Location = loc

	return cfg, nil
}

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}

	return os.ExpandEnv(path)
}

// StaticOwner resolves every call to one configured owner.
type StaticOwner model.OwnerID

// Owner returns the configured owner, or a BadRequest error when none is set.
func (s StaticOwner) Owner(_ context.Context) (model.OwnerID, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", common.BadRequestf("no owner configured: set owner in config.yaml, PENNYWISE_OWNER or --owner")
	}
	return model.OwnerID(s), nil
}
