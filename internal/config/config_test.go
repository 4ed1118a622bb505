package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("PENNYWISE_TEST_DIR", "/var/data")

	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "~", want: home},
		{in: "~/ledger.db", want: filepath.Join(home, "ledger.db")},
		{in: "$PENNYWISE_TEST_DIR/ledger.db", want: "/var/data/ledger.db"},
		{in: "/abs/ledger.db", want: "/abs/ledger.db"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, ExpandPath(DefaultDatabasePath), cfg.Database.Path)
	assert.Equal(t, "en", cfg.Locale)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "UTC", cfg.Location.String())
	assert.Empty(t, cfg.Owner)
}

func TestLoad_Overrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("owner", "  alice ")
	v.Set("timezone", "Asia/Ho_Chi_Minh")
	v.Set("database.path", "/tmp/pennywise.db")
	v.Set("locale", "vi")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, model.OwnerID("alice"), cfg.Owner)
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.Location.String())
	assert.Equal(t, "/tmp/pennywise.db", cfg.Database.Path)
	assert.Equal(t, "vi", cfg.Locale)
}

func TestLoad_InvalidTimezone(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("timezone", "Mars/Olympus_Mons")

	_, err := Load(v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidConfig))
}

func TestStaticOwner(t *testing.T) {
	owner, err := StaticOwner("alice").Owner(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OwnerID("alice"), owner)

	_, err = StaticOwner("").Owner(context.Background())
	assert.Equal(t, common.KindBadRequest, common.KindOf(err))
}
