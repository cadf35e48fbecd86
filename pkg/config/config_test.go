package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pybundle/pkg/config"
)

func validConfig() config.Config {
	return config.Config{
		Discovery: config.DiscoveryConfig{MaxFileSize: "4MiB"},
		Cache:     config.CacheConfig{Size: 16},
		Logging:   config.LoggingConfig{Level: "info"},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*config.Config) {}},
		{name: "uppercase level", mutate: func(c *config.Config) { c.Logging.Level = "DEBUG" }},
		{name: "unknown level", mutate: func(c *config.Config) { c.Logging.Level = "chatty" }, wantErr: config.ErrInvalidLogLevel},
		{name: "zero cache", mutate: func(c *config.Config) { c.Cache.Size = 0 }, wantErr: config.ErrInvalidCacheSize},
		{name: "bad size", mutate: func(c *config.Config) { c.Discovery.MaxFileSize = "lots" }, wantErr: config.ErrInvalidMaxFileSize},
		{name: "zero size", mutate: func(c *config.Config) { c.Discovery.MaxFileSize = "0" }, wantErr: config.ErrInvalidMaxFileSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tt.wantErr)
			require.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestMaxFileSizeBytes(t *testing.T) {
	t.Parallel()

	cfg := validConfig()

	size, err := cfg.MaxFileSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(4<<20), size)

	cfg.Discovery.MaxFileSize = "2048"
	size, err = cfg.MaxFileSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(2048), size)

	cfg.Discovery.MaxFileSize = ""
	size, err = cfg.MaxFileSizeBytes()
	require.NoError(t, err)
	assert.Zero(t, size)
}
