package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/medix-console/internal/config"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	for _, v := range []string{"PORT", "API_URL", "API_TIMEOUT", "STORE_DRIVER", "CHECK_WAIT", "ALLOWED_ORIGINS"} {
		t.Setenv(v, "")
	}
	c := config.New()

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "http://localhost:8000/api", c.GetAPIBaseURL())
	require.Equal(t, 15*time.Second, c.GetAPITimeout())
	require.Equal(t, config.StoreDriverMemory, c.GetStoreDriver())
	require.Equal(t, 2*time.Second, c.GetCheckWait())
	require.Empty(t, c.GetAllowedOrigins())
}

func TestConfig_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("API_URL", "https://pharmacy.example.com/api/")
	t.Setenv("API_TIMEOUT", "3s")
	t.Setenv("CHECK_WAIT", "not-a-duration")
	t.Setenv("REDIS_DB", "4")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	c := config.New()

	require.Equal(t, ":9000", c.GetPort())
	require.Equal(t, "https://pharmacy.example.com/api", c.GetAPIBaseURL())
	require.Equal(t, 3*time.Second, c.GetAPITimeout())
	require.Equal(t, 2*time.Second, c.GetCheckWait())
	require.Equal(t, 4, c.GetRedisDB())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("https://b.example.com"))
	require.False(t, c.GetAllowedOrigins().IsAllowedOrigin("https://c.example.com"))
}
