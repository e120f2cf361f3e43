package config

import (
	"strings"
	"time"
)

type API struct{}

var _ APIConfig = API{}

// GetAPIBaseURL returns the remote pharmacy API root without a trailing slash
func (API) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv("API_URL", "http://localhost:8000/api"), "/")
}

func (API) GetAPITimeout() time.Duration {
	return GetEnvDuration("API_TIMEOUT", 15*time.Second)
}
