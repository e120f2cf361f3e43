package config

import "time"

type SecurityConfig interface {
	GetSessionIdleTimeout() time.Duration
	GetCheckWait() time.Duration
	GetCheckTimeout() time.Duration
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetSessionIdleTimeout is how long an unused session stays in memory
func (Security) GetSessionIdleTimeout() time.Duration {
	return GetEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute)
}

// GetCheckWait is how long a page request waits for a pending auth check before showing the waiting page
func (Security) GetCheckWait() time.Duration {
	return GetEnvDuration("CHECK_WAIT", 2*time.Second)
}

func (Security) GetCheckTimeout() time.Duration {
	return GetEnvDuration("CHECK_TIMEOUT", 10*time.Second)
}
