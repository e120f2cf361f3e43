package config

import "time"

const (
	StoreDriverMemory = "memory"
	StoreDriverRedis  = "redis"
	StoreDriverSQLite = "sqlite"
)

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetStoreDriver() string {
	return GetEnv("STORE_DRIVER", StoreDriverMemory)
}

func (Store) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Store) GetRedisUsername() string {
	return GetEnv("REDIS_USERNAME", "")
}

func (Store) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Store) GetRedisDB() int {
	return GetEnvInt("REDIS_DB", 0)
}

func (Store) GetSQLitePath() string {
	return GetEnv("SQLITE_PATH", "./data/console.db")
}

// GetSessionTTL is how long stored credentials outlive the last save
func (Store) GetSessionTTL() time.Duration {
	return GetEnvDuration("SESSION_TTL", 7*24*time.Hour)
}
