package sessions

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jrsteele09/medix-console/internal/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var _ Repo = (*SQLiteRepo)(nil)

// tokenRow is one credential of one session
type tokenRow struct {
	SessionID string `gorm:"primaryKey;size:64"`
	Key       string `gorm:"primaryKey;size:32"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (tokenRow) TableName() string {
	return "session_tokens"
}

// SQLiteRepo persists credentials in a local SQLite file
type SQLiteRepo struct {
	db *gorm.DB
}

// OpenSQLiteRepo opens (and migrates) the database at path, creating parent folders as needed
func OpenSQLiteRepo(path string) (*SQLiteRepo, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("[OpenSQLiteRepo] create %s: %w", dir, err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("[OpenSQLiteRepo] open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&tokenRow{}); err != nil {
		return nil, fmt.Errorf("[OpenSQLiteRepo] migrate: %w", err)
	}
	return &SQLiteRepo{db: db}, nil
}

// Close releases the underlying connection pool
func (r *SQLiteRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *SQLiteRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *SQLiteRepo) Save(ctx context.Context, sessionID string, pair Pair) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}
	now := NowTimeFunc()
	rows := []tokenRow{
		{SessionID: sessionID, Key: KeyAccessToken, Value: pair.AccessToken, UpdatedAt: now},
		{SessionID: sessionID, Key: KeyRefreshToken, Value: pair.RefreshToken, UpdatedAt: now},
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("[SQLiteRepo Save] %w", err)
	}
	return nil
}

func (r *SQLiteRepo) ReplaceAccess(ctx context.Context, sessionID, expectedRefresh, access string) error {
	if sessionID == "" || expectedRefresh == "" {
		return errors.ErrCredentialsChanged
	}
	result := r.db.WithContext(ctx).Model(&tokenRow{}).
		Where("session_id = ? AND key = ?", sessionID, KeyAccessToken).
		Where("EXISTS (SELECT 1 FROM session_tokens r WHERE r.session_id = ? AND r.key = ? AND r.value = ?)",
			sessionID, KeyRefreshToken, expectedRefresh).
		Updates(map[string]any{"value": access, "updated_at": NowTimeFunc()})
	if result.Error != nil {
		return fmt.Errorf("[SQLiteRepo ReplaceAccess] %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrCredentialsChanged
	}
	return nil
}

func (r *SQLiteRepo) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&tokenRow{}).Error; err != nil {
		return fmt.Errorf("[SQLiteRepo Clear] %w", err)
	}
	return nil
}

func (r *SQLiteRepo) Get(ctx context.Context, sessionID, key string) (string, error) {
	var row tokenRow
	err := r.db.WithContext(ctx).Where("session_id = ? AND key = ?", sessionID, key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", errors.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("[SQLiteRepo Get] %w", err)
	}
	if row.Value == "" {
		return "", errors.ErrNotFound
	}
	return row.Value, nil
}
