package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	sqliteDialector "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var (
	// ErrUnsupportedDialect indicates that no GORM dialector is available for the scheme.
	ErrUnsupportedDialect = errors.New("token_store.unsupported_dialect")

	errEmptyDatabaseURL    = errors.New("token_store.empty_database_url")
	errSQLiteEmptyPath     = errors.New("token_store.sqlite.empty_path")
	errSQLiteInvalidURL    = errors.New("token_store.sqlite.invalid_url")
	errUnsupportedNoScheme = errors.New("token_store.unsupported_no_scheme")
)

// DatabaseTokenStore persists the token slots of one profile using GORM.
type DatabaseTokenStore struct {
	db          *gorm.DB
	driverLabel string
	profile     string
	keys        Keys
}

type sessionTokenRecord struct {
	Profile       string `gorm:"column:profile;primaryKey"`
	Key           string `gorm:"column:slot_key;primaryKey"`
	Value         string `gorm:"column:value;not null"`
	UpdatedAtUnix int64  `gorm:"column:updated_at_unix;not null"`
}

func (sessionTokenRecord) TableName() string {
	return "session_tokens"
}

// NewDatabaseTokenStore opens the database, migrates the table, and scopes the store to a profile.
func NewDatabaseTokenStore(ctx context.Context, databaseURL string, profile string, keys Keys) (*DatabaseTokenStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("token_store.open: %w", errEmptyDatabaseURL)
	}
	dialector, driverLabel, err := resolveDialector(databaseURL)
	if err != nil {
		return nil, err
	}
	gormDB, openErr := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if openErr != nil {
		return nil, fmt.Errorf("token_store.open.%s: %w", driverLabel, openErr)
	}
	if migrateErr := gormDB.WithContext(ctx).AutoMigrate(&sessionTokenRecord{}); migrateErr != nil {
		return nil, fmt.Errorf("token_store.migrate.%s: %w", driverLabel, migrateErr)
	}
	return &DatabaseTokenStore{
		db:          gormDB,
		driverLabel: driverLabel,
		profile:     profile,
		keys:        keys,
	}, nil
}

// Driver exposes the selected database driver label.
func (store *DatabaseTokenStore) Driver() string {
	return store.driverLabel
}

// Close releases the underlying connection pool.
func (store *DatabaseTokenStore) Close() error {
	sqlDB, err := store.db.DB()
	if err != nil {
		return fmt.Errorf("token_store.close.%s: %w", store.driverLabel, err)
	}
	return sqlDB.Close()
}

// Get returns the value of a slot, or an empty string when the slot is empty.
func (store *DatabaseTokenStore) Get(ctx context.Context, slot Slot) (string, error) {
	key, err := store.keys.For(slot)
	if err != nil {
		return "", err
	}
	var record sessionTokenRecord
	findErr := store.db.WithContext(ctx).
		Where("profile = ? AND slot_key = ?", store.profile, key).
		Take(&record).Error
	if errors.Is(findErr, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if findErr != nil {
		return "", fmt.Errorf("token_store.get.%s: %w", store.driverLabel, findErr)
	}
	return record.Value, nil
}

// Set upserts a slot.
func (store *DatabaseTokenStore) Set(ctx context.Context, slot Slot, value string) error {
	key, err := store.keys.For(slot)
	if err != nil {
		return err
	}
	if upsertErr := store.upsert(store.db.WithContext(ctx), key, value); upsertErr != nil {
		return fmt.Errorf("token_store.set.%s: %w", store.driverLabel, upsertErr)
	}
	return nil
}

// Clear deletes a slot.
func (store *DatabaseTokenStore) Clear(ctx context.Context, slot Slot) error {
	key, err := store.keys.For(slot)
	if err != nil {
		return err
	}
	deleteErr := store.db.WithContext(ctx).
		Where("profile = ? AND slot_key = ?", store.profile, key).
		Delete(&sessionTokenRecord{}).Error
	if deleteErr != nil {
		return fmt.Errorf("token_store.clear.%s: %w", store.driverLabel, deleteErr)
	}
	return nil
}

// SetPair upserts both slots in one transaction.
func (store *DatabaseTokenStore) SetPair(ctx context.Context, pair TokenPair) error {
	txErr := store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := store.upsert(tx, store.keys.Access, pair.AccessToken); err != nil {
			return err
		}
		return store.upsert(tx, store.keys.Refresh, pair.RefreshToken)
	})
	if txErr != nil {
		return fmt.Errorf("token_store.set_pair.%s: %w", store.driverLabel, txErr)
	}
	return nil
}

// ClearAll deletes both slots in one statement.
func (store *DatabaseTokenStore) ClearAll(ctx context.Context) error {
	deleteErr := store.db.WithContext(ctx).
		Where("profile = ? AND slot_key IN ?", store.profile, []string{store.keys.Access, store.keys.Refresh}).
		Delete(&sessionTokenRecord{}).Error
	if deleteErr != nil {
		return fmt.Errorf("token_store.clear_all.%s: %w", store.driverLabel, deleteErr)
	}
	return nil
}

func (store *DatabaseTokenStore) upsert(tx *gorm.DB, key string, value string) error {
	record := sessionTokenRecord{
		Profile:       store.profile,
		Key:           key,
		Value:         value,
		UpdatedAtUnix: time.Now().UTC().Unix(),
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile"}, {Name: "slot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at_unix"}),
	}).Create(&record).Error
}

func resolveDialector(databaseURL string) (gorm.Dialector, string, error) {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return nil, "", fmt.Errorf("token_store.parse_url: %w", err)
	}
	if parsed.Scheme == "" {
		return nil, "", fmt.Errorf("token_store.dialect: %w", errUnsupportedNoScheme)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "postgres", "postgresql":
		return postgres.Open(databaseURL), "postgres", nil
	case "sqlite", "sqlite3":
		dsn, dsnErr := buildSQLiteDSN(parsed)
		if dsnErr != nil {
			return nil, "", fmt.Errorf("token_store.sqlite: %w", dsnErr)
		}
		return sqliteDialector.Open(dsn), "sqlite", nil
	default:
		return nil, "", fmt.Errorf("token_store.dialect.%s: %w", strings.ToLower(parsed.Scheme), ErrUnsupportedDialect)
	}
}

func buildSQLiteDSN(parsed *url.URL) (string, error) {
	if parsed == nil {
		return "", errSQLiteInvalidURL
	}
	var builder strings.Builder
	switch {
	case parsed.Opaque != "":
		builder.WriteString(parsed.Opaque)
	case parsed.Host != "":
		builder.WriteString(parsed.Host)
		if parsed.Path != "" {
			if !strings.HasPrefix(parsed.Path, "/") {
				builder.WriteString("/")
			}
			builder.WriteString(parsed.Path)
		}
	default:
		builder.WriteString(parsed.Path)
	}
	if builder.Len() == 0 {
		return "", errSQLiteEmptyPath
	}
	if parsed.RawQuery != "" {
		builder.WriteString("?")
		builder.WriteString(parsed.RawQuery)
	}
	return builder.String(), nil
}
