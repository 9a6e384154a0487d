// Package local is an auth.Provider that keeps accounts in a SQL database
// through gorm. It signs HS256 id tokens and hands emailed action links to
// a Mailer.
package local

import (
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/conneroisu/syllabus/internal/errors"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Account is a stored user.
type Account struct {
	ID            string `gorm:"primaryKey;size:36"`
	Email         string `gorm:"uniqueIndex;size:320;not null"`
	PasswordHash  string `gorm:"not null"`
	DisplayName   string `gorm:"size:128"`
	EmailVerified bool   `gorm:"not null;default:false"`
	Disabled      bool   `gorm:"not null;default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ActionCode is a single-use code embedded in an emailed link.
type ActionCode struct {
	Code      string `gorm:"primaryKey;size:36"`
	Kind      string `gorm:"index;size:32;not null"`
	AccountID string `gorm:"index;size:36;not null"`
	Email     string `gorm:"size:320"`
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Open connects to the account database and migrates its tables.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "unsupported auth database driver: "+driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeProvider, "failed to open auth database")
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the account tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Account{}, &ActionCode{}); err != nil {
		return errors.WrapIO(err, errors.ErrCodeProvider, "failed to migrate auth database")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
