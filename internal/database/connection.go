package database

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wincap/wincap/internal/models"
)

const (
	defaultDBName = "wincap.db"
	defaultDBDir  = ".config/wincap"

	// how long a writer waits on a locked database
	busyTimeout = 5 * time.Second
)

// DB is the history store connection
type DB struct {
	*gorm.DB
}

// defaultPath places the database under the user's config directory
func defaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, defaultDBDir, defaultDBName), nil
}

// Connect opens (creating if needed) the sqlite history database at dbPath.
// An empty path uses ~/.config/wincap/wincap.db.
func Connect(dbPath string) (*DB, error) {
	if dbPath == "" {
		p, err := defaultPath()
		if err != nil {
			return nil, err
		}
		dbPath = p
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create database directory")
	}

	gdb, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", dbPath)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get underlying sql.DB")
	}
	sqlDB.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=" + strconv.FormatInt(busyTimeout.Milliseconds(), 10),
	}
	for _, p := range pragmas {
		if err := gdb.Exec(p).Error; err != nil {
			sqlDB.Close()
			return nil, errors.Wrapf(err, "failed to apply %q", p)
		}
	}

	return &DB{gdb}, nil
}

// Initialize migrates the history schema
func (db *DB) Initialize() error {
	err := db.AutoMigrate(
		&models.CommandEntry{},
		&models.Screenshot{},
		&models.GIFRecord{},
		&models.ErrorLog{},
	)
	return errors.Wrap(err, "failed to initialize database schema")
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying sql.DB")
	}
	return sqlDB.Close()
}
