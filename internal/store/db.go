package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Record is one durable leaf of the tree. Subtree values are decomposed into
// leaf rows on write and reassembled on load, so point writes at any depth
// map to row-level operations.
type Record struct {
	Path      string         `gorm:"primaryKey;size:512"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

// DBOptions selects the durable backing: sqlite locally, postgres when a
// host is configured.
type DBOptions struct {
	SQLitePath string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
}

func OpenDB(opts DBOptions, log *logrus.Logger) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	if opts.Host == "" {
		log.WithField("path", opts.SQLitePath).Info("Connecting to SQLite database")
		db, err = gorm.Open(sqlite.Open(opts.SQLitePath), &gorm.Config{})
	} else {
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=require",
			opts.Host, opts.Port, opts.User, opts.Password, opts.Name)
		log.WithField("host", opts.Host).Info("Connecting to PostgreSQL database")
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	}

	if err != nil {
		log.WithError(err).Error("Failed to connect to the database")
		return nil, err
	}
	log.Info("Database connection successful")
	return db, nil
}

// persist replaces the rows under path with the given leaves. Called with
// the store lock held. A nil leaves map is a delete.
func (s *Store) persist(ctx context.Context, path string, leaves map[string]any) error {
	if s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("path = ? OR path LIKE ?", path, path+"/%").Delete(&Record{}).Error
		if err != nil {
			return err
		}
		if len(leaves) == 0 {
			return nil
		}
		records := make([]Record, 0, len(leaves))
		for leafPath, value := range leaves {
			raw, err := json.Marshal(value)
			if err != nil {
				return err
			}
			records = append(records, Record{Path: leafPath, Value: raw})
		}
		return tx.Create(&records).Error
	})
}
