package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	savedata "github.com/hnb-rabear/RCore-sub006"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Row is a persisted save entry.
type Row struct {
	Slot  string `gorm:"column:slot;primaryKey;size:64"`
	Key   string `gorm:"column:k;primaryKey;size:191"`
	Value string `gorm:"column:v;type:mediumtext"`
}

func (Row) TableName() string { return "save_entries" }

// batchSize caps the rows of a single upsert statement.
const batchSize = 200

// Connect establishes a connection to the MySQL database.
func Connect(cfg Config) (*gorm.DB, error) {
	userInfo := url.UserPassword(cfg.User, cfg.Password).String()

	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}

	dsn := fmt.Sprintf("%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		userInfo, cfg.Host, cfg.Port, cfg.Name, timeout, timeout, timeout)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the save_entries table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Row{})
}

// Store is a savedata.Store over one slot of the save_entries table.
type Store struct {
	*savedata.EntryTable

	db   *gorm.DB
	slot string

	mu     sync.Mutex
	closed bool
}

// Open loads the rows of slot.
func Open(ctx context.Context, db *gorm.DB, slot string) (*Store, error) {
	var rows []Row
	if err := db.WithContext(ctx).Where("slot = ?", slot).Order("k").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sqlstore: loading slot %q: %w", slot, err)
	}
	entries := make([]savedata.Entry, len(rows))
	for i, r := range rows {
		entries[i] = savedata.Entry{Key: r.Key, Value: r.Value}
	}
	return &Store{
		EntryTable: savedata.NewEntryTable(entries),
		db:         db,
		slot:       slot,
	}, nil
}

func (s *Store) Slot() string { return s.slot }

// Commit writes pending deletes and upserts in one transaction. On failure
// nothing is cleared, so a later Commit retries the same mutations.
func (s *Store) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return savedata.ErrClosed
	}
	if !s.HasPending() {
		return nil
	}
	puts, dels := s.Pending()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if len(dels) > 0 {
			if err := tx.Where("slot = ? AND k IN ?", s.slot, dels).Delete(&Row{}).Error; err != nil {
				return err
			}
		}
		if len(puts) > 0 {
			rows := make([]Row, len(puts))
			for i, e := range puts {
				rows[i] = Row{Slot: s.slot, Key: e.Key, Value: e.Value}
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "slot"}, {Name: "k"}},
				DoUpdates: clause.AssignmentColumns([]string{"v"}),
			}).CreateInBatches(&rows, batchSize).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sqlstore: commit slot %q: %w", s.slot, err)
	}
	s.ClearPending()
	return nil
}

// Close makes later commits fail. The gorm connection belongs to the caller.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Slots lists the slots having at least one entry.
func Slots(ctx context.Context, db *gorm.DB) ([]string, error) {
	var slots []string
	err := db.WithContext(ctx).Model(&Row{}).Distinct("slot").Order("slot").Pluck("slot", &slots).Error
	return slots, err
}
