package store

import (
	"fmt"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"strings"
	"time"
)

// Build is a record of one compilation run
type Build struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	Node      string    `gorm:"index" json:"node"`
	Platform  string    `json:"platform"`
	Hash      string    `gorm:"index" json:"hash"`
	Config    string    `json:"-"`
	Success   bool      `json:"success"`
	Errors    string    `json:"errors,omitempty"`
	Program   string    `json:"program,omitempty"`
}

// Reading is single sensor value received from device
type Reading struct {
	ID     uint      `gorm:"primaryKey" json:"-"`
	TS     time.Time `gorm:"index" json:"ts"`
	Node   string    `gorm:"index:idx_node_sensor" json:"node"`
	Sensor string    `gorm:"index:idx_node_sensor" json:"sensor"`
	Name   string    `json:"name"`
	Unit   string    `json:"unit"`
	Value  float64   `json:"value"`
}

type Config struct {
	// DSN is either postgres URL/keyword string or sqlite file path
	DSN    string
	Logger *zap.SugaredLogger
}

type Store struct {
	db *gorm.DB
	l  *zap.SugaredLogger
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

func New(cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}
	var dialector gorm.Dialector
	if isPostgres(cfg.DSN) {
		dialector = postgres.Open(cfg.DSN)
	} else {
		dialector = sqlite.Open(cfg.DSN)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if strings.Contains(cfg.DSN, ":memory:") {
		// every connection would get its own in-memory database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&Build{}, &Reading{}); err != nil {
		return nil, fmt.Errorf("error migrating database: %w", err)
	}
	cfg.Logger.Infof("database ready (%s)", dialector.Name())
	return &Store{db: db, l: cfg.Logger}, nil
}

func (s *Store) SaveBuild(b *Build) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	return s.db.Create(b).Error
}

// ListBuilds returns newest builds first, without program text
func (s *Store) ListBuilds(limit int) ([]Build, error) {
	var out []Build
	err := s.db.
		Omit("program", "config").
		Order("id desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (s *Store) GetBuild(id uint) (*Build, error) {
	var b Build
	if err := s.db.First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) SaveReading(r *Reading) error {
	return s.db.Create(r).Error
}

// Readings returns most recent readings of the node, optionally narrowed to one sensor
func (s *Store) Readings(node string, sensor string, limit int) ([]Reading, error) {
	var out []Reading
	q := s.db.Where("node = ?", node)
	if sensor != "" {
		q = q.Where("sensor = ?", sensor)
	}
	err := q.Order("ts desc").Limit(limit).Find(&out).Error
	return out, err
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
