package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DoyleJ11/hero-assign-backend/internal/engine"
)

// recordID is the primary key of the only row the table ever holds.
const recordID = 1

type stateRecord struct {
	ID          uint              `gorm:"primaryKey;autoIncrement:false"`
	Order       []string          `gorm:"column:hero_order;type:jsonb;serializer:json;not null"`
	Assignments map[string]string `gorm:"type:jsonb;serializer:json;not null"`
}

func (stateRecord) TableName() string { return "assignment_state" }

// Postgres keeps the record as a single row, replaced inside a transaction.
type Postgres struct {
	db *gorm.DB
}

var _ Storage = (*Postgres)(nil)

// OpenPostgres connects with dsn and migrates the schema.
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewPostgres(db)
}

func NewPostgres(db *gorm.DB) (*Postgres, error) {
	if err := db.AutoMigrate(&stateRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Load(ctx context.Context) (engine.State, error) {
	var rec stateRecord
	err := p.db.WithContext(ctx).First(&rec, recordID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return engine.State{}, ErrNotFound
	}
	if err != nil {
		return engine.State{}, fmt.Errorf("load state: %w", err)
	}
	return engine.State{Order: rec.Order, Assignments: rec.Assignments}, nil
}

func (p *Postgres) Save(ctx context.Context, s engine.State) error {
	rec := stateRecord{ID: recordID, Order: s.Order, Assignments: s.Assignments}
	if rec.Assignments == nil {
		rec.Assignments = map[string]string{}
	}
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"hero_order", "assignments"}),
		}).Create(&rec).Error
	})
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
