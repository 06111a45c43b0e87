package storage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/zinco/internal/models"
)

// Gorm stores a device's keys as rows of models.DeviceRecord.
type Gorm struct {
	db    *gorm.DB
	scope string
}

// NewGorm returns the storage of the device identified by scope.
func NewGorm(db *gorm.DB, scope string) *Gorm {
	return &Gorm{db: db, scope: scope}
}

func (g *Gorm) Get(key string) ([]byte, error) {
	var record models.DeviceRecord
	err := g.db.Where("scope = ? AND key = ?", g.scope, key).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load %s/%s: %w", g.scope, key, err)
	}
	return []byte(record.Value), nil
}

func (g *Gorm) Set(key string, value []byte) error {
	record := models.DeviceRecord{
		Scope:     g.scope,
		Key:       key,
		Value:     string(value),
		UpdatedAt: time.Now(),
	}

	err := g.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("save %s/%s: %w", g.scope, key, err)
	}
	return nil
}

func (g *Gorm) Remove(key string) error {
	err := g.db.Where("scope = ? AND key = ?", g.scope, key).Delete(&models.DeviceRecord{}).Error
	if err != nil {
		return fmt.Errorf("remove %s/%s: %w", g.scope, key, err)
	}
	return nil
}
