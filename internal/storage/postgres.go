package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/quickcommerce/internal/models"
)

// Postgres stores credentials as rows of the stored_credentials table.
type Postgres struct {
	db        *gorm.DB
	namespace string
}

// NewPostgres returns a store scoped to namespace. The table must already be
// migrated (see database.Migrate).
func NewPostgres(db *gorm.DB, namespace string) *Postgres {
	return &Postgres{db: db, namespace: namespace}
}

func (p *Postgres) Load(ctx context.Context) (Values, error) {
	var rows []models.StoredCredential
	if err := p.db.WithContext(ctx).Where("namespace = ?", p.namespace).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	values := Values{}
	for _, row := range rows {
		values[Key(row.Key)] = row.Value
	}
	return values, nil
}

func (p *Postgres) Set(ctx context.Context, key Key, value string) error {
	if err := validKey(key); err != nil {
		return err
	}
	return p.upsert(p.db.WithContext(ctx), key, value)
}

func (p *Postgres) SetAll(ctx context.Context, values Values) error {
	if err := validValues(values); err != nil {
		return err
	}
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("namespace = ?", p.namespace).Delete(&models.StoredCredential{}).Error; err != nil {
			return fmt.Errorf("reset credentials: %w", err)
		}
		for key, value := range values {
			if err := p.upsert(tx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Postgres) Clear(ctx context.Context) error {
	err := p.db.WithContext(ctx).Where("namespace = ?", p.namespace).Delete(&models.StoredCredential{}).Error
	if err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

func (p *Postgres) upsert(tx *gorm.DB, key Key, value string) error {
	row := models.StoredCredential{Namespace: p.namespace, Key: string(key), Value: value}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("store credential %s: %w", key, err)
	}
	return nil
}
