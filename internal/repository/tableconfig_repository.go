package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"tableconfig-editor/internal/model"
)

type tableConfigRepository struct {
	db *gorm.DB
}

// NewTableConfigRepository creates a GORM-backed TableConfigRepository
func NewTableConfigRepository(db *gorm.DB) TableConfigRepository {
	return &tableConfigRepository{db: db}
}

// List retrieves table configurations with filtering and pagination
func (r *tableConfigRepository) List(ctx context.Context, filter ListFilter) ([]*model.TableConfig, int64, error) {
	var configs []*model.TableConfig
	var total int64

	query := r.db.WithContext(ctx).Model(&model.TableConfig{})

	if filter.SourceSystem != "" {
		query = query.Where("SourceSystem = ?", filter.SourceSystem)
	}
	if filter.TableKey != "" {
		query = query.Where("TableKey LIKE ?", "%"+filter.TableKey+"%")
	}
	if filter.TableName != "" {
		query = query.Where("TableName LIKE ?", "%"+filter.TableName+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	result := query.Limit(filter.Limit).Offset(filter.Offset).
		Order("SourceSystem, TableName").Find(&configs)
	if result.Error != nil {
		return nil, 0, result.Error
	}

	return configs, total, nil
}

// GetByKey retrieves a table configuration by its TableKey
func (r *tableConfigRepository) GetByKey(ctx context.Context, tableKey string) (*model.TableConfig, error) {
	var cfg model.TableConfig
	result := r.db.WithContext(ctx).Where("TableKey = ?", tableKey).First(&cfg)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTableConfigNotFound
		}
		return nil, result.Error
	}
	return &cfg, nil
}

// Upsert replaces the row for cfg.TableKey, inserting it if absent
func (r *tableConfigRepository) Upsert(ctx context.Context, cfg *model.TableConfig) error {
	return r.db.WithContext(ctx).Save(cfg).Error
}

// Delete removes a table configuration row
func (r *tableConfigRepository) Delete(ctx context.Context, tableKey string) error {
	return r.db.WithContext(ctx).Where("TableKey = ?", tableKey).Delete(&model.TableConfig{}).Error
}

// DistinctSourceSystems lists the distinct SourceSystem values, sorted
func (r *tableConfigRepository) DistinctSourceSystems(ctx context.Context) ([]string, error) {
	var systems []string
	err := r.db.WithContext(ctx).Model(&model.TableConfig{}).
		Distinct("SourceSystem").Order("SourceSystem").Pluck("SourceSystem", &systems).Error
	if err != nil {
		return nil, err
	}
	return systems, nil
}

// Ping verifies the underlying connection is alive
func (r *tableConfigRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
