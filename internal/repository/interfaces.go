package repository

import (
	"context"

	"tableconfig-editor/internal/model"
)

// ListFilter narrows and pages the table-configuration list view.
type ListFilter struct {
	// Exact match on SourceSystem ("" means all)
	SourceSystem string
	// Case-insensitive substring match on TableKey
	TableKey string
	// Case-insensitive substring match on TableName
	TableName string
	Limit     int
	Offset    int
}

// TableConfigRepository defines the storage contract for table-configuration
// rows. Implementations exist for the app-local MySQL store and for the
// Databricks and Snowflake warehouse backends.
type TableConfigRepository interface {
	// List retrieves configurations matching the filter, plus the total
	// count before paging, ordered by SourceSystem then TableName
	List(ctx context.Context, filter ListFilter) ([]*model.TableConfig, int64, error)

	// GetByKey retrieves one configuration row by its TableKey
	GetByKey(ctx context.Context, tableKey string) (*model.TableConfig, error)

	// Upsert replaces the row for cfg.TableKey, or inserts it if absent.
	// Last writer wins; there is no concurrent-edit detection.
	Upsert(ctx context.Context, cfg *model.TableConfig) error

	// Delete removes a configuration row
	Delete(ctx context.Context, tableKey string) error

	// DistinctSourceSystems lists the distinct SourceSystem values, sorted
	DistinctSourceSystems(ctx context.Context) ([]string, error)

	// Ping verifies the backing store is reachable
	Ping(ctx context.Context) error
}
