package warehouse

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"tableconfig-editor/internal/model"
	"tableconfig-editor/internal/repository"
	"tableconfig-editor/internal/schema"
)

// databricksStore implements TableConfigRepository against the
// configuration table living in a Databricks catalog. Statements go through
// the SQL Statement Execution API; there is no session state beyond the
// injected client.
type databricksStore struct {
	client    *DatabricksClient
	tableName string
}

// NewDatabricksStore creates a Databricks-backed TableConfigRepository for
// the table identified by cfg.Catalog/cfg.Schema/cfg.Table.
func NewDatabricksStore(client *DatabricksClient, cfg DatabricksConfig) repository.TableConfigRepository {
	return &databricksStore{
		client:    client,
		tableName: qualifiedName(cfg.Catalog, cfg.Schema, cfg.Table),
	}
}

const tableConfigColumns = "TableKey, SourceSystem, TableName, DataSchema, PrimaryKeys, ScdJoinKeys, ScdSequenceKeys"

func (s *databricksStore) List(ctx context.Context, filter repository.ListFilter) ([]*model.TableConfig, int64, error) {
	where := buildWhere(filter)

	countRows, err := s.client.Execute(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s%s", s.tableName, where))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count table configurations: %w", err)
	}
	total, err := parseCount(countRows)
	if err != nil {
		return nil, 0, err
	}

	stmt := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY SourceSystem, TableName LIMIT %d OFFSET %d",
		tableConfigColumns, s.tableName, where, filter.Limit, filter.Offset)
	rows, err := s.client.Execute(ctx, stmt)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list table configurations: %w", err)
	}

	configs := make([]*model.TableConfig, 0, len(rows))
	for _, row := range rows {
		cfg, err := scanTableConfig(row)
		if err != nil {
			return nil, 0, err
		}
		configs = append(configs, cfg)
	}
	return configs, total, nil
}

func (s *databricksStore) GetByKey(ctx context.Context, tableKey string) (*model.TableConfig, error) {
	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE TableKey = %s",
		tableConfigColumns, s.tableName, quoteLiteral(tableKey))
	rows, err := s.client.Execute(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch table configuration: %w", err)
	}
	if len(rows) == 0 {
		return nil, repository.ErrTableConfigNotFound
	}
	return scanTableConfig(rows[0])
}

func (s *databricksStore) Upsert(ctx context.Context, cfg *model.TableConfig) error {
	assignments := fmt.Sprintf(
		"SourceSystem = %s, TableName = %s, DataSchema = %s, PrimaryKeys = %s, ScdJoinKeys = %s, ScdSequenceKeys = %s",
		quoteLiteral(cfg.SourceSystem),
		quoteLiteral(cfg.Name),
		quoteLiteral(cfg.DataSchema),
		quoteLiteral(schema.EncodeKeyList(cfg.PrimaryKeys)),
		quoteLiteral(schema.EncodeKeyList(cfg.ScdJoinKeys)),
		quoteLiteral(schema.EncodeKeyList(cfg.ScdSequenceKeys)),
	)

	stmt := fmt.Sprintf(
		"MERGE INTO %s AS target USING (SELECT %s AS TableKey) AS src ON target.TableKey = src.TableKey "+
			"WHEN MATCHED THEN UPDATE SET %s "+
			"WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s, %s, %s, %s, %s, %s, %s)",
		s.tableName, quoteLiteral(cfg.TableKey), assignments, tableConfigColumns,
		quoteLiteral(cfg.TableKey),
		quoteLiteral(cfg.SourceSystem),
		quoteLiteral(cfg.Name),
		quoteLiteral(cfg.DataSchema),
		quoteLiteral(schema.EncodeKeyList(cfg.PrimaryKeys)),
		quoteLiteral(schema.EncodeKeyList(cfg.ScdJoinKeys)),
		quoteLiteral(schema.EncodeKeyList(cfg.ScdSequenceKeys)),
	)

	if _, err := s.client.Execute(ctx, stmt); err != nil {
		return fmt.Errorf("failed to upsert table configuration: %w", err)
	}
	return nil
}

func (s *databricksStore) Delete(ctx context.Context, tableKey string) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE TableKey = %s", s.tableName, quoteLiteral(tableKey))
	if _, err := s.client.Execute(ctx, stmt); err != nil {
		return fmt.Errorf("failed to delete table configuration: %w", err)
	}
	return nil
}

func (s *databricksStore) DistinctSourceSystems(ctx context.Context) ([]string, error) {
	stmt := fmt.Sprintf("SELECT DISTINCT SourceSystem FROM %s ORDER BY SourceSystem", s.tableName)
	rows, err := s.client.Execute(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to list source systems: %w", err)
	}

	systems := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) > 0 {
			systems = append(systems, asString(row[0]))
		}
	}
	return systems, nil
}

func (s *databricksStore) Ping(ctx context.Context) error {
	_, err := s.client.Execute(ctx, "SELECT 1")
	return err
}

// scanTableConfig maps one result row (in tableConfigColumns order) onto the
// model. Key-list columns pass through the lenient parser since old rows may
// hold comma-separated strings.
func scanTableConfig(row []interface{}) (*model.TableConfig, error) {
	if len(row) < 7 {
		return nil, fmt.Errorf("unexpected result width %d", len(row))
	}
	return &model.TableConfig{
		TableKey:        asString(row[0]),
		SourceSystem:    asString(row[1]),
		Name:            asString(row[2]),
		DataSchema:      asString(row[3]),
		PrimaryKeys:     schema.ParseKeyList(asString(row[4])),
		ScdJoinKeys:     schema.ParseKeyList(asString(row[5])),
		ScdSequenceKeys: schema.ParseKeyList(asString(row[6])),
	}, nil
}

// parseCount reads the single cell of a COUNT(*) result
func parseCount(rows [][]interface{}) (int64, error) {
	if len(rows) != 1 || len(rows[0]) != 1 {
		return 0, fmt.Errorf("unexpected COUNT result shape")
	}
	total, err := strconv.ParseInt(asString(rows[0][0]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected COUNT result %q: %w", asString(rows[0][0]), err)
	}
	return total, nil
}

// buildWhere renders the list filter as a WHERE clause ("" when empty)
func buildWhere(filter repository.ListFilter) string {
	var conds []string
	if filter.SourceSystem != "" {
		conds = append(conds, fmt.Sprintf("SourceSystem = %s", quoteLiteral(filter.SourceSystem)))
	}
	if filter.TableKey != "" {
		conds = append(conds, fmt.Sprintf("LOWER(TableKey) LIKE %s", quoteLiteral("%"+strings.ToLower(filter.TableKey)+"%")))
	}
	if filter.TableName != "" {
		conds = append(conds, fmt.Sprintf("LOWER(TableName) LIKE %s", quoteLiteral("%"+strings.ToLower(filter.TableName)+"%")))
	}
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// qualifiedName renders catalog.schema.table with each part backquoted, so
// identifiers starting with a digit stay valid.
func qualifiedName(catalog, schemaName, table string) string {
	return fmt.Sprintf("`%s`.`%s`.`%s`", catalog, schemaName, table)
}

// quoteLiteral renders a SQL string literal with single quotes doubled
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func asString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
