package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/snowflakedb/gosnowflake"

	"tableconfig-editor/internal/model"
	"tableconfig-editor/internal/repository"
	"tableconfig-editor/internal/schema"
)

// SnowflakeConfig holds the connection settings for a Snowflake-hosted
// configuration table.
type SnowflakeConfig struct {
	Account   string `mapstructure:"account"`
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	Database  string `mapstructure:"database"`
	Schema    string `mapstructure:"schema"`
	Warehouse string `mapstructure:"warehouse"`
	Role      string `mapstructure:"role"`
	Table     string `mapstructure:"table"`
}

// OpenSnowflake opens a database/sql handle through the gosnowflake driver.
// The handle is opened once at startup and injected into the store.
func OpenSnowflake(cfg SnowflakeConfig) (*sql.DB, error) {
	if cfg.Account == "" {
		return nil, fmt.Errorf("account is required")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("user is required")
	}

	dsn, err := gosnowflake.DSN(&gosnowflake.Config{
		Account:        cfg.Account,
		User:           cfg.User,
		Password:       cfg.Password,
		Database:       cfg.Database,
		Schema:         cfg.Schema,
		Warehouse:      cfg.Warehouse,
		Role:           cfg.Role,
		LoginTimeout:   30 * time.Second,
		RequestTimeout: 30 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build Snowflake DSN: %w", err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open Snowflake connection: %w", err)
	}
	return db, nil
}

// snowflakeStore implements TableConfigRepository over database/sql with the
// gosnowflake driver.
type snowflakeStore struct {
	db        *sql.DB
	tableName string
}

// NewSnowflakeStore creates a Snowflake-backed TableConfigRepository
func NewSnowflakeStore(db *sql.DB, cfg SnowflakeConfig) repository.TableConfigRepository {
	return &snowflakeStore{
		db:        db,
		tableName: fmt.Sprintf("%s.%s.%s", cfg.Database, cfg.Schema, cfg.Table),
	}
}

func (s *snowflakeStore) List(ctx context.Context, filter repository.ListFilter) ([]*model.TableConfig, int64, error) {
	where, args := snowflakeWhere(filter)

	var total int64
	countStmt := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", s.tableName, where)
	if err := s.db.QueryRowContext(ctx, countStmt, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count table configurations: %w", err)
	}

	stmt := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY SourceSystem, TableName LIMIT ? OFFSET ?",
		tableConfigColumns, s.tableName, where)
	rows, err := s.db.QueryContext(ctx, stmt, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list table configurations: %w", err)
	}
	defer rows.Close()

	var configs []*model.TableConfig
	for rows.Next() {
		cfg, err := scanSnowflakeRow(rows)
		if err != nil {
			return nil, 0, err
		}
		configs = append(configs, cfg)
	}
	return configs, total, rows.Err()
}

func (s *snowflakeStore) GetByKey(ctx context.Context, tableKey string) (*model.TableConfig, error) {
	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE TableKey = ?", tableConfigColumns, s.tableName)
	rows, err := s.db.QueryContext(ctx, stmt, tableKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch table configuration: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, repository.ErrTableConfigNotFound
	}
	return scanSnowflakeRow(rows)
}

func (s *snowflakeStore) Upsert(ctx context.Context, cfg *model.TableConfig) error {
	stmt := fmt.Sprintf(
		"MERGE INTO %s AS target USING (SELECT ? AS TableKey) AS src ON target.TableKey = src.TableKey "+
			"WHEN MATCHED THEN UPDATE SET SourceSystem = ?, TableName = ?, DataSchema = ?, PrimaryKeys = ?, ScdJoinKeys = ?, ScdSequenceKeys = ? "+
			"WHEN NOT MATCHED THEN INSERT (%s) VALUES (?, ?, ?, ?, ?, ?, ?)",
		s.tableName, tableConfigColumns)

	_, err := s.db.ExecContext(ctx, stmt,
		cfg.TableKey,
		cfg.SourceSystem, cfg.Name, cfg.DataSchema,
		schema.EncodeKeyList(cfg.PrimaryKeys),
		schema.EncodeKeyList(cfg.ScdJoinKeys),
		schema.EncodeKeyList(cfg.ScdSequenceKeys),
		cfg.TableKey, cfg.SourceSystem, cfg.Name, cfg.DataSchema,
		schema.EncodeKeyList(cfg.PrimaryKeys),
		schema.EncodeKeyList(cfg.ScdJoinKeys),
		schema.EncodeKeyList(cfg.ScdSequenceKeys),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert table configuration: %w", err)
	}
	return nil
}

func (s *snowflakeStore) Delete(ctx context.Context, tableKey string) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE TableKey = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, stmt, tableKey); err != nil {
		return fmt.Errorf("failed to delete table configuration: %w", err)
	}
	return nil
}

func (s *snowflakeStore) DistinctSourceSystems(ctx context.Context) ([]string, error) {
	stmt := fmt.Sprintf("SELECT DISTINCT SourceSystem FROM %s ORDER BY SourceSystem", s.tableName)
	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to list source systems: %w", err)
	}
	defer rows.Close()

	var systems []string
	for rows.Next() {
		var system string
		if err := rows.Scan(&system); err != nil {
			return nil, err
		}
		systems = append(systems, system)
	}
	return systems, rows.Err()
}

func (s *snowflakeStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rowScanner is satisfied by *sql.Rows and *sql.Row
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnowflakeRow(row rowScanner) (*model.TableConfig, error) {
	var cfg model.TableConfig
	var dataSchema, primaryKeys, scdJoinKeys, scdSequenceKeys sql.NullString

	err := row.Scan(&cfg.TableKey, &cfg.SourceSystem, &cfg.Name,
		&dataSchema, &primaryKeys, &scdJoinKeys, &scdSequenceKeys)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrTableConfigNotFound
		}
		return nil, fmt.Errorf("failed to scan table configuration: %w", err)
	}

	cfg.DataSchema = dataSchema.String
	cfg.PrimaryKeys = schema.ParseKeyList(primaryKeys.String)
	cfg.ScdJoinKeys = schema.ParseKeyList(scdJoinKeys.String)
	cfg.ScdSequenceKeys = schema.ParseKeyList(scdSequenceKeys.String)
	return &cfg, nil
}

// snowflakeWhere renders the list filter as a parameterized WHERE clause
func snowflakeWhere(filter repository.ListFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if filter.SourceSystem != "" {
		conds = append(conds, "SourceSystem = ?")
		args = append(args, filter.SourceSystem)
	}
	if filter.TableKey != "" {
		conds = append(conds, "TableKey ILIKE ?")
		args = append(args, "%"+filter.TableKey+"%")
	}
	if filter.TableName != "" {
		conds = append(conds, "TableName ILIKE ?")
		args = append(args, "%"+filter.TableName+"%")
	}
	if len(conds) == 0 {
		return "", nil
	}
	where := " WHERE " + conds[0]
	for _, c := range conds[1:] {
		where += " AND " + c
	}
	return where, args
}
