package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tableconfig-editor/internal/middleware"
	"tableconfig-editor/internal/model"
	"tableconfig-editor/internal/repository"
	"tableconfig-editor/internal/schema"
)

// Service-level errors surfaced to controllers
var (
	ErrTableConfigNotFound = repository.ErrTableConfigNotFound
	ErrTableConfigExists   = repository.ErrTableConfigExists
)

type TableConfigService interface {
	ListTableConfigs(ctx context.Context, req *ListTableConfigsRequest) (*ListTableConfigsResponse, error)
	GetTableConfig(ctx context.Context, tableKey string) (*TableConfigDetail, error)
	SaveSchema(ctx context.Context, tableKey string, rows []schema.EditableRow) (*TableConfigDetail, error)
	CreateTableConfig(ctx context.Context, req *CreateTableConfigRequest) (*TableConfigDetail, error)
	UpdateTableConfig(ctx context.Context, tableKey string, req *UpdateTableConfigRequest) (*TableConfigDetail, error)
	DeleteTableConfig(ctx context.Context, tableKey string) error
	SourceSystems(ctx context.Context) ([]string, error)
}

type tableConfigService struct {
	repo repository.TableConfigRepository
}

// ListTableConfigsRequest is the view state of the list page: filters plus
// paging, echoed back in the response so the UI carries no ambient state.
type ListTableConfigsRequest struct {
	SourceSystem string `json:"sourceSystem,omitempty"`
	TableKey     string `json:"tableKey,omitempty"`
	TableName    string `json:"tableName,omitempty"`
	Limit        int    `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
	Offset       int    `json:"offset,omitempty" validate:"omitempty,min=0"`
}

// TableConfigSummary is one row of the list view; the schema document is
// deliberately left out (it can be large).
type TableConfigSummary struct {
	TableKey     string `json:"tableKey"`
	SourceSystem string `json:"sourceSystem"`
	TableName    string `json:"tableName"`
}

type ListTableConfigsResponse struct {
	TableConfigs []*TableConfigSummary `json:"tableConfigs"`
	Total        int64                 `json:"total"`
	SourceSystem string                `json:"sourceSystem,omitempty"`
	TableKey     string                `json:"tableKey,omitempty"`
	TableName    string                `json:"tableName,omitempty"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

// TableConfigDetail is the edit view of one configuration: the grid rows
// (with the stored key lists applied), the three key lists, any drift
// between metadata flags and the stored lists, and the raw document.
type TableConfigDetail struct {
	TableKey        string               `json:"tableKey"`
	SourceSystem    string               `json:"sourceSystem"`
	TableName       string               `json:"tableName"`
	Fields          []schema.EditableRow `json:"fields"`
	PrimaryKeys     []string             `json:"primaryKeys"`
	ScdJoinKeys     []string             `json:"scdJoinKeys"`
	ScdSequenceKeys []string             `json:"scdSequenceKeys"`
	FlagDrift       []schema.FlagDrift   `json:"flagDrift,omitempty"`
	RawSchema       string               `json:"rawSchema"`
}

type CreateTableConfigRequest struct {
	TableKey     string               `json:"tableKey" validate:"required,min=1,max=255"`
	SourceSystem string               `json:"sourceSystem" validate:"required,min=1,max=255"`
	TableName    string               `json:"tableName" validate:"required,min=1,max=255"`
	Fields       []schema.EditableRow `json:"fields,omitempty"`
}

type UpdateTableConfigRequest struct {
	SourceSystem *string `json:"sourceSystem,omitempty" validate:"omitempty,min=1,max=255"`
	TableName    *string `json:"tableName,omitempty" validate:"omitempty,min=1,max=255"`
}

// NewTableConfigService creates a new instance of TableConfigService
func NewTableConfigService(repo repository.TableConfigRepository) TableConfigService {
	return &tableConfigService{
		repo: repo,
	}
}

func (s *tableConfigService) ListTableConfigs(ctx context.Context, req *ListTableConfigsRequest) (*ListTableConfigsResponse, error) {
	// Set default values
	if req.Limit == 0 {
		req.Limit = 20
	}
	if req.Limit > 100 {
		req.Limit = 100
	}

	configs, total, err := s.track("list", func() ([]*model.TableConfig, int64, error) {
		return s.repo.List(ctx, repository.ListFilter{
			SourceSystem: req.SourceSystem,
			TableKey:     req.TableKey,
			TableName:    req.TableName,
			Limit:        req.Limit,
			Offset:       req.Offset,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list table configurations: %w", err)
	}

	summaries := make([]*TableConfigSummary, 0, len(configs))
	for _, cfg := range configs {
		summaries = append(summaries, &TableConfigSummary{
			TableKey:     cfg.TableKey,
			SourceSystem: cfg.SourceSystem,
			TableName:    cfg.Name,
		})
	}

	return &ListTableConfigsResponse{
		TableConfigs: summaries,
		Total:        total,
		SourceSystem: req.SourceSystem,
		TableKey:     req.TableKey,
		TableName:    req.TableName,
		Limit:        req.Limit,
		Offset:       req.Offset,
	}, nil
}

func (s *tableConfigService) GetTableConfig(ctx context.Context, tableKey string) (*TableConfigDetail, error) {
	if tableKey == "" {
		return nil, fmt.Errorf("table key cannot be empty")
	}

	cfg, err := s.repo.GetByKey(ctx, tableKey)
	if err != nil {
		if errors.Is(err, repository.ErrTableConfigNotFound) {
			return nil, ErrTableConfigNotFound
		}
		return nil, fmt.Errorf("failed to get table configuration: %w", err)
	}

	return buildDetail(cfg)
}

// SaveSchema reduces the edited grid rows back into canonical form and
// persists the document together with the three recomputed key lists in one
// upsert. Validation runs to completion before any write, so an invalid row
// set never reaches storage.
func (s *tableConfigService) SaveSchema(ctx context.Context, tableKey string, rows []schema.EditableRow) (*TableConfigDetail, error) {
	cfg, err := s.repo.GetByKey(ctx, tableKey)
	if err != nil {
		if errors.Is(err, repository.ErrTableConfigNotFound) {
			return nil, ErrTableConfigNotFound
		}
		return nil, fmt.Errorf("failed to load table configuration: %w", err)
	}

	original, err := schema.ParseDocument(cfg.DataSchema)
	if err != nil {
		return nil, fmt.Errorf("stored schema for %s is unreadable: %w", tableKey, err)
	}

	reduction, err := schema.FromEditableRows(rows, original)
	if err != nil {
		return nil, err
	}

	encoded, err := reduction.Document.Encode()
	if err != nil {
		return nil, err
	}

	cfg.DataSchema = encoded
	cfg.PrimaryKeys = reduction.PrimaryKeys
	cfg.ScdJoinKeys = reduction.ScdJoinKeys
	cfg.ScdSequenceKeys = reduction.ScdSequenceKeys

	if err := s.upsert(ctx, cfg); err != nil {
		return nil, err
	}

	return buildDetail(cfg)
}

func (s *tableConfigService) CreateTableConfig(ctx context.Context, req *CreateTableConfigRequest) (*TableConfigDetail, error) {
	existing, err := s.repo.GetByKey(ctx, req.TableKey)
	if err != nil && !errors.Is(err, repository.ErrTableConfigNotFound) {
		return nil, fmt.Errorf("failed to check table configuration: %w", err)
	}
	if existing != nil {
		return nil, ErrTableConfigExists
	}

	reduction, err := schema.FromEditableRows(req.Fields, schema.Document{})
	if err != nil {
		return nil, err
	}

	encoded, err := reduction.Document.Encode()
	if err != nil {
		return nil, err
	}

	cfg := &model.TableConfig{
		TableKey:        req.TableKey,
		SourceSystem:    req.SourceSystem,
		Name:            req.TableName,
		DataSchema:      encoded,
		PrimaryKeys:     reduction.PrimaryKeys,
		ScdJoinKeys:     reduction.ScdJoinKeys,
		ScdSequenceKeys: reduction.ScdSequenceKeys,
	}

	if err := s.upsert(ctx, cfg); err != nil {
		return nil, err
	}

	return buildDetail(cfg)
}

func (s *tableConfigService) UpdateTableConfig(ctx context.Context, tableKey string, req *UpdateTableConfigRequest) (*TableConfigDetail, error) {
	cfg, err := s.repo.GetByKey(ctx, tableKey)
	if err != nil {
		if errors.Is(err, repository.ErrTableConfigNotFound) {
			return nil, ErrTableConfigNotFound
		}
		return nil, fmt.Errorf("failed to get table configuration: %w", err)
	}

	if req.SourceSystem != nil {
		cfg.SourceSystem = *req.SourceSystem
	}
	if req.TableName != nil {
		cfg.Name = *req.TableName
	}

	if err := s.upsert(ctx, cfg); err != nil {
		return nil, err
	}

	return buildDetail(cfg)
}

func (s *tableConfigService) DeleteTableConfig(ctx context.Context, tableKey string) error {
	if tableKey == "" {
		return fmt.Errorf("table key cannot be empty")
	}

	start := time.Now()
	err := s.repo.Delete(ctx, tableKey)
	middleware.RecordStorageOperation("delete", err == nil, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to delete table configuration: %w", err)
	}
	return nil
}

func (s *tableConfigService) SourceSystems(ctx context.Context) ([]string, error) {
	systems, err := s.repo.DistinctSourceSystems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list source systems: %w", err)
	}
	return systems, nil
}

func (s *tableConfigService) upsert(ctx context.Context, cfg *model.TableConfig) error {
	start := time.Now()
	err := s.repo.Upsert(ctx, cfg)
	middleware.RecordStorageOperation("upsert", err == nil, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to persist table configuration: %w", err)
	}
	return nil
}

func (s *tableConfigService) track(op string, fn func() ([]*model.TableConfig, int64, error)) ([]*model.TableConfig, int64, error) {
	start := time.Now()
	configs, total, err := fn()
	middleware.RecordStorageOperation(op, err == nil, time.Since(start))
	return configs, total, err
}

// buildDetail projects a stored row onto the edit view: parse the document,
// flatten to grid rows, then apply the stored key lists. The stored lists
// win for display; disagreements with the metadata flags are reported as
// drift instead of being silently reconciled.
func buildDetail(cfg *model.TableConfig) (*TableConfigDetail, error) {
	doc, err := schema.ParseDocument(cfg.DataSchema)
	if err != nil {
		return nil, fmt.Errorf("stored schema for %s is unreadable: %w", cfg.TableKey, err)
	}

	rows, drift := schema.ApplyKeyLists(schema.ToEditableRows(doc),
		cfg.PrimaryKeys, cfg.ScdJoinKeys, cfg.ScdSequenceKeys)

	return &TableConfigDetail{
		TableKey:        cfg.TableKey,
		SourceSystem:    cfg.SourceSystem,
		TableName:       cfg.Name,
		Fields:          rows,
		PrimaryKeys:     cfg.PrimaryKeys,
		ScdJoinKeys:     cfg.ScdJoinKeys,
		ScdSequenceKeys: cfg.ScdSequenceKeys,
		FlagDrift:       drift,
		RawSchema:       cfg.DataSchema,
	}, nil
}
