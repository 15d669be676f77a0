package warehouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DatabricksConfig holds the connection settings for a Databricks SQL
// warehouse.
type DatabricksConfig struct {
	WorkspaceURL string `mapstructure:"workspace_url"`
	Token        string `mapstructure:"token"`
	WarehouseID  string `mapstructure:"warehouse_id"`
	Catalog      string `mapstructure:"catalog"`
	Schema       string `mapstructure:"schema"`
	Table        string `mapstructure:"table"`
}

// DatabricksClient talks to the Databricks SQL Statement Execution API. One
// client is constructed at startup and injected into the store; it holds no
// per-session state.
type DatabricksClient struct {
	baseURL      string
	httpClient   *http.Client
	token        string
	warehouseID  string
	pollInterval time.Duration
	maxAttempts  int
}

// NewDatabricksClient creates a new statement-execution client
func NewDatabricksClient(cfg DatabricksConfig) (*DatabricksClient, error) {
	if cfg.WorkspaceURL == "" {
		return nil, fmt.Errorf("workspace URL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("access token is required")
	}
	if cfg.WarehouseID == "" {
		return nil, fmt.Errorf("warehouse ID is required")
	}

	return &DatabricksClient{
		baseURL:      cfg.WorkspaceURL,
		httpClient:   &http.Client{Timeout: 120 * time.Second},
		token:        cfg.Token,
		warehouseID:  cfg.WarehouseID,
		pollInterval: 1 * time.Second,
		maxAttempts:  300,
	}, nil
}

type statementRequest struct {
	Statement   string `json:"statement"`
	WarehouseID string `json:"warehouse_id"`
	WaitTimeout string `json:"wait_timeout,omitempty"`
}

type statementExecution struct {
	StatementID string          `json:"statement_id"`
	Status      statementStatus `json:"status"`
	Result      *statementData  `json:"result,omitempty"`
}

type statementStatus struct {
	State string          `json:"state"` // PENDING, RUNNING, SUCCEEDED, FAILED, CANCELED
	Error *statementError `json:"error,omitempty"`
}

type statementError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}

type statementData struct {
	DataArray [][]interface{} `json:"data_array"`
}

// Execute submits a SQL statement and waits for completion, polling while
// the warehouse reports PENDING or RUNNING. Returns the result rows for
// queries; DML statements return an empty row set.
func (c *DatabricksClient) Execute(ctx context.Context, sql string) ([][]interface{}, error) {
	execution, err := c.submit(ctx, sql)
	if err != nil {
		return nil, err
	}

	attempts := 0
	for {
		switch execution.Status.State {
		case "SUCCEEDED":
			if execution.Result == nil {
				return nil, nil
			}
			return execution.Result.DataArray, nil
		case "FAILED", "CANCELED":
			if execution.Status.Error != nil {
				return nil, fmt.Errorf("statement %s: %s", execution.Status.State, execution.Status.Error.Message)
			}
			return nil, fmt.Errorf("statement %s", execution.Status.State)
		case "PENDING", "RUNNING":
			attempts++
			if attempts > c.maxAttempts {
				return nil, fmt.Errorf("statement timeout after %d attempts", attempts)
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.pollInterval):
			}
			execution, err = c.status(ctx, execution.StatementID)
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unknown statement state: %s", execution.Status.State)
		}
	}
}

// submit posts a statement to the warehouse
func (c *DatabricksClient) submit(ctx context.Context, sql string) (*statementExecution, error) {
	url := fmt.Sprintf("%s/api/2.0/sql/statements", c.baseURL)

	payload := statementRequest{
		Statement:   sql,
		WarehouseID: c.warehouseID,
		WaitTimeout: "30s",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// status fetches the current state of a previously submitted statement
func (c *DatabricksClient) status(ctx context.Context, statementID string) (*statementExecution, error) {
	url := fmt.Sprintf("%s/api/2.0/sql/statements/%s", c.baseURL, statementID)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(req)
}

func (c *DatabricksClient) do(req *http.Request) (*statementExecution, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var execution statementExecution
	if err := json.NewDecoder(resp.Body).Decode(&execution); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &execution, nil
}
